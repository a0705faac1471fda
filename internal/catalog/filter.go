package catalog

import (
	"fmt"
	"strings"

	"github.com/fjod/storefront/internal/domain"
)

const (
	SortName      = "name"
	SortPrice     = "price"
	SortCategory  = "category"
	SortCreatedAt = "createdAt"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var sortColumns = map[string]string{
	SortName:      "name",
	SortPrice:     "price",
	SortCategory:  "category",
	SortCreatedAt: "created_at",
}

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Order    string
}

// Normalize applies defaults and rejects unknown sort keys or an inverted
// price range.
func (f Filter) Normalize() (Filter, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)

	if f.Sort == "" {
		f.Sort = SortName
	}
	if _, ok := sortColumns[f.Sort]; !ok {
		return f, domain.InvalidArgument("unknown sort field %q", f.Sort)
	}

	f.Order = strings.ToLower(f.Order)
	if f.Order == "" {
		f.Order = OrderAsc
	}
	if f.Order != OrderAsc && f.Order != OrderDesc {
		return f, domain.InvalidArgument("order must be %q or %q", OrderAsc, OrderDesc)
	}

	if f.MinPrice != nil && *f.MinPrice < 0 {
		return f, domain.InvalidArgument("minPrice must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, domain.InvalidArgument("minPrice must not exceed maxPrice")
	}
	return f, nil
}

// where builds the WHERE clause and its positional args.
func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		clauses = append(clauses, "category = "+next(f.Category))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(name) LIKE %s ESCAPE '\' OR LOWER(description) LIKE %s ESCAPE '\')`,
			next(pattern), next(pattern)))
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "price >= "+next(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, "price <= "+next(*f.MaxPrice))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f Filter) orderBy() string {
	dir := "ASC"
	if f.Order == OrderDesc {
		dir = "DESC"
	}
	// id breaks ties so equal keys list in a stable order
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", sortColumns[f.Sort], dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
