package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ProductCatalog is the catalog as the HTTP layer sees it.
type ProductCatalog interface {
	ListProducts(ctx context.Context, filter catalog.Filter) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
}

type ProductHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewProductHandler(catalog ProductCatalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductsResponse struct {
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories"`
	Total      int              `json:"total"`
}

type CreateProductRequestDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
		Order:    q.Get("order"),
	}

	var err error
	if filter.MinPrice, err = parsePrice(q.Get("minPrice")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", "minPrice must be a number")
		return
	}
	if filter.MaxPrice, err = parsePrice(q.Get("maxPrice")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", "maxPrice must be a number")
		return
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		handleServiceError(w, r, catalogError(err))
		return
	}

	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		handleServiceError(w, r, catalogError(err))
		return
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{
		Products:   products,
		Categories: categories,
		Total:      len(products),
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "productId")
	if err := domain.ValidateProductID(id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(w, r, catalogError(err))
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateProductRequestDTO
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p := &domain.Product{
		ID:          req.ID,
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
		Category:    req.Category,
	}
	if err := h.catalog.CreateProduct(ctx, p); err != nil {
		handleServiceError(w, r, catalogError(err))
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

func parsePrice(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// catalogError classifies untyped catalog failures as storage failures.
func catalogError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return err
	}
	return domain.StorageFailure("catalog", err)
}
