package main

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	SourceSample = "sample"
	SourceFeed   = "feed"
)

type SeedOptions struct {
	*RootOptions
	Source  string
	FeedURL string
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty product catalog",
		Long: `Populate the product catalog when it has no products.

The built-in sample products are used by default. With --source=feed the
products are downloaded from a Fake Store compatible API instead.

Example:
  storefront seed
  storefront seed --source=feed --feed-url=https://fakestoreapi.com/products`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", SourceSample, "product source (sample|feed)")
	cmd.Flags().StringVar(&opts.FeedURL, "feed-url", catalog.DefaultFeedURL, "feed URL used with --source=feed")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions) error {
	log := opts.Logger
	cfg := opts.Config

	var products []domain.Product
	switch opts.Source {
	case SourceSample:
		products = catalog.SampleProducts()
	case SourceFeed:
		var err error
		products, err = catalog.NewFeedClient(opts.FeedURL, log).FetchProducts(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch product feed: %w", err)
		}
	default:
		return fmt.Errorf("invalid source %q: must be %q or %q", opts.Source, SourceSample, SourceFeed)
	}

	repo, err := catalog.NewSQLRepository(cfg.CatalogDriver, cfg.CatalogDSN)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	n, err := catalog.SeedIfEmpty(ctx, repo, products)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Info("catalog not empty, skipping seed")
		return nil
	}

	log.Info("seeded catalog", zap.String("source", opts.Source), zap.Int("products", n))
	return nil
}
