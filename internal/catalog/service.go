package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

type Service interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListActiveProducts(ctx context.Context, categoryID *int64) ([]Product, error)
	GetActiveProduct(ctx context.Context, id int64) (*Product, error)
	ActiveProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)

	SaveCategory(ctx context.Context, category *Category) error
	CreateProduct(ctx context.Context, product *Product) error
	DeleteCategory(ctx context.Context, id int64) error
	DeleteProduct(ctx context.Context, id int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	category, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Int64("category_id", id).Msg("service: failed to fetch category")
		return nil, fmt.Errorf("service: failed to fetch category: %w", err)
	}
	return category, nil
}

func (s *service) ListActiveProducts(ctx context.Context, categoryID *int64) ([]Product, error) {
	products, err := s.repo.ListActiveProducts(ctx, categoryID)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list active products")
		return nil, fmt.Errorf("service: failed to list active products: %w", err)
	}
	return products, nil
}

func (s *service) GetActiveProduct(ctx context.Context, id int64) (*Product, error) {
	product, err := s.repo.FindActiveProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	return product, nil
}

func (s *service) ActiveProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	products, err := s.repo.ListActiveProductsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Ints64("product_ids", ids).Msg("service: failed to resolve products")
		return nil, fmt.Errorf("service: failed to resolve products: %w", err)
	}
	return products, nil
}

func (s *service) SaveCategory(ctx context.Context, category *Category) error {
	if category.Name == "" {
		return errors.New("service: category name is required")
	}
	if err := s.repo.UpsertCategory(ctx, category); err != nil {
		return fmt.Errorf("service: failed to save category: %w", err)
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, product *Product) error {
	switch {
	case product.Name == "":
		return errors.New("service: product name is required")
	case product.Price.IsNegative():
		return fmt.Errorf("service: price of %q cannot be negative", product.Name)
	case product.Cost.IsNegative():
		return fmt.Errorf("service: cost of %q cannot be negative", product.Name)
	case product.Stock < 0:
		return fmt.Errorf("service: stock of %q cannot be negative", product.Name)
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("service: failed to create product: %w", err)
	}
	log.Info().Int64("product_id", product.ID).Str("name", product.Name).Msg("service: product created")
	return nil
}

func (s *service) DeleteCategory(ctx context.Context, id int64) error {
	err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrInUse) {
			return err
		}
		log.Error().Err(err).Int64("category_id", id).Msg("service: failed to delete category")
		return fmt.Errorf("service: failed to delete category: %w", err)
	}
	log.Info().Int64("category_id", id).Msg("service: category deleted")
	return nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrInUse) {
			return err
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	log.Info().Int64("product_id", id).Msg("service: product deleted")
	return nil
}
