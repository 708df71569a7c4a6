package catalog

import (
	"context"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// RepositoryPort abstracts catalog reads for the service.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	ListLowStock(ctx context.Context) ([]Product, error)
}

// Service exposes the catalog read model.
type Service struct {
	repo  RepositoryPort
	authz shared.Authorizer
}

// NewService builds Service.
func NewService(repo RepositoryPort, authz shared.Authorizer) *Service {
	return &Service{repo: repo, authz: authz}
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, p shared.Principal, id int64) (Product, error) {
	if err := s.authz.Authorize(p, shared.ActionCatalogView); err != nil {
		return Product{}, err
	}
	if id <= 0 {
		return Product{}, shared.Invalid("product id required")
	}
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists active products.
func (s *Service) ListProducts(ctx context.Context, p shared.Principal, filter ListFilter) ([]Product, error) {
	if err := s.authz.Authorize(p, shared.ActionCatalogView); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListProducts(ctx, filter)
}

// ListLowStock lists products whose stock reached min_stock.
func (s *Service) ListLowStock(ctx context.Context, p shared.Principal) ([]Product, error) {
	if err := s.authz.Authorize(p, shared.ActionCatalogView); err != nil {
		return nil, err
	}
	return s.repo.ListLowStock(ctx)
}
