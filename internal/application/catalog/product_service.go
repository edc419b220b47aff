package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/catalog"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductService maintains the auto-learned product catalog
type ProductService struct {
	productRepo catalog.ProductRepository
	logger      *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	HSNCode          string          `json:"hsn_code,omitempty"`
	GSTSlab          decimal.Decimal `json:"gst_slab"`
	DefaultRate      decimal.Decimal `json:"default_rate"`
	IsPriceInclusive bool            `json:"is_price_inclusive"`
	UsageCount       int64           `json:"usage_count"`
	LastBilledAt     *time.Time      `json:"last_billed_at,omitempty"`
	Status           string          `json:"status"`
}

// ProductListFilter defines filtering options for product list queries
type ProductListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ListProducts lists catalog products with filtering
func (s *ProductService) ListProducts(ctx context.Context, tenantID uuid.UUID, filter ProductListFilter) ([]ProductResponse, int64, error) {
	domainFilter := catalog.ProductFilter{}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		status := catalog.ProductStatus(filter.Status)
		domainFilter.Status = &status
	}

	products, err := s.productRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.productRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = *toProductResponse(&products[i])
	}
	return responses, total, nil
}

// GetProduct gets a product by ID
func (s *ProductService) GetProduct(ctx context.Context, tenantID, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || product.TenantID != tenantID {
		return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
	}
	return toProductResponse(product), nil
}

// UpsertFromItems registers or refreshes one catalog entry per billed line
// item. Called from the post-commit invoice hook.
func (s *ProductService) UpsertFromItems(ctx context.Context, tenantID uuid.UUID, items billing.LineItems) error {
	for _, item := range items {
		if err := s.upsertOne(ctx, tenantID, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) upsertOne(ctx context.Context, tenantID uuid.UUID, item billing.LineItem) error {
	normalized := catalog.NormalizeProductName(item.Name)

	existing, err := s.productRepo.FindByNormalizedName(ctx, tenantID, normalized)
	if err != nil {
		return err
	}

	if existing == nil {
		product, err := catalog.NewProduct(tenantID, item.Name, item.HSNCode, item.GSTSlab, item.Rate, item.IsPriceInclusive)
		if err != nil {
			return err
		}
		// First billing counts as a use.
		if err := product.RecordBilling(item.HSNCode, item.GSTSlab, item.Rate, item.IsPriceInclusive); err != nil {
			return err
		}
		return s.productRepo.Save(ctx, product)
	}

	if err := existing.RecordBilling(item.HSNCode, item.GSTSlab, item.Rate, item.IsPriceInclusive); err != nil {
		return err
	}
	return s.productRepo.Save(ctx, existing)
}

// DeactivateProduct hides a product from billing suggestions
func (s *ProductService) DeactivateProduct(ctx context.Context, tenantID, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil || product.TenantID != tenantID {
		return shared.NewDomainError("NOT_FOUND", "Product not found")
	}
	if err := product.Deactivate(); err != nil {
		return err
	}
	return s.productRepo.Save(ctx, product)
}

func toProductResponse(p *catalog.Product) *ProductResponse {
	return &ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		HSNCode:          p.HSNCode,
		GSTSlab:          p.GSTSlab,
		DefaultRate:      p.DefaultRate,
		IsPriceInclusive: p.IsPriceInclusive,
		UsageCount:       p.UsageCount,
		LastBilledAt:     p.LastBilledAt,
		Status:           string(p.Status),
	}
}
