package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a catalog entry learned from billing activity. Products are
// registered automatically the first time a line item with a new name is
// billed, and their defaults (rate, HSN code, GST slab) track the most
// recent sale so the next invoice can pre-fill them.
type Product struct {
	shared.TenantAggregateRoot
	Name             string          `gorm:"type:varchar(200);not null"`
	NormalizedName   string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_product_tenant_name,priority:2"`
	HSNCode          string          `gorm:"type:varchar(20)"`
	GSTSlab          decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	DefaultRate      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	IsPriceInclusive bool            `gorm:"not null;default:false"`
	UsageCount       int64           `gorm:"not null;default:0"`
	LastBilledAt     *time.Time
	Status           ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NormalizeProductName is the case- and whitespace-insensitive identity key
// used for upserts
func NormalizeProductName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewProduct creates a product from its first billed appearance
func NewProduct(tenantID uuid.UUID, name, hsnCode string, gstSlab, rate decimal.Decimal, priceInclusive bool) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if gstSlab.IsNegative() {
		return nil, shared.NewDomainError("INVALID_GST_SLAB", "GST slab cannot be negative")
	}
	if rate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Rate cannot be negative")
	}

	product := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                strings.TrimSpace(name),
		NormalizedName:      NormalizeProductName(name),
		HSNCode:             hsnCode,
		GSTSlab:             gstSlab,
		DefaultRate:         rate,
		IsPriceInclusive:    priceInclusive,
		Status:              ProductStatusActive,
	}

	product.AddDomainEvent(NewProductRegisteredEvent(product))

	return product, nil
}

// RecordBilling refreshes the product defaults from the latest sale and
// bumps the usage counter
func (p *Product) RecordBilling(hsnCode string, gstSlab, rate decimal.Decimal, priceInclusive bool) error {
	if gstSlab.IsNegative() {
		return shared.NewDomainError("INVALID_GST_SLAB", "GST slab cannot be negative")
	}
	if rate.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Rate cannot be negative")
	}

	if hsnCode != "" {
		p.HSNCode = hsnCode
	}
	p.GSTSlab = gstSlab
	p.DefaultRate = rate
	p.IsPriceInclusive = priceInclusive
	p.UsageCount++
	now := time.Now()
	p.LastBilledAt = &now
	p.UpdatedAt = now

	return nil
}

// Rename changes the display name. The normalized identity key changes with
// it, so callers must ensure uniqueness per tenant.
func (p *Product) Rename(name string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.NormalizedName = NormalizeProductName(name)
	p.UpdatedAt = time.Now()

	return nil
}

// Deactivate hides the product from billing suggestions
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}

	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()

	return nil
}

// Activate restores an inactive product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}

	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()

	return nil
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
