package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"gorm.io/gorm"
)

// MethodFilter narrows the active shipping methods of a zone.
// Nil fields do not constrain the query.
type MethodFilter struct {
	ZoneID        uuid.UUID
	CarrierID     *uuid.UUID
	WeightKg      *decimal.Decimal
	DeclaredValue *decimal.Decimal
}

// CatalogRepository is the read-only zone and method catalog used for
// internal rate calculation.
type CatalogRepository interface {
	ActiveZones(ctx context.Context) ([]models.ShippingZone, error)
	ActiveMethods(ctx context.Context, filter MethodFilter) ([]models.ShippingMethod, error)
}

// GormCatalogRepository implements CatalogRepository using GORM.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository.
func NewGormCatalogRepository(db *gorm.DB) CatalogRepository {
	return &GormCatalogRepository{db: db}
}

// ActiveZones returns active zones oldest first, which is the tie-break
// order of zone resolution.
func (r *GormCatalogRepository) ActiveZones(ctx context.Context) ([]models.ShippingZone, error) {
	var zones []models.ShippingZone
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func (r *GormCatalogRepository) ActiveMethods(ctx context.Context, filter MethodFilter) ([]models.ShippingMethod, error) {
	query := r.db.WithContext(ctx).
		Preload("Carrier").
		Where("zone_id = ? AND is_active = ?", filter.ZoneID, true).
		Where("carrier_id IN (SELECT id FROM carriers WHERE is_active = ? AND deleted_at IS NULL)", true)

	if filter.CarrierID != nil {
		query = query.Where("carrier_id = ?", *filter.CarrierID)
	}
	if w := filter.WeightKg; w != nil {
		query = query.Where("(min_weight IS NULL OR min_weight <= ?) AND (max_weight IS NULL OR max_weight >= ?)", *w, *w)
	}
	if v := filter.DeclaredValue; v != nil {
		query = query.Where("(min_order_value IS NULL OR min_order_value <= ?) AND (max_order_value IS NULL OR max_order_value >= ?)", *v, *v)
	}

	var methods []models.ShippingMethod
	if err := query.Order("base_rate ASC").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}
