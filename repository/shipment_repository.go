package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"gorm.io/gorm"
)

// ShipmentFilter narrows shipment listings. Empty fields match everything.
type ShipmentFilter struct {
	UserID string
	Status string
}

// ShipmentRepository defines data-access operations for shipments.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *models.Shipment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Shipment, error)
	FindByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, filter ShipmentFilter, page, limit int) ([]models.Shipment, int64, error)
}

// GormShipmentRepository implements ShipmentRepository using GORM.
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository.
func NewGormShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &GormShipmentRepository{db: db}
}

func (r *GormShipmentRepository) Create(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Shipment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *GormShipmentRepository) FindByTrackingCode(ctx context.Context, trackingCode string) (*models.Shipment, error) {
	return r.findOne(ctx, "tracking_code = ?", trackingCode)
}

func (r *GormShipmentRepository) findOne(ctx context.Context, cond string, arg interface{}) (*models.Shipment, error) {
	var s models.Shipment
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatus changes only the status column; a missing row is reported
// as gorm.ErrRecordNotFound.
func (r *GormShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormShipmentRepository) List(ctx context.Context, filter ShipmentFilter, page, limit int) ([]models.Shipment, int64, error) {
	var shipments []models.Shipment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Shipment{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&shipments).Error; err != nil {
		return nil, 0, err
	}

	return shipments, total, nil
}
