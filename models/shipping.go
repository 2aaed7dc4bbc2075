package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Address represents a physical mailing address used for shipping.
type Address struct {
	Name       string `json:"name,omitempty"`
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"` // ISO 3166-1 alpha-2, e.g. "US"
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// IsZero reports whether no routing field of the address is set.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Country) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.State) == ""
}

// TrackingInfo is returned after a label is created successfully.
type TrackingInfo struct {
	TrackingCode   string `json:"tracking_code"`
	LabelURL       string `json:"label_url"`
	TrackingURL    string `json:"tracking_url"`
	Carrier        string `json:"carrier"`
	ServiceLevel   string `json:"service_level"`
	ProviderObject string `json:"provider_object_id"`
}

// TrackingStatus represents the current status of a shipment.
type TrackingStatus struct {
	TrackingCode string    `json:"tracking_code"`
	Status       string    `json:"status"`
	SubStatus    string    `json:"sub_status,omitempty"`
	Location     string    `json:"location,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	Carrier      string    `json:"carrier"`
}

// CreateLabelRequest is the payload for buying a label for a quoted option.
type CreateLabelRequest struct {
	OrderID     string          `json:"order_id" binding:"required"`
	UserID      string          `json:"user_id" binding:"required"`
	RateID      string          `json:"rate_id" binding:"required"` // provider rate object, see ShippingOption.RateID
	QuoteID     string          `json:"quote_id,omitempty"`
	WeightKg    decimal.Decimal `json:"weight_kg"`
	Origin      Address         `json:"origin"`
	Destination Address         `json:"destination"`
}

// Shipment status values.
const (
	ShipmentStatusPending   = "pending"
	ShipmentStatusCreated   = "created"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
	ShipmentStatusReturned  = "returned"
	ShipmentStatusFailed    = "failed"
)

// Shipment is the GORM model persisted in Postgres.
type Shipment struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          string          `gorm:"type:varchar(128);not null;index" json:"order_id"`
	UserID           string          `gorm:"type:varchar(128);not null;index" json:"user_id"`
	QuoteID          string          `gorm:"type:varchar(64);index" json:"quote_id,omitempty"`
	Carrier          string          `gorm:"type:varchar(64)" json:"carrier"`
	ServiceLevel     string          `gorm:"type:varchar(128)" json:"service_level"`
	TrackingCode     string          `gorm:"type:varchar(256);index" json:"tracking_code"`
	LabelURL         string          `gorm:"type:varchar(1024)" json:"label_url"`
	TrackingURL      string          `gorm:"type:varchar(1024)" json:"tracking_url"`
	ProviderObjectID string          `gorm:"type:varchar(256)" json:"provider_object_id"`
	Status           string          `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	WeightKg         decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"weight_kg"`
	Origin           Address         `gorm:"type:jsonb;serializer:json" json:"origin"`
	Destination      Address         `gorm:"type:jsonb;serializer:json" json:"destination"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Shipment event types, also sent as the SNS event_type attribute.
const (
	EventShipmentCreated = "shipment_created"
	EventShipmentUpdated = "shipment_updated"
)

// ShipmentEvent is implemented by every event published to SNS.
type ShipmentEvent interface {
	Type() string
}

// ShipmentCreatedEvent is published to SNS when a label is created.
type ShipmentCreatedEvent struct {
	EventType    string    `json:"event_type"`
	ShipmentID   string    `json:"shipment_id"`
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id"`
	QuoteID      string    `json:"quote_id,omitempty"`
	TrackingCode string    `json:"tracking_code"`
	Carrier      string    `json:"carrier"`
	LabelURL     string    `json:"label_url"`
	Timestamp    time.Time `json:"timestamp"`
}

// ShipmentUpdatedEvent is published to SNS when tracking status changes.
type ShipmentUpdatedEvent struct {
	EventType    string    `json:"event_type"`
	ShipmentID   string    `json:"shipment_id"`
	OrderID      string    `json:"order_id"`
	TrackingCode string    `json:"tracking_code"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e ShipmentCreatedEvent) Type() string { return e.EventType }

func (e ShipmentUpdatedEvent) Type() string { return e.EventType }
