package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PostalPatternType selects how a PostalPattern is matched.
type PostalPatternType string

const (
	PostalPatternExact  PostalPatternType = "EXACT"
	PostalPatternRange  PostalPatternType = "RANGE"
	PostalPatternPrefix PostalPatternType = "PREFIX"
)

// PostalPattern is a single postal code rule of a zone. Exact and Prefix use
// Value, Range uses the inclusive Low/High bounds.
type PostalPattern struct {
	Type  PostalPatternType `json:"type"`
	Value string            `json:"value,omitempty"`
	Low   string            `json:"low,omitempty"`
	High  string            `json:"high,omitempty"`
}

// ShippingZone groups destinations that share rates.
// Empty StatesProvinces or PostalPatterns act as wildcards.
type ShippingZone struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string          `gorm:"type:varchar(128);not null" json:"name"`
	Code            string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Countries       []string        `gorm:"type:jsonb;serializer:json;not null" json:"countries"`
	StatesProvinces []string        `gorm:"type:jsonb;serializer:json" json:"states_provinces,omitempty"`
	PostalPatterns  []PostalPattern `gorm:"type:jsonb;serializer:json" json:"postal_patterns,omitempty"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Carrier is a shipping company offering methods.
type Carrier struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(128);not null" json:"name"`
	Code      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Service types offered by shipping methods.
const (
	ServiceTypeStandard  = "STANDARD"
	ServiceTypeExpress   = "EXPRESS"
	ServiceTypeOvernight = "OVERNIGHT"
	ServiceTypeEconomy   = "ECONOMY"
)

// ShippingMethod is a carrier's priced service within a zone.
// Nil weight/value bounds are unbounded on that side.
type ShippingMethod struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CarrierID        uuid.UUID        `gorm:"type:uuid;not null;index" json:"carrier_id"`
	Carrier          Carrier          `gorm:"foreignKey:CarrierID" json:"carrier"`
	ZoneID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"zone_id"`
	Name             string           `gorm:"type:varchar(128);not null" json:"name"`
	Code             string           `gorm:"type:varchar(64);not null" json:"code"`
	ServiceType      string           `gorm:"type:varchar(32);not null" json:"service_type"`
	BaseRate         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"base_rate"`
	PerKgRate        decimal.Decimal  `gorm:"type:numeric(12,4);not null;default:0" json:"per_kg_rate"`
	PerItemRate      decimal.Decimal  `gorm:"type:numeric(12,4);not null;default:0" json:"per_item_rate"`
	MinWeight        *decimal.Decimal `gorm:"type:numeric(12,3)" json:"min_weight,omitempty"`
	MaxWeight        *decimal.Decimal `gorm:"type:numeric(12,3)" json:"max_weight,omitempty"`
	MinOrderValue    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"min_order_value,omitempty"`
	MaxOrderValue    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"max_order_value,omitempty"`
	EstimatedDaysMin int              `gorm:"not null" json:"estimated_days_min"`
	EstimatedDaysMax int              `gorm:"not null" json:"estimated_days_max"`
	IsActive         bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
}
