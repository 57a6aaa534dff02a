package replenishment

import (
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// Method is how stock is moved into the pick slot
type Method string

const (
	// MethodFullCase moves whole source-variant units without conversion
	MethodFullCase Method = "full_case"
	// MethodCaseBreak breaks the source variant into pick-variant units
	MethodCaseBreak Method = "case_break"
	// MethodPalletDrop drops a pallet, triggered on coverage days rather
	// than an absolute unit threshold
	MethodPalletDrop Method = "pallet_drop"
)

// IsValid returns true if the method is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodFullCase, MethodCaseBreak, MethodPalletDrop:
		return true
	}
	return false
}

// UsesCoverageDays reports whether the trigger value is days of cover
// computed from pick velocity instead of an absolute unit count
func (m Method) UsesCoverageDays() bool {
	return m == MethodPalletDrop
}

// Threshold is a resolved replenishment decision for one (variant, location)
// pair, after the precedence chain has spoken. TriggerValue is variant units
// for full_case/case_break and days of cover for pallet_drop.
type Threshold struct {
	TriggerValue       int64
	TargetQuantity     int64
	Method             Method
	SourceLocationType warehouse.LocationType
	Priority           int
	AutoExecute        bool
	// Origin names the precedence layer that supplied the threshold
	Origin string
}

// Rule is a SKU-specific replenishment rule for one variant
type Rule struct {
	shared.BaseAggregateRoot
	VariantID          uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_replen_rule_variant"`
	TriggerValue       int64                  `gorm:"not null"`
	TargetQuantity     int64                  `gorm:"not null"`
	Method             Method                 `gorm:"type:varchar(16);not null"`
	SourceLocationType warehouse.LocationType `gorm:"type:varchar(16);not null"`
	Priority           int                    `gorm:"not null;default:0"`
	AutoExecute        bool                   `gorm:"not null;default:false"`
	Active             bool                   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Rule) TableName() string {
	return "replenishment_rules"
}

// Threshold converts the rule to a resolved threshold
func (r *Rule) Threshold() *Threshold {
	return &Threshold{
		TriggerValue:       r.TriggerValue,
		TargetQuantity:     r.TargetQuantity,
		Method:             r.Method,
		SourceLocationType: r.SourceLocationType,
		Priority:           r.Priority,
		AutoExecute:        r.AutoExecute,
		Origin:             "sku_rule",
	}
}

// TierDefault is the hierarchy-tier fallback when no more specific
// configuration matches
type TierDefault struct {
	shared.BaseAggregateRoot
	HierarchyLevel     int                    `gorm:"not null;uniqueIndex:idx_replen_tier_level"`
	TriggerValue       int64                  `gorm:"not null"`
	TargetQuantity     int64                  `gorm:"not null"`
	Method             Method                 `gorm:"type:varchar(16);not null"`
	SourceLocationType warehouse.LocationType `gorm:"type:varchar(16);not null"`
	Priority           int                    `gorm:"not null;default:0"`
	AutoExecute        bool                   `gorm:"not null;default:false"`
	Active             bool                   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TierDefault) TableName() string {
	return "replenishment_tier_defaults"
}

// Threshold converts the tier default to a resolved threshold
func (d *TierDefault) Threshold() *Threshold {
	return &Threshold{
		TriggerValue:       d.TriggerValue,
		TargetQuantity:     d.TargetQuantity,
		Method:             d.Method,
		SourceLocationType: d.SourceLocationType,
		Priority:           d.Priority,
		AutoExecute:        d.AutoExecute,
		Origin:             "tier_default",
	}
}

// LocationConfig is a location-scoped override. A nil VariantID makes the
// config location-wide; a set VariantID pins it to one variant at that
// location, the most specific layer of all. A location-scoped config is also
// what marks a (variant, location) pair as a standing bin assignment, which
// exempts the row from zombie cleanup.
type LocationConfig struct {
	shared.BaseAggregateRoot
	LocationID         uuid.UUID              `gorm:"type:uuid;not null;index:idx_replen_loc_config"`
	VariantID          *uuid.UUID             `gorm:"type:uuid;index:idx_replen_loc_config_variant"`
	TriggerValue       int64                  `gorm:"not null"`
	TargetQuantity     int64                  `gorm:"not null"`
	Method             Method                 `gorm:"type:varchar(16);not null"`
	SourceLocationType warehouse.LocationType `gorm:"type:varchar(16);not null"`
	Priority           int                    `gorm:"not null;default:0"`
	AutoExecute        bool                   `gorm:"not null;default:false"`
	Active             bool                   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (LocationConfig) TableName() string {
	return "replenishment_location_configs"
}

// Threshold converts the location config to a resolved threshold
func (c *LocationConfig) Threshold() *Threshold {
	origin := "location_config"
	if c.VariantID != nil {
		origin = "location_variant_config"
	}
	return &Threshold{
		TriggerValue:       c.TriggerValue,
		TargetQuantity:     c.TargetQuantity,
		Method:             c.Method,
		SourceLocationType: c.SourceLocationType,
		Priority:           c.Priority,
		AutoExecute:        c.AutoExecute,
		Origin:             origin,
	}
}
