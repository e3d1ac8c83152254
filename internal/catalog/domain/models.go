// Package domain contains the item catalog an organization offers to partners.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Item struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name              string       `gorm:"type:text;not null" json:"name"`
	PartnerKey        string       `gorm:"type:text;not null" json:"partner_key"`
	Active            bool         `gorm:"not null" json:"active"`
	VisibleToPartners bool         `gorm:"not null" json:"visible_to_partners"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string { return "items" }

// ItemUnit is a packaging unit (pack, box, case) an item may be requested in.
type ItemUnit struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ItemID    snowflake.ID `gorm:"not null;uniqueIndex:ux_item_units_name,priority:1" json:"item_id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_item_units_name,priority:2" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (ItemUnit) TableName() string { return "item_units" }

// ValidItem is an item a partner of the organization may request.
type ValidItem struct {
	ID         snowflake.ID `json:"id"`
	Name       string       `json:"name"`
	PartnerKey string       `json:"partner_key"`
	Units      []string     `json:"units"`
}

// SupportsUnit reports whether unit is one of the item's configured units.
func (v ValidItem) SupportsUnit(unit string) bool {
	for _, u := range v.Units {
		if u == unit {
			return true
		}
	}
	return false
}
