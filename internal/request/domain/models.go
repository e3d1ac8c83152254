// Package domain contains the partner request aggregate.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RequestTypeQuantity   = "quantity"
	RequestTypeIndividual = "individual"
	RequestTypeChild      = "child"
)

const (
	StatusPending   = "pending"
	StatusStarted   = "started"
	StatusFulfilled = "fulfilled"
	StatusDiscarded = "discarded"
)

func ValidRequestType(t string) bool {
	switch t {
	case RequestTypeQuantity, RequestTypeIndividual, RequestTypeChild:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusStarted, StatusFulfilled, StatusDiscarded:
		return true
	}
	return false
}

// Request is one ask from a partner to its organization.
type Request struct {
	ID            snowflake.ID                          `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID                          `gorm:"not null;index" json:"org_id"`
	PartnerID     snowflake.ID                          `gorm:"not null;index:ix_requests_partner,priority:1" json:"partner_id"`
	PartnerUserID snowflake.ID                          `gorm:"not null" json:"partner_user_id"`
	RequestType   string                                `gorm:"type:text;not null" json:"request_type"`
	Status        string                                `gorm:"type:text;not null" json:"status"`
	Comments      string                                `gorm:"type:text" json:"comments"`
	RequestItems  datatypes.JSONSlice[RequestItemEntry] `gorm:"not null" json:"request_items"`
	ItemRequests  []ItemRequest                         `gorm:"foreignKey:RequestID" json:"item_requests"`
	CreatedAt     time.Time                             `gorm:"not null;index:ix_requests_partner,priority:2" json:"created_at"`
	UpdatedAt     time.Time                             `gorm:"not null" json:"updated_at"`
}

func (Request) TableName() string { return "requests" }

// TotalQuantity sums the denormalized request items.
func (r Request) TotalQuantity() int {
	total := 0
	for _, entry := range r.RequestItems {
		total += entry.Quantity
	}
	return total
}

// RequestItemEntry is the denormalized summary of one line item.
type RequestItemEntry struct {
	ItemID      string `json:"item_id,omitempty"`
	Quantity    int    `json:"quantity"`
	RequestUnit string `json:"request_unit,omitempty"`
}

// ItemRequest is one consolidated line of a Request.
type ItemRequest struct {
	ID          snowflake.ID               `gorm:"primaryKey" json:"id"`
	RequestID   snowflake.ID               `gorm:"not null;index" json:"request_id"`
	ItemID      snowflake.ID               `gorm:"not null" json:"item_id"`
	Name        string                     `gorm:"type:text;not null" json:"name"`
	PartnerKey  string                     `gorm:"type:text;not null" json:"partner_key"`
	Quantity    int                        `gorm:"not null" json:"quantity"`
	RequestUnit Unit                       `gorm:"type:text" json:"request_unit"`
	Children    datatypes.JSONSlice[Child] `gorm:"not null" json:"children"`
	CreatedAt   time.Time                  `gorm:"not null" json:"created_at"`
}

func (ItemRequest) TableName() string { return "item_requests" }

// HasItem reports whether the line refers to a catalog item.
func (ir ItemRequest) HasItem() bool { return ir.ItemID != 0 }

// Child is a dependent whose needs were counted into a line's quantity.
type Child struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
