package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, req *Request) error
	FindByID(ctx context.Context, db *gorm.DB, partnerID, id snowflake.ID) (*Request, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Request, error)
	Count(ctx context.Context, db *gorm.DB, partnerID snowflake.ID) (int64, error)
}

type ListFilter struct {
	PartnerID snowflake.ID
	Limit     int
	// Cursor position; rows strictly older than (CreatedAt, ID) are returned.
	BeforeCreatedAt *time.Time
	BeforeID        snowflake.ID
}
