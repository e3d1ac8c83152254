package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertItem(ctx context.Context, item *Item) error
	InsertUnits(ctx context.Context, units []ItemUnit) error
	ListValidItems(ctx context.Context, orgID snowflake.ID) ([]Item, error)
	ListUnits(ctx context.Context, itemIDs []snowflake.ID) ([]ItemUnit, error)
}
