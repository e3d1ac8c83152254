package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) InsertItem(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) InsertUnits(ctx context.Context, units []domain.ItemUnit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&units).Error
}

func (r *repository) ListValidItems(ctx context.Context, orgID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ? AND visible_to_partners = ?", orgID, true, true).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListUnits(ctx context.Context, itemIDs []snowflake.ID) ([]domain.ItemUnit, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var units []domain.ItemUnit
	err := r.db.WithContext(ctx).
		Where("item_id IN ?", itemIDs).
		Order("name ASC").
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}
