package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/request/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert saves the request and its item requests. Callers pass a transaction.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, req *domain.Request) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(req).Error; err != nil {
		return err
	}
	if len(req.ItemRequests) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&req.ItemRequests).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, partnerID, id snowflake.ID) (*domain.Request, error) {
	var req domain.Request
	err := db.WithContext(ctx).
		Preload("ItemRequests", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("id ASC")
		}).
		Where("id = ? AND partner_id = ?", id, partnerID).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Request, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("partner_id = ?", filter.PartnerID)

	if filter.BeforeCreatedAt != nil {
		stmt = stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			*filter.BeforeCreatedAt, *filter.BeforeCreatedAt, filter.BeforeID,
		)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var out []*domain.Request
	if err := stmt.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, partnerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("partner_id = ?", partnerID).
		Count(&count).Error
	return count, err
}
