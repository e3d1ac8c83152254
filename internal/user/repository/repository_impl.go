package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *repository) FindByInvitationTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.first(ctx, "invitation_token_hash = ?", hash)
}

func (r *repository) FindByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	return r.first(ctx, "reset_password_token_hash = ?", hash)
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Insert(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *repository) ListByRole(ctx context.Context, ref domain.RoleRef) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Where("ur.role = ? AND ur.resource_type = ? AND ur.resource_id = ?", ref.Role, ref.ResourceType, ref.ResourceID).
		Order("users.email ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) AddRole(ctx context.Context, grant domain.RoleGrant) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grant).Error
}

func (r *repository) RemoveRole(ctx context.Context, userID snowflake.ID, ref domain.RoleRef) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ? AND resource_type = ? AND resource_id = ?",
			userID, ref.Role, ref.ResourceType, ref.ResourceID).
		Delete(&domain.RoleGrant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListRoles(ctx context.Context, userID snowflake.ID) ([]domain.RoleGrant, error) {
	var grants []domain.RoleGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}
