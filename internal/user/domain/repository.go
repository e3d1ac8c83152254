package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByInvitationTokenHash(ctx context.Context, hash string) (*User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	ListByRole(ctx context.Context, ref RoleRef) ([]User, error)
	AddRole(ctx context.Context, grant RoleGrant) error
	RemoveRole(ctx context.Context, userID snowflake.ID, ref RoleRef) (bool, error)
	ListRoles(ctx context.Context, userID snowflake.ID) ([]RoleGrant, error)
}
