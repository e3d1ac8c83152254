package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	Invite(ctx context.Context, req InviteRequest) (*User, error)
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	ListByRole(ctx context.Context, ref RoleRef) ([]User, error)
	RemoveRole(ctx context.Context, userID snowflake.ID, ref RoleRef) (bool, error)
	Roles(ctx context.Context, userID snowflake.ID) ([]RoleGrant, error)
	ResendInvitation(ctx context.Context, userID snowflake.ID, resourceName string) (*User, error)
	SendResetPassword(ctx context.Context, userID snowflake.ID) (*User, error)
	AcceptInvitation(ctx context.Context, token, password string) (*User, error)
	ResetPassword(ctx context.Context, token, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

// CreateUserRequest creates an active account with a password, used for bootstrapping.
type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Roles    []RoleRef
}

type InviteRequest struct {
	Email string
	Name  string
	Roles []RoleRef
	// ResourceName is shown in the invitation email.
	ResourceName string
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserExists         = errors.New("user_exists")
	ErrAlreadyAccepted    = errors.New("User has already accepted invitation.")
)
