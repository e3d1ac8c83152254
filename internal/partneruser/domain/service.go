// Package domain describes how organization admins manage the accounts
// attached to one of their partners.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
)

const (
	EmailKindInvitation    = "invitation"
	EmailKindResetPassword = "reset_password"
)

const (
	MsgInviteFailed  = "Invitation failed. Check the form for errors."
	MsgPasswordReset = "Password e-mail sent!"
)

var (
	ErrNotFound      = errors.New("not_found")
	ErrAccessDenied  = errors.New("Access Denied.")
	ErrTooManyEmails = errors.New("too_many_emails")
)

type Service interface {
	ListUsers(ctx context.Context, actorID, partnerID snowflake.ID) (*UserList, error)
	InviteUser(ctx context.Context, actorID snowflake.ID, req InviteUserRequest) (*Result, error)
	// RevokeAccess removes the partner role only; the account is kept.
	RevokeAccess(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*Result, error)
	ResendInvitation(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*Result, error)
	ResetPassword(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*Result, error)
}

// EmailLimiter throttles outgoing account emails per recipient. When an
// email is refused, retryAfter estimates when the next one may go out.
type EmailLimiter interface {
	Allow(ctx context.Context, kind, recipient string) (ok bool, retryAfter time.Duration)
}

// ThrottledError is ErrTooManyEmails with a retry hint.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string { return ErrTooManyEmails.Error() }

func (e *ThrottledError) Unwrap() error { return ErrTooManyEmails }

type InviteUserRequest struct {
	PartnerID snowflake.ID
	Email     string
	Name      string
}

type UserList struct {
	Partner orgdomain.Partner
	Users   []userdomain.User
	// Draft is the blank record behind the add-user form.
	Draft userdomain.User
}

// Result carries the outcome message shown to the admin.
type Result struct {
	User    *userdomain.User
	Success bool
	Message string
}
