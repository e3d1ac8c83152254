// Package domain contains user accounts and their role grants.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RolePartner  = "partner"
	RoleOrgUser  = "org_user"
	RoleOrgAdmin = "org_admin"
)

const (
	ResourcePartner      = "partner"
	ResourceOrganization = "organization"
)

type User struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	Email                  string       `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	Name                   string       `gorm:"type:text;not null;default:''" json:"name"`
	PasswordHash           *string      `gorm:"type:text" json:"-"`
	InvitationTokenHash    *string      `gorm:"type:text;index" json:"-"`
	InvitationSentAt       *time.Time   `json:"invitation_sent_at"`
	InvitationAcceptedAt   *time.Time   `json:"invitation_accepted_at"`
	ResetPasswordTokenHash *string      `gorm:"type:text;index" json:"-"`
	ResetPasswordSentAt    *time.Time   `json:"-"`
	CreatedAt              time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName is the name when present, otherwise the email.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}

func (u User) InvitationAccepted() bool {
	return u.InvitationAcceptedAt != nil
}

// RoleGrant scopes a role to one resource, e.g. partner user for partner 42.
type RoleGrant struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID `gorm:"not null;uniqueIndex:ux_user_roles_grant,priority:1" json:"user_id"`
	Role         string       `gorm:"type:text;not null;uniqueIndex:ux_user_roles_grant,priority:2" json:"role"`
	ResourceType string       `gorm:"type:text;not null;uniqueIndex:ux_user_roles_grant,priority:3;index:ix_user_roles_resource,priority:1" json:"resource_type"`
	ResourceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_user_roles_grant,priority:4;index:ix_user_roles_resource,priority:2" json:"resource_id"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (RoleGrant) TableName() string { return "user_roles" }

// RoleRef names a role on a resource without a stored grant.
type RoleRef struct {
	Role         string
	ResourceType string
	ResourceID   snowflake.ID
}

func (g RoleGrant) Ref() RoleRef {
	return RoleRef{Role: g.Role, ResourceType: g.ResourceType, ResourceID: g.ResourceID}
}
