package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (*ValidItem, error)
	ValidItems(ctx context.Context, orgID snowflake.ID) ([]ValidItem, error)
}

type CreateItemRequest struct {
	OrgID      snowflake.ID
	Name       string
	PartnerKey string
	Units      []string
	// Hidden keeps the item out of partner request forms.
	Hidden bool
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUnit         = errors.New("invalid_unit")
)
