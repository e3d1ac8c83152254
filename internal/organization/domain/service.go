package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*Organization, error)
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	CreatePartner(ctx context.Context, req CreatePartnerRequest) (*Partner, error)
	GetPartner(ctx context.Context, id snowflake.ID) (*Partner, error)
	ListPartners(ctx context.Context, orgID snowflake.ID) ([]Partner, error)
}

type CreateOrganizationRequest struct {
	Name  string
	Email string
}

type CreatePartnerRequest struct {
	OrgID  snowflake.ID
	Name   string
	Email  string
	Status string
}

var (
	ErrNotFound            = errors.New("not_found")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidStatus       = errors.New("invalid_status")
)
