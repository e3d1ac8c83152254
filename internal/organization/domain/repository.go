package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	FindOrganizationByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	FindOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	CreatePartner(ctx context.Context, partner Partner) error
	FindPartnerByID(ctx context.Context, id snowflake.ID) (*Partner, error)
	ListPartners(ctx context.Context, orgID snowflake.ID) ([]Partner, error)
}
