package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("organization.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateOrganization(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	org := domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	s.log.Info("organization created", zap.String("org_id", org.ID.String()), zap.String("slug", org.Slug))
	return &org, nil
}

func (s *Service) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	org, err := s.repo.FindOrganizationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

func (s *Service) CreatePartner(ctx context.Context, req domain.CreatePartnerRequest) (*domain.Partner, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	status := strings.TrimSpace(req.Status)
	switch status {
	case "":
		status = domain.PartnerStatusInvited
	case domain.PartnerStatusInvited, domain.PartnerStatusApproved:
	default:
		return nil, domain.ErrInvalidStatus
	}

	org, err := s.repo.FindOrganizationByID(ctx, req.OrgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrInvalidOrganization
	}

	now := s.clock.Now()
	partner := domain.Partner{
		ID:        s.genID.Generate(),
		OrgID:     org.ID,
		Name:      name,
		Email:     email,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreatePartner(ctx, partner); err != nil {
		return nil, err
	}

	return &partner, nil
}

func (s *Service) GetPartner(ctx context.Context, id snowflake.ID) (*domain.Partner, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	partner, err := s.repo.FindPartnerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, domain.ErrNotFound
	}
	return partner, nil
}

func (s *Service) ListPartners(ctx context.Context, orgID snowflake.ID) ([]domain.Partner, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	return s.repo.ListPartners(ctx, orgID)
}
