package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	"github.com/smallbiznis/partnerdesk/internal/clock"
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
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateItem(ctx context.Context, req domain.CreateItemRequest) (*domain.ValidItem, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	partnerKey := strings.TrimSpace(req.PartnerKey)
	if partnerKey == "" {
		partnerKey = strings.ReplaceAll(slug.Make(name), "-", "_")
	}

	unitNames := make([]string, 0, len(req.Units))
	seen := make(map[string]struct{}, len(req.Units))
	for _, raw := range req.Units {
		unit := strings.TrimSpace(raw)
		if unit == "" || unit == "-1" {
			return nil, domain.ErrInvalidUnit
		}
		if _, ok := seen[unit]; ok {
			continue
		}
		seen[unit] = struct{}{}
		unitNames = append(unitNames, unit)
	}

	now := s.clock.Now()
	item := domain.Item{
		ID:                s.genID.Generate(),
		OrgID:             req.OrgID,
		Name:              name,
		PartnerKey:        partnerKey,
		Active:            true,
		VisibleToPartners: !req.Hidden,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.InsertItem(ctx, &item); err != nil {
			return err
		}

		units := make([]domain.ItemUnit, 0, len(unitNames))
		for _, unit := range unitNames {
			units = append(units, domain.ItemUnit{
				ID:        s.genID.Generate(),
				ItemID:    item.ID,
				Name:      unit,
				CreatedAt: now,
			})
		}
		return repo.InsertUnits(ctx, units)
	})
	if err != nil {
		return nil, err
	}

	return &domain.ValidItem{
		ID:         item.ID,
		Name:       item.Name,
		PartnerKey: item.PartnerKey,
		Units:      unitNames,
	}, nil
}

// ValidItems returns the active, partner-visible items of an organization
// together with their configured units.
func (s *Service) ValidItems(ctx context.Context, orgID snowflake.ID) ([]domain.ValidItem, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.ListValidItems(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []domain.ValidItem{}, nil
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	units, err := s.repo.ListUnits(ctx, ids)
	if err != nil {
		return nil, err
	}

	unitsByItem := make(map[snowflake.ID][]string, len(items))
	for _, unit := range units {
		unitsByItem[unit.ItemID] = append(unitsByItem[unit.ItemID], unit.Name)
	}

	out := make([]domain.ValidItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.ValidItem{
			ID:         item.ID,
			Name:       item.Name,
			PartnerKey: item.PartnerKey,
			Units:      unitsByItem[item.ID],
		})
	}
	return out, nil
}
