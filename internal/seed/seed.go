// Package seed loads demo data for local development.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DefaultOrgName       = "Demo Essentials Bank"
	DefaultOrgEmail      = "bank@partnerdesk.local"
	DefaultPartnerName   = "Pawnee Parent Service"
	DefaultAdminEmail    = "admin@partnerdesk.local"
	DefaultPartnerEmail  = "partner@partnerdesk.local"
	defaultSeedPassword  = "password123"
	sampleRequestComment = "Please deliver before Friday."
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	OrgRepo  orgdomain.Repository
	Orgs     orgdomain.Service
	Catalog  catalogdomain.Service
	Users    userdomain.Service
	Requests requestdomain.Service
}

type demoItem struct {
	name  string
	key   string
	units []string
}

var demoItems = []demoItem{
	{name: "Kids (Size 4)", key: "k_size4", units: []string{"pack", "case"}},
	{name: "Baby Wipes", key: "wipes", units: []string{"pack"}},
	{name: "Adult Incontinence Pads", key: "adult_pads"},
}

// EnsureDemoData creates the demo organization with one partner, a small
// catalog, an admin, a partner user and two sample requests. It does nothing
// when the organization already exists.
func EnsureDemoData(ctx context.Context, p Params) error {
	if p.OrgRepo == nil || p.Orgs == nil {
		return errors.New("seed dependencies are required")
	}
	log := p.Log.Named("seed")

	existing, err := p.OrgRepo.FindOrganizationBySlug(ctx, slug.Make(DefaultOrgName))
	if err != nil {
		return err
	}
	if existing != nil {
		log.Debug("demo data already present", zap.String("org_id", existing.ID.String()))
		return nil
	}

	org, err := p.Orgs.CreateOrganization(ctx, orgdomain.CreateOrganizationRequest{
		Name:  DefaultOrgName,
		Email: DefaultOrgEmail,
	})
	if err != nil {
		return err
	}
	partner, err := p.Orgs.CreatePartner(ctx, orgdomain.CreatePartnerRequest{
		OrgID:  org.ID,
		Name:   DefaultPartnerName,
		Email:  DefaultPartnerEmail,
		Status: orgdomain.PartnerStatusApproved,
	})
	if err != nil {
		return err
	}

	items := make([]*catalogdomain.ValidItem, 0, len(demoItems))
	for _, it := range demoItems {
		item, err := p.Catalog.CreateItem(ctx, catalogdomain.CreateItemRequest{
			OrgID:      org.ID,
			Name:       it.name,
			PartnerKey: it.key,
			Units:      it.units,
		})
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	if _, err := p.Users.Create(ctx, userdomain.CreateUserRequest{
		Email:    DefaultAdminEmail,
		Name:     "Demo Admin",
		Password: defaultSeedPassword,
		Roles: []userdomain.RoleRef{{
			Role:         userdomain.RoleOrgAdmin,
			ResourceType: userdomain.ResourceOrganization,
			ResourceID:   org.ID,
		}},
	}); err != nil {
		return err
	}
	partnerUser, err := p.Users.Create(ctx, userdomain.CreateUserRequest{
		Email:    DefaultPartnerEmail,
		Name:     "Leslie Knope",
		Password: defaultSeedPassword,
		Roles: []userdomain.RoleRef{{
			Role:         userdomain.RolePartner,
			ResourceType: userdomain.ResourcePartner,
			ResourceID:   partner.ID,
		}},
	})
	if err != nil {
		return err
	}

	if err := seedRequests(ctx, p, partner.ID, partnerUser.ID, items); err != nil {
		return err
	}

	log.Info("demo data created",
		zap.String("org_id", org.ID.String()),
		zap.String("partner_id", partner.ID.String()),
		zap.String("admin_email", DefaultAdminEmail),
		zap.String("partner_email", DefaultPartnerEmail),
	)
	return nil
}

func seedRequests(ctx context.Context, p Params, partnerID, userID snowflake.ID, items []*catalogdomain.ValidItem) error {
	fulfilled := requestdomain.StatusFulfilled
	lastWeek := p.Clock.Now().AddDate(0, 0, -7)

	samples := []requestdomain.CreateRequest{
		{
			PartnerID:     partnerID,
			PartnerUserID: userID,
			Comments:      sampleRequestComment,
			LineItems: []requestdomain.LineItemInput{
				{ItemID: items[0].ID.String(), Unit: requestdomain.NamedUnit("pack"), Quantity: "10"},
				{ItemID: items[1].ID.String(), Unit: requestdomain.NamedUnit("pack"), Quantity: "4"},
			},
		},
		{
			PartnerID:     partnerID,
			PartnerUserID: userID,
			LineItems: []requestdomain.LineItemInput{
				{ItemID: items[2].ID.String(), Quantity: "25"},
			},
			Overrides: requestdomain.Overrides{
				Status:    &fulfilled,
				CreatedAt: &lastWeek,
			},
		},
	}

	for _, sample := range samples {
		if _, err := p.Requests.Create(ctx, sample); err != nil {
			return err
		}
	}
	return nil
}
