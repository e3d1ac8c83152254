// Package notification tells an organization about partner activity.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/events"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	"github.com/smallbiznis/partnerdesk/internal/providers/email"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Orgs      orgdomain.Repository
	Publisher events.Publisher
	Mailer    email.Provider
}

// PartnerNotifier publishes request.created and emails the organization.
type PartnerNotifier struct {
	baseURL   string
	log       *zap.Logger
	orgs      orgdomain.Repository
	publisher events.Publisher
	mailer    email.Provider
}

func NewPartnerNotifier(p Params) *PartnerNotifier {
	return &PartnerNotifier{
		baseURL:   strings.TrimRight(p.Cfg.BaseURL, "/"),
		log:       p.Log.Named("notification"),
		orgs:      p.Orgs,
		publisher: p.Publisher,
		mailer:    p.Mailer,
	}
}

// RequestCreatedPayload is the body of the request.created event.
type RequestCreatedPayload struct {
	RequestID     string                           `json:"request_id"`
	PartnerID     string                           `json:"partner_id"`
	PartnerUserID string                           `json:"partner_user_id"`
	RequestType   string                           `json:"request_type"`
	Status        string                           `json:"status"`
	Comments      string                           `json:"comments,omitempty"`
	Items         []requestdomain.RequestItemEntry `json:"items"`
}

type itemLine struct {
	Name     string
	Quantity int
	Unit     string
}

// NotifyRequestCreated runs inside tx; any error aborts the save.
func (n *PartnerNotifier) NotifyRequestCreated(ctx context.Context, tx *gorm.DB, req *requestdomain.Request) error {
	repo := n.orgs.WithTx(tx)

	partner, err := repo.FindPartnerByID(ctx, req.PartnerID)
	if err != nil {
		return fmt.Errorf("load partner: %w", err)
	}
	if partner == nil {
		return orgdomain.ErrNotFound
	}
	org, err := repo.FindOrganizationByID(ctx, partner.OrgID)
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}
	if org == nil {
		return orgdomain.ErrNotFound
	}

	err = n.publisher.Publish(ctx, tx, events.Event{
		Topic: events.TopicRequestCreated,
		OrgID: org.ID,
		Payload: RequestCreatedPayload{
			RequestID:     req.ID.String(),
			PartnerID:     req.PartnerID.String(),
			PartnerUserID: req.PartnerUserID.String(),
			RequestType:   req.RequestType,
			Status:        req.Status,
			Comments:      req.Comments,
			Items:         req.RequestItems,
		},
	})
	if err != nil {
		return fmt.Errorf("publish request event: %w", err)
	}

	recipient := strings.TrimSpace(org.Email)
	if recipient == "" {
		n.log.Debug("organization has no email on record", zap.String("org_id", org.ID.String()))
		return nil
	}

	items := make([]itemLine, 0, len(req.ItemRequests))
	for _, ir := range req.ItemRequests {
		items = append(items, itemLine{
			Name:     ir.Name,
			Quantity: ir.Quantity,
			Unit:     ir.RequestUnit.Label(ir.Quantity),
		})
	}

	return n.mailer.SendTemplate(ctx, []string{recipient}, email.TemplateNewRequest, map[string]any{
		"partner_name": partner.Name,
		"comments":     req.Comments,
		"items":        items,
		"request_url":  fmt.Sprintf("%s/partners/requests/%s", n.baseURL, req.ID.String()),
	})
}
