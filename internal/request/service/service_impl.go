package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	"github.com/smallbiznis/partnerdesk/internal/providers/pdf"
	"github.com/smallbiznis/partnerdesk/internal/request/domain"
	"github.com/smallbiznis/partnerdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Orgs     orgdomain.Service
	Catalog  catalogdomain.Service
	Notifier domain.Notifier
	Policy   *config.RequestPolicyHolder
	Metrics  *metrics.Metrics `optional:"true"`
	PDF      pdf.Provider
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	orgs     orgdomain.Service
	catalog  catalogdomain.Service
	notifier domain.Notifier
	policy   *config.RequestPolicyHolder
	metrics  *metrics.Metrics
	pdf      pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("request.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		orgs:     p.Orgs,
		catalog:  p.Catalog,
		notifier: p.Notifier,
		policy:   p.Policy,
		metrics:  p.Metrics,
		pdf:      p.PDF,
	}
}

func (s *Service) Build(ctx context.Context, req domain.CreateRequest) (*domain.Request, error) {
	out, _, err := s.build(ctx, req)
	return out, err
}

// build returns the assembled request, the number of merged rows and any
// validation or lookup error.
func (s *Service) build(ctx context.Context, req domain.CreateRequest) (*domain.Request, int, error) {
	if req.PartnerUserID == 0 {
		return nil, 0, domain.ErrInvalidPartnerUser
	}
	partner, err := s.orgs.GetPartner(ctx, req.PartnerID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, err
	}

	requestType := strings.TrimSpace(req.RequestType)
	if requestType == "" {
		requestType = domain.RequestTypeQuantity
	}

	out := &domain.Request{
		OrgID:         partner.OrgID,
		PartnerID:     partner.ID,
		PartnerUserID: req.PartnerUserID,
		RequestType:   requestType,
		Status:        domain.StatusPending,
		Comments:      req.Comments,
	}

	lookup := &itemLookup{
		load: func(ctx context.Context) ([]catalogdomain.ValidItem, error) {
			return s.catalog.ValidItems(ctx, partner.OrgID)
		},
	}
	verrs := &domain.ValidationErrors{}
	result, err := newConsolidator(s.policy.Get(), lookup).run(ctx, req.LineItems, verrs)
	if err != nil {
		return nil, 0, err
	}

	out.ItemRequests = result.items
	out.RequestItems = datatypes.NewJSONSlice(summarize(result.items))

	applyOverrides(out, req.Overrides)
	validate(out, verrs)

	return out, result.merged, verrs.Err()
}

func applyOverrides(req *domain.Request, o domain.Overrides) {
	if o.Status != nil {
		req.Status = strings.TrimSpace(*o.Status)
	}
	if o.RequestType != nil {
		req.RequestType = strings.TrimSpace(*o.RequestType)
	}
	if o.CreatedAt != nil {
		req.CreatedAt = o.CreatedAt.UTC()
	}
}

func validate(req *domain.Request, verrs *domain.ValidationErrors) {
	if !domain.ValidRequestType(req.RequestType) {
		verrs.AddOnce("request_type", "is not included in the list")
	}
	if !domain.ValidStatus(req.Status) {
		verrs.AddOnce("status", "is not included in the list")
	}

	if len(req.ItemRequests) == 0 && strings.TrimSpace(req.Comments) == "" {
		verrs.AddOnce(domain.FieldBase, msgEmptyRequest)
	}
	for _, ir := range req.ItemRequests {
		if !ir.HasItem() || ir.Quantity <= 0 {
			verrs.AddOnce(domain.FieldBase, msgEmptyRequest)
			break
		}
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Request, error) {
	out, merged, err := s.build(ctx, req)
	if err != nil {
		if out != nil {
			s.metrics.RecordRequestRejected(ctx, out.OrgID.String(), "validation")
		}
		return out, err
	}

	now := s.clock.Now()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	out.ID = s.genID.Generate()
	for i := range out.ItemRequests {
		out.ItemRequests[i].ID = s.genID.Generate()
		out.ItemRequests[i].RequestID = out.ID
		out.ItemRequests[i].CreatedAt = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, out); err != nil {
			return err
		}
		return s.notifier.NotifyRequestCreated(ctx, tx, out)
	})
	if err != nil {
		s.log.Warn("request save rolled back",
			zap.String("partner_id", out.PartnerID.String()),
			zap.Error(err),
		)
		s.metrics.RecordRequestRejected(ctx, out.OrgID.String(), "save_failed")

		out.ID = 0
		for i := range out.ItemRequests {
			out.ItemRequests[i].ID = 0
			out.ItemRequests[i].RequestID = 0
		}
		verrs := &domain.ValidationErrors{}
		verrs.Add(domain.FieldBase, err.Error())
		return out, verrs
	}

	s.metrics.RecordRequestCreated(ctx, out.OrgID.String(), out.RequestType)
	s.metrics.RecordLineItemsMerged(ctx, out.OrgID.String(), merged)
	s.log.Info("request created",
		zap.String("request_id", out.ID.String()),
		zap.String("partner_id", out.PartnerID.String()),
		zap.Int("line_items", len(out.ItemRequests)),
	)
	return out, nil
}

func (s *Service) Get(ctx context.Context, partnerID, id snowflake.ID) (*domain.Request, error) {
	if partnerID == 0 || id == 0 {
		return nil, domain.ErrNotFound
	}
	req, err := s.repo.FindByID(ctx, s.db, partnerID, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.PartnerID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidPartner
	}

	limit := req.Limit()
	filter := domain.ListFilter{PartnerID: req.PartnerID, Limit: limit + 1}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		filter.BeforeID = id
		filter.BeforeCreatedAt = &createdAt
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	total, err := s.repo.Count(ctx, s.db, req.PartnerID)
	if err != nil {
		return domain.ListResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(r *domain.Request) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        r.ID.String(),
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	items := make([]domain.RequestListItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, domain.RequestListItem{
			ID:            r.ID,
			RequestType:   r.RequestType,
			Status:        r.Status,
			Comments:      r.Comments,
			TotalQuantity: r.TotalQuantity(),
			CreatedAt:     r.CreatedAt,
		})
	}

	return domain.ListResponse{Requests: items, PageInfo: pageInfo, Total: total}, nil
}

func (s *Service) RequestableItems(ctx context.Context, partnerID snowflake.ID) ([]catalogdomain.ValidItem, error) {
	partner, err := s.orgs.GetPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s.catalog.ValidItems(ctx, partner.OrgID)
}

func (s *Service) PickList(ctx context.Context, partnerID, id snowflake.ID) (io.Reader, error) {
	req, err := s.Get(ctx, partnerID, id)
	if err != nil {
		return nil, err
	}
	partner, err := s.orgs.GetPartner(ctx, req.PartnerID)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetOrganization(ctx, partner.OrgID)
	if err != nil {
		return nil, err
	}

	unitsEnabled := s.policy.Get().UnitsEnabled
	data := pdf.PickListData{
		OrganizationName: org.Name,
		PartnerName:      partner.Name,
		RequestID:        req.ID.String(),
		RequestType:      req.RequestType,
		RequestedAt:      req.CreatedAt.Format("January 2, 2006"),
		Comments:         req.Comments,
	}
	for _, ir := range req.ItemRequests {
		item := pdf.PickListItem{
			Name:       ir.Name,
			PartnerKey: ir.PartnerKey,
			Quantity:   ir.Quantity,
		}
		if unitsEnabled {
			item.Unit = ir.RequestUnit.Label(ir.Quantity)
		}
		data.Items = append(data.Items, item)
	}

	return s.pdf.GeneratePickList(ctx, data)
}
