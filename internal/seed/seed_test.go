package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogrepo "github.com/smallbiznis/partnerdesk/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/partnerdesk/internal/catalog/service"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/events"
	"github.com/smallbiznis/partnerdesk/internal/migration"
	"github.com/smallbiznis/partnerdesk/internal/notification"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	orgrepo "github.com/smallbiznis/partnerdesk/internal/organization/repository"
	orgservice "github.com/smallbiznis/partnerdesk/internal/organization/service"
	"github.com/smallbiznis/partnerdesk/internal/providers/email/emailtest"
	"github.com/smallbiznis/partnerdesk/internal/providers/pdf"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	requestrepo "github.com/smallbiznis/partnerdesk/internal/request/repository"
	requestservice "github.com/smallbiznis/partnerdesk/internal/request/service"
	"github.com/smallbiznis/partnerdesk/internal/seed"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	userrepo "github.com/smallbiznis/partnerdesk/internal/user/repository"
	userservice "github.com/smallbiznis/partnerdesk/internal/user/service"
	dbpkg "github.com/smallbiznis/partnerdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newParams(t *testing.T) (seed.Params, *gorm.DB) {
	t.Helper()

	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	cfg := config.Config{DBType: "sqlite", BaseURL: "http://localhost:8080"}
	require.NoError(t, migration.Migrate(db, cfg))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	mailer := &emailtest.Recorder{}

	orgRepo := orgrepo.NewRepository(db)
	orgs := orgservice.New(orgservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: orgRepo})
	catalog := catalogservice.New(catalogservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: catalogrepo.NewRepository(db)})
	users := userservice.New(userservice.Params{DB: db, Log: log, Cfg: cfg, GenID: node, Clock: clk, Repo: userrepo.NewRepository(db), Mailer: mailer})
	requests := requestservice.New(requestservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   clk,
		Repo:    requestrepo.Provide(),
		Orgs:    orgs,
		Catalog: catalog,
		Notifier: notification.NewPartnerNotifier(notification.Params{
			Cfg:       cfg,
			Log:       log,
			Orgs:      orgRepo,
			Publisher: events.NewOutboxPublisher(db, node, clk),
			Mailer:    mailer,
		}),
		Policy: config.NewStaticRequestPolicyHolder(config.DefaultRequestPolicy()),
		PDF:    pdf.NewProvider(),
	})

	return seed.Params{
		Log:      log,
		Clock:    clk,
		OrgRepo:  orgRepo,
		Orgs:     orgs,
		Catalog:  catalog,
		Users:    users,
		Requests: requests,
	}, db
}

func TestEnsureDemoData(t *testing.T) {
	p, db := newParams(t)
	ctx := context.Background()

	require.NoError(t, seed.EnsureDemoData(ctx, p))

	admin, err := p.Users.Authenticate(ctx, seed.DefaultAdminEmail, "password123")
	require.NoError(t, err)
	roles, err := p.Users.Roles(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, userdomain.RoleOrgAdmin, roles[0].Role)

	var requests []requestdomain.Request
	require.NoError(t, db.Order("created_at asc").Find(&requests).Error)
	require.Len(t, requests, 2)
	assert.Equal(t, requestdomain.StatusFulfilled, requests[0].Status)
	assert.True(t, requests[0].CreatedAt.Equal(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, requestdomain.StatusPending, requests[1].Status)
	assert.Equal(t, 14, requests[1].TotalQuantity())

	var outbox int64
	require.NoError(t, db.Model(&events.OutboxEvent{}).Count(&outbox).Error)
	assert.EqualValues(t, 2, outbox)
}

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	p, db := newParams(t)
	ctx := context.Background()

	require.NoError(t, seed.EnsureDemoData(ctx, p))
	require.NoError(t, seed.EnsureDemoData(ctx, p))

	var orgs, partners int64
	require.NoError(t, db.Model(&orgdomain.Organization{}).Count(&orgs).Error)
	require.NoError(t, db.Model(&orgdomain.Partner{}).Count(&partners).Error)
	assert.EqualValues(t, 1, orgs)
	assert.EqualValues(t, 1, partners)
}
