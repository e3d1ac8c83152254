package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/partnerdesk/internal/auth/token"
	"github.com/smallbiznis/partnerdesk/internal/authorization"
	catalogdomain "github.com/smallbiznis/partnerdesk/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/partnerdesk/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/partnerdesk/internal/catalog/service"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/events"
	"github.com/smallbiznis/partnerdesk/internal/notification"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	orgrepo "github.com/smallbiznis/partnerdesk/internal/organization/repository"
	orgservice "github.com/smallbiznis/partnerdesk/internal/organization/service"
	partneruserdomain "github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
	partneruserservice "github.com/smallbiznis/partnerdesk/internal/partneruser/service"
	"github.com/smallbiznis/partnerdesk/internal/providers/email/emailtest"
	"github.com/smallbiznis/partnerdesk/internal/providers/pdf"
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	"github.com/smallbiznis/partnerdesk/internal/request/mocks"
	requestrepo "github.com/smallbiznis/partnerdesk/internal/request/repository"
	requestservice "github.com/smallbiznis/partnerdesk/internal/request/service"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	userrepo "github.com/smallbiznis/partnerdesk/internal/user/repository"
	userservice "github.com/smallbiznis/partnerdesk/internal/user/service"
	dbpkg "github.com/smallbiznis/partnerdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const testPassword = "correct horse battery"

type harness struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	mailer  *emailtest.Recorder
	org     *orgdomain.Organization
	partner *orgdomain.Partner
	other   *orgdomain.Partner
	wipes   *catalogdomain.ValidItem
	diapers *catalogdomain.ValidItem
	users   userdomain.Service
}

func newHarness(t *testing.T, opts ...func(*ServerParams)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.Partner{},
		&catalogdomain.Item{},
		&catalogdomain.ItemUnit{},
		&userdomain.User{},
		&userdomain.RoleGrant{},
		&requestdomain.Request{},
		&requestdomain.ItemRequest{},
		&events.OutboxEvent{},
	))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{
		Environment:     "test",
		BaseURL:         "https://desk.example.org",
		AuthJWTSecret:   "test-secret",
		AuthJWTIssuer:   "partnerdesk",
		AuthJWTAudience: "partnerdesk-web",
		AuthTokenTTL:    time.Hour,
	}
	mailer := &emailtest.Recorder{}

	orgRepo := orgrepo.NewRepository(db)
	orgs := orgservice.New(orgservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: orgRepo})
	catalog := catalogservice.New(catalogservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: catalogrepo.NewRepository(db)})
	usersRepo := userrepo.NewRepository(db)
	users := userservice.New(userservice.Params{DB: db, Log: log, Cfg: cfg, GenID: node, Clock: clk, Repo: usersRepo, Mailer: mailer})

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, Users: usersRepo})

	notifier := notification.NewPartnerNotifier(notification.Params{
		Cfg:       cfg,
		Log:       log,
		Orgs:      orgRepo,
		Publisher: events.NewOutboxPublisher(db, node, clk),
		Mailer:    mailer,
	})
	policy := config.NewStaticRequestPolicyHolder(config.DefaultRequestPolicy())
	requests := requestservice.New(requestservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     requestrepo.Provide(),
		Orgs:     orgs,
		Catalog:  catalog,
		Notifier: notifier,
		Policy:   policy,
		PDF:      pdf.NewProvider(),
	})
	partnerUsers := partneruserservice.New(partneruserservice.Params{Log: log, Orgs: orgs, Users: users, Authz: authz})

	tokens, err := token.NewManager(cfg, clk, log)
	require.NoError(t, err)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	params := ServerParams{
		Gin:             router,
		Cfg:             cfg,
		Tokens:          tokens,
		AuthzSvc:        authz,
		OrganizationSvc: orgs,
		UserSvc:         users,
		PartnerUserSvc:  partnerUsers,
		RequestSvc:      requests,
		Policy:          policy,
	}
	for _, opt := range opts {
		opt(&params)
	}
	NewServer(params)

	org, err := orgs.CreateOrganization(ctx, orgdomain.CreateOrganizationRequest{Name: "Valley Diaper Bank", Email: "help@valley.test"})
	require.NoError(t, err)
	partner, err := orgs.CreatePartner(ctx, orgdomain.CreatePartnerRequest{OrgID: org.ID, Name: "Northside Pantry", Status: orgdomain.PartnerStatusApproved})
	require.NoError(t, err)
	other, err := orgs.CreatePartner(ctx, orgdomain.CreatePartnerRequest{OrgID: org.ID, Name: "Eastside Shelter", Status: orgdomain.PartnerStatusApproved})
	require.NoError(t, err)
	wipes, err := catalog.CreateItem(ctx, catalogdomain.CreateItemRequest{OrgID: org.ID, Name: "Baby Wipes", Units: []string{"pack"}})
	require.NoError(t, err)
	diapers, err := catalog.CreateItem(ctx, catalogdomain.CreateItemRequest{OrgID: org.ID, Name: "Diapers Size 4"})
	require.NoError(t, err)

	return &harness{
		t:       t,
		db:      db,
		router:  router,
		mailer:  mailer,
		org:     org,
		partner: partner,
		other:   other,
		wipes:   wipes,
		diapers: diapers,
		users:   users,
	}
}

func (h *harness) createUser(addr, role, resourceType string, resourceID snowflake.ID) *userdomain.User {
	h.t.Helper()
	user, err := h.users.Create(context.Background(), userdomain.CreateUserRequest{
		Email:    addr,
		Name:     addr,
		Password: testPassword,
		Roles:    []userdomain.RoleRef{{Role: role, ResourceType: resourceType, ResourceID: resourceID}},
	})
	require.NoError(h.t, err)
	return user
}

func (h *harness) partnerUser() string {
	h.createUser("pat@northside.test", userdomain.RolePartner, userdomain.ResourcePartner, h.partner.ID)
	return h.login("pat@northside.test")
}

func (h *harness) orgAdmin() string {
	h.createUser("ada@valley.test", userdomain.RoleOrgAdmin, userdomain.ResourceOrganization, h.org.ID)
	return h.login("ada@valley.test")
}

func (h *harness) login(addr string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/token", "", map[string]string{"email": addr, "password": testPassword})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data tokenResponse `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(h.t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func (h *harness) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, rec)
	payload, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return payload
}

func TestCreateRequestMergesLineItems(t *testing.T) {
	h := newHarness(t)
	bearer := h.partnerUser()

	rec := h.do(http.MethodPost, "/partners/requests", bearer, map[string]any{
		"comments": "Thanks!",
		"item_requests": []map[string]any{
			{"item_id": h.wipes.ID.String(), "quantity": "12", "request_unit": "pack"},
			{"item_id": "", "quantity": ""},
			{"item_id": h.wipes.ID.String(), "quantity": 17, "request_unit": "pack"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Request was successfully created.", body["message"])
	data := body["data"].(map[string]any)
	items := data["item_requests"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 29, items[0].(map[string]any)["quantity"])
	assert.Equal(t, "pack", items[0].(map[string]any)["request_unit"])

	require.Len(t, h.mailer.Messages(), 1)
	assert.Equal(t, []string{"help@valley.test"}, h.mailer.Messages()[0].To)

	list := h.do(http.MethodGet, "/partners/requests", bearer, nil)
	require.Equal(t, http.StatusOK, list.Code)
	listed := decode(t, list)
	assert.EqualValues(t, 1, listed["total"])
	rows := listed["data"].([]any)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 29, rows[0].(map[string]any)["total_quantity"])
}

func TestCreateRequestValidationFailure(t *testing.T) {
	h := newHarness(t)
	bearer := h.partnerUser()

	rec := h.do(http.MethodPost, "/partners/requests", bearer, map[string]any{
		"item_requests": []map[string]any{
			{"item_id": h.wipes.ID.String(), "quantity": "1", "request_unit": "pack"},
			{"item_id": h.wipes.ID.String(), "quantity": "2", "request_unit": "-1"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	payload := errorOf(t, rec)
	assert.Equal(t, "Oops! Something went wrong with your Request", payload["message"])
	assert.Equal(t, []any{
		"Still need help? Please contact your essentials bank, Valley Diaper Bank",
		"Our email on record for them is: help@valley.test",
	}, payload["help"])

	var messages []string
	for _, e := range payload["errors"].([]any) {
		messages = append(messages, e.(map[string]any)["message"].(string))
	}
	assert.Contains(t, messages, "Please ensure a single unit is selected for each item")

	var count int64
	require.NoError(t, h.db.Model(&requestdomain.Request{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, h.mailer.Messages())
}

func TestCreateRequestRequiresSelection(t *testing.T) {
	h := newHarness(t)
	bearer := h.partnerUser()

	rec := h.do(http.MethodPost, "/partners/requests", bearer, map[string]any{
		"item_requests": []map[string]any{{"item_id": h.wipes.ID.String(), "quantity": "3", "request_unit": "-1"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := errorOf(t, rec)["errors"].([]any)
	assert.Equal(t, "Please select a unit for Baby Wipes", errs[0].(map[string]any)["message"])
}

func TestOrgAdminNeedsPartnerID(t *testing.T) {
	h := newHarness(t)
	bearer := h.orgAdmin()
	body := map[string]any{
		"item_requests": []map[string]any{{"item_id": h.diapers.ID.String(), "quantity": 4}},
	}

	rec := h.do(http.MethodPost, "/partners/requests", bearer, body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	payload := errorOf(t, rec)
	assert.Equal(t, "That screen is not available. Please try again as a partner.", payload["message"])
	assert.Equal(t, "/dashboard", payload["redirect"])

	rec = h.do(http.MethodPost, "/partners/requests?partner_id="+h.other.ID.String(), bearer, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, h.other.ID.String(), data["partner_id"])
}

func TestPartnerCannotActForAnotherPartner(t *testing.T) {
	h := newHarness(t)
	bearer := h.partnerUser()

	rec := h.do(http.MethodGet, "/partners/requests?partner_id="+h.other.ID.String(), bearer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestShowRequestScopedToPartner(t *testing.T) {
	h := newHarness(t)
	partnerBearer := h.partnerUser()
	adminBearer := h.orgAdmin()

	rec := h.do(http.MethodPost, "/partners/requests?partner_id="+h.other.ID.String(), adminBearer, map[string]any{
		"comments": "Call first",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode(t, rec)["data"].(map[string]any)["id"].(string)

	rec = h.do(http.MethodGet, "/partners/requests/"+id, partnerBearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/partners/requests/"+id+"?partner_id="+h.other.ID.String(), adminBearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Call first", decode(t, rec)["data"].(map[string]any)["comments"])

	rec = h.do(http.MethodGet, "/partners/requests/"+id+"/print?partner_id="+h.other.ID.String(), adminBearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestNewRequestListsItems(t *testing.T) {
	h := newHarness(t)
	bearer := h.partnerUser()

	rec := h.do(http.MethodGet, "/partners/requests/new", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Len(t, data["items"], 2)
	assert.Equal(t, true, data["units_enabled"])
}

func TestRequestsRequireAuthentication(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/partners/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/partners/requests", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPartnerUserManagement(t *testing.T) {
	h := newHarness(t)
	partnerBearer := h.partnerUser()
	adminBearer := h.orgAdmin()
	base := "/partners/" + h.partner.ID.String() + "/users"

	rec := h.do(http.MethodGet, base, partnerBearer, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access Denied.", errorOf(t, rec)["message"])

	rec = h.do(http.MethodPost, base, adminBearer, map[string]any{"user": map[string]string{"email": "lee@northside.test", "name": "Lee"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Lee has been invited. Invitation email sent to lee@northside.test", body["message"])
	leeID := body["data"].(map[string]any)["id"].(string)

	rec = h.do(http.MethodPost, base, adminBearer, map[string]any{"user": map[string]string{"email": "nope"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Invitation failed. Check the form for errors.", errorOf(t, rec)["message"])

	rec = h.do(http.MethodGet, base, adminBearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode(t, rec)["data"].(map[string]any)["users"].([]any)
	assert.Len(t, users, 2)

	rec = h.do(http.MethodPost, base+"/"+leeID+"/resend_invitation", adminBearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Invitation email sent to lee@northside.test", decode(t, rec)["message"])

	rec = h.do(http.MethodPost, base+"/"+leeID+"/reset_password", adminBearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password e-mail sent!", decode(t, rec)["message"])

	rec = h.do(http.MethodDelete, base+"/"+leeID, adminBearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Access to Northside Pantry has been revoked for Lee.", decode(t, rec)["message"])

	rec = h.do(http.MethodDelete, base+"/"+leeID, adminBearer, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPartnerUserRoutesScopeTargetUser(t *testing.T) {
	h := newHarness(t)
	adminBearer := h.orgAdmin()
	outsider := h.createUser("eve@eastside.test", userdomain.RolePartner, userdomain.ResourcePartner, h.other.ID)
	h.mailer.Reset()

	base := "/partners/" + h.partner.ID.String() + "/users/" + outsider.ID.String()
	for _, path := range []string{base + "/reset_password", base + "/resend_invitation"} {
		rec := h.do(http.MethodPost, path, adminBearer, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := h.do(http.MethodDelete, base, adminBearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, h.mailer.Messages())
}

func TestResendInvitationAfterAcceptance(t *testing.T) {
	h := newHarness(t)
	adminBearer := h.orgAdmin()
	accepted := h.createUser("acc@northside.test", userdomain.RolePartner, userdomain.ResourcePartner, h.partner.ID)

	rec := h.do(http.MethodPost, "/partners/"+h.partner.ID.String()+"/users/"+accepted.ID.String()+"/resend_invitation", adminBearer, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "User has already accepted invitation.", errorOf(t, rec)["message"])
}

func TestAcceptInvitationIssuesToken(t *testing.T) {
	h := newHarness(t)
	adminBearer := h.orgAdmin()

	rec := h.do(http.MethodPost, "/partners/"+h.partner.ID.String()+"/users", adminBearer, map[string]any{"user": map[string]string{"email": "new@northside.test", "name": "New"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	msgs := h.mailer.Messages()
	require.NotEmpty(t, msgs)
	acceptURL, err := url.Parse(msgs[len(msgs)-1].Data["accept_url"].(string))
	require.NoError(t, err)
	assert.Equal(t, "/invitations/accept", acceptURL.Path)
	raw := acceptURL.Query().Get("token")

	rec = h.do(http.MethodPost, "/invitations/accept", "", map[string]string{"token": raw, "password": "short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/invitations/accept", "", map[string]string{"token": raw, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	bearer := h.login("new@northside.test")
	rec = h.do(http.MethodGet, "/partners/requests", bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueTokenRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.createUser("pat@northside.test", userdomain.RolePartner, userdomain.ResourcePartner, h.partner.ID)

	rec := h.do(http.MethodPost, "/auth/token", "", map[string]string{"email": "pat@northside.test", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestServiceFailureIsOpaque(t *testing.T) {
	ctrl := gomock.NewController(t)
	requests := mocks.NewMockService(ctrl)
	h := newHarness(t, func(p *ServerParams) { p.RequestSvc = requests })
	bearer := h.partnerUser()

	requests.EXPECT().
		List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req requestdomain.ListRequest) (requestdomain.ListResponse, error) {
			assert.Equal(t, h.partner.ID, req.PartnerID)
			return requestdomain.ListResponse{}, errors.New("connection reset by peer")
		})

	rec := h.do(http.MethodGet, "/partners/requests", bearer, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	payload := errorOf(t, rec)
	assert.Equal(t, "internal server error", payload["message"])
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestPrintUnknownRequestIsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	requests := mocks.NewMockService(ctrl)
	h := newHarness(t, func(p *ServerParams) { p.RequestSvc = requests })
	bearer := h.partnerUser()

	requests.EXPECT().
		PickList(gomock.Any(), h.partner.ID, snowflake.ID(77)).
		Return(nil, requestdomain.ErrNotFound)

	rec := h.do(http.MethodGet, "/partners/requests/77/print", bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThrottledEmailSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/throttled", func(c *gin.Context) {
		AbortWithError(c, &partneruserdomain.ThrottledError{RetryAfter: 1500 * time.Millisecond})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/throttled", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", errorOf(t, rec)["type"])
}
