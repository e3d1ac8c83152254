package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/authorization"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	orgrepo "github.com/smallbiznis/partnerdesk/internal/organization/repository"
	orgservice "github.com/smallbiznis/partnerdesk/internal/organization/service"
	"github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
	"github.com/smallbiznis/partnerdesk/internal/providers/email"
	"github.com/smallbiznis/partnerdesk/internal/providers/email/emailtest"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	userrepo "github.com/smallbiznis/partnerdesk/internal/user/repository"
	userservice "github.com/smallbiznis/partnerdesk/internal/user/service"
	dbpkg "github.com/smallbiznis/partnerdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type denyLimiter struct {
	kinds []string
}

func (l *denyLimiter) Allow(_ context.Context, kind, _ string) (bool, time.Duration) {
	l.kinds = append(l.kinds, kind)
	return false, 90 * time.Second
}

type fixture struct {
	svc     domain.Service
	orgs    orgdomain.Service
	users   userdomain.Service
	mailer  *emailtest.Recorder
	org     *orgdomain.Organization
	partner *orgdomain.Partner
	admin   *userdomain.User
	staff   *userdomain.User
}

func newFixture(t *testing.T, limiter domain.EmailLimiter) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.Partner{},
		&userdomain.User{},
		&userdomain.RoleGrant{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	mailer := &emailtest.Recorder{}

	orgs := orgservice.New(orgservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: orgrepo.NewRepository(db)})
	usersRepo := userrepo.NewRepository(db)
	users := userservice.New(userservice.Params{
		DB:     db,
		Log:    log,
		Cfg:    config.Config{BaseURL: "https://desk.example.org"},
		GenID:  node,
		Clock:  clk,
		Repo:   usersRepo,
		Mailer: mailer,
	})

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, Users: usersRepo})

	org, err := orgs.CreateOrganization(ctx, orgdomain.CreateOrganizationRequest{Name: "Valley Diaper Bank"})
	require.NoError(t, err)
	partner, err := orgs.CreatePartner(ctx, orgdomain.CreatePartnerRequest{OrgID: org.ID, Name: "Northside Pantry", Status: orgdomain.PartnerStatusApproved})
	require.NoError(t, err)

	admin, err := users.Create(ctx, userdomain.CreateUserRequest{
		Email:    "admin@valley.test",
		Name:     "Val Admin",
		Password: "correct horse battery",
		Roles:    []userdomain.RoleRef{{Role: userdomain.RoleOrgAdmin, ResourceType: userdomain.ResourceOrganization, ResourceID: org.ID}},
	})
	require.NoError(t, err)
	staff, err := users.Create(ctx, userdomain.CreateUserRequest{
		Email:    "staff@valley.test",
		Name:     "Sam Staff",
		Password: "correct horse battery",
		Roles:    []userdomain.RoleRef{{Role: userdomain.RoleOrgUser, ResourceType: userdomain.ResourceOrganization, ResourceID: org.ID}},
	})
	require.NoError(t, err)

	svc := New(Params{
		Log:     log,
		Orgs:    orgs,
		Users:   users,
		Authz:   authz,
		Limiter: limiter,
	})

	return &fixture{svc: svc, orgs: orgs, users: users, mailer: mailer, org: org, partner: partner, admin: admin, staff: staff}
}

// member creates a partner user who has already set a password.
func (f *fixture) member(t *testing.T, partner *orgdomain.Partner, addr string) *userdomain.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), userdomain.CreateUserRequest{
		Email:    addr,
		Name:     "Pat Partner",
		Password: "correct horse battery",
		Roles:    []userdomain.RoleRef{partnerRole(partner.ID)},
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) invite(t *testing.T, addr, name string) *userdomain.User {
	t.Helper()
	res, err := f.svc.InviteUser(context.Background(), f.admin.ID, domain.InviteUserRequest{
		PartnerID: f.partner.ID,
		Email:     addr,
		Name:      name,
	})
	require.NoError(t, err)
	return res.User
}

func TestInviteUserSendsInvitation(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.InviteUser(context.Background(), f.admin.ID, domain.InviteUserRequest{
		PartnerID: f.partner.ID,
		Email:     "leslie@northside.test",
		Name:      "Leslie",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Leslie has been invited. Invitation email sent to leslie@northside.test", res.Message)

	msgs := f.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, email.TemplatePartnerInvitation, msgs[0].Template)
	assert.Equal(t, "Northside Pantry", msgs[0].Data["resource_name"])

	list, err := f.svc.ListUsers(context.Background(), f.admin.ID, f.partner.ID)
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "leslie@northside.test", list.Users[0].Email)
	assert.Equal(t, "Northside Pantry", list.Partner.Name)
	assert.Zero(t, list.Draft.ID)
	assert.Empty(t, list.Draft.Name)
}

func TestInviteUserInvalidEmail(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.InviteUser(context.Background(), f.admin.ID, domain.InviteUserRequest{
		PartnerID: f.partner.ID,
		Email:     "not-an-email",
	})
	assert.ErrorIs(t, err, userdomain.ErrInvalidEmail)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, domain.MsgInviteFailed, res.Message)
	assert.Empty(t, f.mailer.Messages())
}

func TestManagementRequiresOrganizationAdmin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ListUsers(ctx, f.staff.ID, f.partner.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Equal(t, "Access Denied.", err.Error())

	_, err = f.svc.InviteUser(ctx, f.staff.ID, domain.InviteUserRequest{PartnerID: f.partner.ID, Email: "x@y.test"})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.svc.ListUsers(ctx, f.admin.ID, snowflake.ID(4242))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNonAdminCannotTellMissingPartnerFromExisting(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, missing := f.svc.ListUsers(ctx, f.staff.ID, snowflake.ID(4242))
	_, existing := f.svc.ListUsers(ctx, f.staff.ID, f.partner.ID)
	assert.ErrorIs(t, missing, domain.ErrAccessDenied)
	assert.ErrorIs(t, existing, domain.ErrAccessDenied)

	member := f.member(t, f.partner, "pat@northside.test")
	_, err := f.svc.ResetPassword(ctx, member.ID, snowflake.ID(4242), member.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.Empty(t, f.mailer.Messages())
}

func TestAdminOfAnotherOrganizationIsDenied(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	other, err := f.orgs.CreateOrganization(ctx, orgdomain.CreateOrganizationRequest{Name: "Hill Country Bank"})
	require.NoError(t, err)
	outsider, err := f.users.Create(ctx, userdomain.CreateUserRequest{
		Email:    "admin@hill.test",
		Name:     "Hal Admin",
		Password: "correct horse battery",
		Roles:    []userdomain.RoleRef{{Role: userdomain.RoleOrgAdmin, ResourceType: userdomain.ResourceOrganization, ResourceID: other.ID}},
	})
	require.NoError(t, err)

	_, err = f.svc.ListUsers(ctx, outsider.ID, f.partner.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestOperationsIgnoreUsersOfOtherPartners(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	eastside, err := f.orgs.CreatePartner(ctx, orgdomain.CreatePartnerRequest{OrgID: f.org.ID, Name: "Eastside Shelter", Status: orgdomain.PartnerStatusApproved})
	require.NoError(t, err)
	res, err := f.svc.InviteUser(ctx, f.admin.ID, domain.InviteUserRequest{PartnerID: eastside.ID, Email: "eve@eastside.test", Name: "Eve"})
	require.NoError(t, err)
	outsider := res.User
	f.mailer.Reset()

	_, err = f.svc.ResetPassword(ctx, f.admin.ID, f.partner.ID, outsider.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.ResendInvitation(ctx, f.admin.ID, f.partner.ID, outsider.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.RevokeAccess(ctx, f.admin.ID, f.partner.ID, outsider.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.mailer.Messages())

	list, err := f.svc.ListUsers(ctx, f.admin.ID, eastside.ID)
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, outsider.ID, list.Users[0].ID)
}

func TestRevokeAccessKeepsAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.invite(t, "ann@northside.test", "")

	res, err := f.svc.RevokeAccess(ctx, f.admin.ID, f.partner.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Access to Northside Pantry has been revoked for ann@northside.test.", res.Message)

	stored, err := f.users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@northside.test", stored.Email)

	list, err := f.svc.ListUsers(ctx, f.admin.ID, f.partner.ID)
	require.NoError(t, err)
	assert.Empty(t, list.Users)

	_, err = f.svc.RevokeAccess(ctx, f.admin.ID, f.partner.ID, user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.RevokeAccess(ctx, f.admin.ID, f.partner.ID, snowflake.ID(31337))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResendInvitation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user := f.invite(t, "ben@northside.test", "Ben")
	f.mailer.Reset()

	res, err := f.svc.ResendInvitation(ctx, f.admin.ID, f.partner.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invitation email sent to ben@northside.test", res.Message)
	require.Len(t, f.mailer.Messages(), 1)
	assert.Equal(t, email.TemplatePartnerInvitation, f.mailer.Messages()[0].Template)

	member := f.member(t, f.partner, "pat@northside.test")
	f.mailer.Reset()
	_, err = f.svc.ResendInvitation(ctx, f.admin.ID, f.partner.ID, member.ID)
	assert.ErrorIs(t, err, userdomain.ErrAlreadyAccepted)
	assert.Equal(t, "User has already accepted invitation.", err.Error())
	assert.Empty(t, f.mailer.Messages())
}

func TestResetPasswordAlwaysSends(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pending := f.invite(t, "cara@northside.test", "Cara")
	member := f.member(t, f.partner, "pat@northside.test")
	f.mailer.Reset()

	for _, id := range []snowflake.ID{pending.ID, member.ID} {
		res, err := f.svc.ResetPassword(ctx, f.admin.ID, f.partner.ID, id)
		require.NoError(t, err)
		assert.Equal(t, "Password e-mail sent!", res.Message)
	}

	msgs := f.mailer.Messages()
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.Equal(t, email.TemplateResetPassword, msg.Template)
	}
}

func TestThrottledEmailsAreRejected(t *testing.T) {
	limiter := &denyLimiter{}
	f := newFixture(t, limiter)
	ctx := context.Background()

	_, err := f.svc.InviteUser(ctx, f.admin.ID, domain.InviteUserRequest{PartnerID: f.partner.ID, Email: "dan@northside.test"})
	assert.ErrorIs(t, err, domain.ErrTooManyEmails)
	var throttled *domain.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Equal(t, 90*time.Second, throttled.RetryAfter)

	member := f.member(t, f.partner, "pat@northside.test")
	_, err = f.svc.ResetPassword(ctx, f.admin.ID, f.partner.ID, member.ID)
	assert.ErrorIs(t, err, domain.ErrTooManyEmails)

	assert.Equal(t, []string{domain.EmailKindInvitation, domain.EmailKindResetPassword}, limiter.kinds)
	assert.Empty(t, f.mailer.Messages())
}
