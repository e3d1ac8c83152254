package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Users    userdomain.Repository
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	users    userdomain.Repository
}

// NewEnforcer builds an enforcer whose policies persist through gorm.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		users:    p.Users,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, domain string, object string, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ErrInvalidDomain
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	grants, err := s.users.ListRoles(ctx, userID)
	if err != nil {
		return err
	}

	roles := make([]string, 0, len(grants))
	for _, grant := range grants {
		if grantDomain(grant) == domain {
			roles = append(roles, roleName(grant.Role))
		}
	}

	subject := subjectFor(userID)
	if err := s.syncGrouping(subject, roles, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("domain", domain),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Scope(ctx context.Context, userID snowflake.ID) (Scope, error) {
	if userID == 0 {
		return Scope{}, ErrInvalidActor
	}
	grants, err := s.users.ListRoles(ctx, userID)
	if err != nil {
		return Scope{}, err
	}

	scope := Scope{UserID: userID}
	for _, grant := range grants {
		switch grant.Role {
		case userdomain.RolePartner:
			scope.PartnerIDs = append(scope.PartnerIDs, grant.ResourceID)
		case userdomain.RoleOrgAdmin:
			scope.AdminOrgIDs = append(scope.AdminOrgIDs, grant.ResourceID)
			scope.OrgIDs = append(scope.OrgIDs, grant.ResourceID)
		case userdomain.RoleOrgUser:
			scope.OrgIDs = append(scope.OrgIDs, grant.ResourceID)
		}
	}
	return scope, nil
}

// syncGrouping makes the enforcer's role links for subject in domain match roles.
func (s *ServiceImpl) syncGrouping(subject string, roles []string, domain string) error {
	want := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		want[role] = struct{}{}
	}

	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if _, ok := want[rule[1]]; ok {
			delete(want, rule[1])
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	for role := range want {
		if _, err := s.enforcer.AddGroupingPolicy(subject, role, domain); err != nil {
			return err
		}
	}
	return nil
}

func grantDomain(grant userdomain.RoleGrant) string {
	switch grant.ResourceType {
	case userdomain.ResourcePartner:
		return PartnerDomain(grant.ResourceID)
	case userdomain.ResourceOrganization:
		return OrgDomain(grant.ResourceID)
	default:
		return ""
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleName(userdomain.RolePartner), ObjectRequest, ActionRequestView},
		{roleName(userdomain.RolePartner), ObjectRequest, ActionRequestCreate},
		{roleName(userdomain.RolePartner), ObjectRequest, ActionRequestPrint},

		{roleName(userdomain.RoleOrgUser), ObjectRequest, ActionRequestView},

		{roleName(userdomain.RoleOrgAdmin), ObjectRequest, ActionRequestView},
		{roleName(userdomain.RoleOrgAdmin), ObjectRequest, ActionRequestCreate},
		{roleName(userdomain.RoleOrgAdmin), ObjectRequest, ActionRequestPrint},
		{roleName(userdomain.RoleOrgAdmin), ObjectPartnerUser, ActionPartnerUserManage},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
