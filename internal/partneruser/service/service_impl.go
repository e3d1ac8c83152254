package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/authorization"
	"github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/partnerdesk/internal/organization/domain"
	"github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
	userdomain "github.com/smallbiznis/partnerdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Orgs    orgdomain.Service
	Users   userdomain.Service
	Authz   authorization.Service
	Limiter domain.EmailLimiter
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	orgs    orgdomain.Service
	users   userdomain.Service
	authz   authorization.Service
	limiter domain.EmailLimiter
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("partneruser.service"),
		orgs:    p.Orgs,
		users:   p.Users,
		authz:   p.Authz,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

func (s *Service) ListUsers(ctx context.Context, actorID, partnerID snowflake.ID) (*domain.UserList, error) {
	partner, err := s.authorize(ctx, actorID, partnerID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListByRole(ctx, partnerRole(partner.ID))
	if err != nil {
		return nil, err
	}

	return &domain.UserList{
		Partner: *partner,
		Users:   users,
		Draft:   userdomain.User{},
	}, nil
}

func (s *Service) InviteUser(ctx context.Context, actorID snowflake.ID, req domain.InviteUserRequest) (*domain.Result, error) {
	partner, err := s.authorize(ctx, actorID, req.PartnerID)
	if err != nil {
		return nil, err
	}

	if err := s.allow(ctx, domain.EmailKindInvitation, req.Email); err != nil {
		return nil, err
	}

	user, err := s.users.Invite(ctx, userdomain.InviteRequest{
		Email:        req.Email,
		Name:         req.Name,
		Roles:        []userdomain.RoleRef{partnerRole(partner.ID)},
		ResourceName: partner.Name,
	})
	if err != nil {
		if isInputError(err) {
			return &domain.Result{Message: domain.MsgInviteFailed}, err
		}
		return nil, err
	}

	s.metrics.RecordInvitationSent(ctx, domain.EmailKindInvitation)
	s.log.Info("partner user invited",
		zap.String("partner_id", partner.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()),
	)

	return &domain.Result{
		User:    user,
		Success: true,
		Message: fmt.Sprintf("%s has been invited. Invitation email sent to %s", user.Name, user.Email),
	}, nil
}

func (s *Service) RevokeAccess(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*domain.Result, error) {
	partner, err := s.authorize(ctx, actorID, partnerID)
	if err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, partner.ID, userID)
	if err != nil {
		return nil, err
	}

	removed, err := s.users.RemoveRole(ctx, user.ID, partnerRole(partner.ID))
	if err != nil {
		s.log.Warn("revoke partner role failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		removed = false
	}
	if !removed {
		return &domain.Result{User: user, Message: domain.MsgInviteFailed}, nil
	}

	s.log.Info("partner access revoked",
		zap.String("partner_id", partner.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actorID.String()),
	)
	return &domain.Result{
		User:    user,
		Success: true,
		Message: fmt.Sprintf("Access to %s has been revoked for %s.", partner.Name, user.DisplayName()),
	}, nil
}

func (s *Service) ResendInvitation(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*domain.Result, error) {
	partner, err := s.authorize(ctx, actorID, partnerID)
	if err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, partner.ID, userID)
	if err != nil {
		return nil, err
	}
	if user.InvitationAccepted() {
		return nil, userdomain.ErrAlreadyAccepted
	}
	if err := s.allow(ctx, domain.EmailKindInvitation, user.Email); err != nil {
		return nil, err
	}

	user, err = s.users.ResendInvitation(ctx, user.ID, partner.Name)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvitationSent(ctx, domain.EmailKindInvitation)
	return &domain.Result{
		User:    user,
		Success: true,
		Message: "Invitation email sent to " + user.Email,
	}, nil
}

func (s *Service) ResetPassword(ctx context.Context, actorID, partnerID, userID snowflake.ID) (*domain.Result, error) {
	partner, err := s.authorize(ctx, actorID, partnerID)
	if err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, partner.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.allow(ctx, domain.EmailKindResetPassword, user.Email); err != nil {
		return nil, err
	}

	user, err = s.users.SendResetPassword(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvitationSent(ctx, domain.EmailKindResetPassword)
	return &domain.Result{User: user, Success: true, Message: domain.MsgPasswordReset}, nil
}

// authorize requires the actor to administer the partner's organization.
// Actors who administer no organization are denied before the partner is loaded.
func (s *Service) authorize(ctx context.Context, actorID, partnerID snowflake.ID) (*orgdomain.Partner, error) {
	scope, err := s.authz.Scope(ctx, actorID)
	if err != nil {
		if errors.Is(err, authorization.ErrInvalidActor) {
			return nil, domain.ErrAccessDenied
		}
		return nil, err
	}
	if len(scope.AdminOrgIDs) == 0 {
		return nil, domain.ErrAccessDenied
	}

	partner, err := s.orgs.GetPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !scope.IsOrgAdmin(partner.OrgID) {
		return nil, domain.ErrAccessDenied
	}

	err = s.authz.Authorize(ctx, actorID, authorization.OrgDomain(partner.OrgID), authorization.ObjectPartnerUser, authorization.ActionPartnerUserManage)
	if err != nil {
		if errors.Is(err, authorization.ErrForbidden) || errors.Is(err, authorization.ErrInvalidActor) {
			return nil, domain.ErrAccessDenied
		}
		return nil, err
	}
	return partner, nil
}

// findUser loads a user holding the partner role. Users of other partners
// are reported as missing.
func (s *Service) findUser(ctx context.Context, partnerID, userID snowflake.ID) (*userdomain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	grants, err := s.users.Roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	want := partnerRole(partnerID)
	for _, grant := range grants {
		if grant.Ref() == want {
			return user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Service) allow(ctx context.Context, kind, recipient string) error {
	if s.limiter == nil {
		return nil
	}
	ok, retryAfter := s.limiter.Allow(ctx, kind, recipient)
	if ok {
		return nil
	}
	s.metrics.RecordEmailThrottled(ctx, kind)
	s.log.Info("account email throttled", zap.String("kind", kind), zap.Duration("retry_after", retryAfter))
	return &domain.ThrottledError{RetryAfter: retryAfter}
}

func partnerRole(partnerID snowflake.ID) userdomain.RoleRef {
	return userdomain.RoleRef{
		Role:         userdomain.RolePartner,
		ResourceType: userdomain.ResourcePartner,
		ResourceID:   partnerID,
	}
}

func isInputError(err error) bool {
	return errors.Is(err, userdomain.ErrInvalidEmail) ||
		errors.Is(err, userdomain.ErrInvalidRole) ||
		errors.Is(err, userdomain.ErrUserExists)
}
