package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/auth/password"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/providers/email"
	"github.com/smallbiznis/partnerdesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Cfg    config.Config
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Mailer email.Provider
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	baseURL string
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	mailer  email.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("user.service"),
		baseURL: strings.TrimRight(p.Cfg.BaseURL, "/"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		mailer:  p.Mailer,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validateRoles(req.Roles); err != nil {
		return nil, err
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, domain.ErrInvalidPassword
	}
	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := domain.User{
		ID:                   s.genID.Generate(),
		Email:                addr,
		Name:                 strings.TrimSpace(req.Name),
		PasswordHash:         &hashed,
		InvitationAcceptedAt: &now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByEmail(ctx, addr)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrUserExists
		}
		if err := repo.Insert(ctx, &user); err != nil {
			return err
		}
		return s.grantRoles(ctx, repo, user.ID, req.Roles)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Invite creates the account when the email is unknown, grants the roles and
// emails the user. Accounts that already accepted an invitation get an
// access-granted email instead of a new invitation.
func (s *Service) Invite(ctx context.Context, req domain.InviteRequest) (*domain.User, error) {
	addr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Roles) == 0 {
		return nil, domain.ErrInvalidRole
	}
	if err := validateRoles(req.Roles); err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.clock.Now()

		found, err := repo.FindByEmail(ctx, addr)
		if err != nil {
			return err
		}
		if found == nil {
			found = &domain.User{
				ID:        s.genID.Generate(),
				Email:     addr,
				Name:      strings.TrimSpace(req.Name),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repo.Insert(ctx, found); err != nil {
				return err
			}
		}
		user = found

		if err := s.grantRoles(ctx, repo, user.ID, req.Roles); err != nil {
			return err
		}

		if user.InvitationAccepted() {
			return s.mailer.SendTemplate(ctx, []string{user.Email}, email.TemplateAccessGranted, map[string]any{
				"name":          user.Name,
				"email":         user.Email,
				"resource_name": req.ResourceName,
				"login_url":     s.baseURL + "/login",
			})
		}
		return s.sendInvitation(ctx, repo, user, req.ResourceName)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user invited",
		zap.String("user_id", user.ID.String()),
		zap.Bool("existing_account", user.InvitationAccepted()),
	)
	return user, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) ListByRole(ctx context.Context, ref domain.RoleRef) ([]domain.User, error) {
	if err := validateRoles([]domain.RoleRef{ref}); err != nil {
		return nil, err
	}
	users, err := s.repo.ListByRole(ctx, ref)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// RemoveRole deletes one role grant. The account itself is kept.
func (s *Service) RemoveRole(ctx context.Context, userID snowflake.ID, ref domain.RoleRef) (bool, error) {
	if err := validateRoles([]domain.RoleRef{ref}); err != nil {
		return false, err
	}
	return s.repo.RemoveRole(ctx, userID, ref)
}

func (s *Service) Roles(ctx context.Context, userID snowflake.ID) ([]domain.RoleGrant, error) {
	return s.repo.ListRoles(ctx, userID)
}

func (s *Service) ResendInvitation(ctx context.Context, userID snowflake.ID, resourceName string) (*domain.User, error) {
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		if found.InvitationAccepted() {
			return domain.ErrAlreadyAccepted
		}
		user = found
		return s.sendInvitation(ctx, repo, user, resourceName)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SendResetPassword emails reset instructions regardless of invitation state.
func (s *Service) SendResetPassword(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		user = found

		now := s.clock.Now()
		raw, hashed, err := newToken(now)
		if err != nil {
			return err
		}
		user.ResetPasswordTokenHash = &hashed
		user.ResetPasswordSentAt = &now
		user.UpdatedAt = now
		if err := repo.Update(ctx, user); err != nil {
			return err
		}

		return s.mailer.SendTemplate(ctx, []string{user.Email}, email.TemplateResetPassword, map[string]any{
			"name":      user.Name,
			"email":     user.Email,
			"reset_url": s.link("/passwords/reset", raw),
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) AcceptInvitation(ctx context.Context, token, plain string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	if err := password.Validate(plain); err != nil {
		return nil, domain.ErrInvalidPassword
	}

	user, err := s.repo.FindByInvitationTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if user == nil || user.InvitationSentAt == nil || now.Sub(*user.InvitationSentAt) > invitationTTL {
		return nil, domain.ErrInvalidToken
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = &hashed
	user.InvitationAcceptedAt = &now
	user.InvitationTokenHash = nil
	user.UpdatedAt = now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, plain string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	if err := password.Validate(plain); err != nil {
		return nil, domain.ErrInvalidPassword
	}

	user, err := s.repo.FindByResetTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if user == nil || user.ResetPasswordSentAt == nil || now.Sub(*user.ResetPasswordSentAt) > resetPasswordTTL {
		return nil, domain.ErrInvalidToken
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = &hashed
	user.ResetPasswordTokenHash = nil
	user.ResetPasswordSentAt = nil
	if user.InvitationAcceptedAt == nil {
		user.InvitationAcceptedAt = &now
		user.InvitationTokenHash = nil
	}
	user.UpdatedAt = now
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, addr, plain string) (*domain.User, error) {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" || plain == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil || !password.Verify(plain, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) sendInvitation(ctx context.Context, repo domain.Repository, user *domain.User, resourceName string) error {
	now := s.clock.Now()
	raw, hashed, err := newToken(now)
	if err != nil {
		return err
	}
	user.InvitationTokenHash = &hashed
	user.InvitationSentAt = &now
	user.UpdatedAt = now
	if err := repo.Update(ctx, user); err != nil {
		return err
	}

	return s.mailer.SendTemplate(ctx, []string{user.Email}, email.TemplatePartnerInvitation, map[string]any{
		"name":          user.Name,
		"email":         user.Email,
		"resource_name": resourceName,
		"accept_url":    s.link("/invitations/accept", raw),
	})
}

func (s *Service) grantRoles(ctx context.Context, repo domain.Repository, userID snowflake.ID, refs []domain.RoleRef) error {
	now := s.clock.Now()
	for _, ref := range refs {
		err := repo.AddRole(ctx, domain.RoleGrant{
			ID:           s.genID.Generate(),
			UserID:       userID,
			Role:         ref.Role,
			ResourceType: ref.ResourceType,
			ResourceID:   ref.ResourceID,
			CreatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("grant %s on %s %s: %w", ref.Role, ref.ResourceType, ref.ResourceID, err)
		}
	}
	return nil
}

func (s *Service) link(path, token string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(token)
}

func normalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	at := strings.Index(addr, "@")
	if at <= 0 || at == len(addr)-1 || strings.ContainsAny(addr, " \t\r\n") {
		return "", domain.ErrInvalidEmail
	}
	return addr, nil
}

func validateRoles(refs []domain.RoleRef) error {
	for _, ref := range refs {
		switch ref.Role {
		case domain.RolePartner:
			if ref.ResourceType != domain.ResourcePartner {
				return domain.ErrInvalidRole
			}
		case domain.RoleOrgUser, domain.RoleOrgAdmin:
			if ref.ResourceType != domain.ResourceOrganization {
				return domain.ErrInvalidRole
			}
		default:
			return domain.ErrInvalidRole
		}
		if ref.ResourceID == 0 {
			return domain.ErrInvalidRole
		}
	}
	return nil
}

// IsValidationError reports whether err is caused by caller input.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidPassword),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrUserExists):
		return true
	default:
		return false
	}
}
