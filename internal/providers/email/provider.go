package email

import (
	"context"

	"go.uber.org/zap"
)

const (
	TemplatePartnerInvitation = "partner_invitation"
	TemplateAccessGranted     = "access_granted"
	TemplateResetPassword     = "reset_password"
	TemplateNewRequest        = "new_request"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

// NoOpProvider accepts every message and delivers nothing. Discarded
// messages are logged at debug level.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.logger().Debug("email discarded", zap.String("subject", subject), zap.Int("recipients", len(to)))
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	p.logger().Debug("email discarded", zap.String("template", templateName), zap.Int("recipients", len(to)))
	return nil
}

func (p *NoOpProvider) logger() *zap.Logger {
	if p == nil || p.log == nil {
		return zap.NewNop()
	}
	return p.log
}
