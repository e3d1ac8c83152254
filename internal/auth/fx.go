package auth

import (
	"github.com/smallbiznis/partnerdesk/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(token.NewManager),
)
