package partneruser

import (
	"github.com/smallbiznis/partnerdesk/internal/partneruser/domain"
	"github.com/smallbiznis/partnerdesk/internal/partneruser/service"
	"github.com/smallbiznis/partnerdesk/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("partneruser.service",
	fx.Provide(func(t *ratelimit.EmailThrottle) domain.EmailLimiter { return t }),
	fx.Provide(service.New),
)
