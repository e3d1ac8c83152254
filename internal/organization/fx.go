package organization

import (
	"github.com/smallbiznis/partnerdesk/internal/organization/repository"
	"github.com/smallbiznis/partnerdesk/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
