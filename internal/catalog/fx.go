package catalog

import (
	"github.com/smallbiznis/partnerdesk/internal/catalog/repository"
	"github.com/smallbiznis/partnerdesk/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
