package request

import (
	"github.com/smallbiznis/partnerdesk/internal/request/repository"
	"github.com/smallbiznis/partnerdesk/internal/request/service"
	"go.uber.org/fx"
)

var Module = fx.Module("request.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
