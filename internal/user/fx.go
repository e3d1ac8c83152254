package user

import (
	"github.com/smallbiznis/partnerdesk/internal/user/repository"
	"github.com/smallbiznis/partnerdesk/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
)
