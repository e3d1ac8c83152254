package notification

import (
	requestdomain "github.com/smallbiznis/partnerdesk/internal/request/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		NewPartnerNotifier,
		func(n *PartnerNotifier) requestdomain.Notifier { return n },
	),
)
