package providers

import (
	"github.com/smallbiznis/partnerdesk/internal/providers/email"
	"github.com/smallbiznis/partnerdesk/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
