package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(func() Provider { return NewProvider() }),
)

type Provider interface {
	GeneratePickList(ctx context.Context, data PickListData) (io.Reader, error)
}
