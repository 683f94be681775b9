package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/ridership/pkg/batch/adapter/database"
	coreAdapter "github.com/tigerroll/ridership/pkg/batch/core/adapter"
	"github.com/tigerroll/ridership/pkg/batch/core/tx"
)

// Module provides the resolver and the transaction manager factory.
// Dialect providers are added by their own modules.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGormDBConnectionResolver,
		fx.As(new(database.DBConnectionResolver)),
		fx.As(new(coreAdapter.ResourceConnectionResolver)),
		fx.As(fx.Self()),
	)),
	fx.Provide(fx.Annotate(
		NewGormTransactionManagerFactory,
		fx.As(new(tx.TransactionManagerFactory)),
	)),
	fx.Invoke(registerCloseHook),
)

func registerCloseHook(lc fx.Lifecycle, r *GormDBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
}
