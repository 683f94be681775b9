package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/ridership/internal/repository"
	"github.com/tigerroll/ridership/internal/step"
	"github.com/tigerroll/ridership/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/ridership/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/ridership/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/ridership/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// Module provides the dispatcher and everything it runs.
var Module = fx.Options(
	repository.Module,
	step.Module,
	fx.Provide(NewDispatcher),
)

// Run builds the Fx application, dispatches cmd once and returns the process exit code.
// extraOpts replace or add providers, mainly in tests.
func Run(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, cmd Command, extraOpts ...fx.Option) int {
	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
			cmd,
		),
		logger.Module,
		config.Module,
		metrics.Module,

		gorm.Module,
		postgres.Module,
		mysql.Module,
		sqlite.Module,

		storage.Module,
		local.Module,
		gcs.Module,

		Module,
		fx.Options(extraOpts...),

		fx.Invoke(fx.Annotate(startCommand, fx.ParamTags(
			"",              // lc
			"",              // shutdowner
			"",              // dispatcher
			"",              // cmd
			`name:"appCtx"`, // appCtx
		))),
	)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return ExitFailure
	}

	if err := app.Start(appCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return ExitFailure
	}
	sig := <-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application stopped with error: %v", err)
	}
	return sig.ExitCode
}

// startCommand runs the command once the container has started and shuts down with its exit code.
func startCommand(lc fx.Lifecycle, shutdowner fx.Shutdowner, d *Dispatcher, cmd Command, appCtx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := ExitFailure
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in command %q: %v", cmd.Name, r)
					}
					if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				logger.Infof("[run=%s] Starting command %q.", cmd.Params.RunID, cmd.Name)
				results, err := d.Dispatch(appCtx, cmd)
				code = ExitCode(err)
				for _, r := range results {
					logger.Infof("[run=%s] %s", cmd.Params.RunID, summary(r))
				}
				if err != nil {
					logger.Errorf("[run=%s] Command %q failed (exit %d): %v", cmd.Params.RunID, cmd.Name, code, err)
					return
				}
				logger.Infof("[run=%s] Command %q completed.", cmd.Params.RunID, cmd.Name)
			}()
			return nil
		},
	})
}

func summary(r step.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Step, r.Status)
	if d := r.DateString(); d != "" {
		fmt.Fprintf(&b, " date=%s", d)
	}
	fmt.Fprintf(&b, " rows=%d", r.Rows)
	if len(r.Keys) > 0 {
		fmt.Fprintf(&b, " keys=%s", strings.Join(r.Keys, ","))
	}
	return b.String()
}
