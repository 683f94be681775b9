package step

import (
	"context"
	"fmt"

	"github.com/tigerroll/ridership/internal/schema"
	"github.com/tigerroll/ridership/pkg/batch/adapter/database"
	"github.com/tigerroll/ridership/pkg/batch/component/migration"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/core/metrics"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// MigrateStep applies the embedded schema of the connection's dialect.
// The migrator closes the connection's *sql.DB, so migrate runs alone.
// The embedded SQL creates the default table names only. Renamed tables must be
// provisioned outside of migrate.
type MigrateStep struct {
	resolver database.DBConnectionResolver
	dbName   string
	tables   config.TableNames
}

var _ Step = (*MigrateStep)(nil)

// NewMigrateStep creates a MigrateStep.
func NewMigrateStep(resolver database.DBConnectionResolver, cfg *config.ForecastConfig) *MigrateStep {
	return &MigrateStep{resolver: resolver, dbName: cfg.DatabaseRef, tables: cfg.Tables}
}

func (s *MigrateStep) Name() string { return "migrate" }

func (s *MigrateStep) Execute(ctx context.Context, p Params) (Result, error) {
	if want := config.DefaultTableNames(); s.tables != want {
		return Result{}, exception.NewBatchError(s.Name(),
			fmt.Sprintf("table_names %+v differ from the migrated schema %+v; provision renamed tables outside of migrate", s.tables, want),
			nil, false, false)
	}
	conn, err := s.resolver.ResolveDBConnection(ctx, s.dbName)
	if err != nil {
		return Result{}, exception.NewBatchError(s.Name(), fmt.Sprintf("failed to resolve database '%s'", s.dbName), err, false, true)
	}
	version, err := migration.NewMigrator(conn).Up(ctx, schema.Migrations, schema.Dir(conn.Type()), migration.DefaultMigrationsTable)
	if err != nil {
		return Result{}, exception.NewBatchError(s.Name(), "schema migration failed", err, false, false)
	}
	logger.ForStep(p.RunID, s.Name()).Infof("Schema of '%s' is at version %d.", s.dbName, version)
	return Result{Status: metrics.StatusCompleted}, nil
}
