package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	dbadapter "github.com/tigerroll/ridership/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/ridership/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/ridership/pkg/batch/core/adapter"
)

// MockDBConnection is a mock implementation of database.DBConnection.
type MockDBConnection struct {
	mock.Mock
	ConnName string
}

func (m *MockDBConnection) Close() error { return nil }
func (m *MockDBConnection) Type() string { return "mock" }
func (m *MockDBConnection) Name() string { return m.ConnName }
func (m *MockDBConnection) IsTableNotExistError(err error) bool {
	return false
}
func (m *MockDBConnection) RefreshConnection(ctx context.Context) error { return nil }
func (m *MockDBConnection) Config() dbconfig.DatabaseConfig {
	return dbconfig.DatabaseConfig{Type: "mock"}
}
func (m *MockDBConnection) GetSQLDB() (*sql.DB, error) { return nil, nil }

func (m *MockDBConnection) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	args := m.Called(ctx, model, operation, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDBConnection) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	args := m.Called(ctx, model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDBConnection) ExecuteQuery(ctx context.Context, target interface{}, tableName string, query map[string]interface{}) error {
	return m.Called(ctx, target, tableName, query).Error(0)
}

func (m *MockDBConnection) ExecuteQueryAdvanced(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, limit int) error {
	return m.Called(ctx, target, tableName, query, orderBy, limit).Error(0)
}

func (m *MockDBConnection) Count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error) {
	args := m.Called(ctx, tableName, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDBConnection) Pluck(ctx context.Context, tableName string, column string, distinct bool, target interface{}, query map[string]interface{}) error {
	return m.Called(ctx, tableName, column, distinct, target, query).Error(0)
}

func (m *MockDBConnection) SelectDistinct(ctx context.Context, tableName string, columns []string, target interface{}, query map[string]interface{}) error {
	return m.Called(ctx, tableName, columns, target, query).Error(0)
}

// StaticDBResolver resolves every name to the same connection.
type StaticDBResolver struct {
	Conn dbadapter.DBConnection
	Err  error
}

func (r *StaticDBResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveDBConnection(ctx, name)
}

func (r *StaticDBResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Conn, nil
}

var (
	_ dbadapter.DBConnection         = (*MockDBConnection)(nil)
	_ dbadapter.DBConnectionResolver = (*StaticDBResolver)(nil)
)
