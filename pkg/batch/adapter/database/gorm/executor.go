package gorm

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableNamer represents a struct that has a TableName() string method.
type TableNamer interface {
	TableName() string
}

// applyTableName scopes db to the table of model when it (or its slice element) implements TableNamer.
func applyTableName(db *gorm.DB, model interface{}) *gorm.DB {
	if namer, ok := model.(TableNamer); ok {
		return db.Table(namer.TableName())
	}

	val := reflect.ValueOf(model)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() == reflect.Slice || val.Kind() == reflect.Array {
		elemType := val.Type().Elem()
		if elemType.Kind() == reflect.Ptr {
			elemType = elemType.Elem()
		}
		if namer, ok := reflect.New(elemType).Interface().(TableNamer); ok {
			return db.Table(namer.TableName())
		}
	}
	return db.Model(model)
}

// scope prefers an explicit table name over the model's.
func scope(db *gorm.DB, tableName string, model interface{}) *gorm.DB {
	if tableName != "" {
		return db.Table(tableName)
	}
	if model == nil {
		return db
	}
	return applyTableName(db, model)
}

func where(db *gorm.DB, query map[string]interface{}) *gorm.DB {
	if len(query) == 0 {
		return db
	}
	return db.Where(query)
}

// executor carries the statement logic shared by the connection and the transaction adapters.
type executor struct {
	db *gorm.DB
}

func (e executor) update(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	db := e.db.WithContext(ctx)
	if tableName != "" {
		db = db.Table(tableName)
	}

	var result *gorm.DB
	switch operation {
	case "CREATE":
		result = db.Create(model)
	case "UPDATE":
		result = db.Model(model).Where(query).Updates(model)
	case "DELETE":
		result = where(db, query).Delete(model)
	default:
		return 0, fmt.Errorf("unsupported update operation: %s", operation)
	}
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (e executor) upsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	db := e.db.WithContext(ctx)
	if tableName != "" {
		db = db.Table(tableName)
	}

	columns := make([]clause.Column, 0, len(conflictColumns))
	for _, col := range conflictColumns {
		columns = append(columns, clause.Column{Name: col})
	}
	onConflict := clause.OnConflict{Columns: columns}
	if len(updateColumns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		onConflict.DoNothing = true
	}

	result := db.Clauses(onConflict).Create(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (e executor) count(ctx context.Context, tableName string, query map[string]interface{}) (int64, error) {
	var n int64
	db := where(scope(e.db.WithContext(ctx), tableName, nil), query)
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (e executor) query(ctx context.Context, target interface{}, tableName string, query map[string]interface{}, orderBy string, limit int) error {
	db := where(scope(e.db.WithContext(ctx), tableName, target), query)
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db.Find(target).Error
}

func (e executor) pluck(ctx context.Context, tableName string, column string, distinct bool, target interface{}, query map[string]interface{}) error {
	db := where(scope(e.db.WithContext(ctx), tableName, nil), query)
	if distinct {
		db = db.Distinct()
	}
	return db.Pluck(column, target).Error
}

func (e executor) selectDistinct(ctx context.Context, tableName string, columns []string, target interface{}, query map[string]interface{}) error {
	if len(columns) == 0 {
		return fmt.Errorf("select distinct on %s: no columns", tableName)
	}
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		args[i] = c
	}
	db := where(scope(e.db.WithContext(ctx), tableName, target), query)
	return db.Distinct(args...).Find(target).Error
}

// isTableNotExist matches the "missing table" errors of postgres, mysql and sqlite.
func isTableNotExist(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return (strings.Contains(msg, "relation \"") && strings.Contains(msg, "\" does not exist")) ||
		(strings.Contains(msg, "Error 1146") && strings.Contains(msg, "doesn't exist")) ||
		strings.Contains(msg, "no such table:")
}
