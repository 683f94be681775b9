package step

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/internal/tabular"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

// objectStore reads and writes tables on one named storage connection.
type objectStore struct {
	resolver storage.StorageConnectionResolver
	name     string
}

func (s objectStore) conn(ctx context.Context) (storage.StorageConnection, error) {
	conn, err := s.resolver.ResolveStorageConnection(ctx, s.name)
	if err != nil {
		return nil, exception.NewBatchError("storage", fmt.Sprintf("failed to resolve storage '%s'", s.name), err, false, true)
	}
	return conn, nil
}

func (s objectStore) open(ctx context.Context, key string) (io.ReadCloser, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Download(ctx, "", key)
}

// readTable downloads and parses a CSV object. A missing or unreadable object is a DataError.
func (s objectStore) readTable(ctx context.Context, key string) (model.RawTable, error) {
	rc, err := s.open(ctx, key)
	if err != nil {
		return model.RawTable{}, exception.NewDataError("storage", fmt.Sprintf("failed to download %s", key), err)
	}
	defer rc.Close()
	table, err := tabular.ReadCSV(rc)
	if err != nil {
		return model.RawTable{}, exception.NewDataError("storage", fmt.Sprintf("failed to parse %s", key), err)
	}
	return table, nil
}

func (s objectStore) writeTable(ctx context.Context, key string, table model.RawTable) error {
	buf, err := tabular.Encode(table)
	if err != nil {
		return exception.NewBatchError("storage", fmt.Sprintf("failed to encode %s", key), err, false, false)
	}
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := conn.Upload(ctx, "", key, buf, tabular.CSVContentType); err != nil {
		return exception.NewBatchError("storage", fmt.Sprintf("failed to upload %s", key), err, false, true)
	}
	return nil
}

// list returns the object names under prefix, sorted.
func (s objectStore) list(ctx context.Context, prefix string) ([]string, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := conn.ListObjects(ctx, "", prefix, func(name string) error {
		keys = append(keys, name)
		return nil
	}); err != nil {
		return nil, exception.NewBatchError("storage", fmt.Sprintf("failed to list %s", prefix), err, false, true)
	}
	sort.Strings(keys)
	return keys, nil
}
