package writer

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef is the name of the storage connection.
	StorageRef string `mapstructure:"storageRef"`
	// Bucket is the bucket within the connection.
	Bucket string `mapstructure:"bucket"`
	// OutputBaseDir is the key prefix of the exported files (e.g., "export/pred_data").
	OutputBaseDir string `mapstructure:"outputBaseDir"`
	// CompressionType is "SNAPPY" (default), "GZIP" or "NONE".
	CompressionType string `mapstructure:"compressionType"`
}

// ParquetWriter buffers items per partition and uploads one parquet file per partition on Close.
// Object keys follow <OutputBaseDir>/<partition>/data_<timestamp>_<rand>.parquet.
type ParquetWriter[T any] struct {
	name             string
	config           ParquetWriterConfig
	resolver         storage.StorageConnectionResolver
	itemPrototype    *T
	partitionKeyFunc func(T) (string, error)
	now              func() time.Time

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	uploaded      []string
}

var _ ItemWriter[any] = (*ParquetWriter[any])(nil)

// NewParquetWriter decodes properties into a ParquetWriterConfig and creates the writer.
func NewParquetWriter[T any](
	name string,
	properties map[string]interface{},
	resolver storage.StorageConnectionResolver,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
) (*ParquetWriter[T], error) {
	var cfg ParquetWriterConfig
	if err := mapstructure.Decode(properties, &cfg); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("failed to decode ParquetWriter properties for %s", name), err, false, false)
	}
	if cfg.StorageRef == "" {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires 'storageRef' property", name), nil, false, false)
	}
	if cfg.OutputBaseDir == "" {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires 'outputBaseDir' property", name), nil, false, false)
	}
	if cfg.CompressionType == "" {
		cfg.CompressionType = "SNAPPY"
	}
	if _, err := compressionCodec(cfg.CompressionType); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s'", name), err, false, false)
	}

	return &ParquetWriter[T]{
		name:             name,
		config:           cfg,
		resolver:         resolver,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		now:              time.Now,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and clears the buffers.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name), err, false, false)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.uploaded = nil
	return nil
}

// Write only buffers; nothing reaches storage before Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		key, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("failed to get partition key in ParquetWriter '%s'", w.name), err, false, false)
		}
		w.bufferedItems[key] = append(w.bufferedItems[key], item)
	}
	return nil
}

// Close encodes and uploads every buffered partition. Failures of single partitions are
// collected and the remaining partitions are still attempted.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	var result *multierror.Error
	codec, _ := compressionCodec(w.config.CompressionType)

	partitions := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		partitions = append(partitions, k)
	}
	sort.Strings(partitions)

	for _, partition := range partitions {
		items := w.bufferedItems[partition]
		buf, err := w.encode(items, codec)
		if err != nil {
			result = multierror.Append(result, exception.NewBatchError("writer", fmt.Sprintf("failed to encode partition '%s'", partition), err, false, false))
			continue
		}

		objectName := path.Join(w.config.OutputBaseDir, partition, fmt.Sprintf("data_%s_%s.parquet", w.now().UTC().Format("20060102150405"), randomSuffix()))
		if err := w.storageConn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
			result = multierror.Append(result, exception.NewBatchError("writer", fmt.Sprintf("failed to upload parquet file %s", objectName), err, false, true))
			continue
		}
		w.uploaded = append(w.uploaded, objectName)
		logger.Infof("ParquetWriter '%s': Uploaded %d rows to %s.", w.name, len(items), objectName)
	}

	w.bufferedItems = make(map[string][]T)
	return result.ErrorOrNil()
}

// Uploaded returns the object names written by the last Close.
func (w *ParquetWriter[T]) Uploaded() []string {
	return w.uploaded
}

func (w *ParquetWriter[T]) encode(items []T, codec parquet.CompressionCodec) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, w.itemPrototype, 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return nil, err
		}
	}
	// parquet-go panics on some schema mismatches during WriteStop.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(b)
}
