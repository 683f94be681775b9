package local_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/ridership/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/ridership/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/ridership/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/ridership/pkg/batch/core/config"
)

func newConn(t *testing.T) storage.StorageConnection {
	t.Helper()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "forecast")
	require.NoError(t, err)
	return conn
}

func TestLocalAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := newConn(t)

	require.NoError(t, conn.Upload(ctx, "", "features/2024-05-02.csv", strings.NewReader("a,b\n1,2\n"), "text/csv"))

	rc, err := conn.Download(ctx, "", "features/2024-05-02.csv")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))
}

func TestLocalAdapter_ListObjectsByPrefix(t *testing.T) {
	ctx := context.Background()
	conn := newConn(t)
	for _, key := range []string{"predictions/2024-05-02_lgb.csv", "predictions/2024-05-02_xgb.csv", "features/2024-05-02.csv"} {
		require.NoError(t, conn.Upload(ctx, "", key, strings.NewReader("x"), "text/csv"))
	}

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "predictions/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"predictions/2024-05-02_lgb.csv", "predictions/2024-05-02_xgb.csv"}, names)

	require.NoError(t, conn.ListObjects(ctx, "missing-bucket", "", func(string) error {
		t.Fatal("no objects expected")
		return nil
	}))
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	conn := newConn(t)
	err := conn.Upload(context.Background(), "", "../outside.csv", strings.NewReader("x"), "text/csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of BaseDir")
}

func TestLocalAdapter_DeleteMissingIsNoop(t *testing.T) {
	assert.NoError(t, newConn(t).DeleteObject(context.Background(), "", "nope.csv"))
}

func TestLocalProvider_ResolvesByType(t *testing.T) {
	cfg := coreConfig.NewConfig()
	cfg.Surfin.AdapterConfigs = map[string]interface{}{
		"storage": map[string]interface{}{
			"forecast": map[string]interface{}{"type": "local", "base_dir": t.TempDir()},
			"remote":   map[string]interface{}{"type": "gcs", "bucket_name": "b"},
		},
	}
	resolver := storage.NewConnectionResolver(storage.ResolverParams{
		Providers: []storage.StorageProvider{local.NewLocalProvider(cfg)},
		Cfg:       cfg,
	})

	conn, err := resolver.ResolveStorageConnection(context.Background(), "forecast")
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Type())

	again, err := resolver.ResolveStorageConnection(context.Background(), "forecast")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, err = resolver.ResolveStorageConnection(context.Background(), "remote")
	assert.Error(t, err)
}
