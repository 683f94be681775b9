// Package config holds the connection settings of the storage adapters.
package config

import (
	"fmt"

	coreConfig "github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection (adapter.storage.<name>).
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local" or "gcs"
	BucketName      string `yaml:"bucket_name"`      // default bucket
	CredentialsFile string `yaml:"credentials_file"` // service account key for GCS
	BaseDir         string `yaml:"base_dir"`         // root directory for local storage
}

// StorageConfigs decodes every adapter.storage.<name> entry.
func StorageConfigs(cfg *coreConfig.Config) (map[string]StorageConfig, error) {
	section, err := configbinder.Section(cfg.Surfin.AdapterConfigs, "storage")
	if err != nil {
		return nil, err
	}
	out := make(map[string]StorageConfig, len(section))
	for name, raw := range section {
		var sc StorageConfig
		if err := configbinder.BindProperties(raw, &sc); err != nil {
			return nil, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
		}
		out[name] = sc
	}
	return out, nil
}

// Lookup returns the named storage config.
func Lookup(cfg *coreConfig.Config, name string) (StorageConfig, error) {
	configs, err := StorageConfigs(cfg)
	if err != nil {
		return StorageConfig{}, err
	}
	sc, ok := configs[name]
	if !ok {
		return StorageConfig{}, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	return sc, nil
}
