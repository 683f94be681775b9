// Package predict turns encoded feature rows into non-negative integer forecasts
// with one regressor pair per model family.
package predict

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
	"github.com/tigerroll/ridership/pkg/batch/support/util/logger"
)

const module = "predict"

// SupportedContractVersions lists the feature contract versions this build understands.
var SupportedContractVersions = []int{1}

// FeatureContract is the ordered feature-name list a model family was trained on.
type FeatureContract struct {
	Version  int      `yaml:"version"`
	Features []string `yaml:"features"`
}

// LoadContract parses a YAML or JSON contract and validates it.
func LoadContract(r io.Reader) (*FeatureContract, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, exception.NewModelInputError(module, "failed to read feature contract", err)
	}
	var c FeatureContract
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, exception.NewModelInputError(module, "failed to parse feature contract", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the version and that the feature list is non-empty.
func (c *FeatureContract) Validate() error {
	supported := false
	for _, v := range SupportedContractVersions {
		if c.Version == v {
			supported = true
		}
	}
	if !supported {
		return exception.NewModelInputError(module, fmt.Sprintf("unsupported feature contract version %d (supported: %v)", c.Version, SupportedContractVersions), nil)
	}
	if len(c.Features) == 0 {
		return exception.NewModelInputError(module, "feature contract lists no features", nil)
	}
	return nil
}

// Unresolved returns the contract features that resolve to no known feature.
// They are zero-filled in the matrix.
func (c *FeatureContract) Unresolved() []string {
	var probe model.FeatureRow
	var missing []string
	for _, f := range c.Features {
		if _, ok := probe.Value(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// Matrix builds the model input in contract order.
func (c *FeatureContract) Matrix(rows []model.FeatureRow) [][]float64 {
	if missing := c.Unresolved(); len(missing) > 0 {
		logger.Warnf("Feature contract v%d names %d features absent from the live frame; filling with 0: %v", c.Version, len(missing), missing)
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		vec := make([]float64, len(c.Features))
		for j, f := range c.Features {
			vec[j], _ = r.Value(f)
		}
		out[i] = vec
	}
	return out
}
