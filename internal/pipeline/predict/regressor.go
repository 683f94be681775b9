package predict

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dmitryikh/leaves"
)

// Model formats.
const (
	FormatLightGBM     = "lightgbm"
	FormatLightGBMJSON = "lightgbm_json"
	FormatXGBoost      = "xgboost"
)

// Regressor predicts one target from one feature vector.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// ensembleRegressor adapts a leaves ensemble.
type ensembleRegressor struct {
	ensemble *leaves.Ensemble
}

// LoadRegressor reads a trained model in the given format.
func LoadRegressor(format string, r io.Reader) (Regressor, error) {
	var (
		ensemble *leaves.Ensemble
		err      error
	)
	switch format {
	case FormatLightGBM, "":
		ensemble, err = leaves.LGEnsembleFromReader(bufio.NewReader(r), true)
	case FormatLightGBMJSON:
		ensemble, err = leaves.LGEnsembleFromJSON(r, true)
	case FormatXGBoost:
		ensemble, err = leaves.XGEnsembleFromReader(bufio.NewReader(r), true)
	default:
		return nil, fmt.Errorf("unsupported model format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s model: %w", format, err)
	}
	return &ensembleRegressor{ensemble: ensemble}, nil
}

func (e *ensembleRegressor) Predict(features []float64) (float64, error) {
	if n := e.ensemble.NFeatures(); len(features) != n {
		return 0, fmt.Errorf("model expects %d features, got %d", n, len(features))
	}
	return e.ensemble.PredictSingle(features, 0), nil
}

// NFeatures returns the width the model was trained on.
func (e *ensembleRegressor) NFeatures() int {
	return e.ensemble.NFeatures()
}
