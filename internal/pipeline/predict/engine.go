package predict

import (
	"context"
	"fmt"
	"math"

	"github.com/tigerroll/ridership/internal/domain/model"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

// Family is one trained regressor pair.
type Family struct {
	Name      string
	Boarding  Regressor
	Alighting Regressor
}

// Engine predicts with the families of one run. Families never see each other's output.
type Engine struct {
	contract *FeatureContract
}

// NewEngine creates an Engine for a validated contract.
func NewEngine(contract *FeatureContract) (*Engine, error) {
	if contract == nil {
		return nil, exception.NewModelInputError(module, "feature contract is not loaded", nil)
	}
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	return &Engine{contract: contract}, nil
}

// Predict returns a boarding and an alighting row per input row, in input order.
func (e *Engine) Predict(ctx context.Context, family Family, rows []model.FeatureRow) ([]model.PredictionRow, error) {
	if len(rows) == 0 {
		return nil, exception.NewModelInputError(module, fmt.Sprintf("family %s: empty batch after encoding", family.Name), nil)
	}
	if family.Boarding == nil || family.Alighting == nil {
		return nil, exception.NewModelInputError(module, fmt.Sprintf("family %s: regressor pair is incomplete", family.Name), nil)
	}

	matrix := e.contract.Matrix(rows)
	boardingTag := model.TargetModel(model.Boarding, family.Name)
	alightingTag := model.TargetModel(model.Alighting, family.Name)

	out := make([]model.PredictionRow, 0, 2*len(rows))
	for i, r := range rows {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		yb, err := family.Boarding.Predict(matrix[i])
		if err != nil {
			return nil, exception.NewModelInputError(module, fmt.Sprintf("family %s boarding model", family.Name), err)
		}
		ya, err := family.Alighting.Predict(matrix[i])
		if err != nil {
			return nil, exception.NewModelInputError(module, fmt.Sprintf("family %s alighting model", family.Name), err)
		}
		base := model.PredictionRow{Date: r.Date, LineID: r.LineID, StationName: r.StationName}
		b, a := base, base
		b.TargetModel, b.PredictedCount = boardingTag, Round(yb)
		a.TargetModel, a.PredictedCount = alightingTag, Round(ya)
		out = append(out, b, a)
	}
	return out, nil
}

// Round floors a raw prediction at zero and rounds half to even. NaN becomes 0.
func Round(y float64) int64 {
	if math.IsNaN(y) || y <= 0 {
		return 0
	}
	if y >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.RoundToEven(y))
}
