package step

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/tigerroll/ridership/internal/pipeline/encoding"
	"github.com/tigerroll/ridership/internal/pipeline/predict"
	"github.com/tigerroll/ridership/pkg/batch/core/config"
	"github.com/tigerroll/ridership/pkg/batch/support/util/exception"
)

// RegressorLoader reads one trained model.
type RegressorLoader func(format string, r io.Reader) (predict.Regressor, error)

// artifactStore loads the inference artifacts below the configured prefix.
// Every failure is a ModelInputError.
type artifactStore struct {
	store  objectStore
	cfg    config.ArtifactConfig
	loadFn RegressorLoader
}

func (a artifactStore) read(ctx context.Context, name string, fn func(io.Reader) error) error {
	key := path.Join(a.cfg.Prefix, name)
	rc, err := a.store.open(ctx, key)
	if err != nil {
		return exception.NewModelInputError("artifacts", fmt.Sprintf("failed to download artifact %s", key), err)
	}
	defer rc.Close()
	if err := fn(rc); err != nil {
		if exception.KindOf(err) == exception.ModelInputErrorKind {
			return err
		}
		return exception.NewModelInputError("artifacts", fmt.Sprintf("failed to load artifact %s", key), err)
	}
	return nil
}

func (a artifactStore) contract(ctx context.Context) (*predict.FeatureContract, error) {
	var c *predict.FeatureContract
	err := a.read(ctx, a.cfg.FeatureContract, func(r io.Reader) (err error) {
		c, err = predict.LoadContract(r)
		return err
	})
	return c, err
}

func (a artifactStore) vocabulary(ctx context.Context, field, name string) (*encoding.Vocabulary, error) {
	var v *encoding.Vocabulary
	err := a.read(ctx, name, func(r io.Reader) (err error) {
		v, err = encoding.LoadVocabulary(field, r)
		return err
	})
	return v, err
}

func (a artifactStore) family(ctx context.Context, fc config.FamilyConfig) (predict.Family, error) {
	fam := predict.Family{Name: fc.Name}
	if err := a.read(ctx, fc.BoardingModel, func(r io.Reader) (err error) {
		fam.Boarding, err = a.loadFn(fc.Format, r)
		return err
	}); err != nil {
		return predict.Family{}, err
	}
	if err := a.read(ctx, fc.AlightingModel, func(r io.Reader) (err error) {
		fam.Alighting, err = a.loadFn(fc.Format, r)
		return err
	}); err != nil {
		return predict.Family{}, err
	}
	return fam, nil
}
