package data

import (
	"fmt"

	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/registry"
)

// Factory builds a dataset from its split config.
type Factory func(cfg config.SplitConfig) (Dataset, error)

var datasets = registry.New[Factory]("dataset")

// Register adds a dataset factory under a split type name.
func Register(name string, f Factory) error {
	return datasets.Register(name, f)
}

// Types returns the registered split type names.
func Types() []string {
	return datasets.Names()
}

// Build constructs the dataset a split config describes and wraps it with
// the split's transform pipeline.
func Build(cfg config.SplitConfig) (Dataset, error) {
	factory, err := datasets.Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	ds, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build %q dataset: %w", cfg.Type, err)
	}
	if len(cfg.Pipeline) == 0 {
		return ds, nil
	}
	pipeline, err := buildPipeline(cfg.Pipeline, ds.FeatureDim())
	if err != nil {
		return nil, fmt.Errorf("failed to build %q dataset pipeline: %w", cfg.Type, err)
	}
	return &transformed{Dataset: ds, pipeline: pipeline}, nil
}

func init() {
	datasets.MustRegister("synthetic", func(cfg config.SplitConfig) (Dataset, error) {
		seed := cfg.Seed
		if seed == 0 {
			seed = 42
		}
		return Synthetic(cfg.Samples, cfg.FeatureDim, cfg.NumClasses, seed)
	})
	datasets.MustRegister("csv", func(cfg config.SplitConfig) (Dataset, error) {
		return LoadCSV(cfg.Path, cfg.NumClasses)
	})
	datasets.MustRegister("text", func(cfg config.SplitConfig) (Dataset, error) {
		tok, err := NewTikToken(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		return LoadText(cfg.Path, tok, cfg.FeatureDim, cfg.NumClasses)
	})
}
