// Package models builds classifier models from declarative configuration.
//
// Model types are looked up in a registry keyed by ModelConfig.Type, so
// recipes can name architectures without the stage layer knowing about
// concrete constructors. Two types ship by default: "classifier" and
// "multitask_classifier".
package models

import (
	"fmt"

	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/nn"
	"github.com/negvet/model-preparation-algorithm/internal/registry"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Factory constructs a model of one registered type.
type Factory func(cfg config.ModelConfig, backend tensor.Backend) (nn.Model, error)

var models = registry.New[Factory]("model")

// Register adds a model factory under the given type name.
func Register(name string, factory Factory) error {
	return models.Register(name, factory)
}

// Types returns the registered model type names, sorted.
func Types() []string {
	return models.Names()
}

// Build constructs the model named by cfg.Type.
func Build(cfg config.ModelConfig, backend tensor.Backend) (nn.Model, error) {
	factory, err := models.Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	model, err := factory(cfg, backend)
	if err != nil {
		return nil, fmt.Errorf("failed to build %q model: %w", cfg.Type, err)
	}
	return model, nil
}

func init() {
	models.MustRegister("classifier", buildClassifier)
	models.MustRegister("multitask_classifier", buildMultiTaskClassifier)
}

// buildBackbone assembles the feature extractor from its layer configs.
func buildBackbone(cfg config.BackboneConfig, backend tensor.Backend) (*nn.Backbone, error) {
	modules := make([]nn.Module, 0, len(cfg.Layers))
	for i, layer := range cfg.Layers {
		switch layer.Type {
		case "linear":
			modules = append(modules, nn.NewLinear(layer.In, layer.Out, backend))
		case "relu":
			modules = append(modules, nn.NewReLU(backend))
		default:
			return nil, fmt.Errorf("backbone layer %d: unknown type %q", i, layer.Type)
		}
	}

	var mapShape tensor.Shape
	if len(cfg.MapShape) == 3 {
		mapShape = tensor.Shape(cfg.MapShape)
	}
	return nn.NewBackbone(nn.NewSequential(modules...), mapShape, backend), nil
}

func buildDropout(cfg config.HeadConfig) *nn.Dropout {
	if cfg.Dropout > 0 {
		return nn.NewDropout(cfg.Dropout)
	}
	return nil
}

func buildClassifier(cfg config.ModelConfig, backend tensor.Backend) (nn.Model, error) {
	if cfg.Head.NumClasses <= 0 {
		return nil, fmt.Errorf("classifier requires head.num_classes")
	}

	backbone, err := buildBackbone(cfg.Backbone, backend)
	if err != nil {
		return nil, err
	}

	head := nn.NewLinear(cfg.Head.InFeatures, cfg.Head.NumClasses, backend)
	return nn.NewClassifier(backbone, head, buildDropout(cfg.Head), backend), nil
}

func buildMultiTaskClassifier(cfg config.ModelConfig, backend tensor.Backend) (nn.Model, error) {
	if len(cfg.Head.Tasks) == 0 {
		return nil, fmt.Errorf("multitask_classifier requires head.tasks")
	}

	backbone, err := buildBackbone(cfg.Backbone, backend)
	if err != nil {
		return nil, err
	}

	tasks := make([]nn.TaskSpec, len(cfg.Head.Tasks))
	for i, task := range cfg.Head.Tasks {
		tasks[i] = nn.TaskSpec{Name: task.Name, NumClasses: task.NumClasses}
	}
	return nn.NewMultiTaskClassifier(backbone, cfg.Head.InFeatures, tasks, buildDropout(cfg.Head), backend), nil
}
