// Package stage implements the stage-runners of the model preparation
// pipeline.
//
// A stage is one step of a larger training/evaluation recipe. Each
// stage declares the modes it participates in and is driven through a
// registry, so recipes can name stages without importing their
// implementations. The one stage shipped here is "infer": a
// forward-only pass that collects predictions and, on request, feature
// vectors, saliency maps, or soft labels for task adaptation.
package stage

import (
	"context"

	"go.uber.org/zap"

	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/registry"
)

// Progress reports forward-loop progress after each batch.
type Progress func(done, total int)

// Runner is what the stage registry serves.
type Runner interface {
	// Name returns the stage name.
	Name() string
	// Run executes the stage against the given configuration.
	Run(ctx context.Context, modelCfg config.ModelConfig, checkpoint string, dataCfg config.DataConfig, opts config.Options) (Result, error)
}

// Stage carries what every stage shares: a name, the set of modes it
// runs in, a logger, and an optional progress callback.
type Stage struct {
	name     string
	modes    map[string]struct{}
	logger   *zap.Logger
	progress Progress
}

// NewStage creates the shared stage skeleton. A nil logger is replaced
// with a no-op one.
func NewStage(name string, modes []string, logger *zap.Logger, progress Progress) Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(modes))
	for _, mode := range modes {
		set[mode] = struct{}{}
	}
	return Stage{name: name, modes: set, logger: logger, progress: progress}
}

// Name returns the stage name.
func (s *Stage) Name() string {
	return s.name
}

// Allows reports whether the stage runs in the given mode.
func (s *Stage) Allows(mode string) bool {
	_, ok := s.modes[mode]
	return ok
}

// reportProgress invokes the progress callback when one is set.
func (s *Stage) reportProgress(done, total int) {
	if s.progress != nil {
		s.progress(done, total)
	}
}

// Factory builds a stage runner with its logger and progress callback.
type Factory func(logger *zap.Logger, progress Progress) Runner

var stages = registry.New[Factory]("stage")

// Register adds a stage factory under the given name.
func Register(name string, factory Factory) error {
	return stages.Register(name, factory)
}

// Build constructs the stage registered under name.
func Build(name string, logger *zap.Logger, progress Progress) (Runner, error) {
	factory, err := stages.Lookup(name)
	if err != nil {
		return nil, err
	}
	return factory(logger, progress), nil
}

// Names returns the registered stage names, sorted.
func Names() []string {
	return stages.Names()
}

func init() {
	stages.MustRegister("infer", func(logger *zap.Logger, progress Progress) Runner {
		return NewInferStage(logger, progress)
	})
}
