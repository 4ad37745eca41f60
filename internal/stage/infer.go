package stage

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/data"
	"github.com/negvet/model-preparation-algorithm/internal/device"
	"github.com/negvet/model-preparation-algorithm/internal/hooks"
	"github.com/negvet/model-preparation-algorithm/internal/models"
	"github.com/negvet/model-preparation-algorithm/internal/nn"
	"github.com/negvet/model-preparation-algorithm/internal/taskadapt"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// DefaultModes are the modes the infer stage participates in when none
// are configured. Inference runs inside training recipes too: that is
// when the task-adaptation pre-stage fires.
var DefaultModes = []string{"train", "infer", "eval"}

// InferStage runs a forward-only pass over the resolved inference
// split and collects per-sample outputs.
type InferStage struct {
	Stage
}

// NewInferStage creates the stage that handles inference runs. With no
// explicit modes it participates in DefaultModes.
func NewInferStage(logger *zap.Logger, progress Progress, modes ...string) *InferStage {
	if len(modes) == 0 {
		modes = DefaultModes
	}
	return &InferStage{Stage: NewStage("infer", modes, logger, progress)}
}

// Run executes the inference stage.
//
// The mode gate comes first: when opts.Mode is not one of the stage's
// modes the result is Skipped and nothing else is constructed or
// validated. Otherwise the stage resolves the run config, ensures the
// work dir, builds dataset, loader, backend and model, loads the
// checkpoint when one is configured, switches the model to eval mode,
// and branches: a task-adaptation run extracts soft labels and returns
// the persisted artifact path, a normal run returns the output bundle.
func (s *InferStage) Run(ctx context.Context, modelCfg config.ModelConfig, checkpoint string, dataCfg config.DataConfig, opts config.Options) (Result, error) {
	if !s.Allows(opts.Mode) {
		s.logger.Info("skipping stage",
			zap.String("stage", s.name),
			zap.String("mode", opts.Mode))
		return Skipped{Mode: opts.Mode}, nil
	}

	cfg, err := config.Resolve(&modelCfg, checkpoint, &dataCfg, opts)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.String("stage", s.name),
		zap.String("run_id", cfg.RunID),
	)

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	dataset, err := data.Build(cfg.Infer)
	if err != nil {
		return nil, err
	}
	loader, err := data.NewLoader(dataset, cfg.BatchSize, cfg.Workers)
	if err != nil {
		return nil, err
	}

	backend, cleanup, err := device.Select(cfg.Accelerator, cfg.Devices, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	model, err := models.Build(cfg.Model, backend)
	if err != nil {
		return nil, err
	}
	if cfg.LoadFrom != "" {
		logger.Info("load checkpoint from " + cfg.LoadFrom)
		if _, err := nn.LoadCheckpoint(cfg.LoadFrom, model); err != nil {
			return nil, err
		}
	}
	model.Eval()

	if cfg.TaskAdapt && !cfg.Evaluation && taskadapt.Supports(model) {
		return s.runPreStage(ctx, logger, cfg, model, backend, dataset, loader)
	}
	return s.runInference(ctx, logger, cfg, model, backend, dataset, loader)
}

// runPreStage extracts soft labels from the loaded model and persists
// the annotated records for the upcoming task-adaptation training.
func (s *InferStage) runPreStage(ctx context.Context, logger *zap.Logger, cfg *config.RunConfig, model nn.Model, backend tensor.Backend, dataset data.Dataset, loader *data.Loader) (Result, error) {
	logger.Info("running task-adaptation pre-stage",
		zap.Int("samples", dataset.Len()))

	probs, err := taskadapt.Extract(ctx, model, backend, loader)
	if err != nil {
		return nil, err
	}
	// Only the soft labels go into the artifact; the feature vectors
	// extracted alongside them are not part of the pre-stage contract.
	for _, fv := range probs.Features {
		fv.Release()
	}

	annotated, err := taskadapt.Annotate(dataset.Records(), probs)
	if err != nil {
		return nil, err
	}
	path, err := taskadapt.Save(cfg.WorkDir, annotated)
	if err != nil {
		return nil, err
	}

	logger.Info("pre-stage result persisted", zap.String("path", path))
	return PreStageResult{Path: path}, nil
}

// runInference is the normal forward loop. It accumulates one
// prediction row per sample and, when the dump flags ask for them,
// feature vectors and saliency maps captured at the backbone.
func (s *InferStage) runInference(ctx context.Context, logger *zap.Logger, cfg *config.RunConfig, model nn.Model, backend tensor.Backend, dataset data.Dataset, loader *data.Loader) (Result, error) {
	n := dataset.Len()
	logger.Info("running inference",
		zap.Int("samples", n),
		zap.Int("batches", loader.NumBatches()),
		zap.Bool("dump_features", cfg.DumpFeatures),
		zap.Bool("dump_saliency_map", cfg.DumpSaliencyMap))

	featureCapture := hooks.CaptureFeatures(model.Backbone(), backend, cfg.DumpFeatures)
	defer featureCapture.Close()
	saliencyCapture := hooks.CaptureSaliencyMaps(model.Backbone(), backend, cfg.DumpSaliencyMap)
	defer saliencyCapture.Close()

	predictions := make([][]float32, 0, n)
	total := loader.NumBatches()
	err := loader.Iterate(ctx, func(batch *data.Batch) error {
		defer batch.Features.Release()

		probs := model.Forward(batch.Features)
		for i := 0; i < batch.Size; i++ {
			predictions = append(predictions, probs.Float32Row(i))
		}
		probs.Release()
		s.reportProgress(batch.Index+1, total)
		return nil
	})
	if err != nil {
		return nil, err
	}

	featureVectors := featureCapture.Records()
	if !cfg.DumpFeatures {
		featureVectors = make([]*tensor.RawTensor, n)
	}
	saliencyMaps := saliencyCapture.Records()
	if !cfg.DumpSaliencyMap {
		saliencyMaps = make([]*tensor.RawTensor, n)
	}

	if len(predictions) != len(featureVectors) || len(featureVectors) != len(saliencyMaps) {
		panic(fmt.Sprintf(
			"number of elements should be the same, however, number of outputs are %d, %d, and %d",
			len(predictions), len(featureVectors), len(saliencyMaps)))
	}

	return InferenceResult{
		WorkDir: cfg.WorkDir,
		Outputs: &Outputs{
			Predictions:    predictions,
			FeatureVectors: featureVectors,
			SaliencyMaps:   saliencyMaps,
		},
	}, nil
}
