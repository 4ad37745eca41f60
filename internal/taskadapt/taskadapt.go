// Package taskadapt implements the learning-without-forgetting
// pre-stage: running a previously trained model over the training data
// and recording its per-task probability distributions as soft labels,
// so a later training stage can distill them into the adapted model.
package taskadapt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/negvet/model-preparation-algorithm/internal/data"
	"github.com/negvet/model-preparation-algorithm/internal/hooks"
	"github.com/negvet/model-preparation-algorithm/internal/nn"
	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// ResultFileName is the artifact the pre-stage leaves in the work dir.
const ResultFileName = "pre_stage_res.json"

// ProbExtractor is the capability a model needs for the pre-stage.
// MultiTaskClassifier implements it.
type ProbExtractor interface {
	// TaskNames returns the task names in declaration order.
	TaskNames() []string
	// ExtractProbs computes per-task probability tensors for a batch.
	ExtractProbs(x *tensor.RawTensor) map[string]*tensor.RawTensor
}

// Supports reports whether the model can produce per-task
// probabilities.
func Supports(model nn.Model) bool {
	_, ok := model.(ProbExtractor)
	return ok
}

// Probs holds per-task probability rows and pooled feature vectors for
// every dataset sample, in iteration order.
type Probs struct {
	Tasks    map[string][][]float32
	Features []*tensor.RawTensor
}

// Extract runs the model over every batch of the loader and collects
// per-task probability rows alongside backbone feature vectors.
func Extract(ctx context.Context, model nn.Model, backend tensor.Backend, loader *data.Loader) (*Probs, error) {
	extractor, ok := model.(ProbExtractor)
	if !ok {
		return nil, fmt.Errorf("model %T does not support probability extraction", model)
	}

	features := hooks.CaptureFeatures(model.Backbone(), backend, true)
	defer features.Close()

	probs := &Probs{Tasks: make(map[string][][]float32)}
	err := loader.Iterate(ctx, func(batch *data.Batch) error {
		defer batch.Features.Release()

		perTask := extractor.ExtractProbs(batch.Features)
		for task, rows := range perTask {
			for i := 0; i < batch.Size; i++ {
				probs.Tasks[task] = append(probs.Tasks[task], rows.Float32Row(i))
			}
			rows.Release()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	probs.Features = features.Records()
	return probs, nil
}

// Annotate attaches soft-label maps to dataset records.
//
// The result is a copy: annotated[i] is records[i] plus a soft_label
// entry per task holding that sample's probability row; the dataset's
// own records are left untouched. Every task must have exactly one row
// per record.
func Annotate(records []*data.Record, probs *Probs) ([]data.Record, error) {
	for task, rows := range probs.Tasks {
		if len(rows) != len(records) {
			return nil, fmt.Errorf("task %q has %d probability rows for %d records", task, len(rows), len(records))
		}
	}

	annotated := make([]data.Record, len(records))
	for i, record := range records {
		annotated[i] = *record
		soft := make(map[string][]float32, len(probs.Tasks))
		for task, rows := range probs.Tasks {
			soft[task] = rows[i]
		}
		annotated[i].SoftLabels = soft
	}
	return annotated, nil
}

// Save writes annotated records as a JSON array into workDir and
// returns the file path.
func Save(workDir string, records []data.Record) (string, error) {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode pre-stage result: %w", err)
	}

	path := filepath.Join(workDir, ResultFileName)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", fmt.Errorf("failed to write pre-stage result: %w", err)
	}
	return path, nil
}
