package nn

import (
	"fmt"

	"github.com/negvet/model-preparation-algorithm/internal/serialization"
)

// CheckpointInfo carries the non-tensor contents of a checkpoint file.
type CheckpointInfo struct {
	ModelType string
	Classes   []string
	Metadata  map[string]string
}

// SaveCheckpoint writes a model's state dictionary to a .mpac file.
//
// classes records the class names the model was trained on; metadata
// may be nil.
func SaveCheckpoint(path string, model Module, modelType string, classes []string, metadata map[string]string) (err error) {
	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := writer.WriteStateDict(model.StateDict(), modelType, classes, metadata); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint restores a model's parameters from a .mpac file.
//
// The model must be pre-constructed with the same architecture as when
// the checkpoint was saved; shape or dtype mismatches are reported as
// errors rather than silently ignored.
func LoadCheckpoint(path string, model Module) (info *CheckpointInfo, err error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	stateDict, err := reader.ReadStateDict()
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	if err := model.LoadStateDict(stateDict); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}

	header := reader.Header()
	return &CheckpointInfo{
		ModelType: header.ModelType,
		Classes:   header.Classes,
		Metadata:  header.Metadata,
	}, nil
}
