package nn

import (
	"fmt"
	"strings"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// TaskSpec declares one classification task of a multi-task model.
type TaskSpec struct {
	Name       string
	NumClasses int
}

// MultiTaskClassifier shares one backbone across several classification
// heads, one per task.
//
// Forward returns the probabilities of the first (primary) task, so a
// multi-task model can stand in wherever a Classifier is expected.
// ExtractProbs runs every head and is what task-incremental pre-stages
// use to collect old-model soft labels.
type MultiTaskClassifier struct {
	backbone *Backbone
	tasks    []TaskSpec
	heads    map[string]*Linear
	dropout  *Dropout
	backend  tensor.Backend
	training bool
}

// NewMultiTaskClassifier assembles a multi-task classifier.
//
// inFeatures is the pooled feature width each head consumes. Task order
// is preserved: the first task is the primary one. dropout may be nil.
func NewMultiTaskClassifier(backbone *Backbone, inFeatures int, tasks []TaskSpec, dropout *Dropout, backend tensor.Backend) *MultiTaskClassifier {
	if len(tasks) == 0 {
		panic("NewMultiTaskClassifier: at least one task is required")
	}

	heads := make(map[string]*Linear, len(tasks))
	for _, task := range tasks {
		if _, dup := heads[task.Name]; dup {
			panic(fmt.Sprintf("NewMultiTaskClassifier: duplicate task %q", task.Name))
		}
		heads[task.Name] = NewLinear(inFeatures, task.NumClasses, backend)
	}

	return &MultiTaskClassifier{
		backbone: backbone,
		tasks:    tasks,
		heads:    heads,
		dropout:  dropout,
		backend:  backend,
		training: true,
	}
}

// Forward computes probabilities for the primary task.
func (m *MultiTaskClassifier) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	features := m.features(input)
	logits := m.heads[m.tasks[0].Name].Forward(features)
	return m.backend.Softmax(logits, 1)
}

// ExtractProbs computes per-task probability tensors for a batch.
//
// The returned map has one [batch, task_classes] tensor per task.
func (m *MultiTaskClassifier) ExtractProbs(input *tensor.RawTensor) map[string]*tensor.RawTensor {
	features := m.features(input)

	probs := make(map[string]*tensor.RawTensor, len(m.tasks))
	for _, task := range m.tasks {
		logits := m.heads[task.Name].Forward(features)
		probs[task.Name] = m.backend.Softmax(logits, 1)
	}
	return probs
}

// TaskNames returns the task names in declaration order.
func (m *MultiTaskClassifier) TaskNames() []string {
	names := make([]string, len(m.tasks))
	for i, task := range m.tasks {
		names[i] = task.Name
	}
	return names
}

func (m *MultiTaskClassifier) features(input *tensor.RawTensor) *tensor.RawTensor {
	out := m.backbone.Forward(input)
	if len(out.Shape()) == 4 {
		out = m.backend.MeanDim(out, 3, false)
		out = m.backend.MeanDim(out, 2, false)
	}
	if m.dropout != nil {
		out = m.dropout.Forward(out)
	}
	return out
}

// Train switches the model to training mode.
func (m *MultiTaskClassifier) Train() {
	m.training = true
	if m.dropout != nil {
		m.dropout.SetTraining(true)
	}
}

// Eval switches the model to evaluation mode.
func (m *MultiTaskClassifier) Eval() {
	m.training = false
	if m.dropout != nil {
		m.dropout.SetTraining(false)
	}
}

// Training reports whether the model is in training mode.
func (m *MultiTaskClassifier) Training() bool {
	return m.training
}

// Backbone returns the shared feature extractor.
func (m *MultiTaskClassifier) Backbone() *Backbone {
	return m.backbone
}

// NumClasses returns the class count of the primary task.
func (m *MultiTaskClassifier) NumClasses() int {
	return m.tasks[0].NumClasses
}

// Parameters returns backbone parameters followed by each head's, in
// task declaration order.
func (m *MultiTaskClassifier) Parameters() []*Parameter {
	params := m.backbone.Parameters()
	for _, task := range m.tasks {
		params = append(params, m.heads[task.Name].Parameters()...)
	}
	return params
}

// StateDict returns the model state with "backbone." and "heads.<task>."
// prefixes.
func (m *MultiTaskClassifier) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range m.backbone.StateDict() {
		stateDict["backbone."+name] = raw
	}
	for _, task := range m.tasks {
		for name, raw := range m.heads[task.Name].StateDict() {
			stateDict["heads."+task.Name+"."+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict loads backbone and per-task head parameters.
func (m *MultiTaskClassifier) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	backboneState := make(map[string]*tensor.RawTensor)
	headStates := make(map[string]map[string]*tensor.RawTensor, len(m.tasks))
	for _, task := range m.tasks {
		headStates[task.Name] = make(map[string]*tensor.RawTensor)
	}

	for key, raw := range stateDict {
		if rest, ok := strings.CutPrefix(key, "backbone."); ok && rest != "" {
			backboneState[rest] = raw
			continue
		}
		if rest, ok := strings.CutPrefix(key, "heads."); ok {
			matched := false
			for _, task := range m.tasks {
				if name, ok := strings.CutPrefix(rest, task.Name+"."); ok && name != "" {
					headStates[task.Name][name] = raw
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		return fmt.Errorf("unexpected key %q in state dict", key)
	}

	if err := m.backbone.LoadStateDict(backboneState); err != nil {
		return fmt.Errorf("failed to load backbone: %w", err)
	}
	for _, task := range m.tasks {
		if err := m.heads[task.Name].LoadStateDict(headStates[task.Name]); err != nil {
			return fmt.Errorf("failed to load head %q: %w", task.Name, err)
		}
	}
	return nil
}
