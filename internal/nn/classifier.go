package nn

import (
	"fmt"
	"strings"

	"github.com/negvet/model-preparation-algorithm/internal/tensor"
)

// Classifier is a single-head image classifier.
//
// Forward runs backbone -> global average pool (for spatial backbones)
// -> dropout -> linear head -> softmax, producing class probabilities
// with shape [batch, num_classes].
//
// Models start in training mode; inference stages call Eval() before
// running the forward loop.
type Classifier struct {
	backbone   *Backbone
	head       *Linear
	dropout    *Dropout // nil when the head config has no dropout
	numClasses int
	backend    tensor.Backend
	training   bool
}

// NewClassifier assembles a classifier from a backbone and a head.
//
// dropout may be nil.
func NewClassifier(backbone *Backbone, head *Linear, dropout *Dropout, backend tensor.Backend) *Classifier {
	return &Classifier{
		backbone:   backbone,
		head:       head,
		dropout:    dropout,
		numClasses: head.OutFeatures(),
		backend:    backend,
		training:   true,
	}
}

// Forward computes class probabilities for a batch.
//
// Input shape: [batch, in_features]
// Output shape: [batch, num_classes]
func (c *Classifier) Forward(input *tensor.RawTensor) *tensor.RawTensor {
	features := c.features(input)
	logits := c.head.Forward(features)
	return c.backend.Softmax(logits, 1)
}

// features runs the backbone and pools spatial outputs to [batch, C].
func (c *Classifier) features(input *tensor.RawTensor) *tensor.RawTensor {
	out := c.backbone.Forward(input)
	out = c.pool(out)
	if c.dropout != nil {
		out = c.dropout.Forward(out)
	}
	return out
}

// pool applies global average pooling to a [batch, C, H, W] feature map.
// Flat [batch, features] outputs pass through unchanged.
func (c *Classifier) pool(features *tensor.RawTensor) *tensor.RawTensor {
	switch len(features.Shape()) {
	case 2:
		return features
	case 4:
		pooled := c.backend.MeanDim(features, 3, false) // [batch, C, H]
		return c.backend.MeanDim(pooled, 2, false)      // [batch, C]
	default:
		panic(fmt.Sprintf("Classifier: unexpected backbone output shape %v", features.Shape()))
	}
}

// Train switches the model to training mode.
func (c *Classifier) Train() {
	c.training = true
	if c.dropout != nil {
		c.dropout.SetTraining(true)
	}
}

// Eval switches the model to evaluation mode.
//
// Dropout becomes the identity, making the forward pass deterministic.
func (c *Classifier) Eval() {
	c.training = false
	if c.dropout != nil {
		c.dropout.SetTraining(false)
	}
}

// Training reports whether the model is in training mode.
func (c *Classifier) Training() bool {
	return c.training
}

// Backbone returns the feature extractor.
func (c *Classifier) Backbone() *Backbone {
	return c.backbone
}

// NumClasses returns the number of output classes.
func (c *Classifier) NumClasses() int {
	return c.numClasses
}

// Parameters returns backbone and head parameters.
func (c *Classifier) Parameters() []*Parameter {
	params := c.backbone.Parameters()
	return append(params, c.head.Parameters()...)
}

// StateDict returns the model state with "backbone." and "head." prefixes.
func (c *Classifier) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range c.backbone.StateDict() {
		stateDict["backbone."+name] = raw
	}
	for name, raw := range c.head.StateDict() {
		stateDict["head."+name] = raw
	}
	return stateDict
}

// LoadStateDict loads backbone and head parameters from a state dictionary.
func (c *Classifier) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	backboneState := make(map[string]*tensor.RawTensor)
	headState := make(map[string]*tensor.RawTensor)

	for key, raw := range stateDict {
		if rest, ok := strings.CutPrefix(key, "backbone."); ok && rest != "" {
			backboneState[rest] = raw
		} else if rest, ok := strings.CutPrefix(key, "head."); ok && rest != "" {
			headState[rest] = raw
		} else {
			return fmt.Errorf("unexpected key %q in state dict", key)
		}
	}

	if err := c.backbone.LoadStateDict(backboneState); err != nil {
		return fmt.Errorf("failed to load backbone: %w", err)
	}
	if err := c.head.LoadStateDict(headState); err != nil {
		return fmt.Errorf("failed to load head: %w", err)
	}
	return nil
}
