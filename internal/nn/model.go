package nn

// Model is the interface inference stages drive.
//
// Both Classifier and MultiTaskClassifier satisfy it. Forward returns
// class probabilities for the primary task; Backbone exposes the
// feature extractor that captures hook into.
type Model interface {
	Module

	// Train switches the model to training mode.
	Train()
	// Eval switches the model to evaluation mode. Inference stages
	// call this before the forward loop.
	Eval()
	// Training reports whether the model is in training mode.
	Training() bool

	// Backbone returns the feature extractor.
	Backbone() *Backbone
	// NumClasses returns the output width of the primary head.
	NumClasses() int
}

var (
	_ Model = (*Classifier)(nil)
	_ Model = (*MultiTaskClassifier)(nil)
)
