package data

// Record is the per-sample metadata of a dataset entry. The stage returns
// records augmented with soft labels from the task-adaptation pre-stage, so
// the type carries JSON tags for persistence.
type Record struct {
	// Index is the position of the sample in the dataset.
	Index int `json:"index"`

	// ID identifies the sample for humans: a filename, a line number, or a
	// generated name for synthetic data.
	ID string `json:"id"`

	// Label is the ground-truth class of the primary task.
	Label int `json:"label"`

	// SoftLabels maps task names to probability distributions produced by
	// a previously trained model. Nil until the task-adaptation pre-stage
	// fills it.
	SoftLabels map[string][]float32 `json:"soft_label,omitempty"`
}
