package runner

// GradClip bounds the gradient norm of the primary update. A nil GradClip
// in RunConfig disables clipping; it is not an error.
type GradClip struct {
	MaxNorm float64
}

// RunConfig configures a Runner.
type RunConfig struct {
	// ModelName labels the current model in summaries and RD comparisons.
	ModelName string
	// SrcRoot is the source tree inspected for provenance at experiment
	// start. Empty disables provenance collection.
	SrcRoot string
	// ProvenanceDir receives collected provenance files before they are
	// handed to artifact sinks.
	ProvenanceDir string
	// GradClip, when non-nil, clips the primary gradients to MaxNorm.
	GradClip *GradClip
	// Dataset names the evaluation dataset for RD comparison lookups.
	Dataset string
	// Codecs lists the reference codecs to compare against. Empty
	// disables the RD comparison figure.
	Codecs []string
	// HoverFields are the leading columns of the RD comparison table.
	HoverFields []string
	// PrintEvery prints batch progress every N batches (0 = quiet).
	PrintEvery int
}

// DefaultRunConfig returns a configuration suitable for local runs.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		ModelName:   "model",
		Dataset:     "kodak",
		HoverFields: []string{"name", "epoch", "loss"},
		PrintEvery:  100,
	}
}
