package runner

import "fmt"

// Phase identifies which dataset pass is active. It governs which metric
// keys are tracked and whether gradient steps or true inference run.
type Phase int

const (
	// Train runs gradient steps against proxy rate and distortion losses.
	Train Phase = iota
	// Valid evaluates with true encode/decode inference, no gradients.
	Valid
	// Infer is the full-inference pass; entropy tables are refreshed at
	// loader start so measured bitrate is valid.
	Infer
)

func (p Phase) String() string {
	switch p {
	case Train:
		return "train"
	case Valid:
		return "valid"
	case Infer:
		return "infer"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// MetricKeys returns the metric keys declared for loaders of this phase.
// The sets are fixed lookups so the accumulator's declare-before-update
// contract stays enforceable.
func (p Phase) MetricKeys() []string {
	keys := []string{"loss", "aux_loss", "bpp_loss", "mse_loss", "lmbda"}
	if p == Valid || p == Infer {
		keys = append(keys, "psnr", "ms-ssim", "bpp")
	}
	return keys
}

// evaluates reports whether the phase runs true encode/decode inference
// instead of gradient steps.
func (p Phase) evaluates() bool {
	return p == Valid || p == Infer
}
