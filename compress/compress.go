package compress

import (
	"errors"
	"fmt"
)

// ErrNoAuxLoss indicates a model that does not expose an auxiliary
// entropy-model loss. Training and inference both require it, so wiring
// such a model into a runner is a configuration error.
var ErrNoAuxLoss = errors.New("compress: model does not provide an auxiliary loss")

// Scalar is a differentiable scalar produced by a model or criterion.
// Backward accumulates gradients into the parameters that produced the
// value; the autograd engine behind it belongs to the model implementation.
type Scalar interface {
	Item() float64
	Backward() error
}

// Batch is a batch of images in NCHW layout with values in [0, 1].
type Batch struct {
	N, C, H, W int
	Data       []float32
}

// NewBatch creates a batch and validates that the data length matches the
// declared shape.
func NewBatch(n, c, h, w int, data []float32) (Batch, error) {
	if n <= 0 || c <= 0 || h <= 0 || w <= 0 {
		return Batch{}, fmt.Errorf("invalid batch shape [%d %d %d %d]", n, c, h, w)
	}
	if len(data) != n*c*h*w {
		return Batch{}, fmt.Errorf("batch data length %d does not match shape [%d %d %d %d]", len(data), n, c, h, w)
	}
	return Batch{N: n, C: c, H: h, W: w, Data: data}, nil
}

// Pixels returns the total number of pixels across the batch (N*H*W).
// Bitrate in bits per pixel is measured against this count.
func (b Batch) Pixels() int {
	return b.N * b.H * b.W
}

// Samples returns the number of images in the batch. Running metric means
// are weighted by this count.
func (b Batch) Samples() int {
	return b.N
}

// Output is the result of a model forward pass. XHat is the reconstruction;
// Raw carries model-specific tensors (entropy-model likelihoods and the
// like) that only the paired criterion knows how to read.
type Output struct {
	XHat Batch
	Raw  any
}

// Compressed is an encoded batch: one bitstream per image per latent.
type Compressed struct {
	Streams [][]byte
	Shape   []int
}

// Bits returns the total size of all bitstreams in bits.
func (c *Compressed) Bits() int {
	total := 0
	for _, s := range c.Streams {
		total += len(s) * 8
	}
	return total
}

// Model is the minimal capability surface of a compression model. Further
// capabilities (AuxLossModel, Updatable, Codec, GradClipper) are optional
// interfaces asserted by the runner where a phase requires them.
type Model interface {
	Forward(x Batch) (*Output, error)
}

// AuxLossModel exposes the auxiliary entropy-model loss, optimized
// independently of the primary rate-distortion loss.
type AuxLossModel interface {
	AuxLoss() (Scalar, error)
}

// Updatable refreshes the entropy coder's cumulative distribution tables.
// Must be called before true bitrate measurement; stale tables make the
// measured bpp invalid.
type Updatable interface {
	Update() error
}

// Codec performs true encode/decode inference, as opposed to a proxy
// forward pass.
type Codec interface {
	Compress(x Batch) (*Compressed, error)
	Decompress(c *Compressed) (Batch, error)
}

// GradClipper clips gradients of the model parameters to a maximum norm.
type GradClipper interface {
	ClipGradNorm(maxNorm float64) error
}

// ParameterCounter reports the number of trainable parameters.
type ParameterCounter interface {
	NumParameters() int
}

// Criterion computes the primary rate-distortion loss. The returned map
// must contain a "loss" entry; additional entries (such as "bpp_loss" and
// "mse_loss") are component breakdowns tracked alongside it.
type Criterion interface {
	Compute(out *Output, x Batch) (map[string]Scalar, error)
	Lambda() float64
}

// Optimizer updates model parameters from accumulated gradients.
type Optimizer interface {
	Step() error
	ZeroGrad()
	GetLR() float64
	SetLR(lr float64)
}

// OptimizerSet holds the two optimizers of dual-objective training:
// Primary drives the rate-distortion loss over the network parameters,
// Auxiliary drives the entropy-model loss over its own parameter subset.
type OptimizerSet struct {
	Primary   Optimizer
	Auxiliary Optimizer
}

// Validate reports whether both optimizers are present.
func (s OptimizerSet) Validate() error {
	if s.Primary == nil {
		return errors.New("compress: optimizer set missing primary optimizer")
	}
	if s.Auxiliary == nil {
		return errors.New("compress: optimizer set missing auxiliary optimizer")
	}
	return nil
}
