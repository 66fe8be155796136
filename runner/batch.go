package runner

import (
	"errors"
	"fmt"

	"github.com/lidq92/compresstrain/compress"
	"github.com/lidq92/compresstrain/quality"
)

// ErrMissingLoss indicates a criterion that violated its contract by not
// returning a "loss" entry.
var ErrMissingLoss = errors.New(`runner: criterion output missing "loss"`)

// BatchMetrics is the flat metric emission of one processed batch. Values
// is immutable once emitted; Weight is the sample count used to weight the
// running means (mean-of-means must be sample-size-weighted, not
// batch-count-weighted).
type BatchMetrics struct {
	Values map[string]float64
	Weight int
}

// processBatch computes losses and either performs the gradient steps
// (Train) or true encode/decode inference (Valid/Infer) for one batch.
func processBatch(batch compress.Batch, phase Phase, model compress.Model, criterion compress.Criterion, optims compress.OptimizerSet, clip *GradClip) (BatchMetrics, error) {
	if phase.evaluates() {
		return evalBatch(batch, model, criterion)
	}
	return trainBatch(batch, model, criterion, optims, clip)
}

// trainBatch runs the dual-objective update. Ordering is significant: the
// primary step must complete before the auxiliary backward pass, and no
// zero-grad happens between them; the auxiliary loss touches only
// entropy-model parameters, so their gradients arrive fresh.
func trainBatch(batch compress.Batch, model compress.Model, criterion compress.Criterion, optims compress.OptimizerSet, clip *GradClip) (BatchMetrics, error) {
	out, err := model.Forward(batch)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("forward pass failed: %w", err)
	}

	crit, err := criterion.Compute(out, batch)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("criterion failed: %w", err)
	}
	loss, ok := crit["loss"]
	if !ok {
		return BatchMetrics{}, ErrMissingLoss
	}

	if err := loss.Backward(); err != nil {
		return BatchMetrics{}, fmt.Errorf("primary backward pass failed: %w", err)
	}
	if clip != nil {
		clipper, ok := compress.Module(model).(compress.GradClipper)
		if !ok {
			return BatchMetrics{}, errors.New("runner: grad clip configured but model cannot clip gradients")
		}
		if err := clipper.ClipGradNorm(clip.MaxNorm); err != nil {
			return BatchMetrics{}, fmt.Errorf("gradient clipping failed: %w", err)
		}
	}
	if err := optims.Primary.Step(); err != nil {
		return BatchMetrics{}, fmt.Errorf("primary optimizer step failed: %w", err)
	}

	aux, err := auxLoss(model)
	if err != nil {
		return BatchMetrics{}, err
	}
	if err := aux.Backward(); err != nil {
		return BatchMetrics{}, fmt.Errorf("auxiliary backward pass failed: %w", err)
	}
	if err := optims.Auxiliary.Step(); err != nil {
		return BatchMetrics{}, fmt.Errorf("auxiliary optimizer step failed: %w", err)
	}
	optims.Primary.ZeroGrad()
	optims.Auxiliary.ZeroGrad()

	values := criterionValues(crit, criterion)
	values["aux_loss"] = aux.Item()
	return BatchMetrics{Values: values, Weight: batch.Samples()}, nil
}

// evalBatch measures real bitrate and quality: the input is encoded to a
// bitstream and decoded back, so bpp and psnr/ms-ssim are measured rather
// than estimated. The proxy loss is still computed for comparability with
// training.
func evalBatch(batch compress.Batch, model compress.Model, criterion compress.Criterion) (BatchMetrics, error) {
	out, err := model.Forward(batch)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("forward pass failed: %w", err)
	}
	crit, err := criterion.Compute(out, batch)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("criterion failed: %w", err)
	}
	if _, ok := crit["loss"]; !ok {
		return BatchMetrics{}, ErrMissingLoss
	}

	module := compress.Module(model)
	codec, ok := module.(compress.Codec)
	if !ok {
		return BatchMetrics{}, errors.New("runner: model cannot compress/decompress, required for evaluation")
	}
	enc, err := codec.Compress(batch)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("compress failed: %w", err)
	}
	rec, err := codec.Decompress(enc)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("decompress failed: %w", err)
	}

	psnr, err := quality.PSNR(batch, rec)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("psnr failed: %w", err)
	}
	msssim, err := quality.MSSSIM(batch, rec)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("ms-ssim failed: %w", err)
	}

	aux, err := auxLoss(model)
	if err != nil {
		return BatchMetrics{}, err
	}

	values := criterionValues(crit, criterion)
	values["aux_loss"] = aux.Item()
	values["psnr"] = psnr
	values["ms-ssim"] = msssim
	values["bpp"] = float64(enc.Bits()) / float64(batch.Pixels())
	return BatchMetrics{Values: values, Weight: batch.Samples()}, nil
}

// auxLoss fetches the auxiliary loss from the unwrapped module, so that
// data-parallel wrapping cannot shadow the entropy-model parameters.
func auxLoss(model compress.Model) (compress.Scalar, error) {
	am, ok := compress.Module(model).(compress.AuxLossModel)
	if !ok {
		return nil, compress.ErrNoAuxLoss
	}
	aux, err := am.AuxLoss()
	if err != nil {
		return nil, fmt.Errorf("auxiliary loss failed: %w", err)
	}
	return aux, nil
}

// criterionValues flattens the criterion output plus the rate-distortion
// trade-off weight into plain scalars.
func criterionValues(crit map[string]compress.Scalar, criterion compress.Criterion) map[string]float64 {
	values := make(map[string]float64, len(crit)+2)
	for key, scalar := range crit {
		values[key] = scalar.Item()
	}
	values["lmbda"] = criterion.Lambda()
	return values
}
