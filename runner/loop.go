package runner

import (
	"fmt"
	"time"

	"github.com/lidq92/compresstrain/compress"
)

// Loader yields batches for one pass over a dataset. Reset is called
// before every pass.
type Loader interface {
	Reset()
	Next() (compress.Batch, bool)
}

// LoaderSpec pairs a named loader with its phase. Loaders run in slice
// order within each epoch.
type LoaderSpec struct {
	Name   string
	Phase  Phase
	Loader Loader
}

// Run is the built-in orchestration loop: it drives the full hook sequence
// (experiment → epochs → loaders → batches) over the given loaders. Any
// failure aborts the run immediately; correctness of a pass is
// all-or-nothing and nothing is retried.
func (r *Runner) Run(loaders []LoaderSpec, epochs int) error {
	if err := r.OnExperimentStart(); err != nil {
		return err
	}

	for epoch := 0; epoch < epochs; epoch++ {
		epochStart := time.Now()
		if err := r.OnEpochStart(); err != nil {
			return err
		}

		for _, spec := range loaders {
			if err := r.OnLoaderStart(spec.Phase); err != nil {
				return fmt.Errorf("loader %s: %w", spec.Name, err)
			}
			spec.Loader.Reset()
			for {
				batch, ok := spec.Loader.Next()
				if !ok {
					break
				}
				if _, err := r.HandleBatch(batch); err != nil {
					return fmt.Errorf("loader %s: %w", spec.Name, err)
				}
			}
			if err := r.OnLoaderEnd(); err != nil {
				return fmt.Errorf("loader %s: %w", spec.Name, err)
			}
		}

		if err := r.OnEpochEnd(); err != nil {
			return err
		}
		r.printEpochSummary(time.Since(epochStart))
	}

	return r.OnExperimentEnd()
}

// printEpochSummary prints one line per completed epoch.
func (r *Runner) printEpochSummary(elapsed time.Duration) {
	fmt.Printf("Epoch %d:", r.epoch)
	for _, scope := range []string{Train.String(), Valid.String(), Infer.String()} {
		values, ok := r.epochMetrics[scope]
		if !ok {
			continue
		}
		if loss, ok := values["loss"]; ok {
			fmt.Printf(" %s loss=%.4f", scope, loss)
		}
		if bpp, ok := values["bpp"]; ok {
			fmt.Printf(" %s bpp=%.4f", scope, bpp)
		}
	}
	fmt.Printf(", time=%v\n", elapsed)
}
