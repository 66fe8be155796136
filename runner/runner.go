// Package runner drives the experiment → epoch → loader → batch lifecycle
// of learned image-compression training. The runner is a passive state
// machine: an external orchestration loop invokes one hook per lifecycle
// state, and the runner never schedules work on its own.
package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lidq92/compresstrain/benchmark"
	"github.com/lidq92/compresstrain/compress"
	"github.com/lidq92/compresstrain/loggers"
	"github.com/lidq92/compresstrain/metrics"
	"github.com/lidq92/compresstrain/plot"
	"github.com/lidq92/compresstrain/provenance"
)

// ErrNoActiveLoader indicates a batch or loader-end hook invoked outside a
// loader pass.
var ErrNoActiveLoader = errors.New("runner: no active loader pass")

// Runner owns the run state: epoch index, active phase, the per-loader
// metric accumulator, and handles to the model, criterion and optimizer
// set. It promotes metrics upward (batch → loader → epoch) and reports
// through capability-checked sinks.
type Runner struct {
	model     compress.Model
	module    compress.Model // unwrapped once at construction
	criterion compress.Criterion
	optims    compress.OptimizerSet
	sinks     []loggers.Sink
	store     *benchmark.Store
	config    RunConfig
	runID     string

	epoch        int
	phase        Phase
	loaderActive bool
	batchCount   int
	acc          *metrics.Accumulator

	// loader-level means per scope, rebuilt every epoch
	epochMetrics map[string]map[string]float64
}

// New validates the wiring and builds a runner. A model without the
// auxiliary-loss capability is an incompatible model: training and
// inference both need it, so this fails immediately rather than at the
// first batch.
func New(model compress.Model, criterion compress.Criterion, optims compress.OptimizerSet, sinks []loggers.Sink, store *benchmark.Store, config RunConfig) (*Runner, error) {
	if model == nil {
		return nil, errors.New("runner: model is required")
	}
	if criterion == nil {
		return nil, errors.New("runner: criterion is required")
	}
	if err := optims.Validate(); err != nil {
		return nil, err
	}
	module := compress.Module(model)
	if _, ok := module.(compress.AuxLossModel); !ok {
		return nil, compress.ErrNoAuxLoss
	}

	return &Runner{
		model:        model,
		module:       module,
		criterion:    criterion,
		optims:       optims,
		sinks:        sinks,
		store:        store,
		config:       config,
		runID:        uuid.NewString(),
		epochMetrics: make(map[string]map[string]float64),
	}, nil
}

// RunID returns the identifier assigned to this experiment run.
func (r *Runner) RunID() string {
	return r.runID
}

// Epoch returns the current 1-based epoch index (0 before the first
// OnEpochStart).
func (r *Runner) Epoch() int {
	return r.epoch
}

// LoaderMetrics returns the finalized means of the named scope for the
// current epoch, or nil if that scope has not completed a loader pass.
func (r *Runner) LoaderMetrics(scope string) map[string]float64 {
	return r.epochMetrics[scope]
}

// OnExperimentStart records provenance and model stats. Sinks lacking the
// artifact capability are skipped.
func (r *Runner) OnExperimentStart() error {
	fmt.Printf("Starting run %s (model %s)\n", r.runID, r.config.ModelName)

	if r.config.SrcRoot != "" {
		outDir := r.config.ProvenanceDir
		if outDir == "" {
			outDir = filepath.Join(os.TempDir(), "provenance-"+r.runID)
		}
		artifacts, err := provenance.Collect(r.config.SrcRoot, outDir)
		if err != nil {
			return fmt.Errorf("provenance collection failed: %w", err)
		}
		for _, artifact := range artifacts {
			r.logArtifact(artifact.Tag, artifact.Path)
		}
	}

	if counter, ok := r.module.(compress.ParameterCounter); ok {
		r.logScalars("stats", 0, map[string]float64{
			"num_params": float64(counter.NumParameters()),
		})
	}
	return nil
}

// OnEpochStart advances the epoch index and resets the epoch record.
func (r *Runner) OnEpochStart() error {
	r.epoch++
	r.epochMetrics = make(map[string]map[string]float64)
	return nil
}

// OnLoaderStart begins a loader pass: declares the phase's metric keys on
// a fresh accumulator and, for the inference phase, refreshes the model's
// entropy tables exactly once so measured bitrate is valid.
func (r *Runner) OnLoaderStart(phase Phase) error {
	if r.loaderActive {
		return fmt.Errorf("runner: loader start during active %s pass", r.phase)
	}
	r.phase = phase
	r.batchCount = 0
	r.acc = metrics.NewAccumulator()
	r.acc.Declare(phase.MetricKeys()...)

	if phase == Infer {
		updatable, ok := r.module.(compress.Updatable)
		if !ok {
			return errors.New("runner: model cannot refresh entropy tables, required for inference")
		}
		if err := updatable.Update(); err != nil {
			return fmt.Errorf("entropy table update failed: %w", err)
		}
	}

	r.loaderActive = true
	return nil
}

// HandleBatch delegates to the batch handler and folds the result into the
// accumulator, weighted by batch sample count. Failures propagate to the
// orchestration loop; there is no retry.
func (r *Runner) HandleBatch(batch compress.Batch) (BatchMetrics, error) {
	if !r.loaderActive {
		return BatchMetrics{}, ErrNoActiveLoader
	}

	bm, err := processBatch(batch, r.phase, r.model, r.criterion, r.optims, r.config.GradClip)
	if err != nil {
		return BatchMetrics{}, fmt.Errorf("batch %d (%s) failed: %w", r.batchCount, r.phase, err)
	}

	for key, value := range bm.Values {
		r.acc.Update(key, value, float64(bm.Weight))
	}
	r.batchCount++

	if r.config.PrintEvery > 0 && r.batchCount%r.config.PrintEvery == 0 {
		fmt.Printf("Epoch %d [%s] batch %d: loss=%.4f\n",
			r.epoch, r.phase, r.batchCount, bm.Values["loss"])
	}
	return bm, nil
}

// OnLoaderEnd finalizes every declared key into loader-level metrics and
// discards the accumulator. Keys with no data (for example after a
// zero-batch pass) are recorded as absent, not as an error.
func (r *Runner) OnLoaderEnd() error {
	if !r.loaderActive {
		return ErrNoActiveLoader
	}

	loaderMetrics := make(map[string]float64)
	for _, key := range r.acc.Keys() {
		value, err := r.acc.Finalize(key)
		if errors.Is(err, metrics.ErrNoData) {
			continue
		}
		if err != nil {
			return err
		}
		loaderMetrics[key] = value
	}
	r.epochMetrics[r.phase.String()] = loaderMetrics

	r.acc = nil
	r.loaderActive = false
	return nil
}

// OnEpochEnd stamps the epoch index into the epoch record, emits scalars
// to scalar-capable sinks, and, when an inference pass produced measured
// rate and quality, logs the RD comparison figure.
func (r *Runner) OnEpochEnd() error {
	r.epochMetrics["_epoch_"] = map[string]float64{"epoch": float64(r.epoch)}

	for scope, values := range r.epochMetrics {
		r.logScalars(scope, r.epoch, values)
	}

	infer, ok := r.epochMetrics[Infer.String()]
	if ok && r.store != nil && len(r.config.Codecs) > 0 {
		if _, hasBPP := infer["bpp"]; hasBPP {
			if err := r.logRDFigure(infer); err != nil {
				return err
			}
		}
	}
	return nil
}

// OnExperimentEnd prints the closing summary.
func (r *Runner) OnExperimentEnd() error {
	fmt.Printf("Run %s finished after %d epochs\n", r.runID, r.epoch)
	return nil
}

// logRDFigure assembles the comparison of the current model against the
// reference codecs and hands it to figure-capable sinks.
func (r *Runner) logRDFigure(infer map[string]float64) error {
	reference, err := r.store.SeriesSet(r.config.Dataset, r.config.Codecs)
	if err != nil {
		return fmt.Errorf("benchmark lookup failed: %w", err)
	}
	current := plot.RDPoint{
		Name:  r.config.ModelName,
		Epoch: r.epoch,
		Loss:  infer["loss"],
		BPP:   infer["bpp"],
		PSNR:  infer["psnr"],
	}
	table, err := plot.BuildComparison(reference, current, r.config.HoverFields)
	if err != nil {
		return err
	}
	fig := plot.PlotRD(reference, current, nil)
	fig.Title = fmt.Sprintf("RD curves (%s)", r.config.Dataset)
	fig.Table = table

	r.logFigure(fmt.Sprintf("rd-curves-%s-psnr", r.config.Dataset), fig)
	return nil
}

// Capability-checked dispatch: each helper iterates the sinks and calls
// only those implementing the needed capability. A sink error is reported
// as a warning; telemetry must not kill a run.

func (r *Runner) logScalars(scope string, epoch int, values map[string]float64) {
	for _, sink := range r.sinks {
		logger, ok := sink.(loggers.ScalarLogger)
		if !ok {
			continue
		}
		if err := logger.LogScalars(scope, epoch, values); err != nil {
			fmt.Printf("Warning: sink %s failed to log scalars: %v\n", sink.Name(), err)
		}
	}
}

func (r *Runner) logFigure(name string, fig *plot.Figure) {
	for _, sink := range r.sinks {
		logger, ok := sink.(loggers.FigureLogger)
		if !ok {
			continue
		}
		if err := logger.LogFigure(name, fig); err != nil {
			fmt.Printf("Warning: sink %s failed to log figure %s: %v\n", sink.Name(), name, err)
		}
	}
}

func (r *Runner) logArtifact(tag, path string) {
	for _, sink := range r.sinks {
		logger, ok := sink.(loggers.ArtifactLogger)
		if !ok {
			continue
		}
		if err := logger.LogArtifact(tag, path); err != nil {
			fmt.Printf("Warning: sink %s failed to log artifact %s: %v\n", sink.Name(), tag, err)
		}
	}
}

// LogDistribution forwards a sampled distribution to distribution-capable
// sinks.
func (r *Runner) LogDistribution(name string, values []float64) {
	for _, sink := range r.sinks {
		logger, ok := sink.(loggers.DistributionLogger)
		if !ok {
			continue
		}
		if err := logger.LogDistribution(name, values); err != nil {
			fmt.Printf("Warning: sink %s failed to log distribution %s: %v\n", sink.Name(), name, err)
		}
	}
}
