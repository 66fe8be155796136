// Package loggers provides telemetry sinks for the training runner. A sink
// advertises optional capabilities by implementing the narrower interfaces
// below; dispatch iterates the configured sinks and calls only those that
// implement the needed capability. A sink lacking a capability is skipped,
// never an error.
package loggers

import "github.com/lidq92/compresstrain/plot"

// Sink is a destination for training telemetry.
type Sink interface {
	Name() string
}

// ScalarLogger records per-epoch scalar metrics for one scope (loader name
// or "_epoch_").
type ScalarLogger interface {
	LogScalars(scope string, epoch int, values map[string]float64) error
}

// FigureLogger records a renderable figure.
type FigureLogger interface {
	LogFigure(name string, fig *plot.Figure) error
}

// ArtifactLogger records a file artifact under a tag.
type ArtifactLogger interface {
	LogArtifact(tag, path string) error
}

// DistributionLogger records a sampled distribution of values.
type DistributionLogger interface {
	LogDistribution(name string, values []float64) error
}
