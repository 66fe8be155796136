package loggers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lidq92/compresstrain/plot"
)

// RunDir persists telemetry into a per-run directory: scalar records as
// binary protobuf, figures as JSON, artifacts as file copies. It
// implements the scalar, figure and artifact capabilities.
type RunDir struct {
	dir   string
	runID string
}

// NewRunDir creates (or reuses) the run directory and assigns a run ID.
func NewRunDir(dir string) (*RunDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &RunDir{dir: dir, runID: uuid.NewString()}, nil
}

// Name identifies the sink.
func (r *RunDir) Name() string {
	return "rundir"
}

// Dir returns the run directory path.
func (r *RunDir) Dir() string {
	return r.dir
}

// RunID returns the run identifier stamped into every scalar record.
func (r *RunDir) RunID() string {
	return r.runID
}

// LogScalars writes one protobuf-encoded record per scope and epoch.
func (r *RunDir) LogScalars(scope string, epoch int, values map[string]float64) error {
	fields := map[string]any{
		"run_id": r.runID,
		"scope":  scope,
		"epoch":  epoch,
	}
	metricValues := make(map[string]any, len(values))
	for key, value := range values {
		metricValues[key] = value
	}
	fields["values"] = metricValues

	record, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("failed to build scalar record: %w", err)
	}
	data, err := proto.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal scalar record: %w", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("scalars-%s-epoch%04d.pb", scope, epoch))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scalar record: %w", err)
	}
	return nil
}

// LogFigure writes the figure payload as indented JSON.
func (r *RunDir) LogFigure(name string, fig *plot.Figure) error {
	data, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal figure %q: %w", name, err)
	}
	path := filepath.Join(r.dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write figure %q: %w", name, err)
	}
	return nil
}

// LogArtifact copies the file at path into the run directory under tag.
func (r *RunDir) LogArtifact(tag, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %q: %w", tag, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(r.dir, tag))
	if err != nil {
		return fmt.Errorf("failed to create artifact copy %q: %w", tag, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy artifact %q: %w", tag, err)
	}
	return nil
}
