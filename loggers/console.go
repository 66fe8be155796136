package loggers

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Console prints scalar metrics as human-readable lines. It implements
// only the scalar capability; figures, artifacts and distributions are
// skipped by dispatch.
type Console struct {
	out io.Writer
}

// NewConsole creates a console sink writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console sink writing to w.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Name identifies the sink.
func (c *Console) Name() string {
	return "console"
}

// LogScalars prints one line per scope with keys in sorted order.
func (c *Console) LogScalars(scope string, epoch int, values map[string]float64) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintf(c.out, "Epoch %d [%s]:", epoch, scope)
	for i, key := range keys {
		if i > 0 {
			fmt.Fprint(c.out, ",")
		}
		fmt.Fprintf(c.out, " %s=%.4f", key, values[key])
	}
	fmt.Fprintln(c.out)
	return nil
}
