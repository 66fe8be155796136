// Package plot assembles rate-distortion comparison tables and renderable
// figures. Rendering itself is delegated to a sidecar service or to
// whatever consumes the figure JSON.
package plot

import (
	"fmt"
	"math"
)

// RDSeries is one reference codec's rate-distortion curve. Point order is
// significant: it defines the curve.
type RDSeries struct {
	Name string    `json:"name"`
	BPP  []float64 `json:"bpp"`
	PSNR []float64 `json:"psnr"`
}

// Len returns the number of points in the series.
func (s RDSeries) Len() int {
	return len(s.BPP)
}

// RDPoint is the current model's single rate-distortion datapoint at
// evaluation time.
type RDPoint struct {
	Name  string  `json:"name"`
	Epoch int     `json:"epoch"`
	Loss  float64 `json:"loss"`
	BPP   float64 `json:"bpp"`
	PSNR  float64 `json:"psnr"`
}

// ComparisonTable merges reference-codec rows with the current model's row.
// Rows are keyed by column name; absent cells are nil.
type ComparisonTable struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// baseColumns is the natural column order before hover reordering.
var baseColumns = []string{"name", "epoch", "loss", "bpp", "psnr"}

// BuildComparison concatenates the reference series rows with a single
// current-model row. The current row's name carries a "*" suffix so it
// stands out among reference rows, and its values are rounded to four
// significant digits. Columns named in hoverFields (deduplicated, first
// occurrence wins) come first; remaining columns keep their original
// relative order. Series names must be unique.
func BuildComparison(reference []RDSeries, current RDPoint, hoverFields []string) (*ComparisonTable, error) {
	seen := make(map[string]bool, len(reference))
	rows := make([]map[string]any, 0, 1)
	for _, series := range reference {
		if seen[series.Name] {
			return nil, fmt.Errorf("plot: duplicate series name %q in comparison", series.Name)
		}
		seen[series.Name] = true
		if len(series.BPP) != len(series.PSNR) {
			return nil, fmt.Errorf("plot: series %q has %d bpp values but %d psnr values",
				series.Name, len(series.BPP), len(series.PSNR))
		}
		for i := range series.BPP {
			rows = append(rows, map[string]any{
				"name": series.Name,
				"bpp":  series.BPP[i],
				"psnr": series.PSNR[i],
			})
		}
	}

	rows = append(rows, map[string]any{
		"name":  current.Name + "*",
		"epoch": current.Epoch,
		"loss":  roundSig(current.Loss, 4),
		"bpp":   roundSig(current.BPP, 4),
		"psnr":  roundSig(current.PSNR, 4),
	})

	return &ComparisonTable{
		Columns: reorderColumns(baseColumns, hoverFields),
		Rows:    rows,
	}, nil
}

// reorderColumns moves head columns to the front, deduplicating head and
// preserving the relative order of the remainder. Head names that are not
// actual columns are ignored.
func reorderColumns(columns, head []string) []string {
	known := make(map[string]bool, len(columns))
	for _, name := range columns {
		known[name] = true
	}
	inHead := make(map[string]bool, len(head))
	out := make([]string, 0, len(columns))
	for _, name := range head {
		if inHead[name] || !known[name] {
			continue
		}
		inHead[name] = true
		out = append(out, name)
	}
	for _, name := range columns {
		if inHead[name] {
			continue
		}
		out = append(out, name)
	}
	return out
}

// roundSig rounds x to the given number of significant digits.
func roundSig(x float64, digits int) float64 {
	if x == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	scale := math.Pow(10, float64(digits-1)-math.Floor(math.Log10(math.Abs(x))))
	return math.Round(x*scale) / scale
}
