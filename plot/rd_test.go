package plot

import (
	"math"
	"testing"
)

func sampleSeries() []RDSeries {
	return []RDSeries{
		{
			Name: "bmshj2018-hyperprior",
			BPP:  []float64{0.2, 0.4, 0.6, 0.9, 1.3},
			PSNR: []float64{29.1, 31.5, 33.0, 34.8, 36.5},
		},
		{
			Name: "jpeg",
			BPP:  []float64{0.1, 0.3, 0.5, 0.8, 1.1, 1.5, 2.0},
			PSNR: []float64{25.0, 27.9, 29.5, 31.0, 32.1, 33.4, 34.6},
		},
	}
}

// TestBuildComparisonRowCount tests reference rows plus one current row
func TestBuildComparisonRowCount(t *testing.T) {
	current := RDPoint{Name: "mbt2018", Epoch: 42, Loss: 1.234567, BPP: 0.512345, PSNR: 32.98765}
	table, err := BuildComparison(sampleSeries(), current, nil)
	if err != nil {
		t.Fatalf("BuildComparison returned error: %v", err)
	}

	if len(table.Rows) != 13 {
		t.Errorf("row count = %d, expected 13 (5 + 7 + 1)", len(table.Rows))
	}

	last := table.Rows[len(table.Rows)-1]
	if last["name"] != "mbt2018*" {
		t.Errorf("current row name = %v, expected mbt2018*", last["name"])
	}
	if got := last["loss"].(float64); math.Abs(got-1.235) > 1e-9 {
		t.Errorf("current row loss = %v, expected 1.235 (4 significant digits)", got)
	}
	if got := last["bpp"].(float64); math.Abs(got-0.5123) > 1e-9 {
		t.Errorf("current row bpp = %v, expected 0.5123", got)
	}
}

// TestBuildComparisonColumnOrder tests hover-field reordering and dedup
func TestBuildComparisonColumnOrder(t *testing.T) {
	current := RDPoint{Name: "mbt2018", Epoch: 1, Loss: 1, BPP: 0.5, PSNR: 33}
	hover := []string{"psnr", "name", "psnr", "unknown_field"}

	table, err := BuildComparison(sampleSeries(), current, hover)
	if err != nil {
		t.Fatalf("BuildComparison returned error: %v", err)
	}

	expected := []string{"psnr", "name", "epoch", "loss", "bpp"}
	if len(table.Columns) != len(expected) {
		t.Fatalf("columns = %v, expected %v", table.Columns, expected)
	}
	for i, name := range expected {
		if table.Columns[i] != name {
			t.Errorf("column[%d] = %q, expected %q", i, table.Columns[i], name)
		}
	}
}

// TestBuildComparisonDuplicateNames tests the unique-name invariant
func TestBuildComparisonDuplicateNames(t *testing.T) {
	series := sampleSeries()
	series[1].Name = series[0].Name
	current := RDPoint{Name: "mbt2018"}
	if _, err := BuildComparison(series, current, nil); err == nil {
		t.Error("BuildComparison with duplicate series names should return an error")
	}
}

// TestBuildComparisonLengthMismatch tests bpp/psnr length validation
func TestBuildComparisonLengthMismatch(t *testing.T) {
	series := []RDSeries{{Name: "jpeg", BPP: []float64{0.1, 0.2}, PSNR: []float64{25}}}
	if _, err := BuildComparison(series, RDPoint{Name: "m"}, nil); err == nil {
		t.Error("BuildComparison with mismatched series lengths should return an error")
	}
}

// TestPlotRDDefaults tests default layout and trace composition
func TestPlotRDDefaults(t *testing.T) {
	current := RDPoint{Name: "mbt2018", BPP: 0.5, PSNR: 33}
	fig := PlotRD(sampleSeries(), current, nil)

	if len(fig.Series) != 3 {
		t.Fatalf("trace count = %d, expected 3", len(fig.Series))
	}
	for _, trace := range fig.Series[:2] {
		if trace.Mode != "lines+markers" {
			t.Errorf("reference trace mode = %q, expected lines+markers", trace.Mode)
		}
	}
	last := fig.Series[2]
	if last.Mode != "markers" || last.Name != "mbt2018*" {
		t.Errorf("current trace = {%q %q}, expected {mbt2018* markers}", last.Name, last.Mode)
	}

	if fig.Layout["xaxis_title"] != "Bit-rate [bpp]" {
		t.Errorf("xaxis_title = %v", fig.Layout["xaxis_title"])
	}
	xaxis := fig.Layout["xaxis"].(map[string]any)
	r := xaxis["range"].([]float64)
	if r[0] != 0.0 || r[1] != 2.25 || xaxis["dtick"] != 0.25 {
		t.Errorf("default xaxis = %v, expected range [0 2.25] dtick 0.25", xaxis)
	}
	yaxis := fig.Layout["yaxis"].(map[string]any)
	ry := yaxis["range"].([]float64)
	if ry[0] != 26 || ry[1] != 41 || yaxis["dtick"] != 1.0 {
		t.Errorf("default yaxis = %v, expected range [26 41] dtick 1", yaxis)
	}
}

// TestPlotRDLayoutOverride tests that caller options win on collision
func TestPlotRDLayoutOverride(t *testing.T) {
	current := RDPoint{Name: "mbt2018", BPP: 0.5, PSNR: 33}
	fig := PlotRD(sampleSeries(), current, map[string]any{
		"yaxis_title": "MS-SSIM [dB]",
		"width":       900,
	})

	if fig.Layout["yaxis_title"] != "MS-SSIM [dB]" {
		t.Errorf("yaxis_title = %v, caller override expected", fig.Layout["yaxis_title"])
	}
	if fig.Layout["width"] != 900 {
		t.Errorf("width = %v, expected 900", fig.Layout["width"])
	}
	if fig.Layout["xaxis_title"] != "Bit-rate [bpp]" {
		t.Errorf("non-colliding default was lost: %v", fig.Layout["xaxis_title"])
	}
}
