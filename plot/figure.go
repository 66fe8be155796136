package plot

// Figure is the universal JSON payload consumed by the sidecar renderer.
type Figure struct {
	Title  string           `json:"title"`
	Series []Trace          `json:"series"`
	Layout map[string]any   `json:"layout"`
	Table  *ComparisonTable `json:"hover_table,omitempty"`
}

// Trace is a single data series in a figure.
type Trace struct {
	Name  string         `json:"name"`
	Mode  string         `json:"mode"` // "lines+markers" or "markers"
	X     []float64      `json:"x"`
	Y     []float64      `json:"y"`
	Style map[string]any `json:"style,omitempty"`
}

// defaultRDLayout returns the standard RD plot axes: bitrate in bits per
// pixel against PSNR in dB.
func defaultRDLayout() map[string]any {
	return map[string]any{
		"xaxis_title": "Bit-rate [bpp]",
		"yaxis_title": "PSNR [dB]",
		"xaxis":       map[string]any{"range": []float64{0.0, 2.25}, "tick0": 0.0, "dtick": 0.25},
		"yaxis":       map[string]any{"range": []float64{26, 41}, "tick0": 26.0, "dtick": 1.0},
	}
}

// PlotRD builds the rate-distortion figure: one line+marker trace per
// reference codec and one highlighted marker for the current model.
// Caller-supplied layout entries take precedence over the defaults on key
// collision.
func PlotRD(reference []RDSeries, current RDPoint, layout map[string]any) *Figure {
	traces := make([]Trace, 0, len(reference)+1)
	for _, series := range reference {
		traces = append(traces, Trace{
			Name: series.Name,
			Mode: "lines+markers",
			X:    series.BPP,
			Y:    series.PSNR,
		})
	}
	traces = append(traces, Trace{
		Name: current.Name + "*",
		Mode: "markers",
		X:    []float64{current.BPP},
		Y:    []float64{current.PSNR},
		Style: map[string]any{
			"marker_size":   12,
			"marker_symbol": "star",
		},
	})

	merged := defaultRDLayout()
	for key, value := range layout {
		merged[key] = value
	}

	return &Figure{
		Series: traces,
		Layout: merged,
	}
}
