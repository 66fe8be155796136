// Package quality computes full-reference image quality metrics between an
// input batch and its decoded reconstruction. Values are expected in [0, 1].
package quality

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lidq92/compresstrain/compress"
)

const (
	windowSize  = 11
	windowSigma = 1.5
	c1          = 0.01 * 0.01
	c2          = 0.03 * 0.03
)

// msssimWeights are the per-scale exponents of the five-scale MS-SSIM.
var msssimWeights = []float64{0.0448, 0.2856, 0.3001, 0.2363, 0.1333}

// PSNR returns the peak signal-to-noise ratio in dB between two batches.
// Identical inputs yield +Inf.
func PSNR(a, b compress.Batch) (float64, error) {
	if err := checkShapes(a, b); err != nil {
		return 0, err
	}
	var mse float64
	for i := range a.Data {
		d := float64(a.Data[i]) - float64(b.Data[i])
		mse += d * d
	}
	mse /= float64(len(a.Data))
	if mse == 0 {
		return math.Inf(1), nil
	}
	return -10 * math.Log10(mse), nil
}

// MSSSIM returns the five-scale multi-scale structural similarity between
// two batches, averaged over images and channels. The smallest scale must
// still fit the 11x11 analysis window, so min(H, W) must be at least 176.
func MSSSIM(a, b compress.Batch) (float64, error) {
	if err := checkShapes(a, b); err != nil {
		return 0, err
	}
	minSide := a.H
	if a.W < minSide {
		minSide = a.W
	}
	if minSide>>(len(msssimWeights)-1) < windowSize {
		return 0, fmt.Errorf("quality: image %dx%d too small for %d-scale MS-SSIM", a.H, a.W, len(msssimWeights))
	}

	win := gaussianWindow(windowSize, windowSigma)
	plane := a.H * a.W
	var total float64
	planes := a.N * a.C
	for p := 0; p < planes; p++ {
		x := toFloat64(a.Data[p*plane : (p+1)*plane])
		y := toFloat64(b.Data[p*plane : (p+1)*plane])
		v, err := msssimPlane(x, y, a.H, a.W, win)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total / float64(planes), nil
}

func checkShapes(a, b compress.Batch) error {
	if a.N != b.N || a.C != b.C || a.H != b.H || a.W != b.W {
		return fmt.Errorf("quality: shape mismatch [%d %d %d %d] vs [%d %d %d %d]",
			a.N, a.C, a.H, a.W, b.N, b.C, b.H, b.W)
	}
	if len(a.Data) != a.N*a.C*a.H*a.W {
		return fmt.Errorf("quality: batch data length %d does not match shape", len(a.Data))
	}
	return nil
}

// msssimPlane runs the multi-scale pyramid on one image plane.
func msssimPlane(x, y []float64, h, w int, win []float64) (float64, error) {
	result := 1.0
	for scale := 0; scale < len(msssimWeights); scale++ {
		ssim, cs := ssimPlane(x, y, h, w, win)
		weight := msssimWeights[scale]
		if scale == len(msssimWeights)-1 {
			result *= math.Pow(math.Max(ssim, 0), weight)
			break
		}
		result *= math.Pow(math.Max(cs, 0), weight)
		x = downsample2(x, h, w)
		y = downsample2(y, h, w)
		h, w = h/2, w/2
	}
	return result, nil
}

func toFloat64(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

// gaussianWindow returns a normalized 1D gaussian kernel; the 2D window is
// applied separably.
func gaussianWindow(size int, sigma float64) []float64 {
	win := make([]float64, size)
	center := float64(size-1) / 2
	for i := range win {
		d := float64(i) - center
		win[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(win), win)
	return win
}

// filterValid applies the separable window with valid boundary handling,
// producing an (h-size+1) x (w-size+1) output.
func filterValid(src []float64, h, w int, win []float64) ([]float64, int, int) {
	size := len(win)
	oh, ow := h-size+1, w-size+1

	// rows
	tmp := make([]float64, h*ow)
	for r := 0; r < h; r++ {
		row := src[r*w : (r+1)*w]
		for c := 0; c < ow; c++ {
			tmp[r*ow+c] = floats.Dot(win, row[c:c+size])
		}
	}

	// columns
	out := make([]float64, oh*ow)
	col := make([]float64, size)
	for c := 0; c < ow; c++ {
		for r := 0; r < oh; r++ {
			for k := 0; k < size; k++ {
				col[k] = tmp[(r+k)*ow+c]
			}
			out[r*ow+c] = floats.Dot(win, col)
		}
	}
	return out, oh, ow
}

// ssimPlane returns the mean SSIM and mean contrast-structure term of one
// plane at one scale.
func ssimPlane(x, y []float64, h, w int, win []float64) (float64, float64) {
	n := len(x)
	xx := make([]float64, n)
	yy := make([]float64, n)
	xy := make([]float64, n)
	for i := range x {
		xx[i] = x[i] * x[i]
		yy[i] = y[i] * y[i]
		xy[i] = x[i] * y[i]
	}

	mux, oh, ow := filterValid(x, h, w, win)
	muy, _, _ := filterValid(y, h, w, win)
	exx, _, _ := filterValid(xx, h, w, win)
	eyy, _, _ := filterValid(yy, h, w, win)
	exy, _, _ := filterValid(xy, h, w, win)

	ssimMap := make([]float64, oh*ow)
	csMap := make([]float64, oh*ow)
	for i := range ssimMap {
		mx, my := mux[i], muy[i]
		sxx := exx[i] - mx*mx
		syy := eyy[i] - my*my
		sxy := exy[i] - mx*my
		cs := (2*sxy + c2) / (sxx + syy + c2)
		csMap[i] = cs
		ssimMap[i] = cs * (2*mx*my + c1) / (mx*mx + my*my + c1)
	}
	return stat.Mean(ssimMap, nil), stat.Mean(csMap, nil)
}

// downsample2 halves both dimensions with a 2x2 average pool.
func downsample2(src []float64, h, w int) []float64 {
	oh, ow := h/2, w/2
	out := make([]float64, oh*ow)
	for r := 0; r < oh; r++ {
		for c := 0; c < ow; c++ {
			out[r*ow+c] = (src[2*r*w+2*c] + src[2*r*w+2*c+1] +
				src[(2*r+1)*w+2*c] + src[(2*r+1)*w+2*c+1]) / 4
		}
	}
	return out
}
