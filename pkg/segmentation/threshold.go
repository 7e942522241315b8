// Package segmentation extracts a binary specimen mask from a scalar
// volume. The mask recipe is the one used for template building: optional
// Gaussian smoothing, a global histogram threshold, largest connected
// component selection, and a final erosion.
package segmentation

import (
	"errors"
	"fmt"
	"math"

	"templatealign/internal/models"
)

// Method selects the global thresholding algorithm.
type Method string

const (
	// MethodTriangle places the threshold at the histogram point with the
	// largest perpendicular distance from the peak-to-tail chord. It works
	// well when the foreground occupies a small fraction of the volume.
	MethodTriangle Method = "triangle"

	// MethodOtsu maximizes the between-class variance of the split.
	MethodOtsu Method = "otsu"

	// MethodIsodata iterates the intermeans rule until the threshold is
	// halfway between the two class means.
	MethodIsodata Method = "isodata"
)

// ErrInvalidMethod is returned for an unrecognized threshold method.
var ErrInvalidMethod = errors.New("invalid threshold method")

// histogramBins is the number of bins used by all histogram-based methods.
const histogramBins = 256

// Threshold converts a scalar volume into a binary mask. If sigma > 0 the
// volume is first smoothed with an isotropic Gaussian of that standard
// deviation. A single global threshold is then computed with the selected
// method and voxels strictly above it become foreground.
//
// The input volume is never modified; the returned mask is newly allocated.
func Threshold(vol *models.Volume, method Method, sigma float64) (*models.Mask, error) {
	switch method {
	case MethodTriangle, MethodOtsu, MethodIsodata:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	if sigma < 0 {
		return nil, fmt.Errorf("gaussian sigma must be >= 0, got %g", sigma)
	}

	data := vol.Data
	if sigma > 0 {
		data = GaussianSmooth(vol, sigma).Data
	}

	lo, hi := minMax(data)
	mask := models.NewMask(vol.Width, vol.Height, vol.Depth)
	if hi <= lo {
		// Constant volume: nothing is strictly above any threshold.
		return mask, nil
	}

	hist := histogram(data, lo, hi)

	var bin int
	switch method {
	case MethodOtsu:
		bin = otsuBin(hist)
	case MethodIsodata:
		bin = isodataBin(hist)
	case MethodTriangle:
		bin = triangleBin(hist)
	}

	// Threshold at the selected bin's center intensity.
	binWidth := (hi - lo) / histogramBins
	threshold := lo + (float64(bin)+0.5)*binWidth

	for i, v := range data {
		mask.Data[i] = v > threshold
	}
	return mask, nil
}

// GaussianSmooth applies an isotropic Gaussian blur with the given standard
// deviation and returns a new volume. The kernel is separable with radius
// round(4*sigma); samples beyond the volume are mirrored.
func GaussianSmooth(vol *models.Volume, sigma float64) *models.Volume {
	radius := int(4*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}

	// Build the normalized 1D kernel once; the same kernel is swept along
	// each axis in turn.
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	w, h, d := vol.Width, vol.Height, vol.Depth
	src := vol.Clone()
	dst := models.NewVolume(w, h, d)

	// Pass along x.
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				acc := 0.0
				for k, kv := range kernel {
					acc += kv * src.At(z, y, reflect(x+k-radius, w))
				}
				dst.Set(z, y, x, acc)
			}
		}
	}
	src, dst = dst, src

	// Pass along y.
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				acc := 0.0
				for k, kv := range kernel {
					acc += kv * src.At(z, reflect(y+k-radius, h), x)
				}
				dst.Set(z, y, x, acc)
			}
		}
	}
	src, dst = dst, src

	// Pass along z.
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				acc := 0.0
				for k, kv := range kernel {
					acc += kv * src.At(reflect(z+k-radius, d), y, x)
				}
				dst.Set(z, y, x, acc)
			}
		}
	}

	return dst
}

// reflect mirrors an index into [0, n) with symmetric boundary handling.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// histogram bins the data into histogramBins equal-width bins over [lo, hi].
func histogram(data []float64, lo, hi float64) []float64 {
	hist := make([]float64, histogramBins)
	scale := histogramBins / (hi - lo)
	for _, v := range data {
		bin := int((v - lo) * scale)
		if bin >= histogramBins {
			bin = histogramBins - 1
		} else if bin < 0 {
			bin = 0
		}
		hist[bin]++
	}
	return hist
}

func minMax(data []float64) (lo, hi float64) {
	lo, hi = data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// otsuBin returns the bin maximizing the between-class variance.
func otsuBin(hist []float64) int {
	total := 0.0
	weightedTotal := 0.0
	for i, h := range hist {
		total += h
		weightedTotal += float64(i) * h
	}

	best := 0
	bestVariance := -1.0
	wBack := 0.0
	sumBack := 0.0
	for t := 0; t < len(hist)-1; t++ {
		wBack += hist[t]
		if wBack == 0 {
			continue
		}
		wFore := total - wBack
		if wFore == 0 {
			break
		}
		sumBack += float64(t) * hist[t]

		meanBack := sumBack / wBack
		meanFore := (weightedTotal - sumBack) / wFore
		diff := meanBack - meanFore
		variance := wBack * wFore * diff * diff

		if variance > bestVariance {
			bestVariance = variance
			best = t
		}
	}
	return best
}

// isodataBin iterates the intermeans rule: the threshold is moved to the
// midpoint of the two class means until it stops changing.
func isodataBin(hist []float64) int {
	// Start from the global mean bin.
	total := 0.0
	weightedTotal := 0.0
	for i, h := range hist {
		total += h
		weightedTotal += float64(i) * h
	}
	t := int(weightedTotal / total)

	for iter := 0; iter < histogramBins; iter++ {
		wBack, sumBack := 0.0, 0.0
		for i := 0; i <= t; i++ {
			wBack += hist[i]
			sumBack += float64(i) * hist[i]
		}
		wFore := total - wBack
		sumFore := weightedTotal - sumBack
		if wBack == 0 || wFore == 0 {
			break
		}

		next := int((sumBack/wBack + sumFore/wFore) / 2)
		if next == t {
			break
		}
		t = next
	}
	return t
}

// triangleBin implements the triangle method: a chord is drawn from the
// histogram peak to the far end of the longer tail, and the threshold is
// the bin with the largest perpendicular distance below that chord.
func triangleBin(hist []float64) int {
	peak := 0
	for i, h := range hist {
		if h > hist[peak] {
			peak = i
		}
	}
	first, last := peak, peak
	for i := 0; i < len(hist); i++ {
		if hist[i] > 0 {
			first = i
			break
		}
	}
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i] > 0 {
			last = i
			break
		}
	}

	// Walk the longer tail.
	tail := last
	if peak-first > last-peak {
		tail = first
	}
	if tail == peak {
		return peak
	}

	// Distance from (i, hist[i]) to the line through (peak, hist[peak])
	// and (tail, hist[tail]) is proportional to the cross product; the
	// denominator is constant so it can be dropped.
	best := peak
	bestDist := -1.0
	dx := float64(tail - peak)
	dy := hist[tail] - hist[peak]
	step := 1
	if tail < peak {
		step = -1
	}
	for i := peak + step; i != tail; i += step {
		dist := math.Abs(dx*(hist[i]-hist[peak]) - dy*float64(i-peak))
		if dist > bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}
