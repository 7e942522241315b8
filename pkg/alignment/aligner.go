// Package alignment wires the pipeline stages into the full midline
// alignment process: mask extraction, midline landmark estimation, plane
// fitting, transform composition and resampling.
package alignment

import (
	"fmt"
	"runtime"

	"templatealign/internal/models"
	"templatealign/pkg/geometry"
	"templatealign/pkg/midline"
	"templatealign/pkg/resample"
	"templatealign/pkg/segmentation"
)

// Params holds the alignment pipeline configuration.
type Params struct {
	// ThresholdMethod selects the global thresholding algorithm used for
	// mask extraction. Defaults to the triangle method.
	ThresholdMethod segmentation.Method

	// GaussSigma is the standard deviation (in voxels) of the Gaussian
	// smoothing applied before thresholding. Zero disables smoothing.
	GaussSigma float64

	// ErosionRadius shrinks the mask by a cube of side 2r+1 after the
	// largest component is selected. Zero disables erosion.
	ErosionRadius int

	// InterpolationOrder selects how the aligned volume is sampled.
	InterpolationOrder resample.Order

	// NumWorkers bounds the goroutines used by the resampling stage.
	// Values below 1 use all available CPUs.
	NumWorkers int

	// Verbose enables per-step progress output.
	Verbose bool
}

// DefaultParams returns the parameters used for template building:
// triangle thresholding after a sigma-3 blur and a radius-5 erosion, with
// trilinear resampling.
func DefaultParams() *Params {
	return &Params{
		ThresholdMethod:    segmentation.MethodTriangle,
		GaussSigma:         3,
		ErosionRadius:      5,
		InterpolationOrder: resample.Linear,
		NumWorkers:         runtime.NumCPU(),
	}
}

// Result carries every artifact of a single pipeline invocation. All
// fields are freshly allocated; nothing aliases the input volume.
type Result struct {
	// Mask is the final specimen mask (largest component, eroded).
	Mask *models.Mask

	// Points are the 9 ordered midline landmarks.
	Points models.PointSet

	// Plane is the total-least-squares fit through the landmarks.
	Plane models.Plane

	// Transform is the pull map handed to the resampler.
	Transform geometry.Affine

	// Aligned is the resampled volume with the midline plane at the
	// canonical orientation and position.
	Aligned *models.Volume
}

// Aligner runs the midline alignment pipeline. It holds no cross-call
// state, so a single Aligner may process many volumes, concurrently if
// desired.
type Aligner struct {
	params *Params
}

// NewAligner creates an aligner with the provided parameters.
func NewAligner(params *Params) *Aligner {
	if params == nil {
		params = DefaultParams()
	}
	return &Aligner{params: params}
}

// Process runs the complete pipeline on a volume.
func (a *Aligner) Process(vol *models.Volume) (*Result, error) {
	a.logf("Step 1: Extracting specimen mask (method=%s, sigma=%g, erosion=%d)...\n",
		a.params.ThresholdMethod, a.params.GaussSigma, a.params.ErosionRadius)
	mask, err := a.ExtractMask(vol)
	if err != nil {
		return nil, fmt.Errorf("mask extraction failed: %w", err)
	}

	return a.AlignWithMask(vol, mask)
}

// ExtractMask runs the mask stages only: threshold, largest connected
// component, erosion. It is exposed separately so an interactive front-end
// can review or edit the mask before alignment.
func (a *Aligner) ExtractMask(vol *models.Volume) (*models.Mask, error) {
	mask, err := segmentation.Threshold(vol, a.params.ThresholdMethod, a.params.GaussSigma)
	if err != nil {
		return nil, err
	}

	mask, err = segmentation.LargestComponent(mask)
	if err != nil {
		return nil, err
	}

	return segmentation.Erode(mask, a.params.ErosionRadius)
}

// AlignWithMask runs the geometric stages against a precomputed mask,
// typically one produced by ExtractMask and then reviewed by a user. The
// mask must match the volume's shape.
func (a *Aligner) AlignWithMask(vol *models.Volume, mask *models.Mask) (*Result, error) {
	if err := models.CheckSameShape(mask, vol); err != nil {
		return nil, err
	}

	a.logf("Step 2: Estimating %d midline points...\n", midline.NumPoints)
	points, err := midline.EstimatePoints(mask)
	if err != nil {
		return nil, fmt.Errorf("midline estimation failed: %w", err)
	}

	a.logf("Step 3: Fitting midline plane...\n")
	plane, err := geometry.FitPlane(points)
	if err != nil {
		return nil, fmt.Errorf("plane fit failed: %w", err)
	}
	a.logf("Fitted plane: centroid=(%.2f, %.2f, %.2f) normal=(%.4f, %.4f, %.4f)\n",
		plane.Centroid.Z, plane.Centroid.Y, plane.Centroid.X,
		plane.Normal.Z, plane.Normal.Y, plane.Normal.X)

	a.logf("Step 4: Composing alignment transform...\n")
	transform, err := geometry.ComposeAlignment(plane, vol.Width, vol.Height, vol.Depth)
	if err != nil {
		return nil, fmt.Errorf("transform composition failed: %w", err)
	}

	a.logf("Step 5: Resampling volume...\n")
	resampler, err := resample.NewResampler(a.params.InterpolationOrder, a.params.NumWorkers)
	if err != nil {
		return nil, err
	}
	aligned, err := resampler.Apply(vol, transform.Linear, transform.Offset)
	if err != nil {
		return nil, fmt.Errorf("resampling failed: %w", err)
	}

	return &Result{
		Mask:      mask,
		Points:    points,
		Plane:     plane,
		Transform: transform,
		Aligned:   aligned,
	}, nil
}

func (a *Aligner) logf(format string, args ...interface{}) {
	if a.params.Verbose {
		fmt.Printf(format, args...)
	}
}
