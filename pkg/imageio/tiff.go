// Package imageio loads and saves the volumetric formats used around the
// alignment core: TIFF slice stacks, single-file NIfTI-1 volumes, and CSV
// landmark exports.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"templatealign/internal/models"
)

// LoadVolumeDir reads a 3D volume stored as a directory of 2D TIFF slices.
// Files are ordered by the numeric part of their names so the anatomical
// slice order survives arbitrary naming schemes. Intensities are converted
// to float64 in the 0-1 range; every slice must share the dimensions of
// the first.
func LoadVolumeDir(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".tif" || ext == ".tiff" {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no TIFF slices found in %s", dir)
	}

	sort.Slice(files, func(i, j int) bool {
		return extractNumber(files[i]) < extractNumber(files[j])
	})

	var vol *models.Volume
	for z, name := range files {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		img, err := tiff.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}

		bounds := img.Bounds()
		if vol == nil {
			vol = models.NewVolume(bounds.Dx(), bounds.Dy(), len(files))
		} else if bounds.Dx() != vol.Width || bounds.Dy() != vol.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d: %w",
				name, bounds.Dx(), bounds.Dy(), vol.Width, vol.Height, models.ErrShapeMismatch)
		}

		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				vol.Set(z, y, x, float64(r)/65535.0)
			}
		}
	}

	return vol, nil
}

// SaveVolumeDir writes a volume as a directory of 16-bit grayscale TIFF
// slices named slice_000.tif, slice_001.tif, ... Intensities are clamped
// to the 0-1 range.
func SaveVolumeDir(vol *models.Volume, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for z := 0; z < vol.Depth; z++ {
		img := image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				v := math.Max(0, math.Min(1, vol.At(z, y, x)))
				img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
			}
		}

		name := filepath.Join(dir, fmt.Sprintf("slice_%03d.tif", z))
		if err := saveTIFF(img, name); err != nil {
			return fmt.Errorf("saving slice %d: %w", z, err)
		}
	}
	return nil
}

// SaveMaskDir writes a mask as a directory of TIFF slices, with foreground
// voxels at full intensity.
func SaveMaskDir(mask *models.Mask, dir string) error {
	vol := models.NewVolume(mask.Width, mask.Height, mask.Depth)
	for i, fg := range mask.Data {
		if fg {
			vol.Data[i] = 1
		}
	}
	return SaveVolumeDir(vol, dir)
}

func saveTIFF(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
}

// extractNumber concatenates the digits in a filename into a sort key;
// names without digits sort first.
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr == "" {
		return 0
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return n
}
