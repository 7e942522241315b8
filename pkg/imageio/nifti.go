package imageio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"templatealign/internal/models"
)

// nifti1Header is the fixed 348-byte NIfTI-1 header layout, written and
// read little-endian.
type nifti1Header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

const (
	niftiTypeUint8   = 2
	niftiTypeFloat32 = 16
	niftiTypeFloat64 = 64

	// Header plus the mandatory 4-byte extension indicator.
	niftiVoxOffset = 352
)

// SaveNIfTI writes a volume as a single-file NIfTI-1 image (.nii) with
// float32 voxels. pixSizes gives the voxel dimensions in mm in (x, y, z)
// order; they populate both pixdim and the diagonal sform affine.
func SaveNIfTI(vol *models.Volume, path string, pixSizes [3]float64) error {
	var hdr nifti1Header
	hdr.SizeofHdr = 348
	hdr.Regular = 'r'
	hdr.Dim = [8]int16{3, int16(vol.Width), int16(vol.Height), int16(vol.Depth), 1, 1, 1, 1}
	hdr.Datatype = niftiTypeFloat32
	hdr.Bitpix = 32
	hdr.Pixdim = [8]float32{1, float32(pixSizes[0]), float32(pixSizes[1]), float32(pixSizes[2]), 0, 0, 0, 0}
	hdr.VoxOffset = niftiVoxOffset
	hdr.SclSlope = 1
	hdr.XyztUnits = 2 // millimetres
	hdr.SformCode = 1
	hdr.SrowX = [4]float32{float32(pixSizes[0]), 0, 0, 0}
	hdr.SrowY = [4]float32{0, float32(pixSizes[1]), 0, 0}
	hdr.SrowZ = [4]float32{0, 0, float32(pixSizes[2]), 0}
	copy(hdr.Magic[:], "n+1\x00")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("writing NIfTI header: %w", err)
	}
	// No extensions.
	if _, err := f.Write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}

	// NIfTI stores x fastest, then y, then z, which matches the volume's
	// row-major (z, y, x) layout exactly.
	buf := make([]float32, len(vol.Data))
	for i, v := range vol.Data {
		buf[i] = float32(v)
	}
	if err := binary.Write(f, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("writing NIfTI data: %w", err)
	}
	return nil
}

// LoadNIfTI reads a single-file NIfTI-1 image. Three-dimensional uint8,
// float32 and float64 images are supported; scl_slope/scl_inter scaling is
// applied when present.
func LoadNIfTI(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hdr nifti1Header
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading NIfTI header: %w", err)
	}
	if string(hdr.Magic[:3]) != "n+1" {
		return nil, fmt.Errorf("%s is not a single-file NIfTI-1 image (magic %q)", path, hdr.Magic)
	}
	if hdr.Dim[0] != 3 {
		return nil, fmt.Errorf("expected a 3D image, got dim[0]=%d", hdr.Dim[0])
	}

	width := int(hdr.Dim[1])
	height := int(hdr.Dim[2])
	depth := int(hdr.Dim[3])
	n := width * height * depth

	if _, err := f.Seek(int64(hdr.VoxOffset), 0); err != nil {
		return nil, err
	}

	vol := models.NewVolume(width, height, depth)
	switch hdr.Datatype {
	case niftiTypeUint8:
		buf := make([]uint8, n)
		if err := binary.Read(f, binary.LittleEndian, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			vol.Data[i] = float64(v)
		}
	case niftiTypeFloat32:
		buf := make([]float32, n)
		if err := binary.Read(f, binary.LittleEndian, buf); err != nil {
			return nil, err
		}
		for i, v := range buf {
			vol.Data[i] = float64(v)
		}
	case niftiTypeFloat64:
		if err := binary.Read(f, binary.LittleEndian, vol.Data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported NIfTI datatype %d", hdr.Datatype)
	}

	slope := float64(hdr.SclSlope)
	inter := float64(hdr.SclInter)
	if slope != 0 && (slope != 1 || inter != 0) {
		for i := range vol.Data {
			vol.Data[i] = vol.Data[i]*slope + inter
		}
	}

	// Guard against NaNs from malformed files; downstream stages assume
	// finite intensities.
	for i, v := range vol.Data {
		if math.IsNaN(v) {
			vol.Data[i] = 0
		}
	}

	return vol, nil
}
