package imageio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"templatealign/internal/models"
)

// SavePointsCSV writes landmark points to a CSV file with a z,y,x header,
// one row per point, preserving order.
func SavePointsCSV(points models.PointSet, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"z", "y", "x"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Z, 'f', -1, 64),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
			strconv.FormatFloat(p.X, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// LoadPointsCSV reads landmark points written by SavePointsCSV.
func LoadPointsCSV(path string) (models.PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	if len(records[0]) != 3 || records[0][0] != "z" || records[0][1] != "y" || records[0][2] != "x" {
		return nil, fmt.Errorf("%s: expected z,y,x header, got %v", path, records[0])
	}

	points := make(models.PointSet, 0, len(records)-1)
	for i, rec := range records[1:] {
		var p models.Point
		var errs [3]error
		p.Z, errs[0] = strconv.ParseFloat(rec[0], 64)
		p.Y, errs[1] = strconv.ParseFloat(rec[1], 64)
		p.X, errs[2] = strconv.ParseFloat(rec[2], 64)
		for _, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
			}
		}
		points = append(points, p)
	}
	return points, nil
}
