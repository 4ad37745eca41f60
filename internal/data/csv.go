package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// LoadCSV loads a pixel-classification dataset from a Kaggle-style CSV file.
//
// CSV format:
//
//	label,pixel0,pixel1,...,pixelN
//	7,0,0,84,...,0
//	1,0,13,0,...,0
//
// The header row is optional and detected by a non-numeric first field.
// Pixel values are 8-bit intensities normalized to the [0, 1] range. The
// feature width is taken from the first data row; every row must match it.
func LoadCSV(path string, numClasses int) (*InMemory, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("numClasses must be positive, got %d", numClasses)
	}

	file, err := os.Open(path) //nolint:gosec // G304: Path comes from the split config.
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip the header row when the first field does not parse as a label.
	if _, err := strconv.Atoi(records[0][0]); err != nil {
		records = records[1:]
		if len(records) == 0 {
			return nil, fmt.Errorf("CSV file has a header but no data rows")
		}
	}

	width := len(records[0]) - 1
	if width < 1 {
		return nil, fmt.Errorf("rows need a label and at least one pixel, got %d columns", len(records[0]))
	}

	features := make([][]float32, len(records))
	labels := make([]int, len(records))

	for i, record := range records {
		if len(record) != width+1 {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i+1, len(record), width+1)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid label: %w", i+1, err)
		}
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("row %d: label %d outside [0, %d)", i+1, label, numClasses)
		}
		labels[i] = label

		vec := make([]float32, width)
		for j, cell := range record[1:] {
			pixel, err := strconv.ParseFloat(cell, 32)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid pixel in column %d: %w", i+1, j+1, err)
			}
			vec[j] = float32(pixel) / 255.0
		}
		features[i] = vec
	}

	return NewInMemory(features, labels, numClasses)
}
