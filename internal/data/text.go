package data

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadText loads a text-classification dataset from a file of
// label<TAB>text lines. Each line is tokenized and the token ids are hashed
// into a bag-of-tokens count vector of width featureDim. Empty lines are
// skipped.
func LoadText(path string, tok Tokenizer, featureDim, numClasses int) (*InMemory, error) {
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if featureDim <= 0 {
		return nil, fmt.Errorf("featureDim must be positive, got %d", featureDim)
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("numClasses must be positive, got %d", numClasses)
	}

	file, err := os.Open(path) //nolint:gosec // G304: Path comes from the split config.
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var features [][]float32
	var labels []int

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		labelField, text, found := strings.Cut(line, "\t")
		if !found {
			return nil, fmt.Errorf("line %d: missing tab separator between label and text", lineNo)
		}
		label, err := strconv.Atoi(strings.TrimSpace(labelField))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid label: %w", lineNo, err)
		}
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("line %d: label %d outside [0, %d)", lineNo, label, numClasses)
		}

		tokens, err := tok.Encode(text)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize line %d: %w", lineNo, err)
		}
		vec := make([]float32, featureDim)
		for _, id := range tokens {
			vec[id%featureDim]++
		}

		features = append(features, vec)
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("text file has no samples")
	}

	return NewInMemory(features, labels, numClasses)
}
