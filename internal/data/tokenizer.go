package data

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is the tiktoken encoding used when a text split does not
// name one.
const defaultEncoding = "cl100k_base"

// Tokenizer converts text into token ids for the text dataset.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int, error)

	// Name returns the encoding name, for logging.
	Name() string
}

// TikToken wraps the pkoukk/tiktoken-go library.
//
// Supported encodings include "cl100k_base" (GPT-4, GPT-3.5-turbo) and
// "p50k_base" (GPT-3).
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a tokenizer for the named encoding. An empty name
// selects cl100k_base.
func NewTikToken(encodingName string) (*TikToken, error) {
	if encodingName == "" {
		encodingName = defaultEncoding
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}
	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int, error) {
	return t.encoding.Encode(text, nil, nil), nil
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}
