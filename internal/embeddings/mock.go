package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"strings"

	pkgembeddings "github.com/learnhub/engine/pkg/embeddings"
)

// ErrEmptyText is returned when text is empty after trimming.
var ErrEmptyText = errors.New("embeddings: text is empty")

// MockClient produces deterministic unit vectors from a hash of the text. Identical text
// always maps to the identical vector, so it is usable for local runs and tests.
type MockClient struct {
	dimensions int
}

// NewMockClient returns a MockClient with DefaultDimensions.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: DefaultDimensions}
}

// NewMockClientWithDimensions returns a MockClient with the given vector length.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// Embed ignores the task type.
func (c *MockClient) Embed(_ context.Context, text string, _ TaskType) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	vec := make([]float32, c.dimensions)
	block := sha256.Sum256([]byte(text))

	for i := range vec {
		offset := (i * 2) % len(block)
		if offset == 0 && i > 0 {
			block = sha256.Sum256(block[:])
		}

		raw := binary.BigEndian.Uint16(block[offset : offset+2])
		vec[i] = float32(raw)/32767.5 - 1
	}

	pkgembeddings.NormalizeL2(vec)

	return vec, nil
}

var _ Client = (*MockClient)(nil)
