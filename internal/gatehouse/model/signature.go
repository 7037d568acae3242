package model

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSignatureLength is the descriptor size produced by the face
// extractor used at enrollment.
const DefaultSignatureLength = 128

var ErrSignatureLength = errors.New("signature length mismatch")

// Signature is an opaque fixed-length face descriptor.
type Signature []float64

// Distance returns the Euclidean distance between two signatures.
func Distance(a, b Signature) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrSignatureLength, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Validate checks the signature has the expected length and only finite
// components.
func (s Signature) Validate(length int) error {
	if len(s) != length {
		return fmt.Errorf("%w: got %d, want %d", ErrSignatureLength, len(s), length)
	}
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("signature component %d is not finite", i)
		}
	}
	return nil
}
