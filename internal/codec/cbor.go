// Package codec encodes face signatures for storage. Signatures are
// written as CBOR arrays of float64 using Core Deterministic Encoding so
// the same vector always produces the same bytes.
package codec

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/BrandonDHaskell/gatehouse/internal/gatehouse/model"
)

var ErrEmptySignature = errors.New("codec: empty signature")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Keep float64 precision; the deterministic default would shrink
	// values to float16/32 whenever that is lossless, which is fine but
	// makes column sizes vary with content.
	encOptions.ShortestFloat = cbor.ShortestFloatNone
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 4096,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeSignature returns the CBOR form of sig.
func EncodeSignature(sig model.Signature) ([]byte, error) {
	if len(sig) == 0 {
		return nil, ErrEmptySignature
	}
	return encMode.Marshal([]float64(sig))
}

// DecodeSignature parses bytes produced by EncodeSignature.
func DecodeSignature(data []byte) (model.Signature, error) {
	if len(data) == 0 {
		return nil, ErrEmptySignature
	}
	var out []float64
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("codec: decode signature: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptySignature
	}
	return model.Signature(out), nil
}
