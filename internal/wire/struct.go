// Package wire converts the JSON wire types to and from
// google.protobuf.Struct so the same request and response shapes can be
// carried as JSON, as protobuf over HTTP, and over gRPC.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct renders v through its JSON tags into a Struct. v must encode
// to a JSON object.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("wire: %T is not an object: %w", v, err)
	}
	return s, nil
}

// FromStruct decodes s into v, rejecting fields v does not declare.
func FromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("wire: marshal struct: %w", err)
	}
	return DecodeJSON(bytes.NewReader(data), v)
}

// DecodeJSON decodes a single JSON object from r into v, rejecting
// unknown fields.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("wire: decode %T: %w", v, err)
	}
	return nil
}
