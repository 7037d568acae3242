package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/gatehouse/internal/wire"
)

// maxRequestBody caps request bodies for both encodings. A 128-float
// signature is about 3 KiB as JSON.
const maxRequestBody = 64 << 10

const contentTypeProtobuf = "application/x-protobuf"

func isProtobufType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == contentTypeProtobuf || mt == "application/protobuf" || mt == "application/octet-stream"
}

// isProtobuf reports whether the request body is a protobuf Struct.
func isProtobuf(r *http.Request) bool {
	return isProtobufType(r.Header.Get("Content-Type"))
}

// wantsProtobuf reports whether the response should be a protobuf
// Struct: the client sent one, or asked for one.
func wantsProtobuf(r *http.Request) bool {
	return isProtobuf(r) || isProtobufType(r.Header.Get("Accept"))
}

// decodeBody reads a JSON object or a protobuf Struct into v.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return err
	}
	if len(body) > maxRequestBody {
		return errBodyTooLarge
	}
	if !isProtobuf(r) {
		return wire.DecodeJSON(bytes.NewReader(body), v)
	}
	s := &structpb.Struct{}
	if err := proto.Unmarshal(body, s); err != nil {
		return err
	}
	return wire.FromStruct(s, v)
}

// respond writes v as JSON, or as a protobuf Struct when negotiated.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if r != nil && wantsProtobuf(r) {
		writeProto(w, status, v)
		return
	}
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProto(w http.ResponseWriter, status int, v any) {
	s, err := wire.ToStruct(v)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	data, err := proto.Marshal(s)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeProtobuf)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
