package chainclient

import (
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// rawMessage is a pre-encoded protobuf payload. This module has no
// generated cosmos-sdk pb.go types (there is no vendored cosmos-sdk proto
// package in the examples pack — see DESIGN.md), so gRPC calls exchange
// already wire-encoded bytes directly rather than round-tripping through
// a generated message type.
type rawMessage struct {
	bytes []byte
}

func (r *rawMessage) Reset()         { r.bytes = nil }
func (r *rawMessage) String() string { return "rawMessage" }

type rawCodecName = string

const rawCodecID rawCodecName = "powminer-raw"

type rawCodec struct{}

func (rawCodec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(*rawMessage)
	if !ok {
		return nil, errors.Errorf("chainclient: raw codec cannot marshal %T", v)
	}
	return m.bytes, nil
}

func (rawCodec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(*rawMessage)
	if !ok {
		return errors.Errorf("chainclient: raw codec cannot unmarshal into %T", v)
	}
	m.bytes = append([]byte{}, data...)
	return nil
}

func (rawCodec) Name() string { return rawCodecID }

func init() {
	encoding.RegisterCodec(rawCodec{})
}

// invokeOpt forces the raw codec for a single call.
func invokeOpt() grpc.CallOption {
	return grpc.CallContentSubtype(rawCodecID)
}
