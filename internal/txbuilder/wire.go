// Package txbuilder assembles the byte-exact protobuf TxRaw the chain
// accepts (spec §4.5 "Protobuf transaction assembly"). There is no
// vendored cosmos-sdk generated code in this module's dependency set, so
// messages are hand-assembled at the wire level using protowire — the
// low-level successor package to github.com/golang/protobuf (the
// teacher's literal go.mod entry), following the standard cosmos-sdk
// Tx/TxBody/AuthInfo field layout.
package txbuilder

import "google.golang.org/protobuf/encoding/protowire"

func appendString(dst []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return dst
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendString(dst, s)
}

func appendBytesField(dst []byte, num protowire.Number, b []byte) []byte {
	if len(b) == 0 {
		return dst
	}
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendBytes(dst, b)
}

func appendVarint(dst []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return dst
	}
	dst = protowire.AppendTag(dst, num, protowire.VarintType)
	return protowire.AppendVarint(dst, v)
}

func appendMessage(dst []byte, num protowire.Number, msg []byte) []byte {
	dst = protowire.AppendTag(dst, num, protowire.BytesType)
	return protowire.AppendBytes(dst, msg)
}

// consumeField walks one field and returns its number, wire type, the
// raw field content (value bytes, decoded per wire type), and the
// remaining buffer.
func consumeField(b []byte) (num protowire.Number, typ protowire.Type, value []byte, rest []byte, ok bool) {
	n, t, tagLen := protowire.ConsumeTag(b)
	if tagLen < 0 {
		return 0, 0, nil, nil, false
	}
	b = b[tagLen:]
	switch t {
	case protowire.VarintType:
		v, n2 := protowire.ConsumeVarint(b)
		if n2 < 0 {
			return 0, 0, nil, nil, false
		}
		var buf [10]byte
		vn := protowire.AppendVarint(buf[:0], v)
		return n, t, vn, b[n2:], true
	case protowire.BytesType:
		v, n2 := protowire.ConsumeBytes(b)
		if n2 < 0 {
			return 0, 0, nil, nil, false
		}
		return n, t, v, b[n2:], true
	default:
		return 0, 0, nil, nil, false
	}
}
