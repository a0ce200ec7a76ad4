// Package pb holds the BevView wire types and their gRPC service
// descriptor. The messages follow bevview.proto; marshalling is written
// against protowire directly so the repo builds without a protoc step,
// and the output is byte-compatible with standard proto3 encoding.
package pb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// CodecName is the gRPC content-subtype the BevView service speaks.
const CodecName = "bevwire"

func init() {
	encoding.RegisterCodec(codec{})
}

// Message is implemented by all BevView wire types.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(data []byte) error
}

// codec plugs the wire types into gRPC's codec registry.
type codec struct{}

func (codec) Name() string { return CodecName }

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("bevwire codec: cannot marshal %T", v)
	}
	return m.MarshalWire()
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("bevwire codec: cannot unmarshal into %T", v)
	}
	return m.UnmarshalWire(data)
}

// StreamRequest opens a canvas stream.
type StreamRequest struct {
	ClientName string
}

func (m *StreamRequest) MarshalWire() ([]byte, error) {
	var b []byte
	if m.ClientName != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.ClientName)
	}
	return b, nil
}

func (m *StreamRequest) UnmarshalWire(data []byte) error {
	*m = StreamRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ClientName = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// CanvasFrame is one published composite canvas.
type CanvasFrame struct {
	BundleId       string
	StampUnixNanos int64
	Width          int32
	Height         int32
	PixelsBgr      []byte
	ViewsUsed      int32
	ViewsIn        int32
}

func (m *CanvasFrame) MarshalWire() ([]byte, error) {
	b := make([]byte, 0, len(m.PixelsBgr)+64)
	if m.BundleId != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.BundleId)
	}
	if m.StampUnixNanos != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.StampUnixNanos))
	}
	if m.Width != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(m.Width)))
	}
	if m.Height != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(m.Height)))
	}
	if len(m.PixelsBgr) > 0 {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PixelsBgr)
	}
	if m.ViewsUsed != 0 {
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(m.ViewsUsed)))
	}
	if m.ViewsIn != 0 {
		b = protowire.AppendTag(b, 7, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(uint32(m.ViewsIn)))
	}
	return b, nil
}

func (m *CanvasFrame) UnmarshalWire(data []byte) error {
	*m = CanvasFrame{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.BundleId = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.StampUnixNanos = int64(v)
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Width = int32(v)
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Height = int32(v)
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.PixelsBgr = append([]byte(nil), v...)
			data = data[n:]
		case num == 6 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ViewsUsed = int32(v)
			data = data[n:]
		case num == 7 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ViewsIn = int32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}
