package pb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCanvasFrameRoundTrip(t *testing.T) {
	in := &CanvasFrame{
		BundleId:       "bundle-42",
		StampUnixNanos: 1700000000123456789,
		Width:          400,
		Height:         300,
		PixelsBgr:      []byte{1, 2, 3, 4, 5, 6},
		ViewsUsed:      3,
		ViewsIn:        4,
	}

	data, err := in.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := &CanvasFrame{}
	if err := out.UnmarshalWire(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCanvasFrameZeroValue(t *testing.T) {
	in := &CanvasFrame{}
	data, err := in.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("zero-value frame encoded to %d bytes, want 0", len(data))
	}
	out := &CanvasFrame{}
	if err := out.UnmarshalWire(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestStreamRequestRoundTrip(t *testing.T) {
	in := &StreamRequest{ClientName: "viewer-1"}
	data, err := in.MarshalWire()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := &StreamRequest{}
	if err := out.UnmarshalWire(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ClientName != "viewer-1" {
		t.Errorf("client name = %q", out.ClientName)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	in := &CanvasFrame{BundleId: "b"}
	data, err := in.MarshalWire()
	if err != nil {
		t.Fatal(err)
	}
	// Append a field number this schema does not define.
	data = protowire.AppendTag(data, 99, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)

	out := &CanvasFrame{}
	if err := out.UnmarshalWire(data); err != nil {
		t.Fatalf("unmarshal with unknown field: %v", err)
	}
	if out.BundleId != "b" {
		t.Errorf("bundle id = %q", out.BundleId)
	}
}

func TestUnmarshalRejectsTruncatedInput(t *testing.T) {
	in := &CanvasFrame{PixelsBgr: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	data, err := in.MarshalWire()
	if err != nil {
		t.Fatal(err)
	}
	out := &CanvasFrame{}
	if err := out.UnmarshalWire(data[:len(data)-3]); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	c := codec{}
	if _, err := c.Marshal("not a message"); err == nil {
		t.Error("expected marshal error")
	}
	if err := c.Unmarshal(nil, 42); err == nil {
		t.Error("expected unmarshal error")
	}
}
