package network

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/bev.report/internal/bev"
)

// collectSink records pushed messages for assertions.
type collectSink struct {
	mu     sync.Mutex
	images []bev.StampedImage
	infos  []bev.CameraInfo
}

func (c *collectSink) PushImage(camera string, img bev.StampedImage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = append(c.images, img)
}

func (c *collectSink) PushInfo(camera string, info bev.CameraInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos = append(c.infos, info)
}

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 60, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestDeliverPacketImage(t *testing.T) {
	at := time.Unix(1700000000, 0)
	data, err := EncodeImagePacket("front", "front_optical", at, encodeTestJPEG(t, 32, 24))
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := DecodePacket(data)
	if err != nil {
		t.Fatal(err)
	}

	sink := &collectSink{}
	if err := DeliverPacket(sink, pkt); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(sink.images) != 1 {
		t.Fatalf("got %d images, want 1", len(sink.images))
	}
	got := sink.images[0]
	if got.Frame != "front_optical" || !got.At.Equal(at) {
		t.Errorf("header mismatch: frame=%q at=%v", got.Frame, got.At)
	}
	if got.Image.Width != 32 || got.Image.Height != 24 {
		t.Errorf("image size = %dx%d, want 32x24", got.Image.Width, got.Image.Height)
	}
	if got.Image.IsBackground(16, 12) {
		t.Error("decoded image center is background")
	}
}

func TestDeliverPacketInfo(t *testing.T) {
	at := time.Unix(1700000000, 0)
	k := []float64{500, 0, 320, 0, 500, 240, 0, 0, 1}
	data, err := EncodeInfoPacket("rear", "rear_optical", at, k)
	if err != nil {
		t.Fatal(err)
	}
	pkt, err := DecodePacket(data)
	if err != nil {
		t.Fatal(err)
	}

	sink := &collectSink{}
	if err := DeliverPacket(sink, pkt); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(sink.infos) != 1 {
		t.Fatalf("got %d infos, want 1", len(sink.infos))
	}
	if sink.infos[0].Frame != "rear_optical" || sink.infos[0].K[0] != 500 {
		t.Errorf("info mismatch: %+v", sink.infos[0])
	}
}

func TestDeliverPacketBadJPEG(t *testing.T) {
	pkt := &Packet{Type: PacketImage, Camera: "front", Frame: "f", JPEG: []byte{1, 2, 3}}
	if err := DeliverPacket(&collectSink{}, pkt); err == nil {
		t.Error("expected decode error for garbage JPEG")
	}
}

func TestHandlePacketCountsDecodeFailures(t *testing.T) {
	stats := NewIngestStats()
	l := NewUDPListener(UDPListenerConfig{Stats: stats, Sink: &collectSink{}})

	if err := l.handlePacket([]byte("garbage datagram")); err == nil {
		t.Fatal("expected error for garbage datagram")
	}
	packets, _, _ := stats.Snapshot()
	if packets != 1 {
		t.Errorf("packets = %d, want 1", packets)
	}
}

func TestIngestStats(t *testing.T) {
	stats := NewIngestStats()
	stats.AddPacket(100)
	stats.AddPacket(50)
	stats.AddDecodeError()

	packets, bytes, decodeErrors := stats.Snapshot()
	if packets != 2 || bytes != 150 || decodeErrors != 1 {
		t.Errorf("snapshot = (%d, %d, %d), want (2, 150, 1)", packets, bytes, decodeErrors)
	}
}
