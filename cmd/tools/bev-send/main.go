// Command bev-send streams synthetic camera packets at the service.
//
// It renders simple moving-gradient frames for each configured camera,
// encodes them as image and calibration packets, and sends them over UDP.
// With -pcap-out the same packets are also written to a capture file that
// cmd/tools/bev-replay and the service's -replay flag can consume.
//
// Usage:
//
//	go run ./cmd/tools/bev-send -config bev.json [flags]
package main

import (
	"bytes"
	"flag"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/bev.report/internal/bev"
	"github.com/banshee-data/bev.report/internal/bev/network"
)

var (
	configPath = flag.String("config", "bev.json", "Path to the JSON service configuration")
	target     = flag.String("target", "localhost:5600", "UDP address to send packets to")
	rate       = flag.Float64("rate", 10, "Frame rate in Hz")
	imgWidth   = flag.Int("img-width", 320, "Synthetic image width in pixels")
	imgHeight  = flag.Int("img-height", 240, "Synthetic image height in pixels")
	focal      = flag.Float64("focal", 250, "Synthetic focal length in pixels")
	pcapOut    = flag.String("pcap-out", "", "Also write sent packets to this pcap file")
	frameLimit = flag.Int("frames", 0, "Stop after this many frames per camera (0 = run until interrupted)")
)

func main() {
	flag.Parse()

	cfg, err := bev.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cameras := cfg.Cameras()

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("Failed to resolve target address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("Failed to dial target: %v", err)
	}
	defer conn.Close()

	var capture *captureWriter
	if *pcapOut != "" {
		capture, err = newCaptureWriter(*pcapOut, addr.Port)
		if err != nil {
			log.Fatalf("Failed to open capture file: %v", err)
		}
		defer capture.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Duration(float64(time.Second) / *rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Intrinsics shared by every synthetic camera: principal point at the
	// image center.
	k := []float64{
		*focal, 0, float64(*imgWidth) / 2,
		0, *focal, float64(*imgHeight) / 2,
		0, 0, 1,
	}

	log.Printf("Sending %d synthetic cameras to %s at %.1f Hz", len(cameras), *target, *rate)

	frame := 0
	for {
		select {
		case <-sigCh:
			log.Printf("Interrupted after %d frames", frame)
			return
		case <-ticker.C:
		}

		now := time.Now()
		for i, cam := range cameras {
			optical := cam + "_optical"
			jpg, err := renderJPEG(*imgWidth, *imgHeight, frame, i)
			if err != nil {
				log.Fatalf("Failed to encode synthetic frame: %v", err)
			}

			imgPkt, err := network.EncodeImagePacket(cam, optical, now, jpg)
			if err != nil {
				log.Fatalf("Failed to encode image packet: %v", err)
			}
			infoPkt, err := network.EncodeInfoPacket(cam, optical, now, k)
			if err != nil {
				log.Fatalf("Failed to encode info packet: %v", err)
			}

			for _, pkt := range [][]byte{imgPkt, infoPkt} {
				if _, err := conn.Write(pkt); err != nil {
					log.Printf("Send error: %v", err)
				}
				if capture != nil {
					if err := capture.Write(pkt, now); err != nil {
						log.Printf("Capture write error: %v", err)
					}
				}
			}
		}

		frame++
		if frame%100 == 0 {
			log.Printf("Sent %d frames per camera", frame)
		}
		if *frameLimit > 0 && frame >= *frameLimit {
			log.Printf("Done: sent %d frames per camera", frame)
			return
		}
	}
}

// renderJPEG draws a moving diagonal gradient so consecutive frames differ
// and each camera is visually distinct in the composite.
func renderJPEG(w, h, frame, camera int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + frame*4) % 256),
				G: uint8((y + frame*2) % 256),
				B: uint8(80 * (camera + 1) % 256),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// captureWriter writes sent datagrams to a pcap file with synthetic
// ethernet/IP/UDP framing so replay tooling sees the same wire shape the
// service does.
type captureWriter struct {
	f    *os.File
	w    *pcapgo.Writer
	port int
}

func newCaptureWriter(path string, port int) (*captureWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, err
	}
	return &captureWriter{f: f, w: w, port: port}, nil
}

func (c *captureWriter) Write(payload []byte, at time.Time) error {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(127, 0, 0, 1),
		DstIP:    net.IPv4(127, 0, 0, 1),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(40000),
		DstPort: layers.UDPPort(c.port),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return err
	}
	data := buf.Bytes()
	return c.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     at,
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}

func (c *captureWriter) Close() error {
	return c.f.Close()
}
