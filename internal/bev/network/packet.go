// Package network receives camera image and camera-info packets over UDP
// and feeds them into the frame synchronizer. A replay reader reproduces
// the same flow from recorded pcap files.
package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Wire format, big-endian throughout:
//
//	[4]byte  magic "BEV1"
//	byte     packet type (1 image, 2 camera info)
//	byte     camera name length, followed by the name
//	byte     frame id length, followed by the frame id
//	int64    capture time, unix nanoseconds
//	payload  image: JPEG bytes to end of datagram
//	         info:  9 float64, row-major intrinsic matrix
//
// Images travel JPEG-compressed so a full camera frame fits in a single
// datagram.

const (
	headerMagic = "BEV1"

	// minPacketLen is magic + type + two zero-length strings + timestamp.
	minPacketLen = 4 + 1 + 1 + 1 + 8
)

// PacketType discriminates the two message kinds on the wire.
type PacketType byte

const (
	PacketImage PacketType = 1
	PacketInfo  PacketType = 2
)

var (
	ErrBadMagic    = errors.New("bad packet magic")
	ErrTruncated   = errors.New("truncated packet")
	ErrBadType     = errors.New("unknown packet type")
	ErrBadInfoSize = errors.New("camera info payload must be 9 float64 values")
)

// Packet is a decoded wire message. JPEG is set for image packets, K for
// camera-info packets.
type Packet struct {
	Type   PacketType
	Camera string // configured camera name
	Frame  string // camera optical frame id
	At     time.Time
	JPEG   []byte
	K      []float64
}

// EncodeImagePacket serialises a JPEG-compressed camera frame.
func EncodeImagePacket(camera, frame string, at time.Time, jpeg []byte) ([]byte, error) {
	buf, err := encodeHeader(PacketImage, camera, frame, at, len(jpeg))
	if err != nil {
		return nil, err
	}
	return append(buf, jpeg...), nil
}

// EncodeInfoPacket serialises a camera's intrinsic matrix.
func EncodeInfoPacket(camera, frame string, at time.Time, k []float64) ([]byte, error) {
	if len(k) != 9 {
		return nil, ErrBadInfoSize
	}
	buf, err := encodeHeader(PacketInfo, camera, frame, at, 9*8)
	if err != nil {
		return nil, err
	}
	for _, v := range k {
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf, nil
}

func encodeHeader(t PacketType, camera, frame string, at time.Time, payloadLen int) ([]byte, error) {
	if len(camera) > 255 || len(frame) > 255 {
		return nil, fmt.Errorf("camera or frame name exceeds 255 bytes")
	}
	buf := make([]byte, 0, minPacketLen+len(camera)+len(frame)+payloadLen)
	buf = append(buf, headerMagic...)
	buf = append(buf, byte(t))
	buf = append(buf, byte(len(camera)))
	buf = append(buf, camera...)
	buf = append(buf, byte(len(frame)))
	buf = append(buf, frame...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(at.UnixNano()))
	return buf, nil
}

// DecodePacket parses a datagram. The returned Packet does not alias the
// input buffer, so callers may reuse their read buffer.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < minPacketLen {
		return nil, ErrTruncated
	}
	if string(data[:4]) != headerMagic {
		return nil, ErrBadMagic
	}
	t := PacketType(data[4])
	rest := data[5:]

	camera, rest, err := readString(rest)
	if err != nil {
		return nil, err
	}
	frame, rest, err := readString(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) < 8 {
		return nil, ErrTruncated
	}
	at := time.Unix(0, int64(binary.BigEndian.Uint64(rest[:8])))
	payload := rest[8:]

	p := &Packet{Type: t, Camera: camera, Frame: frame, At: at}
	switch t {
	case PacketImage:
		p.JPEG = append([]byte(nil), payload...)
	case PacketInfo:
		if len(payload) != 9*8 {
			return nil, ErrBadInfoSize
		}
		p.K = make([]float64, 9)
		for i := range p.K {
			p.K[i] = math.Float64frombits(binary.BigEndian.Uint64(payload[i*8:]))
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrBadType, t)
	}
	return p, nil
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 1 {
		return "", nil, ErrTruncated
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", nil, ErrTruncated
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}
