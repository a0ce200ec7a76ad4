package bev

import (
	"fmt"
	"image"
	"image/color"
)

// Image is a 3-channel 8-bit pixel buffer in BGR channel order, the wire
// format the cameras deliver. Rows are stored top to bottom with an explicit
// stride so sub-images and decoded buffers can share backing storage.
type Image struct {
	Width  int
	Height int
	Stride int // bytes per row, >= Width*3
	Pix    []uint8
}

// NewImage allocates a tightly packed Width x Height image. All pixels start
// at the background value (zero).
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Stride: width * 3,
		Pix:    make([]uint8, width*height*3),
	}
}

// PixOffset returns the index of the first byte (blue channel) of the pixel
// at (x, y).
func (im *Image) PixOffset(x, y int) int {
	return y*im.Stride + x*3
}

// BGR returns the channel values of the pixel at (x, y). The caller is
// responsible for bounds.
func (im *Image) BGR(x, y int) (b, g, r uint8) {
	i := im.PixOffset(x, y)
	return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
}

// SetBGR sets the pixel at (x, y). The caller is responsible for bounds.
func (im *Image) SetBGR(x, y int, b, g, r uint8) {
	i := im.PixOffset(x, y)
	im.Pix[i] = b
	im.Pix[i+1] = g
	im.Pix[i+2] = r
}

// IsBackground reports whether the pixel at (x, y) holds the background
// value on all three channels.
func (im *Image) IsBackground(x, y int) bool {
	i := im.PixOffset(x, y)
	return im.Pix[i] == 0 && im.Pix[i+1] == 0 && im.Pix[i+2] == 0
}

// Clone returns a tightly packed copy of the image.
func (im *Image) Clone() *Image {
	out := NewImage(im.Width, im.Height)
	for y := 0; y < im.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+im.Width*3], im.Pix[y*im.Stride:y*im.Stride+im.Width*3])
	}
	return out
}

// Validate checks the buffer geometry against the declared dimensions.
func (im *Image) Validate() error {
	if im.Width <= 0 || im.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", im.Width, im.Height)
	}
	if im.Stride < im.Width*3 {
		return fmt.Errorf("stride %d too small for width %d", im.Stride, im.Width)
	}
	if need := (im.Height-1)*im.Stride + im.Width*3; len(im.Pix) < need {
		return fmt.Errorf("pixel buffer %d bytes, need %d", len(im.Pix), need)
	}
	return nil
}

// ToRGBA converts the buffer to a stdlib image for PNG/JPEG encoding.
func (im *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			b, g, r := im.BGR(x, y)
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}

// FromImage converts a decoded stdlib image into the BGR buffer form.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.SetBGR(x, y, uint8(b>>8), uint8(g>>8), uint8(r>>8))
		}
	}
	return out
}
