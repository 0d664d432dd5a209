// Package rimage defines the raster type the reprojection pipeline works on and
// codecs for reading and writing it.
//
// All pixel data is held as float32 samples. Display-range sources (PNG, JPEG,
// TIFF) are normalized to [0,1] on load; radiance sources (EXR) are loaded
// unscaled so values outside [0,1] survive the round trip.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/lanternscene/panoplanar/utils"
)

// Image is a float raster with one or more channels, interleaved row major.
type Image struct {
	width    int
	height   int
	channels int
	data     []float32
}

// NewImage returns a zeroed image of the given dimensions.
func NewImage(width, height, channels int) *Image {
	return &Image{
		width:    width,
		height:   height,
		channels: channels,
		data:     make([]float32, width*height*channels),
	}
}

func (i *Image) k(x, y, c int) int {
	return (y*i.width+x)*i.channels + c
}

// Width returns the horizontal size of the image.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical size of the image.
func (i *Image) Height() int {
	return i.height
}

// Channels returns the number of channels per pixel.
func (i *Image) Channels() int {
	return i.channels
}

// Bounds returns the rectangle covered by the image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// In reports whether the pixel coordinate lies inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Get returns one sample.
func (i *Image) Get(x, y, c int) float32 {
	return i.data[i.k(x, y, c)]
}

// Set assigns one sample.
func (i *Image) Set(x, y, c int, v float32) {
	i.data[i.k(x, y, c)] = v
}

// Clone returns a deep copy of the image.
func (i *Image) Clone() *Image {
	out := NewImage(i.width, i.height, i.channels)
	copy(out.data, i.data)
	return out
}

// Scale multiplies every sample by f in place and returns the image.
func (i *Image) Scale(f float32) *Image {
	for k := range i.data {
		i.data[k] *= f
	}
	return i
}

// Clamp limits every sample to [min, max] in place and returns the image.
func (i *Image) Clamp(min, max float32) *Image {
	for k := range i.data {
		i.data[k] = float32(utils.Clamp(float64(i.data[k]), float64(min), float64(max)))
	}
	return i
}

// Plane extracts a single channel as a new one-channel image.
func (i *Image) Plane(c int) (*Image, error) {
	if c < 0 || c >= i.channels {
		return nil, errors.Errorf("channel %d out of range, image has %d", c, i.channels)
	}
	out := NewImage(i.width, i.height, 1)
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			out.Set(x, y, 0, i.Get(x, y, c))
		}
	}
	return out, nil
}

// ConvertImage converts a Go image into a float raster with samples in [0,1].
// Color sources become three channels, grayscale sources one.
func ConvertImage(img image.Image) *Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if g, ok := img.(*image.Gray); ok {
		out := NewImage(w, h, 1)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(x, y, 0, float32(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)/255)
			}
		}
		return out
	}
	out := NewImage(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(x, y, 0, float32(r)/65535)
			out.Set(x, y, 1, float32(g)/65535)
			out.Set(x, y, 2, float32(bl)/65535)
		}
	}
	return out
}

// ToGoImage renders the raster as an 8-bit Go image, treating samples as [0,1]
// display values. One channel becomes grayscale, anything else NRGBA.
func (i *Image) ToGoImage() image.Image {
	to8 := func(v float32) uint8 {
		return uint8(utils.Clamp(float64(v)*255+0.5, 0, 255))
	}
	if i.channels == 1 {
		out := image.NewGray(i.Bounds())
		for y := 0; y < i.height; y++ {
			for x := 0; x < i.width; x++ {
				out.SetGray(x, y, color.Gray{to8(i.Get(x, y, 0))})
			}
		}
		return out
	}
	out := image.NewNRGBA(i.Bounds())
	for y := 0; y < i.height; y++ {
		for x := 0; x < i.width; x++ {
			px := color.NRGBA{A: 255}
			px.R = to8(i.Get(x, y, 0))
			if i.channels > 1 {
				px.G = to8(i.Get(x, y, 1))
			}
			if i.channels > 2 {
				px.B = to8(i.Get(x, y, 2))
			}
			out.SetNRGBA(x, y, px)
		}
	}
	return out
}
