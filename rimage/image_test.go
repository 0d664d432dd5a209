package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestImageBasics(t *testing.T) {
	img := NewImage(4, 3, 3)
	test.That(t, img.Width(), test.ShouldEqual, 4)
	test.That(t, img.Height(), test.ShouldEqual, 3)
	test.That(t, img.Channels(), test.ShouldEqual, 3)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))

	img.Set(2, 1, 1, 0.5)
	test.That(t, img.Get(2, 1, 1), test.ShouldEqual, float32(0.5))
	test.That(t, img.In(3, 2), test.ShouldBeTrue)
	test.That(t, img.In(4, 0), test.ShouldBeFalse)

	clone := img.Clone()
	clone.Set(2, 1, 1, 0.75)
	test.That(t, img.Get(2, 1, 1), test.ShouldEqual, float32(0.5))
}

func TestScaleClamp(t *testing.T) {
	img := NewImage(2, 1, 1)
	img.Set(0, 0, 0, 0.5)
	img.Set(1, 0, 0, 3)
	img.Scale(2)
	test.That(t, img.Get(0, 0, 0), test.ShouldEqual, float32(1))
	test.That(t, img.Get(1, 0, 0), test.ShouldEqual, float32(6))
	img.Clamp(0, 1)
	test.That(t, img.Get(1, 0, 0), test.ShouldEqual, float32(1))
}

func TestPlane(t *testing.T) {
	img := NewImage(2, 2, 3)
	img.Set(1, 0, 2, 0.25)
	plane, err := img.Plane(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.Channels(), test.ShouldEqual, 1)
	test.That(t, plane.Get(1, 0, 0), test.ShouldEqual, float32(0.25))

	_, err = img.Plane(5)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConvertImageRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 128, B: 0, A: 255})
	img := ConvertImage(src)
	test.That(t, img.Channels(), test.ShouldEqual, 3)
	test.That(t, img.Get(1, 1, 0), test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, img.Get(1, 1, 2), test.ShouldAlmostEqual, 0, 1e-3)

	back := img.ToGoImage()
	r, g, b, _ := back.At(1, 1).RGBA()
	test.That(t, uint8(r>>8), test.ShouldEqual, uint8(255))
	test.That(t, uint8(g>>8), test.ShouldAlmostEqual, uint8(128), 1)
	test.That(t, uint8(b>>8), test.ShouldEqual, uint8(0))
}

func TestConvertGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(0, 1, color.Gray{Y: 51})
	img := ConvertImage(src)
	test.That(t, img.Channels(), test.ShouldEqual, 1)
	test.That(t, img.Get(0, 1, 0), test.ShouldAlmostEqual, 0.2, 1e-6)
}
