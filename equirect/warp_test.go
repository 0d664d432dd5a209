package equirect

import (
	"image"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/lanternscene/panoplanar/rimage"
)

// gradientPano builds an equirectangular test card whose red channel encodes
// longitude and green channel latitude.
func gradientPano(w, h int) *rimage.Image {
	img := rimage.NewImage(w, h, 3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, 0, float32(x)/float32(w-1))
			img.Set(x, y, 1, float32(y)/float32(h-1))
		}
	}
	return img
}

func TestWarpInputValidation(t *testing.T) {
	pw := NewPerspectiveWarper()
	_, err := pw.Warp(nil, Rotation{}, 120, image.Pt(8, 8), true)
	test.That(t, err, test.ShouldNotBeNil)

	src := gradientPano(32, 16)
	_, err = pw.Warp(src, Rotation{}, 120, image.Pt(0, 8), true)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = pw.Warp(src, Rotation{}, 200, image.Pt(8, 8), true)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWarpForwardCenter(t *testing.T) {
	pw := NewPerspectiveWarper()
	src := gradientPano(256, 128)

	out, err := pw.Warp(src, Rotation{}, 90, image.Pt(65, 65), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Width(), test.ShouldEqual, 65)
	test.That(t, out.Channels(), test.ShouldEqual, 3)

	// the view center looks along the forward axis: panorama center
	test.That(t, float64(out.Get(32, 32, 0)), test.ShouldAlmostEqual, 0.5, 0.02)
	test.That(t, float64(out.Get(32, 32, 1)), test.ShouldAlmostEqual, 0.5, 0.02)
}

func TestWarpYawShiftsLongitude(t *testing.T) {
	pw := NewPerspectiveWarper()
	src := gradientPano(256, 128)

	// yaw of +90 degrees recenters the view a quarter turn east
	out, err := pw.Warp(src, Rotation{Yaw: math.Pi / 2}, 90, image.Pt(65, 65), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, float64(out.Get(32, 32, 0)), test.ShouldAlmostEqual, 0.75, 0.02)
	test.That(t, float64(out.Get(32, 32, 1)), test.ShouldAlmostEqual, 0.5, 0.02)
}

func TestWarpPitchShiftsLatitude(t *testing.T) {
	pw := NewPerspectiveWarper()
	src := gradientPano(256, 128)

	// positive pitch looks up, toward smaller latitude rows
	up, err := pw.Warp(src, Rotation{Pitch: math.Pi / 4}, 90, image.Pt(65, 65), true)
	test.That(t, err, test.ShouldBeNil)
	down, err := pw.Warp(src, Rotation{Pitch: -math.Pi / 4}, 90, image.Pt(65, 65), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, float64(up.Get(32, 32, 1)), test.ShouldBeLessThan, 0.5)
	test.That(t, float64(down.Get(32, 32, 1)), test.ShouldBeGreaterThan, 0.5)
	test.That(t, float64(up.Get(32, 32, 1)), test.ShouldAlmostEqual, 0.25, 0.02)
	test.That(t, float64(down.Get(32, 32, 1)), test.ShouldAlmostEqual, 0.75, 0.02)
}

func TestWarpClipBehavior(t *testing.T) {
	pw := NewPerspectiveWarper()
	src := rimage.NewImage(64, 32, 1)
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, 0, 5.5)
		}
	}

	clipped, err := pw.Warp(src, Rotation{}, 90, image.Pt(16, 16), true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, clipped.Get(8, 8, 0), test.ShouldEqual, float32(1))

	radiance, err := pw.Warp(src, Rotation{}, 90, image.Pt(16, 16), false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, radiance.Get(8, 8, 0), test.ShouldEqual, float32(5.5))
}

func TestWarpSeamWraps(t *testing.T) {
	pw := NewPerspectiveWarper()
	src := rimage.NewImage(64, 32, 1)
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, 0, 0.5)
		}
	}

	// looking backward crosses the horizontal seam; a constant panorama must
	// stay constant there
	out, err := pw.Warp(src, Rotation{Yaw: math.Pi}, 120, image.Pt(33, 33), false)
	test.That(t, err, test.ShouldBeNil)
	for v := 0; v < 33; v++ {
		for u := 0; u < 33; u++ {
			test.That(t, float64(out.Get(u, v, 0)), test.ShouldAlmostEqual, 0.5, 1e-5)
		}
	}
}
