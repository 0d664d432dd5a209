package equirect

import (
	"image"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/lanternscene/panoplanar/rimage"
	"github.com/lanternscene/panoplanar/spatialmath"
)

// Rotation orients a perspective view relative to the panorama's forward axis.
// Angles are radians.
type Rotation struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Warper resamples an equirectangular raster into a pinhole view. The fov is
// the horizontal field of view in degrees and size the output raster size.
// With clip set, samples are clamped to [0,1] after resampling; without it,
// radiance values pass through untouched. Implementations are synchronous;
// an accelerated backend can be substituted without the callers noticing.
type Warper interface {
	Warp(src *rimage.Image, rot Rotation, fovDeg float64, size image.Point, clip bool) (*rimage.Image, error)
}

// PerspectiveWarper is the CPU reference Warper. For every output pixel it
// builds the pinhole ray, rotates it by yaw, pitch and roll, converts the
// rotated ray to longitude/latitude, and bilinearly samples the panorama with
// horizontal wraparound.
type PerspectiveWarper struct{}

// NewPerspectiveWarper returns the CPU reference warper.
func NewPerspectiveWarper() *PerspectiveWarper {
	return &PerspectiveWarper{}
}

// Warp implements Warper.
func (pw *PerspectiveWarper) Warp(
	src *rimage.Image, rot Rotation, fovDeg float64, size image.Point, clip bool,
) (*rimage.Image, error) {
	if src == nil {
		return nil, errors.New("source image is nil")
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("invalid output size %v", size)
	}
	if fovDeg <= 0 || fovDeg >= 180 {
		return nil, errors.Errorf("field of view %v degrees is outside (0, 180)", fovDeg)
	}

	// camera frame: +Z forward, +X right, +Y down (image convention)
	focal := float64(size.X) / 2 / math.Tan(fovDeg*math.Pi/360)
	rm := spatialmath.MatMul(
		spatialmath.MatMul(
			spatialmath.NewRotationMatrixAboutY(rot.Yaw),
			spatialmath.NewRotationMatrixAboutX(rot.Pitch),
		),
		spatialmath.NewRotationMatrixAboutZ(rot.Roll),
	)

	srcW, srcH := src.Width(), src.Height()
	out := rimage.NewImage(size.X, size.Y, src.Channels())
	for v := 0; v < size.Y; v++ {
		for u := 0; u < size.X; u++ {
			ray := rm.Rotate(rayThroughPixel(u, v, size, focal))
			lon := math.Atan2(ray.X, ray.Z)
			lat := math.Asin(ray.Y / ray.Norm())

			// map [-pi, pi) x [-pi/2, pi/2] onto source pixels
			x := (lon + math.Pi) / (2 * math.Pi) * float64(srcW)
			y := (lat + math.Pi/2) / math.Pi * float64(srcH-1)
			bilinearSample(src, out, u, v, x, y)
		}
	}
	if clip {
		out.Clamp(0, 1)
	}
	return out, nil
}

func rayThroughPixel(u, v int, size image.Point, focal float64) r3.Vector {
	return r3.Vector{
		X: float64(u) + 0.5 - float64(size.X)/2,
		Y: float64(v) + 0.5 - float64(size.Y)/2,
		Z: focal,
	}
}

// bilinearSample writes into out(u,v) the bilinear interpolation of src at the
// fractional source position (x, y). x wraps around the horizontal seam, y is
// clamped at the poles.
func bilinearSample(src, out *rimage.Image, u, v int, x, y float64) {
	x0 := math.Floor(x - 0.5)
	y0 := math.Floor(y)
	fx := (x - 0.5) - x0
	fy := y - y0

	w, h := src.Width(), src.Height()
	wrapX := func(xi int) int {
		xi %= w
		if xi < 0 {
			xi += w
		}
		return xi
	}
	clampY := func(yi int) int {
		if yi < 0 {
			return 0
		}
		if yi >= h {
			return h - 1
		}
		return yi
	}
	xa, xb := wrapX(int(x0)), wrapX(int(x0)+1)
	ya, yb := clampY(int(y0)), clampY(int(y0)+1)

	for c := 0; c < src.Channels(); c++ {
		top := float64(src.Get(xa, ya, c))*(1-fx) + float64(src.Get(xb, ya, c))*fx
		bot := float64(src.Get(xa, yb, c))*(1-fx) + float64(src.Get(xb, yb, c))*fx
		out.Set(u, v, c, float32(top*(1-fy)+bot*fy))
	}
}
