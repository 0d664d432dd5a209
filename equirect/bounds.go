// Package equirect samples perspective views out of equirectangular panoramas:
// it decides which yaw/pitch directions to render, warps every channel of a
// panorama toward those directions, and writes the resulting planar images.
package equirect

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// RingBound is one vertical sampling bound: a pitch angle in degrees, or
// removed once cropping has pushed the whole ring out of frame.
type RingBound struct {
	pitch   float64
	removed bool
}

// NewRingBound returns an active bound at the given pitch in degrees.
func NewRingBound(pitch float64) RingBound {
	return RingBound{pitch: pitch}
}

// Removed reports whether the ring no longer contributes sample directions.
func (rb RingBound) Removed() bool {
	return rb.removed
}

// Pitch returns the bound's pitch in degrees. Calling it on a removed bound
// returns NaN so a misuse cannot silently produce a valid-looking direction.
func (rb RingBound) Pitch() float64 {
	if rb.removed {
		return math.NaN()
	}
	return rb.pitch
}

func (rb RingBound) String() string {
	if rb.removed {
		return "removed"
	}
	return fmt.Sprintf("%.4f°", rb.pitch)
}

// RingBounds are the three vertical sampling bounds, in ascending pitch order
// while active: lower, middle, upper.
type RingBounds [3]RingBound

// NewRingBounds returns the nominal bounds at -45, 0 and 45 degrees.
func NewRingBounds() RingBounds {
	return RingBounds{NewRingBound(-45), NewRingBound(0), NewRingBound(45)}
}

// CropFactor is the portion of the panorama to exclude on each side.
// All values must be in [0, 1].
type CropFactor struct {
	Top    float64
	Bottom float64
	Left   float64
	Right  float64
}

// CheckValid verifies every crop fraction is in [0, 1].
func (cf CropFactor) CheckValid() error {
	for _, v := range []float64{cf.Top, cf.Bottom, cf.Left, cf.Right} {
		if v < 0 || v > 1 {
			return errors.Errorf("invalid crop factor %v, all values must be in [0,1]", v)
		}
	}
	return nil
}

// cropBottom removes or clamps bounds that a bottom crop pushes out of frame.
// Scanning runs from the highest bound downward; the first bound that is only
// partially out is clamped and the clamped difference is redistributed onto
// each lower bound, halved per index step, after which scanning stops.
func cropBottom(bounds *RingBounds, fov, cropFactor float64) {
	degreesChopped := 180 * cropFactor
	newBottomStart := 90 - degreesChopped - fov/2
	for i := len(bounds) - 1; i >= 0; i-- {
		if bounds[i].removed {
			continue
		}
		switch el := bounds[i].pitch; {
		case el > newBottomStart+fov/2:
			bounds[i].removed = true
		case el > newBottomStart:
			diff := el - newBottomStart
			bounds[i].pitch = newBottomStart
			for j := i - 1; j >= 0; j-- {
				bounds[j].pitch -= diff / math.Pow(2, float64(i-j))
			}
			return
		}
	}
}

// cropTop mirrors cropBottom: scan upward, clamp the first partial hit and
// redistribute the difference onto each higher bound.
func cropTop(bounds *RingBounds, fov, cropFactor float64) {
	degreesChopped := 180 * cropFactor
	newTopStart := -90 + degreesChopped + fov/2
	for i := 0; i < len(bounds); i++ {
		if bounds[i].removed {
			continue
		}
		switch el := bounds[i].pitch; {
		case el < newTopStart-fov/2:
			bounds[i].removed = true
		case el < newTopStart:
			diff := newTopStart - el
			bounds[i].pitch = newTopStart
			for j := i + 1; j < len(bounds); j++ {
				bounds[j].pitch += diff / math.Pow(2, float64(j-i))
			}
			return
		}
	}
}

// CropVertical adjusts the bounds for top/bottom cropping. The bottom pass runs
// first and the top pass operates on its output; that ordering is part of the
// contract since redistribution from one pass shifts the bounds the other pass
// sees. Large crops can clip bounds on the far side of the sphere; that is how
// the redistribution behaves and callers depend on it staying that way.
func CropVertical(bounds *RingBounds, fov float64, crop CropFactor) {
	if crop.Bottom > 0 {
		cropBottom(bounds, fov, crop.Bottom)
	}
	if crop.Top > 0 {
		cropTop(bounds, fov, crop.Top)
	}
}
