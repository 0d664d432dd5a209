package equirect

import (
	"github.com/edaniels/golog"
)

// SampleDirection is one perspective view to render: a yaw/pitch pair in
// degrees, centered on the panorama's forward axis.
type SampleDirection struct {
	Yaw   float64
	Pitch float64
}

// ring indices within RingBounds.
const (
	ringLower  = 0
	ringMiddle = 1
	ringUpper  = 2
)

// presets maps the supported samples-per-panorama values to the field of view
// and per-ring yaw steps they imply. The middle ring is sampled at the finer
// step, the upper and lower rings at the coarser one.
var presets = map[int]struct {
	fov        float64
	middleStep float64
	outerStep  float64
}{
	8:  {fov: 120, middleStep: 90, outerStep: 180},
	14: {fov: 110, middleStep: 60, outerStep: 90},
}

// SampleGrid is the resolved sampling plan for one run: the ordered direction
// list and the field of view every direction shares.
type SampleGrid struct {
	Directions []SampleDirection
	FOV        float64
}

// BuildSampleGrid expands a preset and crop request into the ordered list of
// sample directions. Emission order is middle ring, then upper, then lower,
// and within a ring yaw ascends from the left bound in the ring's step,
// excluding the right bound; output numbering downstream depends on this
// order. A preset other than 8 or 14 yields an empty grid and a warning.
func BuildSampleGrid(samplesPerImage int, crop CropFactor, logger golog.Logger) SampleGrid {
	leftBound, rightBound := -180.0, 180.0
	if crop.Left > 0 {
		leftBound = -180 + 360*crop.Left
	}
	if crop.Right > 0 {
		rightBound = 180 - 360*crop.Right
	}

	preset, ok := presets[samplesPerImage]
	if !ok {
		if logger != nil {
			logger.Warnw("unsupported samples-per-image preset, no directions will be sampled",
				"preset", samplesPerImage, "supported", []int{8, 14})
		}
		return SampleGrid{}
	}

	bounds := NewRingBounds()
	CropVertical(&bounds, preset.fov, crop)

	grid := SampleGrid{FOV: preset.fov}
	emit := func(ring int, step float64) {
		if bounds[ring].Removed() {
			return
		}
		for yaw := leftBound; yaw < rightBound; yaw += step {
			grid.Directions = append(grid.Directions, SampleDirection{Yaw: yaw, Pitch: bounds[ring].Pitch()})
		}
	}
	emit(ringMiddle, preset.middleStep)
	emit(ringUpper, preset.outerStep)
	emit(ringLower, preset.outerStep)
	return grid
}
