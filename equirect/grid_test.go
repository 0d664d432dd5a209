package equirect

import (
	"testing"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
	"go.viam.com/test"
)

func TestBuildSampleGridPreset8(t *testing.T) {
	grid := BuildSampleGrid(8, CropFactor{}, golog.NewTestLogger(t))
	test.That(t, grid.FOV, test.ShouldEqual, 120.0)
	test.That(t, grid.Directions, test.ShouldResemble, []SampleDirection{
		{-180, 0}, {-90, 0}, {0, 0}, {90, 0},
		{-180, 45}, {0, 45},
		{-180, -45}, {0, -45},
	})
}

func TestBuildSampleGridPreset14(t *testing.T) {
	grid := BuildSampleGrid(14, CropFactor{}, golog.NewTestLogger(t))
	test.That(t, grid.FOV, test.ShouldEqual, 110.0)
	test.That(t, grid.Directions, test.ShouldResemble, []SampleDirection{
		{-180, 0}, {-120, 0}, {-60, 0}, {0, 0}, {60, 0}, {120, 0},
		{-180, 45}, {-90, 45}, {0, 45}, {90, 45},
		{-180, -45}, {-90, -45}, {0, -45}, {90, -45},
	})
}

func TestBuildSampleGridHorizontalCrop(t *testing.T) {
	grid := BuildSampleGrid(8, CropFactor{Left: 0.25, Right: 0.25}, golog.NewTestLogger(t))
	// bounds shrink to [-90, 90): middle ring keeps -90 and 0, outer rings keep -90
	test.That(t, grid.Directions, test.ShouldResemble, []SampleDirection{
		{-90, 0}, {0, 0},
		{-90, 45},
		{-90, -45},
	})
}

func TestBuildSampleGridRemovedRing(t *testing.T) {
	// bottom crop of 0.75 removes the upper and middle rings entirely
	grid := BuildSampleGrid(8, CropFactor{Bottom: 0.75}, golog.NewTestLogger(t))
	for _, dir := range grid.Directions {
		test.That(t, dir.Pitch, test.ShouldAlmostEqual, -105, 1e-9)
	}
	test.That(t, len(grid.Directions), test.ShouldEqual, 2)
}

func TestBuildSampleGridUnsupportedPreset(t *testing.T) {
	// anything besides 8 or 14 samples nothing
	logger, logs := golog.NewObservedTestLogger(t)
	grid := BuildSampleGrid(10, CropFactor{}, logger)
	test.That(t, grid.Directions, test.ShouldBeEmpty)
	test.That(t, grid.FOV, test.ShouldEqual, 0.0)
	test.That(t, len(logs.FilterField(zap.Int64("preset", 10)).All()), test.ShouldBeGreaterThanOrEqualTo, 1)

	grid = BuildSampleGrid(10, CropFactor{}, nil)
	test.That(t, grid.Directions, test.ShouldBeEmpty)
}
