package dataset

import (
	"strings"

	"github.com/lanternscene/panoplanar/equirect"
	"github.com/lanternscene/panoplanar/spatialmath"
	"github.com/lanternscene/panoplanar/utils"
)

// Default exposure tagging: panoramas whose stem carries the marker prefix
// were captured at the reduced exposure, everything else at 1.0.
const (
	DefaultExposureMarker  = "rhs"
	DefaultReducedExposure = 0.009
)

// DeriveViewPose computes the world pose of the perspective camera that samples
// the given direction out of a panorama with the given world pose. The sampling
// rotation (pitch, -yaw, 0) in intrinsic XYZ order is inverted and composed
// onto the panorama's rotation; the translation is the panorama's own, since
// every view shares the panorama's optical center and differs in orientation
// only.
func DeriveViewPose(pano *spatialmath.Pose, dir equirect.SampleDirection) *spatialmath.Pose {
	sampling := spatialmath.NewRotationMatrixFromEulerXYZ(
		utils.DegToRad(dir.Pitch),
		-utils.DegToRad(dir.Yaw),
		0,
	)
	rot := spatialmath.MatMul(pano.Rotation, sampling.Transpose())
	return spatialmath.NewPose(pano.Translation, rot)
}

// ExposureForStem returns the exposure scalar for a panorama stem under the
// prefix convention.
func ExposureForStem(stem, marker string, reduced float64) float64 {
	if marker != "" && strings.HasPrefix(stem, marker) {
		return reduced
	}
	return 1.0
}
