// Package transform provides the pinhole camera model shared by every
// perspective view sampled from a panorama.
package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/lanternscene/panoplanar/utils"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection
// of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewPinholeCameraIntrinsicsFromFOV derives intrinsics for a view of the given
// size and field of view (degrees). Focal lengths follow the sensor-width
// convention fl = dim / (2 tan(fov/2)) on each axis; the principal point is the
// image center.
func NewPinholeCameraIntrinsicsFromFOV(width, height int, fovDeg float64) (*PinholeCameraIntrinsics, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid view size (%d, %d)", width, height)
	}
	if fovDeg <= 0 || fovDeg >= 180 {
		return nil, errors.Errorf("field of view %v degrees is outside (0, 180)", fovDeg)
	}
	halfTan := 2 * math.Tan(utils.DegToRad(fovDeg)/2)
	return &PinholeCameraIntrinsics{
		Width:  width,
		Height: height,
		Fx:     float64(width) / halfTan,
		Fy:     float64(height) / halfTan,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}, nil
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return errors.Wrap(ErrNoIntrinsics, "intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid size (%#v, %#v)", params.Width, params.Height)
	}
	if params.Fx <= 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length Fx = %#v", params.Fx)
	}
	if params.Fy <= 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length Fy = %#v", params.Fy)
	}
	if params.Ppx < 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid principal X point Ppx = %#v", params.Ppx)
	}
	if params.Ppy < 0 {
		return errors.Wrapf(ErrNoIntrinsics, "invalid principal Y point Ppy = %#v", params.Ppy)
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it
// into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer goutils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, nil
}

func (params *PinholeCameraIntrinsics) String() string {
	return fmt.Sprintf("%dx%d fx: %.2f fy: %.2f ppx: %.2f ppy: %.2f",
		params.Width, params.Height, params.Fx, params.Fy, params.Ppx, params.Ppy)
}
