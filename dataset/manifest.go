// Package dataset turns directories of equirectangular panoramas into planar
// perspective datasets: it resolves companion files, drives the reprojector
// over every panorama, derives per-view camera poses in ground-truth mode, and
// persists the transforms manifest consumed by downstream reconstruction
// tooling.
package dataset

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/lanternscene/panoplanar/spatialmath"
	"github.com/lanternscene/panoplanar/transform"
)

// CameraModelPerspective tags manifests whose frames are plain pinhole views.
const CameraModelPerspective = "OPENCV"

// Frame is one perspective view in a manifest: its image path, its
// camera-to-world transform, and optional mask path and exposure scalar.
type Frame struct {
	FilePath        string      `json:"file_path"`
	TransformMatrix [][]float64 `json:"transform_matrix"`
	MaskPath        string      `json:"mask_path,omitempty"`
	Exposure        *float64    `json:"exposure,omitempty"`
}

// NewFrame builds a frame from an image path and a world pose.
func NewFrame(path string, pose *spatialmath.Pose) Frame {
	tm := pose.TransformMatrix()
	rows := make([][]float64, 4)
	for i := 0; i < 4; i++ {
		rows[i] = make([]float64, 4)
		for j := 0; j < 4; j++ {
			rows[i][j] = tm.At(i, j)
		}
	}
	return Frame{FilePath: path, TransformMatrix: rows}
}

// Pose converts the frame's transform matrix back into a pose.
func (f *Frame) Pose() (*spatialmath.Pose, error) {
	if len(f.TransformMatrix) != 4 {
		return nil, errors.Errorf("frame %q has %d transform rows, need 4", f.FilePath, len(f.TransformMatrix))
	}
	flat := make([]float64, 0, 16)
	for i, row := range f.TransformMatrix {
		if len(row) != 4 {
			return nil, errors.Errorf("frame %q transform row %d has %d values, need 4", f.FilePath, i, len(row))
		}
		flat = append(flat, row...)
	}
	return spatialmath.NewPoseFromTransformMatrix(mat.NewDense(4, 4, flat))
}

// Manifest is the dataset document: shared pinhole intrinsics plus the ordered
// frame list.
type Manifest struct {
	FlX         float64 `json:"fl_x"`
	FlY         float64 `json:"fl_y"`
	Cx          float64 `json:"cx"`
	Cy          float64 `json:"cy"`
	W           int     `json:"w"`
	H           int     `json:"h"`
	CameraModel string  `json:"camera_model"`
	Frames      []Frame `json:"frames"`
}

// NewManifest starts a manifest with shared intrinsics and no frames.
func NewManifest(intrinsics *transform.PinholeCameraIntrinsics) (*Manifest, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return &Manifest{
		FlX:         intrinsics.Fx,
		FlY:         intrinsics.Fy,
		Cx:          intrinsics.Ppx,
		Cy:          intrinsics.Ppy,
		W:           intrinsics.Width,
		H:           intrinsics.Height,
		CameraModel: CameraModelPerspective,
	}, nil
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	b, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadManifest reads a manifest document. Unknown fields are ignored, which
// also makes it the reader for ground-truth input metadata.
func LoadManifest(path string) (*Manifest, error) {
	//nolint:gosec
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read manifest %q", path)
	}
	m := &Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, errors.Wrapf(err, "cannot parse manifest %q", path)
	}
	return m, nil
}

// PanoramaPoses indexes the manifest's frames by file path, decoding each
// transform into a pose. Ground-truth input metadata keys frames by panorama
// stem, so lookups during processing use the source file's stem.
func (m *Manifest) PanoramaPoses() (map[string]*spatialmath.Pose, error) {
	out := make(map[string]*spatialmath.Pose, len(m.Frames))
	for i := range m.Frames {
		pose, err := m.Frames[i].Pose()
		if err != nil {
			return nil, err
		}
		out[m.Frames[i].FilePath] = pose
	}
	return out, nil
}
