package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rigid transform: a rotation paired with a translation. It places a
// camera (or any frame) in world coordinates.
type Pose struct {
	Rotation    *RotationMatrix
	Translation r3.Vector
}

// NewPose creates a pose from a translation and a rotation.
func NewPose(t r3.Vector, r *RotationMatrix) *Pose {
	return &Pose{Rotation: r, Translation: t}
}

// NewZeroPose returns a pose with no rotation and no translation.
func NewZeroPose() *Pose {
	rm, _ := NewRotationMatrix([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	return &Pose{Rotation: rm}
}

// NewPoseFromTransformMatrix creates a pose from a 4x4 homogeneous transform matrix.
func NewPoseFromTransformMatrix(tm *mat.Dense) (*Pose, error) {
	r, c := tm.Dims()
	if r != 4 || c != 4 {
		return nil, errors.Errorf("pose transform matrix must be 4x4, got %dx%d", r, c)
	}
	rot := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot = append(rot, tm.At(i, j))
		}
	}
	rm, err := NewRotationMatrix(rot)
	if err != nil {
		return nil, err
	}
	t := r3.Vector{X: tm.At(0, 3), Y: tm.At(1, 3), Z: tm.At(2, 3)}
	return NewPose(t, rm), nil
}

// TransformMatrix returns the pose as a 4x4 homogeneous transform matrix.
func (p *Pose) TransformMatrix() *mat.Dense {
	tm := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			tm.Set(i, j, p.Rotation.At(i, j))
		}
	}
	tm.Set(0, 3, p.Translation.X)
	tm.Set(1, 3, p.Translation.Y)
	tm.Set(2, 3, p.Translation.Z)
	tm.Set(3, 3, 1)
	return tm
}
