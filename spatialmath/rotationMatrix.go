// Package spatialmath defines the rotation and pose primitives used to place
// sampled perspective cameras in the world frame of their source panorama.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// RotationMatrix is a 3x3 matrix in row major order.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of floats in row major order.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	mat := [9]float64{m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]}
	return &RotationMatrix{mat}, nil
}

// NewRotationMatrixAboutX returns the rotation matrix for an angle in radians about the X axis.
func NewRotationMatrixAboutX(angle float64) *RotationMatrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return &RotationMatrix{[9]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}}
}

// NewRotationMatrixAboutY returns the rotation matrix for an angle in radians about the Y axis.
func NewRotationMatrixAboutY(angle float64) *RotationMatrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return &RotationMatrix{[9]float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}}
}

// NewRotationMatrixAboutZ returns the rotation matrix for an angle in radians about the Z axis.
func NewRotationMatrixAboutZ(angle float64) *RotationMatrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return &RotationMatrix{[9]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}}
}

// NewRotationMatrixFromEulerXYZ builds a rotation from intrinsic rotations applied
// in X, Y, Z order, i.e. Rx(x) * Ry(y) * Rz(z).
func NewRotationMatrixFromEulerXYZ(x, y, z float64) *RotationMatrix {
	return MatMul(MatMul(NewRotationMatrixAboutX(x), NewRotationMatrixAboutY(y)), NewRotationMatrixAboutZ(z))
}

// MatMul returns the product a * b.
func MatMul(a, b *RotationMatrix) *RotationMatrix {
	var out [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += a.mat[i*3+k] * b.mat[k*3+j]
			}
			out[i*3+j] = sum
		}
	}
	return &RotationMatrix{out}
}

// At returns the value of the matrix at a given row, column index.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Row returns the a vector with the given row of the matrix.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[row*3], Y: rm.mat[row*3+1], Z: rm.mat[row*3+2]}
}

// Transpose returns the transpose of the matrix; for a rotation this is its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	return &RotationMatrix{[9]float64{
		rm.mat[0], rm.mat[3], rm.mat[6],
		rm.mat[1], rm.mat[4], rm.mat[7],
		rm.mat[2], rm.mat[5], rm.mat[8],
	}}
}

// Rotate applies the rotation to the given vector.
func (rm *RotationMatrix) Rotate(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: rm.mat[0]*v.X + rm.mat[1]*v.Y + rm.mat[2]*v.Z,
		Y: rm.mat[3]*v.X + rm.mat[4]*v.Y + rm.mat[5]*v.Z,
		Z: rm.mat[6]*v.X + rm.mat[7]*v.Y + rm.mat[8]*v.Z,
	}
}

// RawMatrix returns the row major contents of the matrix.
func (rm *RotationMatrix) RawMatrix() []float64 {
	out := make([]float64, 9)
	copy(out, rm.mat[:])
	return out
}
