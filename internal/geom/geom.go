// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package geom

import (
	"fmt"
	"math"
)

// A 2-dimensional vector with floating point coordinates.
type Vec2 struct {
	X float32
	Y float32
}

// A 3-dimensional vector with floating point coordinates.
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

// A 3x3 matrix in row-major order.
type Mat3 [3][3]float32

func (v Vec2) String() string {
	return fmt.Sprintf("(%.4g, %.4g)", v.X, v.Y)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", v.X, v.Y, v.Z)
}

func Add2(a, b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }

func Sub2(a, b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }

// Returns the squared euclidian norm of the vector
func (v Vec2) NormSqr() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Returns the euclidian norm of the vector
func (v Vec2) Norm() float32 {
	return float32(math.Sqrt(float64(v.NormSqr())))
}

// Returns the angle of the vector against the positive x axis, in [-pi, pi]
func (v Vec2) Angle() float32 {
	return float32(math.Atan2(float64(v.Y), float64(v.X)))
}

func (v Vec3) NormSqr() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Norm() float32 {
	return float32(math.Sqrt(float64(v.NormSqr())))
}

func (v Vec3) Dot(w Vec3) float32 {
	return v.X*w.X + v.Y*w.Y + v.Z*w.Z
}

// Returns the identity matrix
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Returns a matrix translating by (tx, ty) in homogeneous coordinates
func Translation(tx, ty float32) Mat3 {
	return Mat3{{1, 0, tx}, {0, 1, ty}, {0, 0, 1}}
}

// Returns a matrix scaling x and y by s in homogeneous coordinates
func Scaling(s float32) Mat3 {
	return Mat3{{s, 0, 0}, {0, s, 0}, {0, 0, 1}}
}

// Returns the matrix product a*b
func (a Mat3) Mul(b Mat3) (res Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return res
}

// Returns the matrix-vector product a*v
func (a Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		a[0][0]*v.X + a[0][1]*v.Y + a[0][2]*v.Z,
		a[1][0]*v.X + a[1][1]*v.Y + a[1][2]*v.Z,
		a[2][0]*v.X + a[2][1]*v.Y + a[2][2]*v.Z,
	}
}

func (a Mat3) Transpose() Mat3 {
	return Mat3{
		{a[0][0], a[1][0], a[2][0]},
		{a[0][1], a[1][1], a[2][1]},
		{a[0][2], a[1][2], a[2][2]},
	}
}

func (a Mat3) Scale(s float32) (res Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res[i][j] = a[i][j] * s
		}
	}
	return res
}

func (a Mat3) Plus(b Mat3) (res Mat3) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			res[i][j] = a[i][j] + b[i][j]
		}
	}
	return res
}

// Applies the matrix to the point (x, y, 1) and projects back into the plane
func (a Mat3) Apply(p Vec2) Vec2 {
	v := a.MulVec(Vec3{p.X, p.Y, 1})
	return Vec2{v.X / v.Z, v.Y / v.Z}
}

func (a Mat3) Det() float32 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// Inverts the matrix via the adjugate. Returns an error for singular matrices
func (a Mat3) Inverse() (Mat3, error) {
	det := a.Det()
	if det < 1e-12 && -det < 1e-12 {
		return Mat3{}, fmt.Errorf("matrix has no inverse, determinant=%g", det)
	}
	d := 1.0 / det
	return Mat3{
		{(a[1][1]*a[2][2] - a[1][2]*a[2][1]) * d, (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * d, (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * d},
		{(a[1][2]*a[2][0] - a[1][0]*a[2][2]) * d, (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * d, (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * d},
		{(a[1][0]*a[2][1] - a[1][1]*a[2][0]) * d, (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * d, (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * d},
	}, nil
}

// Solves the 3x3 linear system a*x=b using Gaussian elimination with partial
// pivoting. Returns false if the system is singular
func SolveLinear3(a Mat3, b Vec3) (Vec3, bool) {
	m := [3][4]float32{
		{a[0][0], a[0][1], a[0][2], b.X},
		{a[1][0], a[1][1], a[1][2], b.Y},
		{a[2][0], a[2][1], a[2][2], b.Z},
	}
	for col := 0; col < 3; col++ {
		// pivot on the largest remaining magnitude in this column
		pivot := col
		for row := col + 1; row < 3; row++ {
			if abs(m[row][col]) > abs(m[pivot][col]) {
				pivot = row
			}
		}
		if abs(m[pivot][col]) < 1e-12 {
			return Vec3{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		for row := col + 1; row < 3; row++ {
			f := m[row][col] / m[col][col]
			for k := col; k < 4; k++ {
				m[row][k] -= f * m[col][k]
			}
		}
	}
	var x [3]float32
	for row := 2; row >= 0; row-- {
		sum := m[row][3]
		for k := row + 1; k < 3; k++ {
			sum -= m[row][k] * x[k]
		}
		x[row] = sum / m[row][row]
	}
	return Vec3{x[0], x[1], x[2]}, true
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
