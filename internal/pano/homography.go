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


package pano

import (
	"math"

	"github.com/mlnoga/panorec/internal/geom"
)

// A rotate-scale transformation, parametrized by an axis angle rotation and
// a uniform scale. The axis angle vector points along the rotation axis and
// its magnitude is the rotation angle in radians; the matrix form follows
// from the exponential map
//
//	R = I + hat(axis)*sin(angle) + hat(axis)^2 * (1-cos(angle))
//
// where hat() is the antisymmetric matrix equivalent of the cross product.
// Parameters are indexed 0..3 as (rx, ry, rz, scale) for the optimizer
type Homography struct {
	Axis  geom.Vec3
	Scale float32
}

// Returns the identity transformation: zero rotation, unit scale
func NewHomography() Homography {
	return Homography{Scale: 1}
}

func (h *Homography) Param(index int) float32 {
	switch index {
	case 0:
		return h.Axis.X
	case 1:
		return h.Axis.Y
	case 2:
		return h.Axis.Z
	default:
		return h.Scale
	}
}

func (h *Homography) SetParam(index int, value float32) {
	switch index {
	case 0:
		h.Axis.X = value
	case 1:
		h.Axis.Y = value
	case 2:
		h.Axis.Z = value
	default:
		h.Scale = value
	}
}

// The three skew basis matrices: hat() applied to the unit axes
var skewBasis = [3]geom.Mat3{
	{{0, 0, 0}, {0, 0, -1}, {0, 1, 0}},
	{{0, 0, 1}, {0, 0, 0}, {-1, 0, 0}},
	{{0, -1, 0}, {1, 0, 0}, {0, 0, 0}},
}

func scalePart(scale float32) geom.Mat3 {
	return geom.Mat3{{scale, 0, 0}, {0, scale, 0}, {0, 0, 1}}
}

func (h *Homography) rotationPart() geom.Mat3 {
	angle := h.Axis.Norm()
	axis := h.Axis
	if angle != 0 {
		inv := 1 / angle
		axis = geom.Vec3{X: axis.X * inv, Y: axis.Y * inv, Z: axis.Z * inv}
	}

	hat := geom.Mat3{
		{0, -axis.Z, axis.Y},
		{axis.Z, 0, -axis.X},
		{-axis.Y, axis.X, 0},
	}

	sin := float32(math.Sin(float64(angle)))
	cos := float32(math.Cos(float64(angle)))
	return geom.Identity().Plus(hat.Scale(sin)).Plus(hat.Mul(hat).Scale(1 - cos))
}

// Derivative of the rotation part with respect to axis component paramIndex,
// in closed form: dR/dr_k = R * E_k with E_k the k-th skew basis matrix
func (h *Homography) rotationPartDerivative(paramIndex int) geom.Mat3 {
	return h.rotationPart().Mul(skewBasis[paramIndex])
}

// Returns the matrix form H = S*R
func (h *Homography) Matrix() geom.Mat3 {
	return scalePart(h.Scale).Mul(h.rotationPart())
}

// Returns the inverse matrix form H^-1 = R^T * S^-1
func (h *Homography) InverseMatrix() geom.Mat3 {
	return h.rotationPart().Transpose().Mul(scalePart(1 / h.Scale))
}

// Derivative of the matrix form with respect to parameter paramIndex
func (h *Homography) MatrixDerivative(paramIndex int) geom.Mat3 {
	if paramIndex < 3 {
		return scalePart(h.Scale).Mul(h.rotationPartDerivative(paramIndex))
	}
	dScale := scalePart(1)
	dScale[2][2] = 0
	return dScale.Mul(h.rotationPart())
}

// Derivative of the inverse matrix form with respect to parameter paramIndex
func (h *Homography) InverseMatrixDerivative(paramIndex int) geom.Mat3 {
	if paramIndex < 3 {
		return h.rotationPartDerivative(paramIndex).Transpose().Mul(scalePart(1 / h.Scale))
	}
	dScale := scalePart(-1 / (h.Scale * h.Scale))
	dScale[2][2] = 0
	return h.rotationPart().Transpose().Mul(dScale)
}
