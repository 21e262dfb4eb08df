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


package match

import (
	"math"

	"github.com/mlnoga/panorec/internal/geom"
)

const eps = 1e-6

// A similarity transform between an image pair, mapping coordinates of the
// keypoints in slot 1 onto those in slot 0:
//
//	[ s*cos a  -s*sin a  tx ]
//	[ s*sin a   s*cos a  ty ]
//	[    0         0      1 ]
//
// Fitted from exactly two matches in closed form.
// TODO: least squares fit when more than two matches are available
type Similarity struct {
	Trans   geom.Mat3
	Inliers []Match
}

// Fits the similarity transform through the two given matches. Returns false
// for degenerate samples whose anchor separation vanishes in either image
func fitSimilarity(m0, m1 *Match) (geom.Mat3, bool) {
	d0 := geom.Vec2{X: m1.Keys[0].X - m0.Keys[0].X, Y: m1.Keys[0].Y - m0.Keys[0].Y}
	d1 := geom.Vec2{X: m1.Keys[1].X - m0.Keys[1].X, Y: m1.Keys[1].Y - m0.Keys[1].Y}

	// vanishing separations mean a joint match like (A-B), (B-C), which
	// cannot constrain the transform
	s0, s1 := d0.Norm(), d1.Norm()
	if s0 < eps || s1 < eps {
		return geom.Mat3{}, false
	}

	angle := d0.Angle() - d1.Angle()
	sinAngle := float32(math.Sin(float64(angle)))
	cosAngle := float32(math.Cos(float64(angle)))
	s := s0 / s1

	x0, y0 := m0.Keys[0].X, m0.Keys[0].Y
	x1, y1 := m0.Keys[1].X, m0.Keys[1].Y

	var trans geom.Mat3
	trans[0][0] = s * cosAngle
	trans[0][1] = s * -sinAngle
	trans[0][2] = s*(cosAngle*(-x1)-sinAngle*(-y1)) + x0
	trans[1][0] = s * sinAngle
	trans[1][1] = s * cosAngle
	trans[1][2] = s*(sinAngle*(-x1)+cosAngle*(-y1)) + y0
	trans[2][0] = 0.0
	trans[2][1] = 0.0
	trans[2][2] = 1.0
	return trans, true
}

// Calculates the fitting error of a single match against the model: the
// squared distance between the transformed slot 1 position and the observed
// slot 0 position
func (s *Similarity) FitError(m *Match) float32 {
	v := s.Trans.MulVec(geom.Vec3{X: m.Keys[1].X, Y: m.Keys[1].Y, Z: 1})
	dx := m.Keys[0].X - v.X
	dy := m.Keys[0].Y - v.Y
	return dx*dx + dy*dy
}
