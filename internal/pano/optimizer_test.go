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
	"io"
	"math"
	"testing"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/panorec/internal/match"
	"github.com/mlnoga/panorec/internal/sift"
)

// Builds a two-image panorama whose matches place point p in image 1 at
// rotate(theta) * p in image 0, in normalized coordinates
func rotatedPairPanorama(theta float64, numMatches int, seed uint32) *Panorama {
	rng := fastrand.RNG{}
	rng.Seed(seed)
	coord := func() float64 { return float64(rng.Uint32n(800))/1000.0 - 0.4 }

	img0 := &PanoImage{ID: 0, Homography: NewHomography()}
	img1 := &PanoImage{ID: 1, Homography: NewHomography()}

	im := match.NewImageMatch(0, 1)
	sin, cos := math.Sin(theta), math.Cos(theta)
	for i := 0; i < numMatches; i++ {
		px, py := coord(), coord()
		rx := cos*px - sin*py
		ry := sin*px + cos*py

		keyIn1 := &sift.KeyPoint{X: float32(px), Y: float32(py), Tag: 1}
		keyIn0 := &sift.KeyPoint{X: float32(rx), Y: float32(ry), Tag: 0}
		im.Matches = append(im.Matches, match.NewMatch(keyIn1, keyIn0, 0))
	}

	return &Panorama{
		Images:       []*PanoImage{img0, img1},
		ImageMatches: []*match.ImageMatch{im},
	}
}

// Two identical images: the optimizer must keep the second at identity
func TestOptimizeIdentityPair(t *testing.T) {
	p := rotatedPairPanorama(0, 20, 17)
	errorValue := NewOptimizer().Optimize(p, io.Discard)

	if errorValue > 1e-6 {
		t.Errorf("identity pair residual error %g, expect ~0", errorValue)
	}
	h := &p.Images[1].Homography
	if r := h.Axis.Norm(); r >= 1e-3 {
		t.Errorf("identity pair rotation magnitude %g, expect < 1e-3", r)
	}
	if d := math.Abs(float64(h.Scale - 1)); d >= 1e-3 {
		t.Errorf("identity pair scale deviates by %g, expect < 1e-3", d)
	}
	// the first image anchors the gauge and must stay untouched
	if p.Images[0].Homography.Axis.Norm() != 0 || p.Images[0].Homography.Scale != 1 {
		t.Error("gauge-fixed first image was modified")
	}
}

// A pair rotated by 15 degrees: the optimizer must recover the angle within
// a degree and the scale within a percent
func TestOptimizeRotatedPair(t *testing.T) {
	theta := 15.0 * math.Pi / 180.0
	p := rotatedPairPanorama(theta, 30, 23)
	errorValue := NewOptimizer().Optimize(p, io.Discard)

	if errorValue > 1e-5 {
		t.Errorf("rotated pair residual error %g after convergence", errorValue)
	}

	// image 1 must map its points onto image 0's rotated observations,
	// so its homography carries the inverse rotation
	h := &p.Images[1].Homography
	gotAngle := math.Abs(float64(h.Axis.Z))
	if d := math.Abs(gotAngle-theta) * 180.0 / math.Pi; d > 1.0 {
		t.Errorf("estimated rotation %f deg off by %f deg", gotAngle*180/math.Pi, d)
	}
	if d := math.Abs(float64(h.Scale - 1)); d > 0.01 {
		t.Errorf("estimated scale %f deviates from 1 by more than 1%%", h.Scale)
	}
	if offAxis := math.Hypot(float64(h.Axis.X), float64(h.Axis.Y)); offAxis > 0.02 {
		t.Errorf("estimated rotation has off-plane axis components %f", offAxis)
	}
}

// Single-image panoramas have nothing to optimize
func TestOptimizeSingleImage(t *testing.T) {
	p := &Panorama{Images: []*PanoImage{{ID: 0, Homography: NewHomography()}}}
	if errorValue := NewOptimizer().Optimize(p, io.Discard); errorValue != 0 {
		t.Errorf("single image optimization returned error %g", errorValue)
	}
}
