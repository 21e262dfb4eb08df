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
	"math"
	"testing"

	"github.com/valyala/fastrand"
)

func randomMat3(rng *fastrand.RNG) Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = float32(rng.Uint32n(2000))/1000.0 - 1.0
		}
	}
	return m
}

func TestMat3Inverse(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(42)
	tested := 0
	for i := 0; i < 100; i++ {
		m := randomMat3(&rng)
		inv, err := m.Inverse()
		if err != nil {
			continue // near-singular draw
		}
		tested++
		prod := m.Mul(inv)
		ident := Identity()
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				diff := prod[r][c] - ident[r][c]
				if diff > 1e-3 || diff < -1e-3 {
					t.Errorf("m*m^-1 deviates from identity at (%d,%d): %f", r, c, prod[r][c])
				}
			}
		}
	}
	if tested < 50 {
		t.Errorf("only %d of 100 random matrices were invertible", tested)
	}
}

func TestMat3Compose(t *testing.T) {
	trans := Translation(3, -2).Mul(Scaling(2))
	p := trans.Apply(Vec2{X: 1, Y: 1})
	if p.X != 5 || p.Y != 0 {
		t.Errorf("translate(3,-2)*scale(2) applied to (1,1) got %v expect (5, 0)", p)
	}
}

func TestSolveLinear3(t *testing.T) {
	a := Mat3{{2, 1, -1}, {-3, -1, 2}, {-2, 1, 2}}
	b := Vec3{X: 8, Y: -11, Z: -3}
	x, ok := SolveLinear3(a, b)
	if !ok {
		t.Fatal("solvable system reported as singular")
	}
	// expected solution (2, 3, -1)
	if math.Abs(float64(x.X-2)) > 1e-4 || math.Abs(float64(x.Y-3)) > 1e-4 || math.Abs(float64(x.Z+1)) > 1e-4 {
		t.Errorf("got solution %v expect (2, 3, -1)", x)
	}
}

func TestSolveLinear3Singular(t *testing.T) {
	a := Mat3{{1, 2, 3}, {2, 4, 6}, {1, 0, 1}}
	if _, ok := SolveLinear3(a, Vec3{X: 1, Y: 2, Z: 3}); ok {
		t.Error("singular system not detected")
	}
}

func TestVec2Angle(t *testing.T) {
	cases := []struct {
		v      Vec2
		expect float64
	}{
		{Vec2{X: 1, Y: 0}, 0},
		{Vec2{X: 0, Y: 1}, math.Pi / 2},
		{Vec2{X: -1, Y: 0}, math.Pi},
		{Vec2{X: 1, Y: 1}, math.Pi / 4},
	}
	for _, c := range cases {
		if got := float64(c.v.Angle()); math.Abs(got-c.expect) > 1e-6 {
			t.Errorf("angle of %v got %f expect %f", c.v, got, c.expect)
		}
	}
}
