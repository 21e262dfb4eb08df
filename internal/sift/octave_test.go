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


package sift

import (
	"math"
	"testing"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/panorec/internal/raster"
)

func randomImage(width, height int32, seed uint32) *raster.Image {
	rng := fastrand.RNG{}
	rng.Seed(seed)
	img := raster.NewImage(width, height, nil)
	for i := range img.Data {
		img.Data[i] = float32(rng.Uint32n(1000)) / 1000.0
	}
	return img
}

func TestOctaveStructure(t *testing.T) {
	img := randomImage(48, 40, 3)
	scales := int32(3)
	oct := NewOctave(img, scales, 1.6)

	if len(oct.Blur) != int(scales)+3 {
		t.Fatalf("octave has %d blur levels, expect %d", len(oct.Blur), scales+3)
	}
	if len(oct.DoG) != int(scales)+2 {
		t.Fatalf("octave has %d DoG levels, expect %d", len(oct.DoG), scales+2)
	}

	for i, blur := range oct.Blur {
		if blur.Width != img.Width || blur.Height != img.Height {
			t.Errorf("blur %d dimensions %s differ from input %s", i, blur.DimensionsToString(), img.DimensionsToString())
		}
	}

	// dog[i] = blur[i] - blur[i+1], pixelwise
	for i, dog := range oct.DoG {
		for j := range dog.Data {
			expect := oct.Blur[i].Data[j] - oct.Blur[i+1].Data[j]
			if math.Abs(float64(dog.Data[j]-expect)) > 1e-6 {
				t.Fatalf("DoG %d deviates from blur difference at %d: %f vs %f", i, j, dog.Data[j], expect)
			}
		}
	}
}

func TestOctaveSmoothing(t *testing.T) {
	img := randomImage(48, 40, 4)
	oct := NewOctave(img, 3, 1.6)

	// increasing blur must decrease total variation
	prev := math.MaxFloat64
	for i, blur := range oct.Blur {
		tv := 0.0
		for y := int32(0); y < blur.Height; y++ {
			for x := int32(1); x < blur.Width; x++ {
				tv += math.Abs(float64(blur.Pixel(x, y) - blur.Pixel(x-1, y)))
			}
		}
		if tv >= prev {
			t.Errorf("blur level %d did not smooth: total variation %f >= %f", i, tv, prev)
		}
		prev = tv
	}
}

func TestSeedForNextOctave(t *testing.T) {
	img := randomImage(32, 32, 5)
	oct := NewOctave(img, 3, 1.6)
	if oct.SeedForNextOctave() != oct.Blur[3] {
		t.Error("next octave seed is not the blur level at index scales")
	}
}
