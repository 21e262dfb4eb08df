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


package raster

import (
	"math"
	"testing"

	"github.com/valyala/fastrand"
)

func TestGaussianBlurConstant(t *testing.T) {
	img := NewImage(32, 32, nil)
	for i := range img.Data {
		img.Data[i] = 0.5
	}
	blurred := img.GaussianBlur(1.6)
	for i, v := range blurred.Data {
		if math.Abs(float64(v-0.5)) > 1e-5 {
			t.Fatalf("blur of constant image deviates at %d: %f", i, v)
		}
	}
}

func TestGaussianBlurPreservesSum(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(7)
	img := NewImage(64, 64, nil)
	sum := float64(0)
	for i := range img.Data {
		img.Data[i] = float32(rng.Uint32n(1000)) / 1000.0
		sum += float64(img.Data[i])
	}
	blurred := img.GaussianBlur(2.0)
	blurredSum := float64(0)
	for _, v := range blurred.Data {
		blurredSum += float64(v)
	}
	// border replication perturbs the sum slightly
	if math.Abs(blurredSum-sum)/sum > 0.05 {
		t.Errorf("blur changed image sum from %f to %f", sum, blurredSum)
	}
}

func TestSub(t *testing.T) {
	a := NewImage(4, 4, nil)
	b := NewImage(4, 4, nil)
	for i := range a.Data {
		a.Data[i] = float32(i)
		b.Data[i] = float32(i) * 0.5
	}
	diff := a.Sub(b)
	for i, v := range diff.Data {
		if v != float32(i)*0.5 {
			t.Fatalf("sub result at %d got %f expect %f", i, v, float32(i)*0.5)
		}
	}
}

func TestResizeDown2NN(t *testing.T) {
	img := NewImage(8, 6, nil)
	for y := int32(0); y < 6; y++ {
		for x := int32(0); x < 8; x++ {
			img.SetPixel(x, y, float32(y*8+x))
		}
	}
	down := img.ResizeDown2NN()
	if down.Width != 4 || down.Height != 3 {
		t.Fatalf("downscaled dimensions got %s expect 4x3", down.DimensionsToString())
	}
	for y := int32(0); y < 3; y++ {
		for x := int32(0); x < 4; x++ {
			if down.Pixel(x, y) != img.Pixel(x*2, y*2) {
				t.Errorf("decimation at (%d,%d) got %f expect %f", x, y, down.Pixel(x, y), img.Pixel(x*2, y*2))
			}
		}
	}
}

func TestGradientOfRamp(t *testing.T) {
	img := NewImage(8, 8, nil)
	for y := int32(0); y < 8; y++ {
		for x := int32(0); x < 8; x++ {
			img.SetPixel(x, y, float32(x)*0.1)
		}
	}
	mag, dir := img.GradientMagAndDir()
	// interior of a horizontal ramp: gradient 0.2 along +x
	for y := int32(1); y < 7; y++ {
		for x := int32(1); x < 7; x++ {
			if math.Abs(float64(mag.Pixel(x, y)-0.2)) > 1e-5 {
				t.Errorf("ramp gradient magnitude at (%d,%d) got %f expect 0.2", x, y, mag.Pixel(x, y))
			}
			if math.Abs(float64(dir.Pixel(x, y))) > 1e-5 {
				t.Errorf("ramp gradient direction at (%d,%d) got %f expect 0", x, y, dir.Pixel(x, y))
			}
		}
	}
}

func TestToGray(t *testing.T) {
	img := NewRGBImage(2, 1)
	img.R[0], img.G[0], img.B[0] = 1, 1, 1
	img.R[1], img.G[1], img.B[1] = 1, 0, 0
	gray := img.ToGray()
	if math.Abs(float64(gray.Data[0]-1.0)) > 1e-5 {
		t.Errorf("white pixel luminance got %f expect 1", gray.Data[0])
	}
	if math.Abs(float64(gray.Data[1]-0.299)) > 1e-5 {
		t.Errorf("red pixel luminance got %f expect 0.299", gray.Data[1])
	}
}
