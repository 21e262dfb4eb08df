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

	"github.com/mlnoga/panorec/internal/raster"
)

// A scale space octave: scales+3 progressively blurred versions of the
// input image, and the scales+2 differences of adjacent blur levels.
// The effective sigma grows by 2^(1/scales) per blur level, so Blur[scales]
// carries twice the initial sigma and seeds the next octave after decimation
type Octave struct {
	Scales    int32
	InitSigma float32
	Blur      []*raster.Image
	DoG       []*raster.Image
}

// Builds the scale space octave for the given image
func NewOctave(img *raster.Image, scales int32, initSigma float32) *Octave {
	o := &Octave{
		Scales:    scales,
		InitSigma: initSigma,
		Blur:      make([]*raster.Image, 0, scales+3),
		DoG:       make([]*raster.Image, 0, scales+2),
	}

	sigmaRatio := float32(math.Pow(2.0, 1.0/float64(scales)))
	lastSigma := initSigma

	o.Blur = append(o.Blur, img)
	for i := int32(1); i < scales+3; i++ {
		dSigma := lastSigma * float32(math.Sqrt(float64(sigmaRatio*sigmaRatio-1.0)))
		o.Blur = append(o.Blur, o.Blur[i-1].GaussianBlur(dSigma))
		lastSigma *= sigmaRatio
	}

	for i := int32(0); i < scales+2; i++ {
		o.DoG = append(o.DoG, o.Blur[i].Sub(o.Blur[i+1]))
	}
	return o
}

// Returns the blur level with an effective sigma of twice the octave's
// initial sigma. Decimated 2x, it seeds the next octave
func (o *Octave) SeedForNextOctave() *raster.Image {
	return o.Blur[o.Scales]
}

func (o *Octave) Width() int32 { return o.Blur[0].Width }

func (o *Octave) Height() int32 { return o.Blur[0].Height }
