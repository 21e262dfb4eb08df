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
)

// Truncate gaussian kernels at sigma*gaussTruncate pixels away from the center
const gaussTruncate float32 = 4.0

// Builds a normalized 1D gaussian kernel for the given sigma
func gaussianKernel(sigma float32) []float32 {
	radius := int32(sigma*gaussTruncate + 0.5)
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float32, 2*radius+1)
	sum := float32(0)
	for i := -radius; i <= radius; i++ {
		v := float32(math.Exp(-float64(i) * float64(i) / float64(2*sigma*sigma)))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// Convolves the image with a gaussian of the given sigma into a new image.
// Uses a separable kernel with replicated borders
func (img *Image) GaussianBlur(sigma float32) *Image {
	kernel := gaussianKernel(sigma)
	radius := int32(len(kernel) / 2)
	w, h := img.Width, img.Height

	// horizontal pass
	tmp := NewImage(w, h, nil)
	for y := int32(0); y < h; y++ {
		row := img.Data[y*w : (y+1)*w]
		out := tmp.Data[y*w : (y+1)*w]
		for x := int32(0); x < w; x++ {
			sum := float32(0)
			for k := -radius; k <= radius; k++ {
				xk := x + k
				if xk < 0 {
					xk = 0
				} else if xk >= w {
					xk = w - 1
				}
				sum += row[xk] * kernel[k+radius]
			}
			out[x] = sum
		}
	}

	// vertical pass
	res := NewImage(w, h, nil)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			sum := float32(0)
			for k := -radius; k <= radius; k++ {
				yk := y + k
				if yk < 0 {
					yk = 0
				} else if yk >= h {
					yk = h - 1
				}
				sum += tmp.Data[yk*w+x] * kernel[k+radius]
			}
			res.Data[y*w+x] = sum
		}
	}
	return res
}
