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

// Resizes the image to the given dimensions with bilinear interpolation
func (img *Image) ResizeBilinear(newWidth, newHeight int32) *Image {
	res := NewImage(newWidth, newHeight, nil)
	xScale := float32(img.Width) / float32(newWidth)
	yScale := float32(img.Height) / float32(newHeight)
	for y := int32(0); y < newHeight; y++ {
		srcY := (float32(y)+0.5)*yScale - 0.5
		yl := int32(math.Floor(float64(srcY)))
		yr := srcY - float32(yl)
		yh := yl + 1
		if yl < 0 {
			yl, yh, yr = 0, 0, 0
		} else if yh >= img.Height {
			yl, yh, yr = img.Height-1, img.Height-1, 0
		}
		for x := int32(0); x < newWidth; x++ {
			srcX := (float32(x)+0.5)*xScale - 0.5
			xl := int32(math.Floor(float64(srcX)))
			xr := srcX - float32(xl)
			xh := xl + 1
			if xl < 0 {
				xl, xh, xr = 0, 0, 0
			} else if xh >= img.Width {
				xl, xh, xr = img.Width-1, img.Width-1, 0
			}
			vl := img.Pixel(xl, yl)*(1-xr) + img.Pixel(xh, yl)*xr
			vh := img.Pixel(xl, yh)*(1-xr) + img.Pixel(xh, yh)*xr
			res.SetPixel(x, y, vl*(1-yr)+vh*yr)
		}
	}
	return res
}

// Upscales the image by a factor of two with bilinear interpolation
func (img *Image) Resize2x() *Image {
	return img.ResizeBilinear(img.Width*2, img.Height*2)
}

// Downscales the image by a factor of two, picking every other pixel.
// Interpolating downscalers shift keypoint localization, so decimation it is
func (img *Image) ResizeDown2NN() *Image {
	newW, newH := img.Width/2, img.Height/2
	res := NewImage(newW, newH, nil)
	for y := int32(0); y < newH; y++ {
		for x := int32(0); x < newW; x++ {
			res.SetPixel(x, y, img.Pixel(x*2, y*2))
		}
	}
	return res
}
