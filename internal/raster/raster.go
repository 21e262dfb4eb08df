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
	"fmt"
	"math"
)

// A grayscale raster image. Row-major float32 samples in [0,1].
type Image struct {
	Width  int32
	Height int32
	Data   []float32
}

// A color raster image with planar float32 RGB samples in [0,1].
type RGBImage struct {
	Width  int32
	Height int32
	R      []float32
	G      []float32
	B      []float32
}

// Creates a grayscale image of the given dimensions. Data is allocated if nil
func NewImage(width, height int32, data []float32) *Image {
	if data == nil {
		data = make([]float32, width*height)
	}
	return &Image{Width: width, Height: height, Data: data}
}

// Creates a color image of the given dimensions with zeroed planes
func NewRGBImage(width, height int32) *RGBImage {
	return &RGBImage{
		Width: width, Height: height,
		R: make([]float32, width*height),
		G: make([]float32, width*height),
		B: make([]float32, width*height),
	}
}

func (img *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", img.Width, img.Height)
}

func (img *RGBImage) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", img.Width, img.Height)
}

func (img *Image) Pixel(x, y int32) float32 {
	return img.Data[y*img.Width+x]
}

func (img *Image) SetPixel(x, y int32, v float32) {
	img.Data[y*img.Width+x] = v
}

// Returns a deep copy of the image
func (img *Image) Clone() *Image {
	data := make([]float32, len(img.Data))
	copy(data, img.Data)
	return &Image{Width: img.Width, Height: img.Height, Data: data}
}

func (img *RGBImage) Clone() *RGBImage {
	res := NewRGBImage(img.Width, img.Height)
	copy(res.R, img.R)
	copy(res.G, img.G)
	copy(res.B, img.B)
	return res
}

// Converts a color image into grayscale luminance with Rec.601 weights
func (img *RGBImage) ToGray() *Image {
	res := NewImage(img.Width, img.Height, nil)
	for i := range res.Data {
		res.Data[i] = 0.299*img.R[i] + 0.587*img.G[i] + 0.114*img.B[i]
	}
	return res
}

// Subtracts other from the image pixelwise into a new image.
// Both images must have identical dimensions
func (img *Image) Sub(other *Image) *Image {
	res := NewImage(img.Width, img.Height, nil)
	for i, v := range img.Data {
		res.Data[i] = v - other.Data[i]
	}
	return res
}

// Calculates per-pixel gradient magnitude and direction images.
// Border pixels use one-sided differences scaled by 2, interior pixels
// central differences. Directions are in [-pi, pi]
func (img *Image) GradientMagAndDir() (magnitude, direction *Image) {
	magnitude = NewImage(img.Width, img.Height, nil)
	direction = NewImage(img.Width, img.Height, nil)
	w, h := img.Width, img.Height
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			var xGrad, yGrad float32
			if x == 0 {
				xGrad = 2.0 * (img.Pixel(x+1, y) - img.Pixel(x, y))
			} else if x == w-1 {
				xGrad = 2.0 * (img.Pixel(x, y) - img.Pixel(x-1, y))
			} else {
				xGrad = img.Pixel(x+1, y) - img.Pixel(x-1, y)
			}
			if y == 0 {
				yGrad = 2.0 * (img.Pixel(x, y+1) - img.Pixel(x, y))
			} else if y == h-1 {
				yGrad = 2.0 * (img.Pixel(x, y) - img.Pixel(x, y-1))
			} else {
				yGrad = img.Pixel(x, y+1) - img.Pixel(x, y-1)
			}
			magnitude.SetPixel(x, y, float32(math.Sqrt(float64(xGrad*xGrad+yGrad*yGrad))))
			direction.SetPixel(x, y, float32(math.Atan2(float64(yGrad), float64(xGrad))))
		}
	}
	return magnitude, direction
}
