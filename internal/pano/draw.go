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

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/mlnoga/panorec/internal/raster"
)

// Renders the detected keypoints on a copy of the original image, as
// oriented arrows scaled by the keypoint scale. Hue encodes the octave the
// keypoint was found in, so coarse and fine detections are distinguishable
func (img *PanoImage) DrawKeyPoints(initSigma float32) *raster.RGBImage {
	res := img.Original.Clone()

	// keypoint coordinates are normalized; undo the normalization to get
	// back to original image pixels
	downScaleFactor := float32(img.DownScaled.Width) / float32(img.Original.Width)
	relativeScale := img.KeyPointScaleFactor / downScaleFactor
	slideX := 0.5 * float32(img.DownScaled.Width)
	slideY := 0.5 * float32(img.DownScaled.Height)

	for i := range img.Keys {
		k := &img.Keys[i]
		x := (k.X/relativeScale + slideX) / downScaleFactor
		y := (k.Y/relativeScale + slideY) / downScaleFactor
		scale := k.Scale / downScaleFactor

		octave := 0.0
		if k.Scale > initSigma {
			octave = math.Floor(math.Log2(float64(k.Scale / initSigma)))
		}
		c := colorful.Hsv(math.Mod(60.0*octave, 360.0), 1, 1)
		r, g, b := float32(c.R), float32(c.G), float32(c.B)

		cos := float32(math.Cos(float64(k.Angle)))
		sin := float32(math.Sin(float64(k.Angle)))
		x2 := x + 5.0*scale*cos
		y2 := y + 5.0*scale*sin
		drawLine(res, x, y, x2, y2, r, g, b)

		// arrow head
		cos34 := float32(math.Cos(float64(k.Angle) - math.Pi*0.75))
		sin34 := float32(math.Sin(float64(k.Angle) - math.Pi*0.75))
		drawLine(res, x2, y2, x2+1.0*scale*cos34, y2+1.0*scale*sin34, r, g, b)
		cos34 = float32(math.Cos(float64(k.Angle) + math.Pi*0.75))
		sin34 = float32(math.Sin(float64(k.Angle) + math.Pi*0.75))
		drawLine(res, x2, y2, x2+1.0*scale*cos34, y2+1.0*scale*sin34, r, g, b)
	}
	return res
}

// Draws a straight line onto the color image by stepping one pixel at a time
func drawLine(img *raster.RGBImage, x0, y0, x1, y1, r, g, b float32) {
	dx, dy := x1-x0, y1-y0
	steps := int32(math.Max(math.Abs(float64(dx)), math.Abs(float64(dy)))) + 1
	for i := int32(0); i <= steps; i++ {
		t := float32(i) / float32(steps)
		x := int32(x0 + t*dx + 0.5)
		y := int32(y0 + t*dy + 0.5)
		if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
			continue
		}
		index := y*img.Width + x
		img.R[index] = r
		img.G[index] = g
		img.B[index] = b
	}
}
