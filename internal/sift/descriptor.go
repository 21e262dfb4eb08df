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

// Creates the descriptor vector for the given keypoint from the gradient
// images of the blur level it was found on. The sample window is rotated by
// the keypoint orientation and rescaled into 4x4 index cells, with gradient
// magnitudes distributed trilinearly over the surrounding position and
// orientation bins
func (e *Extractor) createDescriptor(key *KeyPoint, magnitude, direction *raster.Image, fx, fy, octScale float32) {
	// The spacing of index samples in terms of pixels at this scale
	spacing := octScale * e.MagFactor

	// Radius of the sample region must extend to the diagonal corner of the
	// index patch plus half a sample for interpolation
	radius := int32(1.414*spacing*(IndexSize+1)/2.0 + 0.5)

	// Sigma is relative to the half-width of the index
	sigma := e.IndexSigma * 0.5 * IndexSize

	sinAngle := float32(math.Sin(float64(key.Angle)))
	cosAngle := float32(math.Cos(float64(key.Angle)))

	// Integer peak position
	ipx := int32(fx + 0.5)
	ipy := int32(fy + 0.5)

	var index [VecLength]float32

	w, h := magnitude.Width, magnitude.Height
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x := ipx + dx
			y := ipy + dy
			if x < 1 || x >= w-1 || y < 1 || y >= h-1 {
				continue
			}

			// Rotate and scale into index coordinates, with subpixel correction
			dxr := (cosAngle*float32(dx) - sinAngle*float32(dy) - (fx - float32(ipx))) / spacing
			dyr := (sinAngle*float32(dx) + cosAngle*float32(dy) - (fy - float32(ipy))) / spacing

			// Subtract 0.5 so an ix of 1.0 means full weight on index[1]
			ix := dxr + IndexSize/2.0 - 0.5
			iy := dyr + IndexSize/2.0 - 0.5
			if ix <= -1.0 || ix >= IndexSize || iy <= -1.0 || iy >= IndexSize {
				continue
			}

			// Magnitude weighted by a gaussian over radial distance from the center
			mag := magnitude.Pixel(x, y) * float32(math.Exp(float64(-(dxr*dxr+dyr*dyr)/(2.0*sigma*sigma))))

			// Orientation relative to the keypoint, in [0, 2*pi]
			ori := direction.Pixel(x, y) - key.Angle
			for ori > 2*math.Pi {
				ori -= 2 * math.Pi
			}
			for ori < 0.0 {
				ori += 2 * math.Pi
			}

			placeInIndex(&index, mag, ori, ix, iy)
		}
	}

	// Normalize, then threshold to de-emphasize large gradient magnitudes,
	// then normalize again if anything was clipped
	normalizeVec(&index)
	changed := false
	for i := range index {
		if index[i] > e.MaxIndexVal {
			index[i] = e.MaxIndexVal
			changed = true
		}
	}
	if changed {
		normalizeVec(&index)
	}

	// Convert to bytes, assuming each element is less than 0.5
	for i, v := range index {
		intVal := int32(512.0 * v)
		if intVal > 255 {
			intVal = 255
		}
		key.Desc[i] = uint8(intVal)
	}
}

// Distributes the weighted sample over the 8 surrounding (x, y, orientation)
// bins of the index. The orientation dimension wraps around
func placeInIndex(index *[VecLength]float32, mag, ori, fx, fy float32) {
	fo := OriSize * ori / (2 * math.Pi)

	ix := int32(math.Floor(float64(fx)))
	iy := int32(math.Floor(float64(fy)))
	io := int32(fo)

	xFrac := fx - float32(ix)
	yFrac := fy - float32(iy)
	oFrac := fo - float32(io)

	for y := int32(0); y < 2; y++ {
		yIndex := y + iy
		if yIndex < 0 || yIndex >= IndexSize {
			continue
		}
		yWeight := mag * yFrac
		if y == 0 {
			yWeight = mag * (1.0 - yFrac)
		}
		for x := int32(0); x < 2; x++ {
			xIndex := x + ix
			if xIndex < 0 || xIndex >= IndexSize {
				continue
			}
			xWeight := yWeight * xFrac
			if x == 0 {
				xWeight = yWeight * (1.0 - xFrac)
			}
			for o := int32(0); o < 2; o++ {
				oIndex := (o + io) % OriSize
				oWeight := xWeight * oFrac
				if o == 0 {
					oWeight = xWeight * (1.0 - oFrac)
				}
				index[(xIndex*IndexSize+yIndex)*OriSize+oIndex] += oWeight
			}
		}
	}
}

func normalizeVec(vec *[VecLength]float32) {
	sum := float32(0)
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := 1.0 / float32(math.Sqrt(float64(sum)))
	for i := range vec {
		vec[i] *= norm
	}
}
