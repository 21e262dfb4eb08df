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
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/panorec/internal/geom"
	"github.com/mlnoga/panorec/internal/raster"
)

// Stitcher composites the images of a panorama onto a common canvas.
// Each image is warped by its bundle-adjusted homography and blended with an
// alpha mask falling off linearly towards the image borders, which hides
// seams without exposure compensation
type Stitcher struct {
	CanvasSize int32   // canvas width and height in pixels
	WorldScale float32 // scale from normalized image coordinates to canvas pixels
}

func NewStitcher() *Stitcher {
	return &Stitcher{CanvasSize: 4000, WorldScale: 1000}
}

// Warps all panorama images onto the canvas and returns the composite
func (s *Stitcher) Stitch(p *Panorama, logWriter io.Writer) *raster.RGBImage {
	size := s.CanvasSize
	numPixels := size * size
	accR := make([]float32, numPixels)
	accG := make([]float32, numPixels)
	accB := make([]float32, numPixels)
	accA := make([]float32, numPixels)

	toCenter := geom.Translation(float32(size)/2, float32(size)/2)

	for _, img := range p.Images {
		w := float32(img.Original.Width)
		h := float32(img.Original.Height)

		// canvas coordinates = center + worldScale * H^-1 * normalized image coordinates
		trans := toCenter.
			Mul(geom.Scaling(s.WorldScale)).
			Mul(img.Homography.InverseMatrix()).
			Mul(geom.Scaling(img.KeyPointScaleFactor)).
			Mul(geom.Translation(-w/2.0, -h/2.0))

		if err := s.drawBlended(accR, accG, accB, accA, img.Original, trans); err != nil {
			fmt.Fprintf(logWriter, "%d: skipping during stitch: %s\n", img.ID, err.Error())
		}
	}

	// resolve the accumulated premultiplied sums into colors
	res := raster.NewRGBImage(size, size)
	for i, alpha := range accA {
		if alpha > 0 {
			res.R[i] = accR[i] / alpha
			res.G[i] = accG[i] / alpha
			res.B[i] = accB[i] / alpha
		}
	}
	return res
}

// Draws the source image onto the accumulation planes under the given
// transformation, sampling bilinearly and blending additively with the
// alpha falloff mask
func (s *Stitcher) drawBlended(accR, accG, accB, accA []float32, src *raster.RGBImage, trans geom.Mat3) error {
	inv, err := trans.Inverse()
	if err != nil {
		return err
	}

	size := s.CanvasSize
	w, h := src.Width, src.Height
	wf, hf := float32(w-1), float32(h-1)

	// destination bounding box from the forward-transformed source corners
	xMin, yMin, xMax, yMax := boundingBox(trans, wf, hf, size)

	for y := yMin; y <= yMax; y++ {
		for x := xMin; x <= xMax; x++ {
			proj := inv.Apply(geom.Vec2{X: float32(x), Y: float32(y)})
			if proj.X < 0 || proj.X > wf || proj.Y < 0 || proj.Y > hf {
				continue
			}

			// bilinear interpolation
			xl := int32(proj.X)
			yl := int32(proj.Y)
			xh, yh := xl+1, yl+1
			if xh >= w {
				xh = w - 1
			}
			if yh >= h {
				yh = h - 1
			}
			xr, yr := proj.X-float32(xl), proj.Y-float32(yl)

			xlyl := yl*w + xl
			xhyl := yl*w + xh
			xlyh := yh*w + xl
			xhyh := yh*w + xh

			r := (src.R[xlyl]*(1-xr)+src.R[xhyl]*xr)*(1-yr) + (src.R[xlyh]*(1-xr)+src.R[xhyh]*xr)*yr
			g := (src.G[xlyl]*(1-xr)+src.G[xhyl]*xr)*(1-yr) + (src.G[xlyh]*(1-xr)+src.G[xhyh]*xr)*yr
			b := (src.B[xlyl]*(1-xr)+src.B[xhyl]*xr)*(1-yr) + (src.B[xlyh]*(1-xr)+src.B[xhyh]*xr)*yr

			alpha := falloff(proj.X, wf) * falloff(proj.Y, hf)

			i := y*size + x
			accR[i] += r * alpha
			accG[i] += g * alpha
			accB[i] += b * alpha
			accA[i] += alpha
		}
	}
	return nil
}

// The alpha falloff weight: 1 at the image center, 0 at the borders
func falloff(pos, max float32) float32 {
	f := 2*pos/max - 1
	if f < 0 {
		f = -f
	}
	return 1 - f
}

// Returns the canvas-clamped bounding box of the transformed source corners
func boundingBox(trans geom.Mat3, wf, hf float32, size int32) (xMin, yMin, xMax, yMax int32) {
	corners := [4]geom.Vec2{{X: 0, Y: 0}, {X: wf, Y: 0}, {X: 0, Y: hf}, {X: wf, Y: hf}}
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := -float32(math.MaxFloat32), -float32(math.MaxFloat32)
	for _, c := range corners {
		p := trans.Apply(c)
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	// clamp before converting, out-of-range float to int conversions are
	// implementation-specific
	limit := float32(size - 1)
	clamp := func(v float32) int32 {
		if v < 0 {
			return 0
		}
		if v > limit {
			return size - 1
		}
		return int32(v)
	}
	return clamp(minX), clamp(minY), clamp(maxX + 1), clamp(maxY + 1)
}
