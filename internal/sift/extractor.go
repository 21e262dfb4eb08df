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

	"github.com/mlnoga/panorec/internal/geom"
	"github.com/mlnoga/panorec/internal/raster"
)

// Max number of move iterations during keypoint localization
const maxKeyPointInterpMoves = 5

// Tunable parameters of the scale-space keypoint extractor
type Params struct {
	DoubleImageSize bool    `yaml:"doubleImageSize"` // 2x upsample the image before the pyramid
	InitSigma       float32 `yaml:"initSigma"`       // target smoothing level at the start of the pyramid
	BorderDist      int32   `yaml:"borderDist"`      // minimal distance of DoG peaks from the image border
	Scales          int32   `yaml:"scales"`          // number of discrete smoothing levels within each octave
	PeakThreshInit  float32 `yaml:"peakThresh"`      // DoG peak threshold base, divided by scales for use
	EdgeEigenRatio  float32 `yaml:"edgeEigenRatio"`  // principal curvature ratio above which peaks count as edges
	OriBins         int32   `yaml:"oriBins"`         // number of bins in the orientation histogram
	OriSigma        float32 `yaml:"oriSigma"`        // orientation window sigma as multiple of keypoint scale
	OriHistThresh   float32 `yaml:"oriHistThresh"`   // relative threshold for secondary orientation peaks
	MagFactor       float32 `yaml:"magFactor"`       // spacing of descriptor index samples in pixels at keypoint scale
	IndexSigma      float32 `yaml:"indexSigma"`      // descriptor gaussian window width relative to index half-width
	MaxIndexVal     float32 `yaml:"maxIndexVal"`     // post-normalization clipping value for descriptor components
}

// Returns the extraction parameters from the original Lowe paper,
// with the smoothing choices pinned by experiment
func NewParams() Params {
	return Params{
		DoubleImageSize: false,
		InitSigma:       1.6,
		BorderDist:      5,
		Scales:          3,
		PeakThreshInit:  0.04,
		EdgeEigenRatio:  10.0,
		OriBins:         36,
		OriSigma:        1.5,
		OriHistThresh:   0.8,
		MagFactor:       3,
		IndexSigma:      1.0,
		MaxIndexVal:     0.2,
	}
}

// The effective DoG magnitude threshold
func (p *Params) PeakThresh() float32 {
	return p.PeakThreshInit / float32(p.Scales)
}

// A scale-space keypoint extractor
type Extractor struct {
	Params
}

func NewExtractor(p Params) *Extractor {
	return &Extractor{Params: p}
}

// Extracts keypoints from the given grayscale image across all octaves.
// Keypoint coordinates and scales are in pixels of the given image
func (e *Extractor) ExtractKeyPoints(img *raster.Image) []KeyPoint {
	keys := []KeyPoint{}
	pixelSize := float32(1.0)
	curSigma := float32(0.5) // assume the camera image has smoothing of sigma = 0.5

	if e.DoubleImageSize {
		img = img.Resize2x()
		pixelSize *= 0.5
		curSigma *= 2
	}

	if e.InitSigma > curSigma {
		sigma := float32(math.Sqrt(float64(e.InitSigma*e.InitSigma - curSigma*curSigma)))
		img = img.GaussianBlur(sigma)
		curSigma = e.InitSigma
	}

	minSize := e.BorderDist*2 + 2
	for img.Width > minSize && img.Height > minSize {
		oct := NewOctave(img, e.Scales, curSigma)
		keys = e.keyPointsWithinOctave(oct, pixelSize, keys)

		// Blur[scales] carries 2x the octave sigma, so decimating it by two
		// restores curSigma for the next round
		img = oct.SeedForNextOctave().ResizeDown2NN()
		pixelSize *= 2
	}
	return keys
}

// Finds all keypoints within the given scale space octave and appends them to keys
func (e *Extractor) keyPointsWithinOctave(oct *Octave, pixelSize float32, keys []KeyPoint) []KeyPoint {
	w, h := oct.Width(), oct.Height()
	mask := make([]bool, w*h) // suppresses duplicate keypoints on the same integer cell

	minMag := 0.8 * e.PeakThresh()
	for s := int32(1); s <= e.Scales; s++ {
		mag, dir := oct.Blur[s].GradientMagAndDir()

		for y := e.BorderDist; y < h-e.BorderDist; y++ {
			for x := e.BorderDist; x < w-e.BorderDist; x++ {
				d := oct.DoG[s].Pixel(x, y)
				if d < minMag && -d < minMag {
					continue
				}
				if !isLocalMinMax3x3x3(oct, x, y, s) {
					continue
				}
				if e.isOnEdge(oct, x, y, s) {
					continue
				}
				fx, fy, octScale, ok := e.localizeKeyPoint(oct, mask, x, y, s)
				if !ok {
					continue
				}
				keys = e.generateKeyPoints(mag, dir, pixelSize, fx, fy, octScale, keys)
			}
		}
	}
	return keys
}

// Checks for a strict local minimum or maximum of val in the 3x3 neighborhood
func isLocalMinMax3x3(img *raster.Image, val float32, x, y int32) bool {
	w := img.Width
	d := img.Data
	i := y*w + x
	if val > 0.0 {
		if d[i+w] >= val || d[i-w] >= val || d[i+1] >= val || d[i-1] >= val ||
			d[i+w+1] >= val || d[i+w-1] >= val || d[i-w+1] >= val || d[i-w-1] >= val {
			return false
		}
	} else {
		if d[i+w] <= val || d[i-w] <= val || d[i+1] <= val || d[i-1] <= val ||
			d[i+w+1] <= val || d[i+w-1] <= val || d[i-w+1] <= val || d[i-w-1] <= val {
			return false
		}
	}
	return true
}

// Checks for a local minimum or maximum of the DoG function in the
// 3x3x3 neighborhood of (x, y, s)
func isLocalMinMax3x3x3(oct *Octave, x, y, s int32) bool {
	val := oct.DoG[s].Pixel(x, y)

	// the 3x3 checks skip the center, which on the adjacent levels is a neighbor
	below, above := oct.DoG[s-1].Pixel(x, y), oct.DoG[s+1].Pixel(x, y)
	if (val > 0.0 && (below >= val || above >= val)) || (val <= 0.0 && (below <= val || above <= val)) {
		return false
	}
	return isLocalMinMax3x3(oct.DoG[s], val, x, y) &&
		isLocalMinMax3x3(oct.DoG[s-1], val, x, y) &&
		isLocalMinMax3x3(oct.DoG[s+1], val, x, y)
}

// Checks whether the DoG peak at (x, y, s) lies on an edge, by thresholding
// the ratio of principal curvatures of the 2x2 spatial Hessian
func (e *Extractor) isOnEdge(oct *Octave, x, y, s int32) bool {
	img := oct.DoG[s]
	d00 := img.Pixel(x+1, y) + img.Pixel(x-1, y) - 2.0*img.Pixel(x, y)
	d11 := img.Pixel(x, y+1) + img.Pixel(x, y-1) - 2.0*img.Pixel(x, y)
	d01 := 0.25 * ((img.Pixel(x+1, y+1) - img.Pixel(x+1, y-1)) - (img.Pixel(x-1, y+1) - img.Pixel(x-1, y-1)))
	trace := (d00 + d11) * (d00 + d11)
	det := d00*d11 - d01*d01
	inc := (e.EdgeEigenRatio + 1.0) * (e.EdgeEigenRatio + 1.0)
	return (trace / det) >= (inc / e.EdgeEigenRatio)
}

// Fits a 3D quadratic through the DoG values around (x, y, s) and returns the
// offset of the interpolated peak, plus the interpolated peak magnitude.
// Follows the method of Brown (BMVC 02)
func adjustment(oct *Octave, x, y, s int32) (dx, dy, ds, peak float32, ok bool) {
	below, current, above := oct.DoG[s-1], oct.DoG[s], oct.DoG[s+1]

	var hess geom.Mat3
	hess[0][0] = below.Pixel(x, y) - 2*current.Pixel(x, y) + above.Pixel(x, y)
	hess[0][1] = 0.25 * (above.Pixel(x, y+1) - above.Pixel(x, y-1) - (below.Pixel(x, y+1) - below.Pixel(x, y-1)))
	hess[1][0] = hess[0][1]
	hess[0][2] = 0.25 * (above.Pixel(x+1, y) - above.Pixel(x-1, y) - (below.Pixel(x+1, y) - below.Pixel(x-1, y)))
	hess[2][0] = hess[0][2]
	hess[1][1] = current.Pixel(x, y-1) - 2*current.Pixel(x, y) + current.Pixel(x, y+1)
	hess[1][2] = 0.25 * (current.Pixel(x+1, y+1) - current.Pixel(x-1, y+1) - (current.Pixel(x+1, y-1) - current.Pixel(x-1, y-1)))
	hess[2][1] = hess[1][2]
	hess[2][2] = current.Pixel(x-1, y) - 2*current.Pixel(x, y) + current.Pixel(x+1, y)

	g := geom.Vec3{
		X: 0.5 * (above.Pixel(x, y) - below.Pixel(x, y)),
		Y: 0.5 * (current.Pixel(x, y+1) - current.Pixel(x, y-1)),
		Z: 0.5 * (current.Pixel(x+1, y) - current.Pixel(x-1, y)),
	}

	offset, ok := geom.SolveLinear3(hess, geom.Vec3{X: -g.X, Y: -g.Y, Z: -g.Z})
	if !ok {
		return 0, 0, 0, 0, false
	}

	peak = offset.Dot(g)*0.5 + current.Pixel(x, y)
	return offset.Z, offset.Y, offset.X, peak, true
}

// Finds the subpixel position of the keypoint candidate at (x, y, s),
// moving the integer sample when the offset leaves its cell. Returns false
// if the candidate must be discarded
func (e *Extractor) localizeKeyPoint(oct *Octave, mask []bool, x, y, s int32) (fx, fy, octScale float32, ok bool) {
	w, h := oct.Width(), oct.Height()

	moves := maxKeyPointInterpMoves
	for {
		dx, dy, ds, peak, solved := adjustment(oct, x, y, s)
		if !solved {
			return 0, 0, 0, false
		}

		nx, ny := x, y
		if dx > 0.6 && x < w-3 {
			nx++
		}
		if dx < -0.6 && x > 3 {
			nx--
		}
		if dy > 0.6 && y < h-3 {
			ny++
		}
		if dy < -0.6 && y > 3 {
			ny--
		}
		if moves > 0 && (nx != x || ny != y) {
			x, y = nx, ny
			moves--
			continue
		}

		peakThresh := e.PeakThresh()
		if dx > 1.5 || dx < -1.5 || dy > 1.5 || dy < -1.5 || ds > 1.5 || ds < -1.5 ||
			(peak < peakThresh && -peak < peakThresh) {
			return 0, 0, 0, false
		}

		if mask[y*w+x] {
			return 0, 0, 0, false
		}
		mask[y*w+x] = true

		// The scale relative to this octave, in terms of sigma of the smaller
		// gaussian in the DoG that identified it
		octScale = oct.InitSigma * float32(math.Pow(2.0, float64(float32(s)+ds)/float64(oct.Scales)))
		return float32(x) + dx, float32(y) + dy, octScale, true
	}
}

// Fits a parabola to the three points (-1; left), (0; middle), (1; right) and
// returns the peak location in [-1, 1]. The middle value must dominate the
// others in magnitude
func interpolatePeak(left, middle, right float32) float32 {
	if middle < 0.0 {
		left, middle, right = -left, -middle, -right
	}
	denom := left - 2.0*middle + right
	if denom == 0.0 { // all three equal, the peak is centered
		return 0
	}
	return 0.5 * (left - right) / denom
}

// Builds the orientation histogram around the localized peak, and emits one
// keypoint per dominant orientation. Keypoint coordinates are scaled by
// pixelSize into the coordinate frame of the extraction image
func (e *Extractor) generateKeyPoints(magnitude, direction *raster.Image, pixelSize, fx, fy, octScale float32, keys []KeyPoint) []KeyPoint {
	w, h := magnitude.Width, magnitude.Height
	px, py := int32(fx+0.5), int32(fy+0.5)

	sigma := e.OriSigma * octScale
	radius := int32(sigma*3.0 + 0.5)

	xMin, xMax := maxI32(px-radius, 1), minI32(px+radius, w-1)
	yMin, yMax := maxI32(py-radius, 1), minI32(py+radius, h-1)

	bins := make([]float32, e.OriBins)
	radiusSqr := float32(radius * radius)
	for y := yMin; y < yMax; y++ {
		for x := xMin; x < xMax; x++ {
			mag := magnitude.Pixel(x, y)
			if mag <= 0 { // flat point, no usable direction
				continue
			}
			dx, dy := float32(x)-fx, float32(y)-fy
			distSqr := dx*dx + dy*dy
			if distSqr > radiusSqr+0.5 {
				continue
			}
			weight := float32(math.Exp(float64(-distSqr / (2.0 * sigma * sigma))))
			bin := int32(float32(e.OriBins) * (direction.Pixel(x, y) + math.Pi + 0.0001) / (2.0 * math.Pi))
			if bin >= e.OriBins {
				bin = 0
			}
			bins[bin] += mag * weight
		}
	}

	// Smooth with a [1/3 1/3 1/3] kernel to merge split peaks.
	// Lowe uses 6 passes, libsift 4. Four works here
	n := len(bins)
	for step := 0; step < 4; step++ {
		prev := bins[n-1]
		for i := 0; i < n; i++ {
			temp := bins[i]
			next := bins[0]
			if i+1 < n {
				next = bins[i+1]
			}
			bins[i] = (prev + bins[i] + next) / 3.0
			prev = temp
		}
	}

	maxPeak := float32(0)
	for _, b := range bins {
		if b > maxPeak {
			maxPeak = b
		}
	}

	for i := 0; i < n; i++ {
		if bins[i] < maxPeak*e.OriHistThresh {
			continue
		}
		prevI, nextI := i-1, i+1
		if i == 0 {
			prevI = n - 1
		}
		if i == n-1 {
			nextI = 0
		}
		if bins[i] < bins[prevI] || bins[i] < bins[nextI] {
			continue
		}

		binCorrection := interpolatePeak(bins[prevI], bins[i], bins[nextI])
		angle := 2.0*math.Pi*(float32(i)+0.5+binCorrection)/float32(e.OriBins) - math.Pi

		keys = append(keys, KeyPoint{
			X:     pixelSize * fx,
			Y:     pixelSize * fy,
			Scale: pixelSize * octScale,
			Angle: angle,
		})
		e.createDescriptor(&keys[len(keys)-1], magnitude, direction, fx, fy, octScale)
	}
	return keys
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
