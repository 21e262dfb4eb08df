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

	"gonum.org/v1/gonum/mat"

	"github.com/mlnoga/panorec/internal/geom"
)

// A single surviving match between two images, as consumed by
// Levenberg-Marquardt residual calculation. index0 and index1 address the
// images owning the two keypoints within the panorama
type residual struct {
	index0, index1 int
	x0, y0, x1, y1 float32
}

// Bundle adjuster: jointly refines the per-image rotate-scale homographies
// of a panorama by Levenberg-Marquardt minimization over all surviving
// matches. The first image is held at identity to fix the gauge; without
// this anchor the normal equations are rank-deficient by four
type Optimizer struct {
	GradientThresholdSqr float64
	StepThresholdSqr     float64
	ErrorThreshold       float64
	MaxIterations        int
}

func NewOptimizer() *Optimizer {
	return &Optimizer{
		GradientThresholdSqr: 1e-7,
		StepThresholdSqr:     1e-7,
		ErrorThreshold:       1e-7,
		MaxIterations:        100,
	}
}

// Refines the homographies of all images in the panorama in place.
// Returns the residual error at the accepted parameters
func (o *Optimizer) Optimize(p *Panorama, logWriter io.Writer) float64 {
	if len(p.Images) < 2 {
		return 0
	}

	// map image ids to indices within this panorama
	indices := map[int32]int{}
	for i, img := range p.Images {
		indices[img.ID] = i
	}

	// one residual per surviving match
	residuals := []residual{}
	for _, im := range p.ImageMatches {
		index0, index1 := indices[im.IDs[0]], indices[im.IDs[1]]
		for j := range im.Matches {
			m := &im.Matches[j]
			residuals = append(residuals, residual{
				index0: index0, index1: index1,
				x0: m.Keys[0].X, y0: m.Keys[0].Y,
				x1: m.Keys[1].X, y1: m.Keys[1].Y,
			})
		}
	}

	// four parameters per image, the first image stays gauge-fixed
	paramN := 4 * (len(p.Images) - 1)
	residN := len(residuals)

	params := make([]float64, paramN)
	for i := 0; i < len(p.Images)-1; i++ {
		params[i*4+3] = 1 // unit scale
	}

	model := &bundleModel{residuals: residuals, numImages: len(p.Images)}
	errorValue := o.levMar(model, params)
	if errorValue > o.ErrorThreshold {
		fmt.Fprintf(logWriter, "Warning: bundle adjustment of %d images over %d matches stopped at residual error %.3g\n",
			len(p.Images), residN, errorValue)
	} else {
		fmt.Fprintf(logWriter, "Bundle adjustment of %d images over %d matches converged, residual error %.3g\n",
			len(p.Images), residN, errorValue)
	}

	// write homographies back
	homographies := model.homographies(params)
	for i, img := range p.Images {
		img.Homography = homographies[i]
	}
	return errorValue
}

// Fits the given model with damped Gauss-Newton iteration. Modifies params
// in place and returns the residual error at the final parameters
func (o *Optimizer) levMar(model *bundleModel, params []float64) float64 {
	paramN := len(params)
	residN := len(model.residuals)

	j := mat.NewDense(residN, paramN, nil)
	x := mat.NewVecDense(residN, nil)
	grad := mat.NewVecDense(paramN, nil)
	step := mat.NewVecDense(paramN, nil)
	a := mat.NewDense(paramN, paramN, nil)
	newParams := make([]float64, paramN)

	dampingTerm := 1.0
	iterationN := 0

	model.nextIteration(params, j, x)
	errorValue := model.residualError(params)

	for {
		// gradient of the squared error: g = J^T * (-x)
		grad.MulVec(j.T(), x)
		grad.ScaleVec(-1, grad)
		if mat.Dot(grad, grad) < o.GradientThresholdSqr {
			break
		}

		// inner loop: adjust the damping term until a step improves the error
		for {
			iterationN++

			a.Mul(j.T(), j)
			for k := 0; k < paramN; k++ {
				a.Set(k, k, a.At(k, k)+dampingTerm)
			}

			if err := step.SolveVec(a, grad); err != nil {
				dampingTerm *= 10
				if iterationN > o.MaxIterations {
					break
				}
				continue
			}

			for k := 0; k < paramN; k++ {
				newParams[k] = params[k] + step.AtVec(k)
			}
			newError := model.residualError(newParams)

			if newError < errorValue {
				errorValue = newError
				copy(params, newParams)
				dampingTerm /= 10
				break
			}
			dampingTerm *= 10

			if iterationN > o.MaxIterations {
				break
			}
		}

		if iterationN > o.MaxIterations {
			break
		}
		if mat.Dot(step, step) < o.StepThresholdSqr {
			break
		}
		if errorValue < o.ErrorThreshold {
			break
		}

		model.nextIteration(params, j, x)
	}
	return errorValue
}

// The bundle adjustment model: maps the flat parameter vector to per-image
// homographies and calculates residuals and their Jacobian
type bundleModel struct {
	residuals []residual
	numImages int
}

// Expands the parameter vector into homographies for all images. The first
// image maps to identity and has no parameters
func (b *bundleModel) homographies(params []float64) []Homography {
	hs := make([]Homography, b.numImages)
	hs[0] = NewHomography()
	for i := 1; i < b.numImages; i++ {
		t := (i - 1) * 4
		hs[i] = Homography{
			Axis:  geom.Vec3{X: float32(params[t]), Y: float32(params[t+1]), Z: float32(params[t+2])},
			Scale: float32(params[t+3]),
		}
	}
	return hs
}

// Calculates the summed squared residual error at the given parameters
func (b *bundleModel) residualError(params []float64) float64 {
	hs := b.homographies(params)
	result := 0.0
	for i := range b.residuals {
		r := &b.residuals[i]
		h0m := hs[r.index0].Matrix()
		h1m1 := hs[r.index1].InverseMatrix()

		xyz := h0m.Mul(h1m1).MulVec(geom.Vec3{X: r.x1, Y: r.y1, Z: 1})
		a := r.x0 - xyz.X/xyz.Z
		bb := r.y0 - xyz.Y/xyz.Z
		result += float64(a*a + bb*bb)
	}
	return result
}

// Calculates the residual vector and the Jacobian at the given parameters.
// Each residual row has eight nonzero derivatives, four per homography
// involved; rows touching the gauge-fixed first image have only four
func (b *bundleModel) nextIteration(params []float64, j *mat.Dense, x *mat.VecDense) {
	hs := b.homographies(params)
	j.Zero()

	for i := range b.residuals {
		r := &b.residuals[i]
		h0 := &hs[r.index0]
		h1 := &hs[r.index1]
		h0m := h0.Matrix()
		h1m1 := h1.InverseMatrix()

		u1 := geom.Vec3{X: r.x1, Y: r.y1, Z: 1}
		xyz := h0m.Mul(h1m1).MulVec(u1)

		a := r.x0 - xyz.X/xyz.Z
		bb := r.y0 - xyz.Y/xyz.Z
		res := float32(math.Sqrt(float64(a*a + bb*bb)))
		x.SetVec(i, float64(res))

		/* The residual is r = sqrt(a^2 + b^2) with
		 *   (a, b) = u0 - (x/z, y/z),  (x, y, z) = H0 * H1^-1 * u1,
		 * so by the chain rule
		 *   dr/dO = (a*da/dO + b*db/dO) / r
		 *   d(a, b)/dO = d(a, b)/d(x, y, z) * d(x, y, z)/dO
		 *   d(a, b)/d(x, y, z) = | -1/z    0   x/z^2 |
		 *                        |   0   -1/z  y/z^2 |
		 * and d(x, y, z)/dO follows from the homography matrix derivatives. */
		z := xyz.Z
		dab00, dab11 := -1/z, -1/z
		dab02 := xyz.X / (z * z)
		dab12 := xyz.Y / (z * z)

		derivative := func(k int) float64 {
			if res == 0.0 {
				return 0.0
			}
			var dxyz geom.Vec3
			if k < 4 {
				dxyz = h0.MatrixDerivative(k).Mul(h1m1).MulVec(u1)
			} else {
				dxyz = h0m.Mul(h1.InverseMatrixDerivative(k - 4)).MulVec(u1)
			}
			da := dab00*dxyz.X + dab02*dxyz.Z
			db := dab11*dxyz.Y + dab12*dxyz.Z
			return float64((a*da + bb*db) / res)
		}

		if r.index0 > 0 {
			for k := 0; k < 4; k++ {
				j.Set(i, 4*(r.index0-1)+k, derivative(k))
			}
		}
		if r.index1 > 0 {
			for k := 0; k < 4; k++ {
				j.Set(i, 4*(r.index1-1)+k, derivative(k + 4))
			}
		}
	}
}
