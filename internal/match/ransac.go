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


package match

import (
	"math"

	"github.com/valyala/fastrand"
)

// RANSAC estimates the similarity model between an image pair from match
// sets containing outliers. The cost function sums min(fitError, threshold)
// over all matches rather than counting inliers, which makes this the MSAC
// variant (see "MLESAC: A New Robust Estimator with Application to
// Estimating Image Geometry").
type RANSAC struct {
	MinPointsToFit    int // smallest number of matches to fit a model, 2 for similarity
	MinPointsToAccept int // smallest number of inliers for a model to be accepted
	RNG               *fastrand.RNG
}

func NewRANSAC(minPointsToFit, minPointsToAccept int, rng *fastrand.RNG) *RANSAC {
	return &RANSAC{MinPointsToFit: minPointsToFit, MinPointsToAccept: minPointsToAccept, RNG: rng}
}

// Finds the best similarity model fitting the given matches.
//
// inlierFraction is the assumed fraction of good matches, used to size the
// iteration budget; it is re-estimated upward whenever a better model is
// found. targetProbability is the required probability of hitting a good
// sample, maxFitError the threshold for counting a match as an inlier.
// Returns false if no acceptable model was found
func (r *RANSAC) Fit(matches []Match, inlierFraction, targetProbability, maxFitError float32) (*Similarity, bool) {
	if len(matches) < r.MinPointsToFit {
		return nil, false
	}

	requiredIterations := EstimateIterations(targetProbability, inlierFraction, r.MinPointsToFit, 1.0)

	var best *Similarity
	bestCost := float32(math.MaxFloat32)

	for i := 0; i < requiredIterations; i++ {
		// draw two distinct matches uniformly at random
		a := int(r.RNG.Uint32n(uint32(len(matches))))
		b := a
		for b == a {
			b = int(r.RNG.Uint32n(uint32(len(matches))))
		}

		trans, ok := fitSimilarity(&matches[a], &matches[b])
		if !ok {
			continue
		}

		// score all matches with the truncated cost kernel
		model := Similarity{Trans: trans}
		cost := float32(0)
		inliers := []Match{}
		for j := range matches {
			fitError := model.FitError(&matches[j])
			if fitError < maxFitError {
				inliers = append(inliers, matches[j])
				cost += fitError
			} else {
				cost += maxFitError
			}
		}

		if len(inliers) < r.MinPointsToAccept {
			continue
		}

		if cost < bestCost {
			model.Inliers = inliers
			best, bestCost = &model, cost

			// a better model implies a better inlier fraction estimate, which
			// shrinks the remaining iteration budget
			currentInlierFraction := float32(len(inliers)) / float32(len(matches))
			if currentInlierFraction > inlierFraction {
				inlierFraction = currentInlierFraction
				requiredIterations = EstimateIterations(targetProbability, inlierFraction, r.MinPointsToFit, 1.0)
			}
		}
	}

	return best, best != nil
}

// Calculates the expected number of iterations required to find a good
// sample with probability targetProbability, when a fraction inlierFraction
// of the matches is good and minPointsToFit points are needed per sample.
//
// Iterations form a geometric distribution with per-trial success
// probability w^p, so k solves 1-(1-w^p)^k = targetProbability. The standard
// deviation sqrt(1-w^p)/w^p times sdFactor is added for confidence
func EstimateIterations(targetProbability, inlierFraction float32, minPointsToFit int, sdFactor float32) int {
	successProbability := math.Pow(float64(inlierFraction), float64(minPointsToFit))
	return int(math.Log(1-float64(targetProbability))/math.Log(1-successProbability)+
		float64(sdFactor)*math.Sqrt(1-successProbability)/successProbability) + 1
}
