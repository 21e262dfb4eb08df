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
	"github.com/mlnoga/panorec/internal/sift"
)

// A candidate correspondence between two keypoints from different images,
// with the squared distance between their descriptors.
// Keys[0] always holds the keypoint with the numerically larger image tag,
// so repeated matches between the same two images never flip sides
type Match struct {
	Keys    [2]*sift.KeyPoint
	DistSqr int32
}

func NewMatch(key0, key1 *sift.KeyPoint, distSqr int32) Match {
	if key0.Tag > key1.Tag {
		return Match{Keys: [2]*sift.KeyPoint{key0, key1}, DistSqr: distSqr}
	}
	return Match{Keys: [2]*sift.KeyPoint{key1, key0}, DistSqr: distSqr}
}

// All surviving matches between one pair of images, with the fitted
// similarity model once geometric verification has run.
// IDs[0] holds the numerically larger image id
type ImageMatch struct {
	IDs     [2]int32
	Matches []Match
	Model   *Similarity
}

func NewImageMatch(id0, id1 int32) *ImageMatch {
	if id0 > id1 {
		return &ImageMatch{IDs: [2]int32{id0, id1}}
	}
	return &ImageMatch{IDs: [2]int32{id1, id0}}
}
