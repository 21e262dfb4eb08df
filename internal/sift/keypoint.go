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
	"fmt"
	"io"
)

// The descriptor is a 4x4 spatial grid of 8-bin orientation histograms,
// flattened to 128 bytes. These sizes are baked into the array type
const (
	IndexSize = 4
	OriSize   = 8
	VecLength = IndexSize * IndexSize * OriSize
)

// A scale-space keypoint, as found on an image by the extractor.
// Position and scale are in the coordinate frame of the extraction image
// until the owner remaps them, angle is in [-pi, pi]. Tag identifies the
// owning image
type KeyPoint struct {
	X     float32
	Y     float32
	Scale float32
	Angle float32
	Tag   int32
	Desc  [VecLength]uint8
}

func (k *KeyPoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f) scale %.2f angle %.2f tag %d", k.X, k.Y, k.Scale, k.Angle, k.Tag)
}

// Returns the squared euclidian distance between the two descriptors
func DescDistSqr(a, b *KeyPoint) int32 {
	sum := int32(0)
	for i := 0; i < VecLength; i++ {
		d := int32(a.Desc[i]) - int32(b.Desc[i])
		sum += d * d
	}
	return sum
}

// Prints given array of keypoints as CSV
func PrintKeyPoints(w io.Writer, keys []KeyPoint) {
	fmt.Fprintln(w, "X,Y,Scale,Angle,Tag")
	for i := range keys {
		k := &keys[i]
		fmt.Fprintf(w, "%g,%g,%g,%g,%d\n", k.X, k.Y, k.Scale, k.Angle, k.Tag)
	}
}
