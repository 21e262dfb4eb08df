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
	"io"
	"testing"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/panorec/internal/sift"
)

// Builds keypoints for one synthetic image: numKeys distinct descriptors
// derived from descSeed, at random normalized positions. A paired image
// built from the same descSeed and posSeed sees the same scene
func syntheticImageKeys(tag int32, numKeys int, descSeed, posSeed uint32, noise uint32) []*sift.KeyPoint {
	descRNG := fastrand.RNG{}
	descRNG.Seed(descSeed)
	posRNG := fastrand.RNG{}
	posRNG.Seed(posSeed)
	noiseRNG := fastrand.RNG{}
	noiseRNG.Seed(descSeed*31 + noise + 1)

	keys := make([]*sift.KeyPoint, numKeys)
	for i := range keys {
		k := &sift.KeyPoint{
			X:   float32(posRNG.Uint32n(1000))/1000.0 - 0.5,
			Y:   float32(posRNG.Uint32n(1000))/1000.0 - 0.5,
			Tag: tag,
		}
		for d := 0; d < sift.VecLength; d++ {
			v := int32(descRNG.Uint32n(256))
			if noise > 0 {
				v += int32(noiseRNG.Uint32n(2*noise+1)) - int32(noise)
				if v < 0 {
					v = 0
				} else if v > 255 {
					v = 255
				}
			}
			k.Desc[d] = uint8(v)
		}
		keys[i] = k
	}
	return keys
}

// Two overlapping pairs A/A' and B/B' with no cross overlap must group into
// exactly two panoramas of two images each, partitioning images and matches
func TestMatchImagesDisjointPairs(t *testing.T) {
	var keys []*sift.KeyPoint
	keys = append(keys, syntheticImageKeys(0, 40, 1000, 2000, 0)...)
	keys = append(keys, syntheticImageKeys(1, 40, 1000, 2000, 2)...)
	keys = append(keys, syntheticImageKeys(2, 40, 5000, 6000, 0)...)
	keys = append(keys, syntheticImageKeys(3, 40, 5000, 6000, 2)...)

	tree := NewKDTree(keys)
	matcher := NewMatcher(8, 20, true, 42)
	panoramas := matcher.MatchImages([]int32{0, 1, 2, 3}, tree, io.Discard)

	if len(panoramas) != 2 {
		t.Fatalf("got %d panoramas, expect 2", len(panoramas))
	}

	// partition law over images
	seen := map[int32]int{}
	for _, p := range panoramas {
		if len(p.ImageIDs) != 2 {
			t.Errorf("panorama has %d images, expect 2", len(p.ImageIDs))
		}
		for _, id := range p.ImageIDs {
			seen[id]++
		}
	}
	for id := int32(0); id < 4; id++ {
		if seen[id] != 1 {
			t.Errorf("image %d appears in %d panoramas, expect 1", id, seen[id])
		}
	}

	// A pairs with A', B with B'
	for _, p := range panoramas {
		if len(p.ImageIDs) == 2 && (p.ImageIDs[0] <= 1) != (p.ImageIDs[1] <= 1) {
			t.Errorf("panorama mixes the disjoint pairs: %v", p.ImageIDs)
		}
	}

	// verified matches satisfy their model, with ordered ids and tags
	for _, p := range panoramas {
		if len(p.ImageMatches) != 1 {
			t.Errorf("panorama has %d image matches, expect 1", len(p.ImageMatches))
		}
		for _, im := range p.ImageMatches {
			if im.IDs[0] <= im.IDs[1] {
				t.Errorf("image match ids %v not in descending order", im.IDs)
			}
			if im.Model == nil {
				t.Error("surviving image match without fitted model")
				continue
			}
			if len(im.Matches) < 8 {
				t.Errorf("surviving image match has only %d matches", len(im.Matches))
			}
			for i := range im.Matches {
				m := &im.Matches[i]
				if m.Keys[0].Tag <= m.Keys[1].Tag {
					t.Errorf("match %d tags %d, %d not in descending order", i, m.Keys[0].Tag, m.Keys[1].Tag)
				}
				if e := im.Model.FitError(m); e >= maxFitError {
					t.Errorf("match %d fit error %g above threshold under stored model", i, e)
				}
			}
		}
	}
}

// A single image produces no panorama
func TestMatchImagesSingle(t *testing.T) {
	keys := syntheticImageKeys(0, 40, 1000, 2000, 0)
	tree := NewKDTree(keys)
	matcher := NewMatcher(8, 20, true, 42)
	panoramas := matcher.MatchImages([]int32{0}, tree, io.Discard)
	if len(panoramas) != 0 {
		t.Errorf("single image produced %d panoramas, expect 0", len(panoramas))
	}
}

// Unrelated images produce no panoramas
func TestMatchImagesUnrelated(t *testing.T) {
	var keys []*sift.KeyPoint
	keys = append(keys, syntheticImageKeys(0, 40, 1000, 2000, 0)...)
	keys = append(keys, syntheticImageKeys(1, 40, 9000, 8000, 0)...)

	tree := NewKDTree(keys)
	matcher := NewMatcher(8, 20, true, 42)
	panoramas := matcher.MatchImages([]int32{0, 1}, tree, io.Discard)
	if len(panoramas) != 0 {
		t.Errorf("unrelated images produced %d panoramas, expect 0", len(panoramas))
	}
}

// Matches per surviving pair are truncated to the maximum
func TestMatchImagesTruncation(t *testing.T) {
	var keys []*sift.KeyPoint
	keys = append(keys, syntheticImageKeys(0, 60, 1000, 2000, 0)...)
	keys = append(keys, syntheticImageKeys(1, 60, 1000, 2000, 2)...)

	tree := NewKDTree(keys)
	matcher := NewMatcher(8, 10, true, 42)
	panoramas := matcher.MatchImages([]int32{0, 1}, tree, io.Discard)
	if len(panoramas) != 1 {
		t.Fatalf("got %d panoramas, expect 1", len(panoramas))
	}
	for _, im := range panoramas[0].ImageMatches {
		if len(im.Matches) > 10 {
			t.Errorf("image match kept %d matches, expect at most 10", len(im.Matches))
		}
	}
}
