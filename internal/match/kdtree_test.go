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
	"testing"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/panorec/internal/sift"
)

// Generates keypoints with descriptors drawn around a set of cluster
// centers, the structure real descriptor sets exhibit
func clusteredKeys(n, numClusters int, seed uint32) []*sift.KeyPoint {
	rng := fastrand.RNG{}
	rng.Seed(seed)

	centers := make([][sift.VecLength]uint8, numClusters)
	for c := range centers {
		for d := 0; d < sift.VecLength; d++ {
			centers[c][d] = uint8(rng.Uint32n(256))
		}
	}

	keys := make([]*sift.KeyPoint, n)
	for i := range keys {
		k := &sift.KeyPoint{Tag: int32(i)}
		center := &centers[rng.Uint32n(uint32(numClusters))]
		for d := 0; d < sift.VecLength; d++ {
			v := int32(center[d]) + int32(rng.Uint32n(31)) - 15
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			k.Desc[d] = uint8(v)
		}
		keys[i] = k
	}
	return keys
}

// Brute force exact nearest neighbor, excluding the query itself
func exactNN(keys []*sift.KeyPoint, query *sift.KeyPoint) (best *sift.KeyPoint, bestDistSqr int32) {
	bestDistSqr = int32(1) << 30
	for _, k := range keys {
		if k == query {
			continue
		}
		if d := sift.DescDistSqr(query, k); d < bestDistSqr {
			best, bestDistSqr = k, d
		}
	}
	return best, bestDistSqr
}

// With unlimited leaf visits, BBF search equals exact nearest neighbor search
func TestBBFExactness(t *testing.T) {
	keys := clusteredKeys(500, 20, 99)
	tree := NewKDTree(keys)

	for i := 0; i < 100; i++ {
		query := keys[i*5]
		nnList := tree.NearestNeighborsBBF(query, 2, len(keys))
		if len(nnList) != 2 {
			t.Fatalf("query %d returned %d neighbors, expect 2", i, len(nnList))
		}
		if nnList[0].Key != query || nnList[0].DistSqr != 0 {
			t.Errorf("query %d: first neighbor is not the query itself", i)
		}
		_, expectDistSqr := exactNN(keys, query)
		if nnList[1].DistSqr != expectDistSqr {
			t.Errorf("query %d: exhaustive BBF distance %d differs from exact %d", i, nnList[1].DistSqr, expectDistSqr)
		}
	}
}

// Results must come back in ascending distance order
func TestBBFOrdering(t *testing.T) {
	keys := clusteredKeys(300, 10, 5)
	tree := NewKDTree(keys)
	for i := 0; i < 50; i++ {
		nnList := tree.NearestNeighborsBBF(keys[i], 5, len(keys))
		for j := 1; j < len(nnList); j++ {
			if nnList[j].DistSqr < nnList[j-1].DistSqr {
				t.Fatalf("query %d: neighbors out of order at %d", i, j)
			}
		}
	}
}

// Bounded-depth BBF must find the true nearest neighbor for the vast
// majority of queries
func TestBBFRecall(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall test in short mode")
	}
	keys := clusteredKeys(10000, 150, 77)
	tree := NewKDTree(keys)

	rng := fastrand.RNG{}
	rng.Seed(123)

	numQueries, hits := 300, 0
	for i := 0; i < numQueries; i++ {
		// perturb an existing descriptor, as real matching queries do
		base := keys[rng.Uint32n(uint32(len(keys)))]
		query := &sift.KeyPoint{Tag: -1}
		for d := 0; d < sift.VecLength; d++ {
			v := int32(base.Desc[d]) + int32(rng.Uint32n(11)) - 5
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			query.Desc[d] = uint8(v)
		}

		nnList := tree.NearestNeighborsBBF(query, 1, 200)
		if len(nnList) != 1 {
			t.Fatalf("query %d returned %d neighbors", i, len(nnList))
		}
		exact, exactDistSqr := exactNN(keys, query)
		if nnList[0].Key == exact || nnList[0].DistSqr == exactDistSqr {
			hits++
		}
	}

	if recall := float64(hits) / float64(numQueries); recall < 0.95 {
		t.Errorf("BBF recall at depth 200 is %f, expect >= 0.95", recall)
	}
}

func TestKDTreeDuplicates(t *testing.T) {
	// identical descriptors must not break tree construction
	keys := make([]*sift.KeyPoint, 16)
	for i := range keys {
		keys[i] = &sift.KeyPoint{Tag: int32(i)}
		for d := 0; d < sift.VecLength; d++ {
			keys[i].Desc[d] = 42
		}
	}
	tree := NewKDTree(keys)
	nnList := tree.NearestNeighborsBBF(keys[0], 3, len(keys))
	if len(nnList) != 3 {
		t.Fatalf("duplicate tree returned %d neighbors, expect 3", len(nnList))
	}
	for _, e := range nnList {
		if e.DistSqr != 0 {
			t.Errorf("duplicate descriptors at distance %d, expect 0", e.DistSqr)
		}
	}
}

func TestEstimateGoodBBFSearchDepth(t *testing.T) {
	small := NewKDTree(clusteredKeys(64, 4, 1))
	large := NewKDTree(clusteredKeys(4096, 64, 2))
	if small.EstimateGoodBBFSearchDepth() >= large.EstimateGoodBBFSearchDepth() {
		t.Error("search depth estimate does not grow with tree size")
	}
}
