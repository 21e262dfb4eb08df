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
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/panorec/internal/sift"
)

// Threshold value for counting a match as an inlier during geometric
// verification, on image-size normalized coordinates
const maxFitError float32 = 0.01 * 0.01

// A panorama hypothesis: one connected component of the image match graph,
// holding the ids of its images and the verified matches between them
type Panorama struct {
	ImageIDs     []int32
	ImageMatches []*ImageMatch
}

// Matcher finds groups of overlapping images from their pooled keypoints
type Matcher struct {
	MinMatches int    // minimum number of surviving matches per image pair
	MaxMatches int    // number of best matches to keep per pair, 0 keeps all
	UseRANSAC  bool   // geometrically verify candidate pairs?
	Seed       uint32 // RANSAC random seed, 0 seeds from the clock
}

func NewMatcher(minMatches, maxMatches int, useRANSAC bool, seed uint32) *Matcher {
	return &Matcher{MinMatches: minMatches, MaxMatches: maxMatches, UseRANSAC: useRANSAC, Seed: seed}
}

// Matches all keypoints of all images against each other and splits the
// images into panoramas via connected components of the pairwise match
// graph. Keypoints must be tagged with their image ids; imageIDs lists every
// participating image, matched or not
func (m *Matcher) MatchImages(imageIDs []int32, tree *KDTree, logWriter io.Writer) []Panorama {
	matchMap := map[[2]int32]*ImageMatch{}

	// too few descriptors to say anything meaningful
	if tree.Size() < m.MaxMatches*2 {
		return splitIntoPanoramas(imageIDs, matchMap)
	}

	searchDepth := tree.EstimateGoodBBFSearchDepth()

	// matching A->B also finds B->A, track keypoint pairs to keep each once
	used := map[[2]*sift.KeyPoint]bool{}

	keys := tree.keys
	for i, key := range keys {
		entry, ok := m.matchKey(i, tree, searchDepth)
		if !ok {
			continue
		}

		mt := NewMatch(key, entry.Key, entry.DistSqr)

		// skip matches within one image
		if mt.Keys[0].Tag == mt.Keys[1].Tag {
			continue
		}

		// skip reverse matches
		pair := [2]*sift.KeyPoint{mt.Keys[0], mt.Keys[1]}
		if used[pair] {
			continue
		}
		used[pair] = true

		ids := [2]int32{mt.Keys[0].Tag, mt.Keys[1].Tag}
		im := matchMap[ids]
		if im == nil {
			im = NewImageMatch(ids[0], ids[1])
			matchMap[ids] = im
		}
		im.Matches = append(im.Matches, mt)
	}

	seed := m.Seed
	if seed == 0 {
		seed = uint32(time.Now().UnixNano())
	}
	var rng fastrand.RNG
	rng.Seed(seed)

	// filter the candidate pairs, in a fixed order so seeded runs reproduce
	pairs := make([][2]int32, 0, len(matchMap))
	for ids := range matchMap {
		pairs = append(pairs, ids)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, ids := range pairs {
		im := matchMap[ids]
		if len(im.Matches) < m.MinMatches {
			delete(matchMap, ids)
			continue
		}

		// geometric verification needs one match pair plus one to verify
		if m.UseRANSAC && len(im.Matches) >= 3 {
			ransac := NewRANSAC(2, m.MinMatches, &rng)
			model, ok := ransac.Fit(im.Matches, 0.5, 0.95, maxFitError)
			if !ok {
				delete(matchMap, ids)
				continue
			}
			im.Model = model
			im.Matches = model.Inliers
		}

		// keep only the best matches by descriptor distance
		if m.MaxMatches > 0 && len(im.Matches) > m.MaxMatches {
			QSelectMatches(im.Matches, m.MaxMatches)
			im.Matches = im.Matches[:m.MaxMatches]
		}

		fmt.Fprintf(logWriter, "%d-%d: %d matches survive verification\n", im.IDs[1], im.IDs[0], len(im.Matches))
	}

	return splitIntoPanoramas(imageIDs, matchMap)
}

// Finds the best distinctive match for the keypoint with the given pool
// index. The top neighbor may be the keypoint itself; the match is only kept
// if the best distance is markedly smaller than the second best
func (m *Matcher) matchKey(index int, tree *KDTree, searchDepth int) (PointEntry, bool) {
	key := tree.keys[index]
	nnList := tree.NearestNeighborsBBF(key, 3, searchDepth)
	if len(nnList) < 3 {
		return PointEntry{}, false
	}
	e0, e1 := nnList[0], nnList[1]
	if e0.Key == key {
		e0, e1 = nnList[1], nnList[2]
	}

	// Lowe's distinctiveness ratio test on squared distances
	if float32(e0.DistSqr) > 0.8*0.8*float32(e1.DistSqr) {
		return PointEntry{}, false
	}
	return e0, true
}

// Splits the images into connected components of the match graph. Components
// with at least two images become panoramas; isolated images produce none
func splitIntoPanoramas(imageIDs []int32, matchMap map[[2]int32]*ImageMatch) []Panorama {
	// adjacency lists over image ids
	graph := make(map[int32][]int32, len(imageIDs))
	for _, id := range imageIDs {
		graph[id] = nil
	}
	for ids := range matchMap {
		graph[ids[0]] = append(graph[ids[0]], ids[1])
		graph[ids[1]] = append(graph[ids[1]], ids[0])
	}

	// depth-first enumeration of components, in input image order
	used := map[int32]bool{}
	var result []Panorama
	for _, id := range imageIDs {
		if used[id] {
			continue
		}
		var nodes []int32
		var addToComponent func(n int32)
		addToComponent = func(n int32) {
			used[n] = true
			nodes = append(nodes, n)
			neighbors := graph[n]
			sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
			for _, next := range neighbors {
				if !used[next] {
					addToComponent(next)
				}
			}
		}
		addToComponent(id)

		if len(nodes) < 2 {
			continue
		}

		// collect the component's edges in a deterministic order
		inComponent := map[int32]bool{}
		for _, n := range nodes {
			inComponent[n] = true
		}
		var edges []*ImageMatch
		for ids, im := range matchMap {
			if inComponent[ids[0]] {
				edges = append(edges, im)
			}
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].IDs[0] != edges[j].IDs[0] {
				return edges[i].IDs[0] < edges[j].IDs[0]
			}
			return edges[i].IDs[1] < edges[j].IDs[1]
		})

		result = append(result, Panorama{ImageIDs: nodes, ImageMatches: edges})
	}
	return result
}
