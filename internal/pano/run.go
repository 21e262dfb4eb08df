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

	"github.com/mlnoga/panorec/internal/conf"
	"github.com/mlnoga/panorec/internal/match"
	"github.com/mlnoga/panorec/internal/sift"
)

// Runs the full recognition pipeline on the given input images: extraction,
// global matching, geometric verification, grouping, bundle adjustment and
// stitching. Emits one result_a.jpg, result_b.jpg, ... per discovered
// panorama into the working directory and returns the file names
func Run(fileNames []string, settings *conf.Settings, logWriter io.Writer) (outputs []string, err error) {
	if len(fileNames) == 0 {
		return nil, nil
	}

	// extract keypoints from all images in parallel
	extractor := sift.NewExtractor(settings.Sift)
	images, err := ExtractAll(fileNames, settings.DownWidth, settings.DownHeight, extractor, settings.MaxThreads, logWriter)
	if err != nil {
		return nil, err
	}

	// pool all keypoints and index them in one global tree
	var keys []*sift.KeyPoint
	imageIDs := make([]int32, len(images))
	imagesByID := map[int32]*PanoImage{}
	for i, img := range images {
		imageIDs[i] = img.ID
		imagesByID[img.ID] = img
		for k := range img.Keys {
			keys = append(keys, &img.Keys[k])
		}
	}
	tree := match.NewKDTree(keys)
	fmt.Fprintf(logWriter, "Indexed %d keypoints from %d images\n", len(keys), len(images))

	// pairwise matching with geometric verification, then grouping
	matcher := match.NewMatcher(settings.MinMatches, settings.MaxMatches, true, settings.Seed)
	components := matcher.MatchImages(imageIDs, tree, logWriter)
	fmt.Fprintf(logWriter, "Found %d panoramas\n", len(components))

	// refine and stitch each panorama
	optimizer := NewOptimizer()
	stitcher := &Stitcher{CanvasSize: settings.CanvasSize, WorldScale: settings.WorldScale}
	for i := range components {
		p, err := NewPanorama(&components[i], imagesByID)
		if err != nil {
			return outputs, err
		}

		optimizer.Optimize(p, logWriter)

		result := stitcher.Stitch(p, logWriter)
		fileName := fmt.Sprintf("result_%c.jpg", 'a'+i)
		fmt.Fprintf(logWriter, "Writing %s pixel composite of %d images to %s\n", result.DimensionsToString(), len(p.Images), fileName)
		if err := result.WriteJPGToFile(fileName, settings.Quality); err != nil {
			return outputs, fmt.Errorf("writing %s: %w", fileName, err)
		}
		outputs = append(outputs, fileName)
	}
	return outputs, nil
}
