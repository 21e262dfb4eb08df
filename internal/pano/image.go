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

	"github.com/mlnoga/panorec/internal/raster"
	"github.com/mlnoga/panorec/internal/sift"
)

// A single image in a panorama: the original pixels, the downscaled
// grayscale version used for keypoint extraction, the extracted keypoints in
// image-size normalized coordinates, and the homography estimated by bundle
// adjustment
type PanoImage struct {
	ID       int32
	FileName string

	Original   *raster.RGBImage
	DownScaled *raster.Image

	// original image pixels relative to the image center, times this
	// factor, are keypoint coordinates
	KeyPointScaleFactor float32

	Keys []sift.KeyPoint

	Homography Homography
}

// Loads the given image file, downscales it to fit within
// downWidth x downHeight, extracts keypoints and normalizes their
// coordinates so matches are image-size invariant
func NewPanoImage(fileName string, downWidth, downHeight int32, extractor *sift.Extractor, logWriter io.Writer) (*PanoImage, error) {
	original, err := raster.LoadRGBFromFile(fileName)
	if err != nil {
		return nil, err
	}
	id := NextFreeID()
	fmt.Fprintf(logWriter, "%d: Loaded %s pixel frame from %s\n", id, original.DimensionsToString(), fileName)

	gray := original.ToGray()

	// downscale for extraction, never upscale
	originalWidth := float32(original.Width)
	originalHeight := float32(original.Height)
	downScaleFactor := float32(downWidth) / originalWidth
	if f := float32(downHeight) / originalHeight; f < downScaleFactor {
		downScaleFactor = f
	}
	downScaled := gray
	if downScaleFactor < 1.0 {
		downScaled = gray.ResizeBilinear(int32(originalWidth*downScaleFactor+0.5), int32(originalHeight*downScaleFactor+0.5))
	} else {
		downScaleFactor = 1.0
	}

	keys := extractor.ExtractKeyPoints(downScaled)
	fmt.Fprintf(logWriter, "%d: Extracted %d keypoints from %s pixel working copy\n", id, len(keys), downScaled.DimensionsToString())

	// keypoint scale factor relative to the original image
	keyPointScaleFactor := 1.0 / float32(math.Sqrt(float64(originalWidth*originalHeight)))

	// and relative to the downscaled image the keypoints were found on
	relativeScale := keyPointScaleFactor / downScaleFactor

	// tag and normalize keypoints: origin to the image center, coordinates
	// image-size invariant
	slideX := -0.5 * float32(downScaled.Width)
	slideY := -0.5 * float32(downScaled.Height)
	for i := range keys {
		keys[i].Tag = id
		keys[i].X = (keys[i].X + slideX) * relativeScale
		keys[i].Y = (keys[i].Y + slideY) * relativeScale
	}

	return &PanoImage{
		ID:                  id,
		FileName:            fileName,
		Original:            original,
		DownScaled:          downScaled,
		KeyPointScaleFactor: keyPointScaleFactor,
		Keys:                keys,
		Homography:          NewHomography(),
	}, nil
}
