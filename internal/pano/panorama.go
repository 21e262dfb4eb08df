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

	"github.com/mlnoga/panorec/internal/match"
)

// A discovered panorama: the images of one connected component of the match
// graph, plus the verified matches between them. Image order follows the
// grouper's enumeration; the first image anchors the coordinate frame during
// bundle adjustment
type Panorama struct {
	Images       []*PanoImage
	ImageMatches []*match.ImageMatch
}

// Assembles a panorama from a grouper component, resolving image ids back to
// their images
func NewPanorama(component *match.Panorama, imagesByID map[int32]*PanoImage) (*Panorama, error) {
	p := &Panorama{ImageMatches: component.ImageMatches}
	for _, id := range component.ImageIDs {
		img := imagesByID[id]
		if img == nil {
			return nil, fmt.Errorf("panorama references unknown image id %d", id)
		}
		p.Images = append(p.Images, img)
	}
	return p, nil
}
