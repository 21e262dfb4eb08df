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


package raster

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"

	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	_ "golang.org/x/image/bmp" // register BMP decoder
)

// Loads a color image from the given file. BMP, JPEG and PNG are
// supported via the decoders registered above
func LoadRGBFromFile(fileName string) (*RGBImage, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fileName, err)
	}
	defer file.Close()
	img, err := LoadRGB(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", fileName, err)
	}
	return img, nil
}

// Loads a color image from the given reader
func LoadRGB(reader io.Reader) (*RGBImage, error) {
	src, _, err := image.Decode(reader)
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	width, height := int32(bounds.Dx()), int32(bounds.Dy())
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("degenerate image dimensions %dx%d", width, height)
	}

	res := NewRGBImage(width, height)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA() // 16-bit values
			res.R[i] = float32(r) / 65535.0
			res.G[i] = float32(g) / 65535.0
			res.B[i] = float32(b) / 65535.0
			i++
		}
	}
	return res, nil
}
