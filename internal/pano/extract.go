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
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"

	"github.com/mlnoga/panorec/internal/sift"
)

// Rough in-memory footprint of one image under extraction: the original
// color planes plus the gaussian and DoG stacks of the working copy
const bytesPerExtraction = 512 * 1024 * 1024

// Picks a worker count for parallel extraction: one per logical core,
// reduced if physical memory cannot hold that many pyramids at once
func DefaultMaxThreads() int {
	threads := cpuid.CPU.LogicalCores
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	maxByMemory := int(memory.TotalMemory() / bytesPerExtraction)
	if maxByMemory < 1 {
		maxByMemory = 1
	}
	if threads > maxByMemory {
		threads = maxByMemory
	}
	return threads
}

// Loads all images and extracts their keypoints, limiting concurrency to
// maxThreads. Extraction is pure per image; results arrive in input order
func ExtractAll(fileNames []string, downWidth, downHeight int32, extractor *sift.Extractor, maxThreads int, logWriter io.Writer) (images []*PanoImage, err error) {
	if maxThreads < 1 {
		maxThreads = DefaultMaxThreads()
	}

	images = make([]*PanoImage, len(fileNames))
	sem := make(chan bool, maxThreads)
	res := make(chan error, len(fileNames))
	for i, fileName := range fileNames {
		sem <- true
		go func(i int, fileName string) {
			defer func() { <-sem }()
			img, err := NewPanoImage(fileName, downWidth, downHeight, extractor, logWriter)
			if err != nil {
				images[i] = nil
				res <- err
				return
			}
			images[i] = img
			res <- nil
		}(i, fileName)
	}
	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
	for i := 0; i < len(fileNames); i++ {
		r := <-res
		if r != nil {
			if err == nil {
				err = r
			} else {
				err = errors.New(fmt.Sprintf("Multiple errors: %s, %s", err.Error(), r.Error()))
			}
		}
	}
	return images, err
}
