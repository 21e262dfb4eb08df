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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/mlnoga/panorec/internal/conf"
	"github.com/mlnoga/panorec/internal/pano"
	"github.com/mlnoga/panorec/internal/rest"
	"github.com/mlnoga/panorec/internal/sift"
)

const version = "0.2.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var port   = flag.Int64("port", 8080, "port for serving HTTP API")
var chroot = flag.String("chroot", "", "directory to chroot and chdir to when serving HTTP. must be run as root")
var setuid = flag.Int64("setuid", -1, "user id number to setuid to when serving HTTP. must be run as root")

var config = flag.String("config", "", "load settings from YAML `file`")
var log    = flag.String("log", "", "save log output to `file` in addition to stdout")
var quiet  = flag.Bool("q", false, "suppress progress output")

var keys = flag.String("keys", "", "save keypoint overlays with given filename pattern, e.g. `keys%04d.jpg`")

var downW = flag.Int64("downW", 800, "downscale inputs to fit this width before extraction")
var downH = flag.Int64("downH", 600, "downscale inputs to fit this height before extraction")

var doubleSize = flag.Bool("doubleSize", false, "2x upsample images before the pyramid")
var initSigma  = flag.Float64("initSigma", 1.6, "target smoothing sigma at the start of the pyramid")
var scales     = flag.Int64("scales", 3, "number of DoG layers per octave")
var peakThresh = flag.Float64("peakThresh", 0.04, "DoG peak threshold base, divided by scales")
var edgeRatio  = flag.Float64("edgeRatio", 10.0, "principal curvature ratio for edge rejection")

var minMatches = flag.Int64("minMatches", 8, "minimum surviving matches per image pair")
var maxMatches = flag.Int64("maxMatches", 20, "number of best matches to keep per pair, 0=all")
var seed       = flag.Int64("seed", 0, "random seed for geometric verification, 0=from clock")

var canvasSize = flag.Int64("canvasSize", 4000, "stitching canvas width and height in pixels")
var threads    = flag.Int64("threads", 0, "number of parallel extractions, 0=auto")
var quality    = flag.Int64("quality", 95, "JPEG output quality")

func main() {
	var logWriter io.Writer = os.Stdout
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Panorec Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (img0.bmp ... imgn.jpg | keys img0.bmp ... | serve | legal | version)

Commands:
  <files>  Recognize panoramas among the given images and write one
           result_a.jpg, result_b.jpg, ... per panorama found
  keys     Save keypoint overlays for the given images, see -keys
  serve    Serve the stitching API via HTTP, see -port
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// tee the log into a file if requested
	if *log != "" {
		logFile, err := os.Create(*log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to open log file %s\n", *log)
			os.Exit(-1)
		}
		defer logFile.Close()
		logWriter = io.MultiWriter(logWriter, logFile)
	}
	if *quiet {
		logWriter = io.Discard
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create CPU profile: %s\n", err)
			os.Exit(-1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(logWriter, "Could not start CPU profile: %s\n", err)
			os.Exit(-1)
		}
		defer pprof.StopCPUProfile()
	}

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	switch args[0] {
	case "serve":
		if err := rest.MakeSandbox(*chroot, int(*setuid), logWriter); err != nil {
			fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
			os.Exit(-1)
		}
		err = rest.Serve(int(*port), settings)

	case "keys":
		err = drawKeys(args[1:], settings, logWriter)

	case "legal":
		fmt.Fprintf(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		// all arguments are input images
		_, err = pano.Run(args, settings, logWriter)
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(-1)
	}

	elapsed := time.Now().Sub(start).Round(time.Millisecond * 10)
	fmt.Fprintf(logWriter, "\nDone after %s\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(logWriter, "Could not create memory profile: %s\n", err)
			os.Exit(-1)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			fmt.Fprintf(logWriter, "Could not write allocation profile: %s\n", err)
			os.Exit(-1)
		}
	}
}

// Builds the effective settings: defaults, then the YAML config file if
// given, then explicitly set flags on top
func loadSettings() (*conf.Settings, error) {
	settings := conf.NewSettings()
	if *config != "" {
		loaded, err := conf.LoadSettings(*config)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "downW":
			settings.DownWidth = int32(*downW)
		case "downH":
			settings.DownHeight = int32(*downH)
		case "doubleSize":
			settings.Sift.DoubleImageSize = *doubleSize
		case "initSigma":
			settings.Sift.InitSigma = float32(*initSigma)
		case "scales":
			settings.Sift.Scales = int32(*scales)
		case "peakThresh":
			settings.Sift.PeakThreshInit = float32(*peakThresh)
		case "edgeRatio":
			settings.Sift.EdgeEigenRatio = float32(*edgeRatio)
		case "minMatches":
			settings.MinMatches = int(*minMatches)
		case "maxMatches":
			settings.MaxMatches = int(*maxMatches)
		case "seed":
			settings.Seed = uint32(*seed)
		case "canvasSize":
			settings.CanvasSize = int32(*canvasSize)
		case "threads":
			settings.MaxThreads = int(*threads)
		case "quality":
			settings.Quality = int(*quality)
		}
	})
	return settings, settings.Validate()
}

// Extracts keypoints for the given images and saves arrow overlays
func drawKeys(fileNames []string, settings *conf.Settings, logWriter io.Writer) error {
	if len(fileNames) == 0 {
		return fmt.Errorf("no input files given")
	}
	pattern := *keys
	if pattern == "" {
		pattern = "keys%04d.jpg"
	}

	extractor := sift.NewExtractor(settings.Sift)
	images, err := pano.ExtractAll(fileNames, settings.DownWidth, settings.DownHeight, extractor, settings.MaxThreads, logWriter)
	if err != nil {
		return err
	}
	for _, img := range images {
		fileName := pattern
		if strings.Contains(fileName, "%") {
			fileName = fmt.Sprintf(pattern, img.ID)
		} else if len(images) > 1 {
			ext := filepath.Ext(pattern)
			fileName = fmt.Sprintf("%s%04d%s", strings.TrimSuffix(pattern, ext), img.ID, ext)
		}
		overlay := img.DrawKeyPoints(settings.Sift.InitSigma)
		fmt.Fprintf(logWriter, "%d: Writing %d keypoint overlay to %s\n", img.ID, len(img.Keys), fileName)
		if err := overlay.WriteJPGToFile(fileName, settings.Quality); err != nil {
			return err
		}
	}
	return nil
}
