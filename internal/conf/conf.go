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


package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mlnoga/panorec/internal/sift"
)

// All tunable settings of the recognition pipeline. Zero-config runs use the
// defaults from NewSettings; a YAML file and individual flags override them
type Settings struct {
	Sift sift.Params `yaml:"sift"`

	DownWidth  int32 `yaml:"downWidth"`  // working size for keypoint extraction
	DownHeight int32 `yaml:"downHeight"` // images are downscaled to fit, never upscaled

	MinMatches int    `yaml:"minMatches"` // minimum surviving matches per image pair
	MaxMatches int    `yaml:"maxMatches"` // best matches to keep per pair, 0 keeps all
	Seed       uint32 `yaml:"seed"`       // RANSAC random seed, 0 seeds from the clock

	CanvasSize int32   `yaml:"canvasSize"` // stitching canvas width and height
	WorldScale float32 `yaml:"worldScale"` // normalized coordinates to canvas pixels

	MaxThreads int `yaml:"maxThreads"` // parallel extractions, 0 sizes automatically
	Quality    int `yaml:"quality"`    // JPEG output quality
}

func NewSettings() *Settings {
	return &Settings{
		Sift:       sift.NewParams(),
		DownWidth:  800,
		DownHeight: 600,
		MinMatches: 8,
		MaxMatches: 20,
		Seed:       0,
		CanvasSize: 4000,
		WorldScale: 1000,
		MaxThreads: 0,
		Quality:    95,
	}
}

// Loads settings from the given YAML file on top of the defaults
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("settings file not found: %s", path)
		}
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	settings := NewSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) Validate() error {
	if s.DownWidth < 2*s.Sift.BorderDist+2 || s.DownHeight < 2*s.Sift.BorderDist+2 {
		return fmt.Errorf("working size %dx%d too small for border distance %d", s.DownWidth, s.DownHeight, s.Sift.BorderDist)
	}
	if s.Sift.Scales < 1 {
		return fmt.Errorf("scales must be at least 1, have %d", s.Sift.Scales)
	}
	if s.Sift.InitSigma <= 0 {
		return fmt.Errorf("initSigma must be positive, have %g", s.Sift.InitSigma)
	}
	if s.MinMatches < 2 {
		return fmt.Errorf("minMatches must be at least 2, have %d", s.MinMatches)
	}
	if s.MaxMatches != 0 && s.MaxMatches < s.MinMatches {
		return fmt.Errorf("maxMatches %d below minMatches %d", s.MaxMatches, s.MinMatches)
	}
	if s.CanvasSize < 2 {
		return fmt.Errorf("canvasSize must be at least 2, have %d", s.CanvasSize)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("quality must be in [1,100], have %d", s.Quality)
	}
	return nil
}
