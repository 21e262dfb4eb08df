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
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := NewSettings().Validate(); err != nil {
		t.Errorf("default settings invalid: %s", err.Error())
	}
}

func TestLoadSettings(t *testing.T) {
	content := `
sift:
  scales: 4
  initSigma: 1.8
downWidth: 1024
minMatches: 10
maxMatches: 30
seed: 12345
`
	path := filepath.Join(t.TempDir(), "panorec.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("loading settings: %s", err.Error())
	}
	if s.Sift.Scales != 4 || s.Sift.InitSigma != 1.8 {
		t.Errorf("sift overrides not applied: scales %d sigma %f", s.Sift.Scales, s.Sift.InitSigma)
	}
	if s.DownWidth != 1024 || s.MinMatches != 10 || s.MaxMatches != 30 || s.Seed != 12345 {
		t.Error("top-level overrides not applied")
	}
	// untouched values keep their defaults
	if s.DownHeight != 600 || s.CanvasSize != 4000 {
		t.Error("defaults lost for unset values")
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing settings file not reported")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []func(*Settings){
		func(s *Settings) { s.MinMatches = 1 },
		func(s *Settings) { s.MaxMatches = 5 },
		func(s *Settings) { s.Sift.Scales = 0 },
		func(s *Settings) { s.Sift.InitSigma = -1 },
		func(s *Settings) { s.DownWidth = 4 },
		func(s *Settings) { s.Quality = 0 },
	}
	for i, mutate := range cases {
		s := NewSettings()
		mutate(s)
		if err := s.Validate(); err == nil {
			t.Errorf("case %d: invalid settings passed validation", i)
		}
	}
}
