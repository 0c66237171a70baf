// Copyright 2025 Darkroom Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil provides shared helpers for the test suites: a config
// singleton with the compiled defaults and generators for small test media
// files. Tests never read TOML files or touch the network.
package testutil

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/darkroomlabs/darkroom/internal/cloud"
)

var config *cloud.Config

// GetConfig returns the shared test configuration: compiled defaults only,
// no file loading.
func GetConfig() *cloud.Config {
	if config == nil {
		config = cloud.NewConfig()
	}
	return config
}

// HandleErr fails the test immediately on a non-nil error.
func HandleErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// WriteTestImage writes a width x height JPEG with a gray center on a dark
// border into dir and returns its path. The two-tone layout gives crop and
// grayscale tests something to assert against.
func WriteTestImage(t *testing.T, dir string, width, height int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	border := color.NRGBA{R: 20, G: 15, B: 10, A: 255}
	center := color.NRGBA{R: 180, G: 170, B: 150, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := border
			if x > width/4 && x < 3*width/4 && y > height/4 && y < 3*height/4 {
				c = center
			}
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, "scan.jpg")
	HandleErr(t, imaging.Save(img, path))
	return path
}

// WriteTestFile writes raw bytes into dir under name and returns the path.
func WriteTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	HandleErr(t, os.WriteFile(path, data, 0o644))
	return path
}
