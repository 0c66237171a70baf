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

// Package imageops wraps the pixel-level work the pipeline needs: loading
// and saving media files, cropping to a detected bounding box, grayscale
// conversion for the restoration fallback, and letterbox padding for the
// video backend's fixed 16:9 input requirement.
package imageops

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/darkroomlabs/darkroom/internal/core/geometry"
	"github.com/darkroomlabs/darkroom/internal/core/model"
)

// Load reads an image from disk. imaging handles jpeg/png/gif/tiff/bmp;
// webp files fall back to an explicit decoder.
func Load(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imageops: unknown format for %s: %w", path, err)
	}
	return img, nil
}

// Save writes an image to disk, choosing the encoder from the extension.
func Save(img image.Image, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: 90})
	}
	return imaging.Save(img, path)
}

// Dimensions returns the pixel width and height of the image at path without
// keeping the decoded pixels around.
func Dimensions(path string) (width, height int, err error) {
	img, err := Load(path)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// Crop cuts the given box out of the image. The box is clamped against the
// actual image bounds once more before cropping, so coordinates computed
// from stale or foreign dimensions cannot walk off the pixel grid.
func Crop(img image.Image, box model.BoundingBox) image.Image {
	bounds := img.Bounds()
	box = geometry.ClampToBounds(box, bounds.Dx(), bounds.Dy())
	return imaging.Crop(img, image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height))
}

// Grayscale produces the desaturated copy used by the deterministic
// restoration fallback when colorization is disabled.
func Grayscale(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// LetterboxToRatio pads the image onto a centered black canvas with the
// given aspect ratio. Images already at the target ratio are returned
// unchanged. Padding rather than stretching preserves the subject's
// proportions.
func LetterboxToRatio(img image.Image, ratioWidth, ratioHeight int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	targetRatio := float64(ratioWidth) / float64(ratioHeight)
	ratio := float64(width) / float64(height)

	switch {
	case ratio < targetRatio:
		// Portrait: pad left and right.
		canvas := imaging.New(int(float64(height)*targetRatio), height, color.Black)
		return imaging.PasteCenter(canvas, img)
	case ratio > targetRatio:
		// Wider than target: pad top and bottom.
		canvas := imaging.New(width, int(float64(width)/targetRatio), color.Black)
		return imaging.PasteCenter(canvas, img)
	default:
		return img
	}
}

// EncodeJPEG renders the image to JPEG bytes at quality 95, the format the
// video generation backend accepts for reference images.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
