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

// Package geometry validates and repairs the detection rectangles returned
// by the vision model. Model coordinates are untrusted: they can be missing,
// negative, fractional, or larger than the image. Normalization always
// produces a box that lies inside the image, so downstream cropping never
// has to handle a bad rectangle.
package geometry

import (
	"log/slog"

	"github.com/darkroomlabs/darkroom/internal/core/model"
)

// lowCoverageThreshold is the fraction of image width or height below which
// a detected box is suspiciously small. The physical print usually fills
// most of the frame, so low coverage is logged for inspection.
const lowCoverageThreshold = 0.90

// NormalizeBoundingBox clamps a raw detection rectangle to the image bounds.
//
// Missing fields default to a centered box covering 80% of each dimension,
// truncated toward zero. The result always satisfies the BoundingBox
// invariants for the given image size; the function never fails. A box that
// covers less than 90% of either dimension emits a warning log and nothing
// else.
func NormalizeBoundingBox(raw map[string]any, imageWidth, imageHeight int) model.BoundingBox {
	x := intField(raw, "x", float64(imageWidth)*0.1)
	y := intField(raw, "y", float64(imageHeight)*0.1)
	width := intField(raw, "width", float64(imageWidth)*0.8)
	height := intField(raw, "height", float64(imageHeight)*0.8)

	x = clamp(x, 0, imageWidth-1)
	y = clamp(y, 0, imageHeight-1)
	width = clamp(width, 1, imageWidth-x)
	height = clamp(height, 1, imageHeight-y)

	widthCoverage := float64(width) / float64(imageWidth)
	heightCoverage := float64(height) / float64(imageHeight)
	if widthCoverage < lowCoverageThreshold || heightCoverage < lowCoverageThreshold {
		slog.Warn("low bounding box coverage",
			"width_coverage", widthCoverage,
			"height_coverage", heightCoverage)
	}

	return model.BoundingBox{X: x, Y: y, Width: width, Height: height}
}

// ClampToBounds defensively re-clamps a box against the actual image
// dimensions. Cropping goes through this even for already normalized boxes,
// since the caller may pass coordinates computed against stale dimensions.
func ClampToBounds(box model.BoundingBox, imageWidth, imageHeight int) model.BoundingBox {
	box.X = clamp(box.X, 0, imageWidth-1)
	box.Y = clamp(box.Y, 0, imageHeight-1)
	box.Width = clamp(box.Width, 1, imageWidth-box.X)
	box.Height = clamp(box.Height, 1, imageHeight-box.Y)
	return box
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// intField reads a numeric field from the raw payload, truncating toward
// zero. JSON numbers decode as float64; strings and other types fall back to
// the default.
func intField(raw map[string]any, key string, def float64) int {
	if raw != nil {
		switch v := raw[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return int(def)
}
