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

// Package model defines the data structures for the application. This file
// provides factory functions for hardcoded example instances that are
// embedded in prompts as few-shot examples. Showing the model a concrete,
// well-formed JSON document makes its responses far more likely to be
// parsable on the first attempt.
package model

// GetExampleImagePayload returns a complete example of the JSON document the
// vision model is asked to produce for an image: a bounding box for the
// physical print plus the historical metadata block.
func GetExampleImagePayload() map[string]any {
	return map[string]any{
		"bounding_box": BoundingBox{X: 120, Y: 85, Width: 1650, Height: 1240},
		"metadata":     GetExampleMetadata(),
	}
}

// GetExampleVideoPayload returns the example JSON document for film footage
// analysis, which carries metadata only.
func GetExampleVideoPayload() map[string]any {
	return map[string]any{
		"metadata": GetExampleMetadata(),
	}
}

// GetExampleMetadata returns a sample metadata block used for few-shot
// prompting. The values are plausible but entirely fictional.
func GetExampleMetadata() Metadata {
	return Metadata{
		"estimated_year":     "1952-1956",
		"historical_context": "Post-war suburban expansion; families settling into newly built neighborhoods.",
		"clothing_analysis": map[string]any{
			"styles":       "Single-breasted wool suit, knee-length day dress with a fitted waist",
			"materials":    "Wool, cotton poplin",
			"quality":      "Well-tailored, likely ready-to-wear from a department store",
			"significance": "Conservative mid-century dress suggesting a formal family occasion",
		},
		"socioeconomic_inference": "Comfortably middle class; clothing and setting suggest stable income.",
		"lifestyle_insights":      "Family-centered social life; portrait likely taken for a holiday or anniversary.",
		"notes":                   "Black and white studio portrait of a couple, posed against a plain backdrop.",
	}
}
