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

package parse_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darkroomlabs/darkroom/internal/core/parse"
)

// TestExtractJSONPlain checks a bare JSON object decodes directly.
func TestExtractJSONPlain(t *testing.T) {
	payload, err := parse.ExtractJSON(`{"metadata": {"estimated_year": "1950"}}`)

	assert.NoError(t, err)
	md := parse.ObjectField(payload, "metadata")
	assert.Equal(t, "1950", md["estimated_year"])
}

// TestExtractJSONEmbedded checks the parser digs the object out of prose
// and markdown fences.
func TestExtractJSONEmbedded(t *testing.T) {
	raw := "Here is the analysis you asked for:\n```json\n" +
		`{"bounding_box": {"x": 10}}` + "\n```\nLet me know if you need more."

	payload, err := parse.ExtractJSON(raw)

	assert.NoError(t, err)
	box := parse.ObjectField(payload, "bounding_box")
	assert.Equal(t, float64(10), box["x"])
}

// TestExtractJSONMalformed checks unusable text yields the typed error.
func TestExtractJSONMalformed(t *testing.T) {
	_, err := parse.ExtractJSON("I could not analyze this image, sorry.")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, parse.ErrMalformedResponse))
}

// TestExtractJSONBrokenBraces checks that a brace span which is not valid
// JSON still falls through to the whole-text attempt before erroring.
func TestExtractJSONBrokenBraces(t *testing.T) {
	_, err := parse.ExtractJSON("some {not json at all} trailing")

	assert.True(t, errors.Is(err, parse.ErrMalformedResponse))
}

// TestObjectFieldMissing checks absent or mistyped sections come back as an
// empty, usable map.
func TestObjectFieldMissing(t *testing.T) {
	payload := map[string]any{"metadata": "just a string"}

	assert.Empty(t, parse.ObjectField(payload, "metadata"))
	assert.Empty(t, parse.ObjectField(payload, "bounding_box"))
	assert.NotNil(t, parse.ObjectField(payload, "bounding_box"))
}
