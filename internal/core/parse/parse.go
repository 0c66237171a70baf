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

// Package parse extracts structured payloads from free-form generative model
// responses. Models frequently wrap their JSON answer in prose or markdown
// fences, so the parser hunts for the widest '{...}' span before giving up
// on the text as a whole.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse reports that the model answered but its output could
// not be decoded as JSON by any strategy. Callers must treat this as
// unusable model output, not as a transport failure.
var ErrMalformedResponse = errors.New("malformed model response")

// ExtractJSON decodes the JSON object embedded in a raw model response.
//
// Strategy one takes the span from the first '{' to the last '}' and decodes
// it; that strips markdown fences and any leading or trailing commentary.
// Strategy two decodes the entire raw text. If both fail the function
// returns ErrMalformedResponse.
func ExtractJSON(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil {
			return payload, nil
		}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return payload, nil
}

// ObjectField returns the nested object under key, or an empty map when the
// key is missing or holds a non-object value. Model output is advisory, so
// absent sections are normal.
func ObjectField(payload map[string]any, key string) map[string]any {
	if v, ok := payload[key].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}
