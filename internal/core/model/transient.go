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

// Package model defines the core data structures for the application.
// Every type in this file is transient and request-scoped: objects are
// created when a request arrives, flow through the analysis and restoration
// services, and are discarded once the response is written. Nothing here is
// persisted or shared between concurrent requests.
package model

// Link types used in Metadata's wikipedia_links entries.
const (
	LinkTypeLocation = "location"
	LinkTypeTopic    = "topic"
)

// BoundingBox is an axis-aligned pixel rectangle with its origin at the
// top-left of the containing image. A normalized box always satisfies
// 0 <= X, 0 <= Y, X+Width <= image width, Y+Height <= image height,
// Width >= 1 and Height >= 1.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata is the open, schema-advisory mapping of historical facts the
// vision model returns for a photograph or film clip. Well-known keys include
// estimated_year, historical_context, clothing_analysis, socioeconomic_inference,
// lifestyle_insights, notes and wikipedia_links, but consumers must tolerate
// any of them being absent.
type Metadata map[string]any

// GetString returns the value for key when it is a plain string, or ""
// when the key is missing or holds another type.
func (m Metadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// EnsureEstimatedYear guarantees an estimated_year key. Older model
// responses used year or decade instead; precedence is
// estimated_year > year > decade > "Unknown".
func (m Metadata) EnsureEstimatedYear() {
	if _, ok := m["estimated_year"]; ok {
		return
	}
	if y := m.GetString("year"); y != "" {
		m["estimated_year"] = y
		return
	}
	if d := m.GetString("decade"); d != "" {
		m["estimated_year"] = d
		return
	}
	m["estimated_year"] = "Unknown"
}

// AppendUserContext folds a caller-supplied context string into the notes
// field. A missing notes field is left alone.
func (m Metadata) AppendUserContext(userContext string) {
	if userContext == "" {
		return
	}
	if notes := m.GetString("notes"); notes != "" {
		m["notes"] = notes + " User context: " + userContext
	}
}

// SetLinks attaches encyclopedia links under the wikipedia_links key.
// An empty list leaves the metadata untouched.
func (m Metadata) SetLinks(links []WikiLink) {
	if len(links) > 0 {
		m["wikipedia_links"] = links
	}
}

// AnalysisResult is the single output of an analysis request. BoundingBox is
// set for images only; video analysis returns metadata alone.
type AnalysisResult struct {
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Metadata    Metadata     `json:"metadata"`
}

// WikiPage is a fetched encyclopedia page summary. Pages are fetched fresh
// per request and never cached.
type WikiPage struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	URL     string `json:"url"`
}

// WikiLink is a reference to an encyclopedia page surfaced to the caller
// inside Metadata. Type is LinkTypeLocation or LinkTypeTopic.
type WikiLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// LocationContext is a location page summary reframed for a specific era.
// Text carries a synthetic leading sentence naming the location and era and
// is truncated to 1000 characters.
type LocationContext struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// CombinedContext aggregates the location page and related topic pages that
// ground an analysis prompt. CombinedText is truncated to 2000 characters
// regardless of how many pages contributed to it.
type CombinedContext struct {
	Location     *LocationContext `json:"location,omitempty"`
	Topics       []*WikiPage      `json:"topics,omitempty"`
	CombinedText string           `json:"combined_text"`
	RelatedPages []WikiLink       `json:"related_pages"`
}
