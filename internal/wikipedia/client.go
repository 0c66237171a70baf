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

// Package wikipedia is a read-only client for Wikipedia's page-summary and
// opensearch endpoints, used to ground photo analysis in real historical
// context. Every operation is failure-tolerant: network errors, timeouts and
// not-found conditions degrade to "no data" rather than propagating, because
// the analysis pipeline must produce a result with or without enrichment.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/darkroomlabs/darkroom/internal/core/model"
)

// Per-call budget for the encyclopedia service. A slow lookup is worth less
// than a fast analysis, so calls are cut off quickly and silently.
const defaultTimeout = 5 * time.Second

const (
	maxRelatedTopics  = 3
	searchCandidates  = 8
	locationTextLimit = 1000
	topicExtractLimit = 500
	combinedTextLimit = 2000
)

// searchSkipKeywords filters out sports and competition pages that rank well
// in search but never describe the era a photo comes from.
var searchSkipKeywords = []string{
	"olympics", "paralympics", "sport", "football", "basketball",
	"baseball", "soccer", "championship", "tournament",
}

// searchAcceptKeywords mark a candidate title as historically relevant.
var searchAcceptKeywords = []string{"war", "movement", "revolution", "period", "era", "decade"}

// Client talks to a Wikipedia-compatible API host.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient builds a client against the given API host (for example
// "https://en.wikipedia.org"). A zero timeout selects the 5 second default.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// pageSummary mirrors the fields we read from the REST summary endpoint.
type pageSummary struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// FetchPage looks up a single page summary by exact title. A page without a
// summary extract counts as not found. Returns nil on any failure.
func (c *Client) FetchPage(ctx context.Context, title string) *model.WikiPage {
	slug := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s", c.baseURL, slug)

	var summary pageSummary
	if !c.getJSON(ctx, endpoint, &summary) {
		return nil
	}
	if summary.Extract == "" {
		return nil
	}
	page := &model.WikiPage{
		Title:   summary.Title,
		Extract: summary.Extract,
		URL:     summary.ContentURLs.Desktop.Page,
	}
	if page.Title == "" {
		page.Title = title
	}
	return page
}

// FetchLocationContext finds a historical summary for a location and reframes
// it for the given era. The location is stripped to the substring before the
// first comma, then looked up directly and as "History of {location}". The
// first hit wins; its extract is prefixed with a sentence naming the location
// and era and truncated to 1000 characters. Returns nil when nothing matched.
func (c *Client) FetchLocationContext(ctx context.Context, location, era string) *model.LocationContext {
	cleaned := cleanLocation(location)

	for _, term := range []string{cleaned, "History of " + cleaned} {
		page := c.FetchPage(ctx, term)
		if page == nil {
			continue
		}
		text := fmt.Sprintf("Historical context for %s during %s: %s", cleaned, era, page.Extract)
		return &model.LocationContext{
			Title: page.Title,
			Text:  truncate(text, locationTextLimit),
			URL:   page.URL,
		}
	}
	return nil
}

// FindRelatedTopics searches for up to three historically relevant page
// titles around a location and era. Three ranked queries are issued in order
// ("{location} {era}", "{era} {location}", "History of {location}"), each
// requesting up to eight candidates; querying stops as soon as three titles
// are accepted. Candidates matching the location itself, disambiguation
// pages, and sports pages are rejected.
func (c *Client) FindRelatedTopics(ctx context.Context, location, era string) []string {
	cleaned := cleanLocation(location)
	queries := []string{
		cleaned + " " + era,
		era + " " + cleaned,
		"History of " + cleaned,
	}

	topics := make([]string, 0, maxRelatedTopics)
	for _, query := range queries {
		for _, title := range c.search(ctx, query) {
			if len(topics) >= maxRelatedTopics {
				break
			}
			if !acceptTopic(title, cleaned, era) || contains(topics, title) {
				continue
			}
			topics = append(topics, title)
		}
		if len(topics) >= maxRelatedTopics {
			break
		}
	}
	return topics
}

// FetchCombined assembles the full enrichment context for a prompt: the
// location page (retried with the comma-stripped name if the first attempt
// fails) followed by each topic page in order. Related pages list location
// entries before topic entries. The combined text concatenates the location
// text and each topic's first 500 extract characters, and is truncated to
// 2000 characters regardless of how many pages contributed.
func (c *Client) FetchCombined(ctx context.Context, location, era string, topicTitles []string) *model.CombinedContext {
	out := &model.CombinedContext{
		Topics:       make([]*model.WikiPage, 0, len(topicTitles)),
		RelatedPages: make([]model.WikiLink, 0, len(topicTitles)+1),
	}

	locationData := c.FetchLocationContext(ctx, location, era)
	if locationData == nil {
		if cleaned := cleanLocation(location); cleaned != location {
			locationData = c.FetchLocationContext(ctx, cleaned, era)
		}
	}

	var combined strings.Builder
	if locationData != nil {
		out.Location = locationData
		out.RelatedPages = append(out.RelatedPages, model.WikiLink{
			Title: locationData.Title,
			URL:   locationData.URL,
			Type:  model.LinkTypeLocation,
		})
		combined.WriteString(locationData.Text + "\n\n")
	}

	for _, topic := range topicTitles {
		page := c.FetchPage(ctx, topic)
		if page == nil {
			continue
		}
		out.Topics = append(out.Topics, page)
		out.RelatedPages = append(out.RelatedPages, model.WikiLink{
			Title: page.Title,
			URL:   page.URL,
			Type:  model.LinkTypeTopic,
		})
		combined.WriteString(fmt.Sprintf("Context about %s: %s\n\n", topic, truncate(page.Extract, topicExtractLimit)))
	}

	out.CombinedText = truncate(combined.String(), combinedTextLimit)
	return out
}

// search runs one opensearch query and returns the ranked candidate titles.
// The opensearch response is a four-element array; element one is the title
// list. Returns nil on any failure.
func (c *Client) search(ctx context.Context, query string) []string {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", fmt.Sprint(searchCandidates))
	params.Set("format", "json")
	endpoint := fmt.Sprintf("%s/w/api.php?%s", c.baseURL, params.Encode())

	var raw []json.RawMessage
	if !c.getJSON(ctx, endpoint, &raw) || len(raw) < 2 {
		return nil
	}
	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		slog.Debug("opensearch response malformed", "query", query, "error", err)
		return nil
	}
	return titles
}

// getJSON performs a GET and decodes the body, reporting success. Failures
// are logged at debug level and swallowed.
func (c *Client) getJSON(ctx context.Context, endpoint string, v any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("wikipedia request failed", "url", endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("wikipedia request rejected", "url", endpoint, "status", resp.StatusCode)
		return false
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		slog.Debug("wikipedia response malformed", "url", endpoint, "error", err)
		return false
	}
	return true
}

// acceptTopic applies the relevance filters to one search candidate.
func acceptTopic(title, location, era string) bool {
	lower := strings.ToLower(title)
	locationLower := strings.ToLower(location)

	if lower == locationLower || strings.Contains(lower, "disambiguation") {
		return false
	}
	for _, kw := range searchSkipKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	if strings.Contains(lower, "history") ||
		strings.Contains(lower, strings.ToLower(era)) ||
		strings.Contains(lower, locationLower) {
		return true
	}
	for _, kw := range searchAcceptKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// cleanLocation strips a location down to the part before the first comma,
// dropping region or country suffixes like "Shanghai, China".
func cleanLocation(location string) string {
	return strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
}

// truncate limits a string to n characters, rune-safe.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
