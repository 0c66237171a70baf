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

// Package topics mines analysis metadata for candidate encyclopedia page
// titles. When the caller supplies no location, this is the only signal the
// link-enrichment step has, so the extractor leans on the shape of
// historical writing: proper-noun phrases and "<Name> War"-style patterns.
package topics

import (
	"regexp"
	"strings"

	"github.com/darkroomlabs/darkroom/internal/core/model"
)

// MaxTopics caps how many candidate titles a single metadata block yields.
const MaxTopics = 5

// textFields are the metadata keys whose free text is scanned for topics.
var textFields = []string{
	"notes",
	"historical_context",
	"socioeconomic_inference",
	"lifestyle_insights",
}

// clothingFields are the clothing_analysis sub-keys worth scanning.
// The quality assessment rarely names historical entities, so it is skipped.
var clothingFields = []string{"styles", "materials", "significance"}

// skipPhrases are common proper nouns that name places or conflicts too broad
// to make useful encyclopedia lookups on their own.
var skipPhrases = map[string]struct{}{
	"United States":  {},
	"United Kingdom": {},
	"New York":       {},
	"Los Angeles":    {},
	"World War":      {},
	"World War I":    {},
	"World War II":   {},
}

// historicalKeywords mark a phrase as historically interesting when any of
// them appears inside it (case-insensitive).
var historicalKeywords = []string{
	"war", "movement", "revolution", "period", "era", "decade",
	"navy", "army", "military", "regiment", "battalion",
	"act", "law", "treaty", "convention",
	"organization", "society", "association", "union",
	"dynasty", "empire", "kingdom", "republic",
}

var (
	titleCasePhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}\b`)
	eventPattern    = regexp.MustCompile(`\b([A-Z][a-z]+)\s+(War|Movement|Revolution|Act|Treaty|Convention)\b`)
	leadingYear     = regexp.MustCompile(`^\d{4}`)
)

// ExtractTopics returns up to MaxTopics distinct encyclopedia topic
// candidates mined from the metadata's narrative fields, in discovery order.
//
// Pass one collects title-case phrases of two to four capitalized words,
// rejecting the skip set and phrases led by a four-digit year, and accepting
// a phrase when it contains a historical keyword or spans at least two
// words. Pass two adds "<Capitalized> War/Movement/..." pairs not already
// found. There is no ranking beyond discovery order.
func ExtractTopics(md model.Metadata) []string {
	combined := combinedText(md)
	topics := make([]string, 0, MaxTopics)

	for _, phrase := range titleCasePhrase.FindAllString(combined, -1) {
		if len(topics) >= MaxTopics {
			break
		}
		if _, skip := skipPhrases[phrase]; skip {
			continue
		}
		if leadingYear.MatchString(phrase) {
			continue
		}
		lower := strings.ToLower(phrase)
		if (containsAny(lower, historicalKeywords) || len(strings.Fields(phrase)) >= 2) && !contains(topics, phrase) {
			topics = append(topics, phrase)
		}
	}

	for _, match := range eventPattern.FindAllStringSubmatch(combined, -1) {
		if len(topics) >= MaxTopics {
			break
		}
		topic := match[1] + " " + match[2]
		if !contains(topics, topic) {
			topics = append(topics, topic)
		}
	}

	return topics
}

// combinedText joins every scannable metadata field into one blob.
// clothing_analysis may be a nested object or a plain string depending on
// how literal the model felt like being.
func combinedText(md model.Metadata) string {
	parts := make([]string, 0, len(textFields)+len(clothingFields))
	for _, key := range textFields {
		if v := md.GetString(key); v != "" {
			parts = append(parts, v)
		}
	}
	switch clothing := md["clothing_analysis"].(type) {
	case map[string]any:
		for _, key := range clothingFields {
			if v, ok := clothing[key].(string); ok && v != "" {
				parts = append(parts, v)
			}
		}
	case string:
		if clothing != "" {
			parts = append(parts, clothing)
		}
	}
	return strings.Join(parts, " ")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
