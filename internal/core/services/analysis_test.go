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

// Package services_test drives the pipeline services against fake model and
// knowledge base backends. No test talks to a real API.
package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/cloud"
	"github.com/darkroomlabs/darkroom/internal/core/imageops"
	"github.com/darkroomlabs/darkroom/internal/core/model"
	"github.com/darkroomlabs/darkroom/internal/core/services"
	"github.com/darkroomlabs/darkroom/internal/testutil"
)

// fakeGenerator answers every request with a fixed text body, or fails.
type fakeGenerator struct {
	text string
	err  error

	calls   int
	prompts []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	f.calls++
	for _, content := range contents {
		for _, part := range content.Parts {
			if part.Text != "" {
				f.prompts = append(f.prompts, part.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}},
		},
	}, nil
}

// fakeKB is an in-memory knowledge base with canned answers.
type fakeKB struct {
	pages    map[string]*model.WikiPage
	location *model.LocationContext
	topics   []string
	combined *model.CombinedContext
}

func (f *fakeKB) FetchPage(_ context.Context, title string) *model.WikiPage {
	return f.pages[title]
}

func (f *fakeKB) FetchLocationContext(_ context.Context, _, _ string) *model.LocationContext {
	return f.location
}

func (f *fakeKB) FindRelatedTopics(_ context.Context, _, _ string) []string {
	return f.topics
}

func (f *fakeKB) FetchCombined(_ context.Context, _, _ string, _ []string) *model.CombinedContext {
	return f.combined
}

func newAnalysisService(t *testing.T, status cloud.BackendStatus, gen services.ContentGenerator, kb services.KnowledgeBase) *services.AnalysisService {
	t.Helper()
	svc, err := services.NewAnalysisService(testutil.GetConfig(), status, gen, gen, kb)
	testutil.HandleErr(t, err)
	return svc
}

// TestAnalyzeImageDisabledBackend checks the deterministic degraded result:
// a centered box covering 80% of each dimension and the fixed metadata.
func TestAnalyzeImageDisabledBackend(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 1000, 800)
	svc := newAnalysisService(t, cloud.BackendDisabled, nil, nil)

	result, err := svc.AnalyzeImage(context.Background(), path, "", "")
	testutil.HandleErr(t, err)

	assert.Equal(t, &model.BoundingBox{X: 100, Y: 80, Width: 800, Height: 640}, result.BoundingBox)
	assert.Equal(t, "1980", result.Metadata.GetString("estimated_year"))
	assert.Equal(t, "1980s", result.Metadata.GetString("decade"))
	assert.Equal(t, "Late 20th century", result.Metadata.GetString("estimated_period"))
}

// TestAnalyzeImageDisabledBackendUserContext checks caller context reaches
// the degraded result's notes.
func TestAnalyzeImageDisabledBackendUserContext(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 400, 300)
	svc := newAnalysisService(t, cloud.BackendDisabled, nil, nil)

	result, err := svc.AnalyzeImage(context.Background(), path, "grandma's porch", "")
	testutil.HandleErr(t, err)

	assert.Contains(t, result.Metadata.GetString("notes"), "grandma's porch")
}

// TestAnalyzeImageModelResponse checks the happy path: model JSON is parsed,
// the box normalized and the year fallback chain applied.
func TestAnalyzeImageModelResponse(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 1000, 800)
	gen := &fakeGenerator{text: "```json\n" + `{
		"bounding_box": {"x": -20, "y": 40, "width": 5000, "height": 600},
		"metadata": {"decade": "1930s", "notes": "A dockside scene."}
	}` + "\n```"}
	svc := newAnalysisService(t, cloud.BackendReady, gen, nil)

	result, err := svc.AnalyzeImage(context.Background(), path, "shipyard workers", "")
	testutil.HandleErr(t, err)

	assert.Equal(t, &model.BoundingBox{X: 0, Y: 40, Width: 1000, Height: 600}, result.BoundingBox)
	assert.Equal(t, "1930s", result.Metadata.GetString("estimated_year"))
	assert.Equal(t, "A dockside scene. User context: shipyard workers", result.Metadata.GetString("notes"))
	assert.Equal(t, 1, gen.calls)
}

// TestAnalyzeImageModelFailure checks a failing model degrades to the mock
// result instead of erroring.
func TestAnalyzeImageModelFailure(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 1000, 800)
	gen := &fakeGenerator{err: errors.New("quota exhausted")}
	svc := newAnalysisService(t, cloud.BackendReady, gen, nil)

	result, err := svc.AnalyzeImage(context.Background(), path, "", "")
	testutil.HandleErr(t, err)

	assert.Equal(t, "1980", result.Metadata.GetString("estimated_year"))
}

// TestAnalyzeImageUnparsableResponse checks prose answers degrade the same
// way.
func TestAnalyzeImageUnparsableResponse(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 1000, 800)
	gen := &fakeGenerator{text: "I am unable to analyze this photograph."}
	svc := newAnalysisService(t, cloud.BackendReady, gen, nil)

	result, err := svc.AnalyzeImage(context.Background(), path, "", "")
	testutil.HandleErr(t, err)

	assert.Equal(t, &model.BoundingBox{X: 100, Y: 80, Width: 800, Height: 640}, result.BoundingBox)
}

// TestAnalyzeImageMissingFile checks an unreadable input is the one hard
// error.
func TestAnalyzeImageMissingFile(t *testing.T) {
	svc := newAnalysisService(t, cloud.BackendDisabled, nil, nil)

	_, err := svc.AnalyzeImage(context.Background(), "/nonexistent/scan.jpg", "", "")

	assert.Error(t, err)
}

// TestAnalyzeImagePromptEnrichment checks gathered encyclopedia context is
// embedded in the prompt and its pages become metadata links.
func TestAnalyzeImagePromptEnrichment(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 1000, 800)
	kb := &fakeKB{
		topics: []string{"Treaty Ports"},
		combined: &model.CombinedContext{
			CombinedText: "Shanghai was a major treaty port.",
			RelatedPages: []model.WikiLink{
				{Title: "History of Shanghai", URL: "u1", Type: model.LinkTypeLocation},
				{Title: "Treaty Ports", URL: "u2", Type: model.LinkTypeTopic},
			},
		},
	}
	gen := &fakeGenerator{text: `{"bounding_box": {}, "metadata": {"estimated_year": "1935"}}`}
	svc := newAnalysisService(t, cloud.BackendReady, gen, kb)

	result, err := svc.AnalyzeImage(context.Background(), path, "", "Shanghai, China")
	testutil.HandleErr(t, err)

	prompt := strings.Join(gen.prompts, "\n")
	assert.Contains(t, prompt, "Shanghai was a major treaty port.")
	links, ok := result.Metadata["wikipedia_links"].([]model.WikiLink)
	assert.True(t, ok)
	assert.Len(t, links, 2)
	assert.Equal(t, model.LinkTypeLocation, links[0].Type)
}

// TestAnalyzeImageTopicMining checks that without a location, topics mined
// from the metadata drive the link lookup.
func TestAnalyzeImageTopicMining(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 1000, 800)
	kb := &fakeKB{
		pages: map[string]*model.WikiPage{
			"Royal Navy": {Title: "Royal Navy", Extract: "The Royal Navy...", URL: "u"},
		},
	}
	gen := &fakeGenerator{text: `{"metadata": {"notes": "Sailors of the Royal Navy on deck."}}`}
	svc := newAnalysisService(t, cloud.BackendReady, gen, kb)

	result, err := svc.AnalyzeImage(context.Background(), path, "", "")
	testutil.HandleErr(t, err)

	links, ok := result.Metadata["wikipedia_links"].([]model.WikiLink)
	assert.True(t, ok)
	assert.Equal(t, "Royal Navy", links[0].Title)
	assert.Equal(t, model.LinkTypeTopic, links[0].Type)
}

// TestAnalyzeVideoDisabledBackend checks the film-footage degraded result:
// metadata only, no bounding box.
func TestAnalyzeVideoDisabledBackend(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestFile(t, dir, "clip.mp4", []byte("not a real video"))
	svc := newAnalysisService(t, cloud.BackendDisabled, nil, nil)

	result, err := svc.AnalyzeVideo(context.Background(), path, "", "")
	testutil.HandleErr(t, err)

	assert.Nil(t, result.BoundingBox)
	assert.Equal(t, "1950-1960", result.Metadata.GetString("estimated_year"))
	assert.Equal(t, "1950s", result.Metadata.GetString("decade"))
	assert.Equal(t, "Mid-20th century", result.Metadata.GetString("estimated_period"))
}

// TestCropImage checks the analysis service writes a crop of the box size.
func TestCropImage(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTestImage(t, dir, 400, 300)
	svc := newAnalysisService(t, cloud.BackendDisabled, nil, nil)
	outputPath := dir + "/cropped.jpg"

	err := svc.CropImage(path, model.BoundingBox{X: 40, Y: 30, Width: 320, Height: 240}, outputPath)
	testutil.HandleErr(t, err)

	width, height, err := imageops.Dimensions(outputPath)
	testutil.HandleErr(t, err)
	assert.Equal(t, 320, width)
	assert.Equal(t, 240, height)
}
