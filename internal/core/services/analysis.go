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

// Package services implements the analysis and restoration pipelines. This
// file holds the analysis service: it sends the uploaded media plus an
// encyclopedia-grounded prompt to the vision model, parses the JSON answer
// into a bounding box and metadata, and falls back to a deterministic mock
// result whenever the backend is disabled or misbehaves. Analysis never
// fails on model trouble; the caller always receives a usable result.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/h2non/filetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/cloud"
	"github.com/darkroomlabs/darkroom/internal/core/geometry"
	"github.com/darkroomlabs/darkroom/internal/core/imageops"
	"github.com/darkroomlabs/darkroom/internal/core/model"
	"github.com/darkroomlabs/darkroom/internal/core/parse"
	"github.com/darkroomlabs/darkroom/internal/core/topics"
)

// eraEstimate seeds the encyclopedia lookups before any analysis has run,
// since the photos this application targets overwhelmingly come from that
// period.
const eraEstimate = "mid-20th century"

// maxTopicLinks bounds how many mined-topic pages are attached as links.
const maxTopicLinks = 3

// promptContext is what the knowledge base contributed to one analysis:
// the text block embedded in the prompt and the pages behind it.
type promptContext struct {
	Text         string
	RelatedPages []model.WikiLink
}

// AnalysisService orchestrates image and video analysis.
type AnalysisService struct {
	status     cloud.BackendStatus
	imageModel ContentGenerator
	videoModel ContentGenerator
	kb         KnowledgeBase

	imageTmpl *template.Template
	videoTmpl *template.Template

	analysisCounter metric.Int64Counter
	fallbackCounter metric.Int64Counter
}

// NewAnalysisService parses the prompt templates and builds the service.
// imageModel and videoModel may be nil when the backend is disabled.
func NewAnalysisService(
	cfg *cloud.Config,
	status cloud.BackendStatus,
	imageModel, videoModel ContentGenerator,
	kb KnowledgeBase,
) (*AnalysisService, error) {
	imageTmpl, err := template.New("image-analysis").Parse(cfg.PromptTemplates.ImageAnalysis)
	if err != nil {
		return nil, fmt.Errorf("parse image analysis prompt: %w", err)
	}
	videoTmpl, err := template.New("video-analysis").Parse(cfg.PromptTemplates.VideoAnalysis)
	if err != nil {
		return nil, fmt.Errorf("parse video analysis prompt: %w", err)
	}

	meter := otel.Meter("darkroom-analysis")
	analysisCounter, err := meter.Int64Counter("analysis-count")
	if err != nil {
		return nil, err
	}
	fallbackCounter, err := meter.Int64Counter("analysis-fallback-count")
	if err != nil {
		return nil, err
	}

	return &AnalysisService{
		status:          status,
		imageModel:      imageModel,
		videoModel:      videoModel,
		kb:              kb,
		imageTmpl:       imageTmpl,
		videoTmpl:       videoTmpl,
		analysisCounter: analysisCounter,
		fallbackCounter: fallbackCounter,
	}, nil
}

// AnalyzeImage examines an uploaded photograph of a physical print. It
// returns the print's bounding box inside the scan plus the historical
// metadata block. Model or parse failures degrade to the mock result; only
// an unreadable input file is an error.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, path, userContext, location string) (*model.AnalysisResult, error) {
	width, height, err := imageops.Dimensions(path)
	if err != nil {
		return nil, fmt.Errorf("read image dimensions: %w", err)
	}

	enrich := s.gatherContext(ctx, location)

	if !s.status.Available() || s.imageModel == nil {
		slog.Info("image analysis running in degraded mode", "reason", "backend disabled")
		return s.mockImageResult(ctx, width, height, userContext, location, enrich), nil
	}

	prompt, err := renderPrompt(s.imageTmpl, analysisPromptData{
		Width:             width,
		Height:            height,
		Location:          location,
		UserContext:       userContext,
		HistoricalContext: enrich.Text,
		ExampleJSON:       exampleJSON(model.GetExampleImagePayload()),
	})
	if err != nil {
		slog.Warn("image analysis prompt render failed", "error", err)
		return s.mockImageResult(ctx, width, height, userContext, location, enrich), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	resp, err := s.imageModel.GenerateContent(ctx, mediaContents(data, sniffImageMIME(data), prompt))
	if err != nil {
		slog.Warn("image analysis model call failed, using fallback", "error", err)
		return s.mockImageResult(ctx, width, height, userContext, location, enrich), nil
	}

	payload, err := parse.ExtractJSON(cloud.CollectText(resp))
	if err != nil {
		slog.Warn("image analysis response unparsable, using fallback", "error", err)
		return s.mockImageResult(ctx, width, height, userContext, location, enrich), nil
	}

	box := geometry.NormalizeBoundingBox(parse.ObjectField(payload, "bounding_box"), width, height)
	md := model.Metadata(parse.ObjectField(payload, "metadata"))
	md.EnsureEstimatedYear()
	md.AppendUserContext(userContext)
	s.attachLinks(ctx, md, location, enrich.RelatedPages)

	s.analysisCounter.Add(ctx, 1)
	return &model.AnalysisResult{BoundingBox: &box, Metadata: md}, nil
}

// AnalyzeVideo examines uploaded film footage. The result carries metadata
// only; there is no physical print to locate.
func (s *AnalysisService) AnalyzeVideo(ctx context.Context, path, userContext, location string) (*model.AnalysisResult, error) {
	enrich := s.gatherContext(ctx, location)

	if !s.status.Available() || s.videoModel == nil {
		slog.Info("video analysis running in degraded mode", "reason", "backend disabled")
		return s.mockVideoResult(ctx, userContext, location, enrich), nil
	}

	prompt, err := renderPrompt(s.videoTmpl, analysisPromptData{
		Location:          location,
		UserContext:       userContext,
		HistoricalContext: enrich.Text,
		ExampleJSON:       exampleJSON(model.GetExampleVideoPayload()),
	})
	if err != nil {
		slog.Warn("video analysis prompt render failed", "error", err)
		return s.mockVideoResult(ctx, userContext, location, enrich), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}

	resp, err := s.videoModel.GenerateContent(ctx, mediaContents(data, videoMIME(path), prompt))
	if err != nil {
		slog.Warn("video analysis model call failed, using fallback", "error", err)
		return s.mockVideoResult(ctx, userContext, location, enrich), nil
	}

	payload, err := parse.ExtractJSON(cloud.CollectText(resp))
	if err != nil {
		slog.Warn("video analysis response unparsable, using fallback", "error", err)
		return s.mockVideoResult(ctx, userContext, location, enrich), nil
	}

	md := model.Metadata(parse.ObjectField(payload, "metadata"))
	md.EnsureEstimatedYear()
	md.AppendUserContext(userContext)
	s.attachLinks(ctx, md, location, enrich.RelatedPages)

	s.analysisCounter.Add(ctx, 1)
	return &model.AnalysisResult{Metadata: md}, nil
}

// CropImage cuts the detected print out of the scan and writes it to
// outputPath. The box is clamped defensively before cropping.
func (s *AnalysisService) CropImage(path string, box model.BoundingBox, outputPath string) error {
	img, err := imageops.Load(path)
	if err != nil {
		return fmt.Errorf("load image for crop: %w", err)
	}
	return imageops.Save(imageops.Crop(img, box), outputPath)
}

// gatherContext pulls historical grounding for the prompt from the
// knowledge base: related topics around the location and era, and the
// combined text of their pages. Lookups are failure-tolerant, so a dead
// network simply yields an empty context.
func (s *AnalysisService) gatherContext(ctx context.Context, location string) promptContext {
	if location == "" || s.kb == nil {
		return promptContext{}
	}

	related := s.kb.FindRelatedTopics(ctx, location, eraEstimate)
	if combined := s.kb.FetchCombined(ctx, location, eraEstimate, related); combined != nil {
		return promptContext{Text: combined.CombinedText, RelatedPages: combined.RelatedPages}
	}
	if lc := s.kb.FetchLocationContext(ctx, location, eraEstimate); lc != nil {
		return promptContext{
			Text:         lc.Text,
			RelatedPages: []model.WikiLink{{Title: lc.Title, URL: lc.URL, Type: model.LinkTypeLocation}},
		}
	}
	return promptContext{}
}

// attachLinks picks exactly one source of encyclopedia links for the
// metadata: pages already gathered for the prompt, then a fresh location
// lookup, then topics mined from the metadata text itself.
func (s *AnalysisService) attachLinks(ctx context.Context, md model.Metadata, location string, gathered []model.WikiLink) {
	if len(gathered) > 0 {
		md.SetLinks(gathered)
		return
	}
	if s.kb == nil {
		return
	}
	if location != "" {
		if lc := s.kb.FetchLocationContext(ctx, location, eraEstimate); lc != nil {
			md.SetLinks([]model.WikiLink{{Title: lc.Title, URL: lc.URL, Type: model.LinkTypeLocation}})
		}
		return
	}

	var links []model.WikiLink
	for _, topic := range topics.ExtractTopics(md) {
		if len(links) == maxTopicLinks {
			break
		}
		if page := s.kb.FetchPage(ctx, topic); page != nil {
			links = append(links, model.WikiLink{Title: page.Title, URL: page.URL, Type: model.LinkTypeTopic})
		}
	}
	md.SetLinks(links)
}

// mockImageResult is the deterministic degraded-mode answer for images: a
// centered box covering 80% of each dimension and a fixed metadata block.
func (s *AnalysisService) mockImageResult(ctx context.Context, width, height int, userContext, location string, enrich promptContext) *model.AnalysisResult {
	s.fallbackCounter.Add(ctx, 1)

	marginW := int(float64(width) * 0.1)
	marginH := int(float64(height) * 0.1)
	box := model.BoundingBox{
		X:      marginW,
		Y:      marginH,
		Width:  width - 2*marginW,
		Height: height - 2*marginH,
	}

	notes := "Vintage photograph detected. Appears to be a family portrait."
	if userContext != "" {
		notes += " User provided context: " + userContext
	}
	md := model.Metadata{
		"year":             "1980",
		"decade":           "1980s",
		"estimated_period": "Late 20th century",
		"notes":            notes,
	}
	md.EnsureEstimatedYear()
	s.attachLinks(ctx, md, location, enrich.RelatedPages)

	return &model.AnalysisResult{BoundingBox: &box, Metadata: md}
}

// mockVideoResult is the degraded-mode answer for film footage.
func (s *AnalysisService) mockVideoResult(ctx context.Context, userContext, location string, enrich promptContext) *model.AnalysisResult {
	s.fallbackCounter.Add(ctx, 1)

	notes := "Historical video footage detected. Appears to be vintage film."
	if userContext != "" {
		notes += " User provided context: " + userContext
	}
	md := model.Metadata{
		"estimated_year":   "1950-1960",
		"decade":           "1950s",
		"estimated_period": "Mid-20th century",
		"notes":            notes,
	}
	s.attachLinks(ctx, md, location, enrich.RelatedPages)

	return &model.AnalysisResult{Metadata: md}
}

// analysisPromptData feeds both analysis prompt templates.
type analysisPromptData struct {
	Width             int
	Height            int
	Location          string
	UserContext       string
	HistoricalContext string
	ExampleJSON       string
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

func exampleJSON(payload map[string]any) string {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// mediaContents assembles the standard two-part request: the media blob
// first, then the prompt text.
func mediaContents(data []byte, mimeType, prompt string) []*genai.Content {
	return []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				{Text: prompt},
			},
		},
	}
}

func sniffImageMIME(data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind.MIME.Value != "" {
		return kind.MIME.Value
	}
	return "image/jpeg"
}

func videoMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}
