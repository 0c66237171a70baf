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
// file declares the narrow backend interfaces the services depend on, so
// tests can substitute fakes without touching process-wide state. The
// concrete implementations live in internal/cloud and internal/wikipedia.
package services

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/core/model"
)

// Error taxonomy for the pipeline. Analysis and restoration must always
// produce a structurally valid artifact, so only video generation surfaces
// these to its caller; everything else degrades internally.
var (
	// ErrBackendUnavailable means the generative backend was never
	// configured. Expected; routes to deterministic fallbacks.
	ErrBackendUnavailable = errors.New("generative backend unavailable")
	// ErrGenerationRejected means the generation backend answered but
	// produced nothing usable (safety filter, empty result).
	ErrGenerationRejected = errors.New("video generation rejected")
	// ErrGenerationTimeout means the generation job did not finish within
	// the polling ceiling.
	ErrGenerationTimeout = errors.New("video generation timed out")
)

// IsUnavailable reports whether err means the backend is not configured.
func IsUnavailable(err error) bool { return errors.Is(err, ErrBackendUnavailable) }

// IsTimeout reports whether err means the generation job outlived polling.
func IsTimeout(err error) bool { return errors.Is(err, ErrGenerationTimeout) }

// IsRejected reports whether err means the backend declined to produce.
func IsRejected(err error) bool { return errors.Is(err, ErrGenerationRejected) }

// ContentGenerator is a single generative model that answers multi-modal
// content requests. Implemented by cloud.QuotaAwareGenerativeAIModel.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error)
}

// VideoBackend is the asynchronous video generation surface. Implemented by
// cloud.VideoClient.
type VideoBackend interface {
	Start(ctx context.Context, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	Poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, video *genai.Video) ([]byte, error)
}

// KnowledgeBase is the encyclopedia lookup surface. Every operation is
// failure-tolerant and returns nil or empty rather than an error.
// Implemented by wikipedia.Client.
type KnowledgeBase interface {
	FetchPage(ctx context.Context, title string) *model.WikiPage
	FetchLocationContext(ctx context.Context, location, era string) *model.LocationContext
	FindRelatedTopics(ctx context.Context, location, era string) []string
	FetchCombined(ctx context.Context, location, era string, topics []string) *model.CombinedContext
}
