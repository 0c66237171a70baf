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

// Package cloud defines the application configuration and backend clients.
// This file wraps the raw genai model handle with rate limiting and retry.
// Gemini enforces per-minute quotas; exceeding them turns into hard errors,
// so every model call in the application goes through this wrapper instead
// of the client directly. The Veo client is wrapped too, so the restoration
// service depends on small interfaces it can fake in tests.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	maxGenerateRetries   = 3
	generateRetryBackoff = 10 * time.Second
)

// QuotaAwareGenerativeAIModel decorates a genai model with a client-side
// rate limiter and bounded retries on transient failures.
type QuotaAwareGenerativeAIModel struct {
	GenerateConfig *genai.GenerateContentConfig
	ModelName      string
	ModelHandle    *genai.Models
	Limiter        *rate.Limiter
}

// NewQuotaAwareModel wraps the model handle with a limiter allowing
// requestsPerSecond calls, with an equal burst.
func NewQuotaAwareModel(cfg *genai.GenerateContentConfig, name string, handle *genai.Models, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerateConfig: cfg,
		ModelName:      name,
		ModelHandle:    handle,
		Limiter:        rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// GenerateContent waits for the rate limiter, calls the model and retries up
// to three times on failure, backing off between attempts. The context
// cancels both the limiter wait and the backoff sleep.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxGenerateRetries; attempt++ {
		if err := q.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, contents, q.GenerateConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == maxGenerateRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(generateRetryBackoff):
		}
	}
	return nil, fmt.Errorf("generation failed after %d retries: %w", maxGenerateRetries, lastErr)
}

// VideoClient narrows the genai client to the three Veo operations the
// restoration service needs: start a generation job, poll it, and download
// the finished video.
type VideoClient struct {
	Model  string
	client *genai.Client
}

// NewVideoClient builds a VideoClient for the configured Veo model.
func NewVideoClient(client *genai.Client, modelName string) *VideoClient {
	return &VideoClient{Model: modelName, client: client}
}

// Start submits an asynchronous video generation job seeded with the given
// reference image.
func (v *VideoClient) Start(ctx context.Context, prompt string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return v.client.Models.GenerateVideos(ctx, v.Model, prompt, image, cfg)
}

// Poll refreshes the state of a running generation job.
func (v *VideoClient) Poll(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return v.client.Operations.GetVideosOperation(ctx, op, nil)
}

// Download fetches the finished video's bytes. The SDK fills the Video's
// byte buffer in place.
func (v *VideoClient) Download(ctx context.Context, video *genai.Video) ([]byte, error) {
	v.client.Files.Download(ctx, video, nil)
	if len(video.VideoBytes) == 0 {
		return nil, errors.New("video download returned no data")
	}
	return video.VideoBytes, nil
}
