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
// This file initializes and holds the client objects for every external
// service the application talks to. A single ServiceClients value is built
// at startup and injected into the services, which keeps backend
// availability an explicit, typed fact instead of a nullable global checked
// ad hoc at call sites.
package cloud

import (
	"context"
	"log/slog"
	"os"
	"time"

	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/wikipedia"
)

// BackendStatus records, once at boot, whether the generative backend is
// configured. Disabled is not an error: analysis and restoration degrade to
// deterministic local fallbacks.
type BackendStatus int

const (
	BackendDisabled BackendStatus = iota
	BackendReady
)

// Available reports whether model calls can be attempted at all.
func (s BackendStatus) Available() bool { return s == BackendReady }

func (s BackendStatus) String() string {
	if s == BackendReady {
		return "ready"
	}
	return "disabled"
}

// ServiceClients is the dependency container for all external backends:
// the Gemini models (wrapped with rate limiting), the Veo video client and
// the Wikipedia client.
type ServiceClients struct {
	GenAIClient *genai.Client
	Status      BackendStatus
	AgentModels map[string]*QuotaAwareGenerativeAIModel
	VideoClient *VideoClient
	Wikipedia   *wikipedia.Client
}

// NewServiceClients builds every backend client from the configuration.
//
// The Wikipedia client always exists. The generative clients exist only
// when GEMINI_API_KEY is set; without it Status is BackendDisabled and the
// model maps stay empty, which the services treat as the documented
// degraded mode rather than a failure.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	out := &ServiceClients{
		Status:      BackendDisabled,
		AgentModels: make(map[string]*QuotaAwareGenerativeAIModel),
		Wikipedia: wikipedia.NewClient(
			config.Wikipedia.BaseURL,
			config.Wikipedia.UserAgent,
			time.Duration(config.Wikipedia.TimeoutInSeconds)*time.Second,
		),
	}

	apiKey := os.Getenv(EnvGeminiAPIKey)
	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, running with deterministic fallbacks only")
		return out, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	out.GenAIClient = gc
	out.Status = BackendReady

	for key, values := range config.AgentModels {
		cfg := &genai.GenerateContentConfig{
			Temperature:        genai.Ptr[float32](values.Temperature),
			TopP:               genai.Ptr[float32](values.TopP),
			TopK:               genai.Ptr[float32](values.TopK),
			MaxOutputTokens:    values.MaxTokens,
			SafetySettings:     DefaultSafetySettings,
			ResponseModalities: values.Modalities,
		}
		out.AgentModels[key] = NewQuotaAwareModel(cfg, values.Model, gc.Models, values.RateLimit)
	}

	out.VideoClient = NewVideoClient(gc, config.VideoGeneration.Model)
	return out, nil
}
