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

// Package cloud defines the application configuration, loaded from TOML
// files, and the container of external backend clients built from it.
// Configuration covers the generative models (name, sampling parameters,
// rate limits), the Wikipedia source, video generation polling, media
// directories and the prompt templates sent to the models.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings relaxes the content safety thresholds for the
// generative models. Input media is user-supplied family photography;
// blocking categories would only produce spurious empty responses.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Model keys looked up in Config.AgentModels.
const (
	ModelImageAnalysis = "image-analysis"
	ModelVideoAnalysis = "video-analysis"
	ModelRestoration   = "restoration"
)

// GenerativeModel configures one Gemini model: which model to call, its
// sampling parameters, output modalities and the request rate limit.
type GenerativeModel struct {
	Model       string   `toml:"model"`
	Temperature float32  `toml:"temperature"`
	TopP        float32  `toml:"top_p"`
	TopK        float32  `toml:"top_k"`
	MaxTokens   int32    `toml:"max_tokens"`
	Modalities  []string `toml:"modalities"`
	RateLimit   int      `toml:"rate_limit"`
}

// WikipediaSource configures the encyclopedia endpoint used for historical
// context enrichment.
type WikipediaSource struct {
	BaseURL          string `toml:"base_url"`
	UserAgent        string `toml:"user_agent"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// VideoGeneration configures the Veo backend and its polling policy.
// Generation is asynchronous: the operation is polled every
// PollIntervalInSeconds until done or PollTimeoutInSeconds elapses.
type VideoGeneration struct {
	Model                 string `toml:"model"`
	AspectRatio           string `toml:"aspect_ratio"`
	PollIntervalInSeconds int    `toml:"poll_interval_in_seconds"`
	PollTimeoutInSeconds  int    `toml:"poll_timeout_in_seconds"`
}

// PromptTemplates holds the text/template sources for every prompt the
// application sends. Defaults ship in code; TOML overrides them wholesale.
type PromptTemplates struct {
	ImageAnalysis string `toml:"image_analysis"`
	VideoAnalysis string `toml:"video_analysis"`
	Restoration   string `toml:"restoration"`
	Animation     string `toml:"animation"`
}

// Storage configures where uploaded and produced media files live on disk.
type Storage struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
}

// Config is the top-level application configuration, loaded from TOML files
// by LoadConfig.
type Config struct {
	Application struct {
		Name string `toml:"name"`
		Port int    `toml:"port"`
	} `toml:"application"`
	Storage         Storage                    `toml:"storage"`
	Wikipedia       WikipediaSource            `toml:"wikipedia"`
	AgentModels     map[string]GenerativeModel `toml:"agent_models"`
	VideoGeneration VideoGeneration            `toml:"video_generation"`
	PromptTemplates PromptTemplates            `toml:"prompt_templates"`
}

// NewConfig creates a Config populated with working defaults, so the server
// and the test suite run without any TOML file present. Files loaded on top
// override individual values.
func NewConfig() *Config {
	c := &Config{
		AgentModels: map[string]GenerativeModel{
			ModelImageAnalysis: {
				Model:       "gemini-2.0-flash",
				Temperature: 0.2,
				TopP:        0.95,
				TopK:        40,
				MaxTokens:   8192,
				Modalities:  []string{"TEXT"},
				RateLimit:   2,
			},
			ModelVideoAnalysis: {
				Model:       "gemini-3-pro-preview",
				Temperature: 0.2,
				TopP:        0.95,
				TopK:        40,
				MaxTokens:   8192,
				Modalities:  []string{"TEXT"},
				RateLimit:   1,
			},
			ModelRestoration: {
				Model:       "gemini-3-pro-image-preview",
				Temperature: 0.4,
				TopP:        0.95,
				TopK:        40,
				MaxTokens:   8192,
				Modalities:  []string{"TEXT", "IMAGE"},
				RateLimit:   1,
			},
		},
		VideoGeneration: VideoGeneration{
			Model:                 "veo-3.1-generate-preview",
			AspectRatio:           "16:9",
			PollIntervalInSeconds: 10,
			PollTimeoutInSeconds:  300,
		},
	}
	c.Application.Name = "darkroom"
	c.Application.Port = 8080
	c.Storage.UploadDir = "uploads"
	c.Storage.OutputDir = "outputs"
	c.Wikipedia = WikipediaSource{
		BaseURL:          "https://en.wikipedia.org",
		UserAgent:        "Darkroom Photo Restoration App",
		TimeoutInSeconds: 5,
	}
	c.PromptTemplates = PromptTemplates{
		ImageAnalysis: DefaultImageAnalysisPrompt,
		VideoAnalysis: DefaultVideoAnalysisPrompt,
		Restoration:   DefaultRestorationPrompt,
		Animation:     DefaultAnimationPrompt,
	}
	return c
}
