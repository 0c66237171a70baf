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

package cloud_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/cloud"
)

// TestNewConfigDefaults checks the compiled defaults are complete enough to
// run without any TOML file.
func TestNewConfigDefaults(t *testing.T) {
	cfg := cloud.NewConfig()

	assert.Equal(t, 8080, cfg.Application.Port)
	assert.Equal(t, "https://en.wikipedia.org", cfg.Wikipedia.BaseURL)
	assert.Equal(t, 5, cfg.Wikipedia.TimeoutInSeconds)
	assert.Equal(t, 10, cfg.VideoGeneration.PollIntervalInSeconds)
	assert.Equal(t, 300, cfg.VideoGeneration.PollTimeoutInSeconds)
	assert.Contains(t, cfg.AgentModels, cloud.ModelImageAnalysis)
	assert.Contains(t, cfg.AgentModels, cloud.ModelVideoAnalysis)
	assert.Contains(t, cfg.AgentModels, cloud.ModelRestoration)
	assert.NotEmpty(t, cfg.PromptTemplates.ImageAnalysis)
	assert.NotEmpty(t, cfg.PromptTemplates.Animation)
}

// TestLoadConfigOverlay checks the base file overrides defaults and the
// runtime file overrides the base file.
func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	base := "[application]\nport = 9000\n\n[wikipedia]\nuser_agent = \"base agent\"\n"
	runtime := "[wikipedia]\nuser_agent = \"test agent\"\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env.toml"), []byte(base), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test.toml"), []byte(runtime), 0o644))

	t.Setenv(cloud.EnvConfigFilePrefix, dir)
	t.Setenv(cloud.EnvConfigRuntime, "test")

	cfg := cloud.NewConfig()
	cloud.LoadConfig(cfg)

	assert.Equal(t, 9000, cfg.Application.Port)
	assert.Equal(t, "test agent", cfg.Wikipedia.UserAgent)
	// Untouched defaults survive the overlay.
	assert.Equal(t, "https://en.wikipedia.org", cfg.Wikipedia.BaseURL)
}

// TestCollectText checks fence stripping and multi-part concatenation.
func TestCollectText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "```json\n{\"a\":"},
				{Text: " 1}\n```"},
			}}},
		},
	}

	assert.Equal(t, "{\"a\": 1}", cloud.CollectText(resp))
}

// TestFirstInlineImage checks text parts are skipped and the first image
// payload wins.
func TestFirstInlineImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "restored for you"},
				{InlineData: &genai.Blob{Data: []byte{1, 2, 3}, MIMEType: "image/png"}},
			}}},
		},
	}

	data, mime := cloud.FirstInlineImage(resp)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, "image/png", mime)

	empty := &genai.GenerateContentResponse{}
	data, mime = cloud.FirstInlineImage(empty)
	assert.Nil(t, data)
	assert.Equal(t, "", mime)
}
