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
// This file contains the hierarchical configuration loader and small helpers
// for reading multi-part model responses.
package cloud

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

// Configuration loading constants. A base file (.env.toml) is loaded first
// and an environment-specific file (.env.<runtime>.toml) overrides it.
const (
	ConfigFileBaseName  = ".env"
	ConfigFileExtension = ".toml"
	ConfigSeparator     = "."
	EnvConfigFilePrefix = "DARKROOM_CONFIG_PREFIX"
	EnvConfigRuntime    = "DARKROOM_RUNTIME"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig overlays TOML configuration files onto baseConfig. The file
// directory comes from DARKROOM_CONFIG_PREFIX and the runtime name from
// DARKROOM_RUNTIME (default "local"). Missing files are fine: the compiled
// defaults from NewConfig stay in effect.
func LoadConfig(baseConfig any) {
	prefix := os.Getenv(EnvConfigFilePrefix)
	if len(prefix) > 0 && !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}

	runtime := os.Getenv(EnvConfigRuntime)
	if runtime == "" {
		runtime = "local"
	}

	baseFile := prefix + ConfigFileBaseName + ConfigFileExtension
	envFile := prefix + ConfigFileBaseName + ConfigSeparator + runtime + ConfigFileExtension

	if fileExists(baseFile) {
		if _, err := toml.DecodeFile(baseFile, baseConfig); err != nil {
			log.Fatalf("failed to decode base configuration file %s: %s", baseFile, err)
		}
	}
	if fileExists(envFile) {
		if _, err := toml.DecodeFile(envFile, baseConfig); err != nil {
			log.Fatalf("failed to decode environment configuration file %s: %s", envFile, err)
		}
	}
}

// CollectText concatenates every text part across all candidates of a model
// response into one string, stripping markdown JSON fences the models like
// to add despite instructions.
func CollectText(resp *genai.GenerateContentResponse) string {
	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	value := strings.TrimSpace(out.String())
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value)
}

// FirstInlineImage returns the bytes and mime type of the first inline image
// payload in a model response, or nil when the response carries no image.
func FirstInlineImage(resp *genai.GenerateContentResponse) ([]byte, string) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}
