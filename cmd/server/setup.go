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

package main

import (
	"context"
	"log"
	"os"

	"github.com/darkroomlabs/darkroom/internal/api"
	"github.com/darkroomlabs/darkroom/internal/cloud"
	"github.com/darkroomlabs/darkroom/internal/core/services"
	"github.com/darkroomlabs/darkroom/internal/storage"
)

// StateManager holds the shared components of the application.
type StateManager struct {
	config      *cloud.Config
	cloud       *cloud.ServiceClients
	analysis    *services.AnalysisService
	restoration *services.RestorationService
	uploads     *storage.LocalStore
	outputs     *storage.LocalStore
}

var state = &StateManager{}

// SetupOS points the config loader at the configs directory when the caller
// has not configured it explicitly.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the application configuration once: compiled defaults
// overlaid with the TOML files.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}

// InitState builds the backend clients, the media stores and the pipeline
// services, and returns the HTTP handler wired to them.
func InitState(ctx context.Context) *api.Handler {
	config := GetConfig()

	cloudClients, err := cloud.NewServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	uploads, err := storage.NewLocalStore(config.Storage.UploadDir)
	if err != nil {
		panic(err)
	}
	outputs, err := storage.NewLocalStore(config.Storage.OutputDir)
	if err != nil {
		panic(err)
	}
	state.uploads = uploads
	state.outputs = outputs

	var imageModel, videoModel, restoreModel services.ContentGenerator
	if m, ok := cloudClients.AgentModels[cloud.ModelImageAnalysis]; ok {
		imageModel = m
	}
	if m, ok := cloudClients.AgentModels[cloud.ModelVideoAnalysis]; ok {
		videoModel = m
	}
	if m, ok := cloudClients.AgentModels[cloud.ModelRestoration]; ok {
		restoreModel = m
	}

	analysis, err := services.NewAnalysisService(config, cloudClients.Status, imageModel, videoModel, cloudClients.Wikipedia)
	if err != nil {
		panic(err)
	}
	state.analysis = analysis

	var video services.VideoBackend
	if cloudClients.VideoClient != nil {
		video = cloudClients.VideoClient
	}
	restoration, err := services.NewRestorationService(config, cloudClients.Status, restoreModel, video)
	if err != nil {
		panic(err)
	}
	state.restoration = restoration

	return &api.Handler{
		Analysis:    analysis,
		Restoration: restoration,
		Uploads:     uploads,
		Outputs:     outputs,
	}
}
