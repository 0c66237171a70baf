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
// file holds the restoration service: generative image repair with a local
// fallback, and asynchronous video generation over the Veo operation
// lifecycle. Unlike analysis, video generation has no meaningful fallback,
// so its failures surface as typed errors.
package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/cloud"
	"github.com/darkroomlabs/darkroom/internal/core/imageops"
	"github.com/darkroomlabs/darkroom/internal/core/model"
)

// notesPromptLimit caps how much of the analysis notes is replayed into
// the generation prompts.
const notesPromptLimit = 200

// Letterbox target for video seeds; Veo rejects frames that stray from the
// requested aspect ratio.
const (
	videoRatioWidth  = 16
	videoRatioHeight = 9
)

// RestorationService repairs cropped photographs with the image model and
// animates restored ones with Veo.
type RestorationService struct {
	status    cloud.BackendStatus
	generator ContentGenerator
	video     VideoBackend

	restoreTmpl *template.Template
	animateTmpl *template.Template

	aspectRatio string

	// Polling policy for video operations. Exported so tests can shrink
	// the wait to milliseconds.
	PollInterval time.Duration
	PollTimeout  time.Duration

	restoreCounter  metric.Int64Counter
	fallbackCounter metric.Int64Counter
	videoCounter    metric.Int64Counter
}

// NewRestorationService parses the generation prompt templates and builds
// the service. generator and video may be nil when the backend is disabled.
func NewRestorationService(
	cfg *cloud.Config,
	status cloud.BackendStatus,
	generator ContentGenerator,
	video VideoBackend,
) (*RestorationService, error) {
	restoreTmpl, err := template.New("restoration").Parse(cfg.PromptTemplates.Restoration)
	if err != nil {
		return nil, fmt.Errorf("parse restoration prompt: %w", err)
	}
	animateTmpl, err := template.New("animation").Parse(cfg.PromptTemplates.Animation)
	if err != nil {
		return nil, fmt.Errorf("parse animation prompt: %w", err)
	}

	meter := otel.Meter("darkroom-restoration")
	restoreCounter, err := meter.Int64Counter("restore-count")
	if err != nil {
		return nil, err
	}
	fallbackCounter, err := meter.Int64Counter("restore-fallback-count")
	if err != nil {
		return nil, err
	}
	videoCounter, err := meter.Int64Counter("video-generation-count")
	if err != nil {
		return nil, err
	}

	return &RestorationService{
		status:          status,
		generator:       generator,
		video:           video,
		restoreTmpl:     restoreTmpl,
		animateTmpl:     animateTmpl,
		aspectRatio:     cfg.VideoGeneration.AspectRatio,
		PollInterval:    time.Duration(cfg.VideoGeneration.PollIntervalInSeconds) * time.Second,
		PollTimeout:     time.Duration(cfg.VideoGeneration.PollTimeoutInSeconds) * time.Second,
		restoreCounter:  restoreCounter,
		fallbackCounter: fallbackCounter,
		videoCounter:    videoCounter,
	}, nil
}

// generationPromptData feeds the restoration and animation templates.
type generationPromptData struct {
	YearInfo            string
	PeriodInfo          string
	ColorizeInstruction string
	Notes               string
}

func (s *RestorationService) promptData(md model.Metadata, colorize bool) generationPromptData {
	md.EnsureEstimatedYear()
	instruction := "Keep the original color scheme."
	if colorize {
		instruction = "Colorize this black and white photograph with historically accurate colors."
	}
	notes := md.GetString("notes")
	if len(notes) > notesPromptLimit {
		notes = string([]rune(notes)[:notesPromptLimit])
	}
	return generationPromptData{
		YearInfo:            md.GetString("estimated_year"),
		PeriodInfo:          md.GetString("estimated_period"),
		ColorizeInstruction: instruction,
		Notes:               notes,
	}
}

// RestoreImage repairs the cropped print and writes the result to
// outputPath. When the backend is disabled or the model returns no image,
// it degrades to a local pass: the crop unchanged, or converted to
// grayscale when colorize is off, so downstream steps always have a file.
func (s *RestorationService) RestoreImage(ctx context.Context, croppedPath string, md model.Metadata, outputPath string, colorize bool) (string, error) {
	if !s.status.Available() || s.generator == nil {
		slog.Info("image restoration running in degraded mode", "reason", "backend disabled")
		return s.fallbackRestoration(ctx, croppedPath, outputPath, colorize)
	}

	prompt, err := renderPrompt(s.restoreTmpl, s.promptData(md, colorize))
	if err != nil {
		slog.Warn("restoration prompt render failed", "error", err)
		return s.fallbackRestoration(ctx, croppedPath, outputPath, colorize)
	}

	data, err := os.ReadFile(croppedPath)
	if err != nil {
		return "", fmt.Errorf("read cropped image: %w", err)
	}

	resp, err := s.generator.GenerateContent(ctx, mediaContents(data, sniffImageMIME(data), prompt))
	if err != nil {
		slog.Warn("restoration model call failed, using fallback", "error", err)
		return s.fallbackRestoration(ctx, croppedPath, outputPath, colorize)
	}

	imgBytes, mimeType := cloud.FirstInlineImage(resp)
	if imgBytes == nil {
		slog.Warn("restoration response carried no image part")
		return s.fallbackRestoration(ctx, croppedPath, outputPath, colorize)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		slog.Warn("restoration response image undecodable", "mime_type", mimeType, "error", err)
		return s.fallbackRestoration(ctx, croppedPath, outputPath, colorize)
	}
	if err := imageops.Save(img, outputPath); err != nil {
		return "", fmt.Errorf("save restored image: %w", err)
	}

	s.restoreCounter.Add(ctx, 1)
	return outputPath, nil
}

// fallbackRestoration performs the local degraded-mode restoration.
func (s *RestorationService) fallbackRestoration(ctx context.Context, croppedPath, outputPath string, colorize bool) (string, error) {
	s.fallbackCounter.Add(ctx, 1)

	img, err := imageops.Load(croppedPath)
	if err != nil {
		return "", fmt.Errorf("load cropped image: %w", err)
	}
	if !colorize {
		img = imageops.Grayscale(img)
	}
	if err := imageops.Save(img, outputPath); err != nil {
		return "", fmt.Errorf("save fallback image: %w", err)
	}
	return outputPath, nil
}

// GenerateVideo animates a restored photograph into a short clip. The seed
// frame is letterboxed to the configured aspect ratio, the Veo operation is
// polled until done, and the finished video is written to outputPath.
//
// Failure modes are typed: ErrBackendUnavailable when no video backend is
// configured, ErrGenerationTimeout when the operation outlives PollTimeout,
// ErrGenerationRejected when the operation finishes without a usable video.
func (s *RestorationService) GenerateVideo(ctx context.Context, restoredPath string, md model.Metadata, outputPath string) (string, error) {
	if !s.status.Available() || s.video == nil {
		return "", ErrBackendUnavailable
	}

	prompt, err := renderPrompt(s.animateTmpl, s.promptData(md, true))
	if err != nil {
		return "", fmt.Errorf("render animation prompt: %w", err)
	}

	img, err := imageops.Load(restoredPath)
	if err != nil {
		return "", fmt.Errorf("load restored image: %w", err)
	}
	seed, err := imageops.EncodeJPEG(imageops.LetterboxToRatio(img, videoRatioWidth, videoRatioHeight))
	if err != nil {
		return "", fmt.Errorf("encode seed frame: %w", err)
	}

	op, err := s.video.Start(ctx, prompt, &genai.Image{ImageBytes: seed, MIMEType: "image/jpeg"}, &genai.GenerateVideosConfig{
		AspectRatio: s.aspectRatio,
	})
	if err != nil {
		return "", fmt.Errorf("start video generation: %w", err)
	}

	deadline := time.Now().Add(s.PollTimeout)
	for !op.Done {
		if time.Now().After(deadline) {
			return "", ErrGenerationTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.PollInterval):
		}
		op, err = s.video.Poll(ctx, op)
		if err != nil {
			return "", fmt.Errorf("poll video generation: %w", err)
		}
		slog.Debug("video generation polled", "done", op.Done)
	}

	video, err := finishedVideo(op)
	if err != nil {
		return "", err
	}

	data, err := s.video.Download(ctx, video)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("save video: %w", err)
	}

	s.videoCounter.Add(ctx, 1)
	return outputPath, nil
}

// finishedVideo inspects a completed operation and extracts the video, or
// explains the rejection.
func finishedVideo(op *genai.GenerateVideosOperation) (*genai.Video, error) {
	if len(op.Error) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrGenerationRejected, op.Error)
	}
	if op.Response == nil {
		return nil, fmt.Errorf("%w: operation completed without a response", ErrGenerationRejected)
	}
	if op.Response.RAIMediaFilteredCount > 0 {
		reason := "safety filter rejected the content"
		if len(op.Response.RAIMediaFilteredReasons) > 0 {
			reason = strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
		}
		return nil, fmt.Errorf("%w: %s", ErrGenerationRejected, reason)
	}
	if len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, fmt.Errorf("%w: no videos generated", ErrGenerationRejected)
	}
	return op.Response.GeneratedVideos[0].Video, nil
}
