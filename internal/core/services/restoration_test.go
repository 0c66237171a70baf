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

package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/darkroomlabs/darkroom/internal/cloud"
	"github.com/darkroomlabs/darkroom/internal/core/imageops"
	"github.com/darkroomlabs/darkroom/internal/core/model"
	"github.com/darkroomlabs/darkroom/internal/core/services"
	"github.com/darkroomlabs/darkroom/internal/testutil"
)

// fakeVideoBackend scripts the Veo operation lifecycle: the operation
// returned by Start, a sequence of poll results, and the download payload.
type fakeVideoBackend struct {
	startOp *genai.GenerateVideosOperation
	pollOps []*genai.GenerateVideosOperation
	data    []byte

	polls  int
	prompt string
}

func (f *fakeVideoBackend) Start(_ context.Context, prompt string, _ *genai.Image, _ *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	f.prompt = prompt
	return f.startOp, nil
}

func (f *fakeVideoBackend) Poll(_ context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	if f.polls < len(f.pollOps) {
		op = f.pollOps[f.polls]
	}
	f.polls++
	return op, nil
}

func (f *fakeVideoBackend) Download(_ context.Context, _ *genai.Video) ([]byte, error) {
	return f.data, nil
}

func newRestorationService(t *testing.T, status cloud.BackendStatus, gen services.ContentGenerator, video services.VideoBackend) *services.RestorationService {
	t.Helper()
	svc, err := services.NewRestorationService(testutil.GetConfig(), status, gen, video)
	testutil.HandleErr(t, err)
	svc.PollInterval = time.Millisecond
	svc.PollTimeout = 50 * time.Millisecond
	return svc
}

func doneOperation(videos ...*genai.GeneratedVideo) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Done:     true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: videos},
	}
}

// TestRestoreImageFallbackGrayscale checks the degraded path converts the
// crop to grayscale when colorization is off.
func TestRestoreImageFallbackGrayscale(t *testing.T) {
	dir := t.TempDir()
	cropped := testutil.WriteTestImage(t, dir, 200, 150)
	outputPath := filepath.Join(dir, "restored.jpg")
	svc := newRestorationService(t, cloud.BackendDisabled, nil, nil)

	got, err := svc.RestoreImage(context.Background(), cropped, model.Metadata{}, outputPath, false)
	testutil.HandleErr(t, err)

	assert.Equal(t, outputPath, got)
	img, err := imageops.Load(outputPath)
	testutil.HandleErr(t, err)
	r, g, b, _ := img.At(100, 75).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

// TestRestoreImageFallbackColorPassthrough checks the degraded path leaves
// color alone when colorization is requested.
func TestRestoreImageFallbackColorPassthrough(t *testing.T) {
	dir := t.TempDir()
	cropped := testutil.WriteTestImage(t, dir, 200, 150)
	outputPath := filepath.Join(dir, "restored.jpg")
	svc := newRestorationService(t, cloud.BackendDisabled, nil, nil)

	_, err := svc.RestoreImage(context.Background(), cropped, model.Metadata{}, outputPath, true)
	testutil.HandleErr(t, err)

	img, err := imageops.Load(outputPath)
	testutil.HandleErr(t, err)
	r, _, b, _ := img.At(100, 75).RGBA()
	assert.NotEqual(t, r, b)
}

// TestRestoreImageModelResponse checks a returned inline image is decoded
// and written to the output path.
func TestRestoreImageModelResponse(t *testing.T) {
	dir := t.TempDir()
	cropped := testutil.WriteTestImage(t, dir, 200, 150)
	outputPath := filepath.Join(dir, "restored.jpg")

	source, err := imageops.Load(cropped)
	testutil.HandleErr(t, err)
	payload, err := imageops.EncodeJPEG(source)
	testutil.HandleErr(t, err)

	gen := &imageGenerator{data: payload}
	svc := newRestorationService(t, cloud.BackendReady, gen, nil)

	got, err := svc.RestoreImage(context.Background(), cropped, model.Metadata{"estimated_year": "1948"}, outputPath, true)
	testutil.HandleErr(t, err)

	assert.Equal(t, outputPath, got)
	width, height, err := imageops.Dimensions(outputPath)
	testutil.HandleErr(t, err)
	assert.Equal(t, 200, width)
	assert.Equal(t, 150, height)
}

// TestRestoreImageTextOnlyResponse checks a model answer without an image
// part falls back locally instead of failing.
func TestRestoreImageTextOnlyResponse(t *testing.T) {
	dir := t.TempDir()
	cropped := testutil.WriteTestImage(t, dir, 200, 150)
	outputPath := filepath.Join(dir, "restored.jpg")
	gen := &fakeGenerator{text: "I cannot restore this photograph."}
	svc := newRestorationService(t, cloud.BackendReady, gen, nil)

	got, err := svc.RestoreImage(context.Background(), cropped, model.Metadata{}, outputPath, true)
	testutil.HandleErr(t, err)

	assert.Equal(t, outputPath, got)
	_, statErr := os.Stat(outputPath)
	assert.NoError(t, statErr)
}

// TestGenerateVideoDisabledBackend checks the typed unavailable error.
func TestGenerateVideoDisabledBackend(t *testing.T) {
	dir := t.TempDir()
	restored := testutil.WriteTestImage(t, dir, 200, 150)
	svc := newRestorationService(t, cloud.BackendDisabled, nil, nil)

	_, err := svc.GenerateVideo(context.Background(), restored, model.Metadata{}, filepath.Join(dir, "out.mp4"))

	assert.True(t, services.IsUnavailable(err))
}

// TestGenerateVideoSuccess checks the poll loop runs to completion and the
// downloaded bytes land at the output path.
func TestGenerateVideoSuccess(t *testing.T) {
	dir := t.TempDir()
	restored := testutil.WriteTestImage(t, dir, 200, 150)
	outputPath := filepath.Join(dir, "out.mp4")
	backend := &fakeVideoBackend{
		startOp: &genai.GenerateVideosOperation{Done: false},
		pollOps: []*genai.GenerateVideosOperation{
			{Done: false},
			doneOperation(&genai.GeneratedVideo{Video: &genai.Video{}}),
		},
		data: []byte("video-bytes"),
	}
	svc := newRestorationService(t, cloud.BackendReady, nil, backend)

	got, err := svc.GenerateVideo(context.Background(), restored, model.Metadata{"estimated_year": "1948"}, outputPath)
	testutil.HandleErr(t, err)

	assert.Equal(t, outputPath, got)
	assert.Equal(t, 2, backend.polls)
	data, err := os.ReadFile(outputPath)
	testutil.HandleErr(t, err)
	assert.Equal(t, []byte("video-bytes"), data)
	assert.Contains(t, backend.prompt, "1948")
}

// TestGenerateVideoTimeout checks an operation that never completes returns
// the typed timeout once the polling ceiling passes.
func TestGenerateVideoTimeout(t *testing.T) {
	dir := t.TempDir()
	restored := testutil.WriteTestImage(t, dir, 200, 150)
	backend := &fakeVideoBackend{startOp: &genai.GenerateVideosOperation{Done: false}}
	svc := newRestorationService(t, cloud.BackendReady, nil, backend)

	_, err := svc.GenerateVideo(context.Background(), restored, model.Metadata{}, filepath.Join(dir, "out.mp4"))

	assert.True(t, services.IsTimeout(err))
}

// TestGenerateVideoSafetyRejection checks the safety filter outcome maps to
// the typed rejection error.
func TestGenerateVideoSafetyRejection(t *testing.T) {
	dir := t.TempDir()
	restored := testutil.WriteTestImage(t, dir, 200, 150)
	op := doneOperation()
	op.Response.RAIMediaFilteredCount = 1
	op.Response.RAIMediaFilteredReasons = []string{"filtered"}
	backend := &fakeVideoBackend{startOp: op}
	svc := newRestorationService(t, cloud.BackendReady, nil, backend)

	_, err := svc.GenerateVideo(context.Background(), restored, model.Metadata{}, filepath.Join(dir, "out.mp4"))

	assert.True(t, services.IsRejected(err))
}

// TestGenerateVideoEmptyResult checks an operation that finishes with no
// videos is a rejection, not a success with a missing file.
func TestGenerateVideoEmptyResult(t *testing.T) {
	dir := t.TempDir()
	restored := testutil.WriteTestImage(t, dir, 200, 150)
	backend := &fakeVideoBackend{startOp: doneOperation()}
	svc := newRestorationService(t, cloud.BackendReady, nil, backend)

	_, err := svc.GenerateVideo(context.Background(), restored, model.Metadata{}, filepath.Join(dir, "out.mp4"))

	assert.True(t, services.IsRejected(err))
}

// TestGenerateVideoContextCancel checks cancellation interrupts the poll
// wait.
func TestGenerateVideoContextCancel(t *testing.T) {
	dir := t.TempDir()
	restored := testutil.WriteTestImage(t, dir, 200, 150)
	backend := &fakeVideoBackend{startOp: &genai.GenerateVideosOperation{Done: false}}
	svc := newRestorationService(t, cloud.BackendReady, nil, backend)
	svc.PollInterval = time.Minute
	svc.PollTimeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.GenerateVideo(ctx, restored, model.Metadata{}, filepath.Join(dir, "out.mp4"))

	assert.ErrorIs(t, err, context.Canceled)
}

// imageGenerator answers with an inline image payload.
type imageGenerator struct {
	data []byte
}

func (g *imageGenerator) GenerateContent(_ context.Context, _ []*genai.Content) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here is the restored photograph."},
				{InlineData: &genai.Blob{Data: g.data, MIMEType: "image/jpeg"}},
			}}},
		},
	}, nil
}
