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

// Package api exposes the HTTP surface: one processing endpoint that runs
// the full analyze-crop-restore pipeline, one video generation endpoint,
// and the media file routes. Handlers hold no state of their own; every
// dependency arrives through the Handler struct so tests can run the
// routes against fakes and temp directories.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/darkroomlabs/darkroom/internal/core/model"
	"github.com/darkroomlabs/darkroom/internal/core/services"
	"github.com/darkroomlabs/darkroom/internal/storage"
)

// Handler wires the pipeline services and media stores into gin routes.
type Handler struct {
	Analysis    *services.AnalysisService
	Restoration *services.RestorationService
	Uploads     *storage.LocalStore
	Outputs     *storage.LocalStore
}

// Register attaches every route to the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/api/process", h.Process)
	r.POST("/api/generate-video", h.GenerateVideo)
	r.GET("/uploads/:filename", h.serveFrom(h.Uploads))
	r.GET("/outputs/:filename", h.serveFrom(h.Outputs))
}

// Process accepts an uploaded photograph or film clip plus optional
// location, historical_context and colorize form fields, and runs the
// pipeline. Images come back analyzed, cropped and restored; videos come
// back analyzed only.
func (h *Handler) Process(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	location := c.PostForm("location")
	userContext := c.PostForm("historical_context")
	colorize := strings.EqualFold(c.DefaultPostForm("colorize", "true"), "true")

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer src.Close()

	name, err := h.Uploads.Save(src, fileHeader.Filename)
	if err != nil {
		slog.Error("failed to store upload", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	uploadPath, _ := h.Uploads.Path(name)

	kind := mediaKind(uploadPath)
	if kind == "" {
		_ = os.Remove(uploadPath)
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be an image or video"})
		return
	}

	if kind == "video" {
		result, err := h.Analysis.AnalyzeVideo(c.Request.Context(), uploadPath, userContext, location)
		if err != nil {
			slog.Error("video analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"type":     "video",
			"original": "/uploads/" + name,
			"metadata": result.Metadata,
		})
		return
	}

	result, err := h.Analysis.AnalyzeImage(c.Request.Context(), uploadPath, userContext, location)
	if err != nil {
		slog.Error("image analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	croppedName := storage.DerivedName(storage.PrefixCropped, name, "")
	croppedPath := filepath.Join(h.Outputs.Dir(), croppedName)
	if err := h.Analysis.CropImage(uploadPath, *result.BoundingBox, croppedPath); err != nil {
		slog.Error("crop failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	restoredName := storage.DerivedName(storage.PrefixRestored, name, "")
	restoredPath := filepath.Join(h.Outputs.Dir(), restoredName)
	if _, err := h.Restoration.RestoreImage(c.Request.Context(), croppedPath, result.Metadata, restoredPath, colorize); err != nil {
		slog.Error("restoration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"type":         "image",
		"original":     "/uploads/" + name,
		"cropped":      "/outputs/" + croppedName,
		"restored":     "/outputs/" + restoredName,
		"bounding_box": result.BoundingBox,
		"metadata":     result.Metadata,
	})
}

// GenerateVideo animates a previously restored photo. It takes the
// restored image's /outputs/ path and the metadata JSON the processing
// call returned.
func (h *Handler) GenerateVideo(c *gin.Context) {
	restoredRef := c.PostForm("restored_image_path")
	metadataJSON := c.PostForm("metadata_json")
	if restoredRef == "" || metadataJSON == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "restored_image_path and metadata_json are required"})
		return
	}

	var md model.Metadata
	if err := json.Unmarshal([]byte(metadataJSON), &md); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metadata_json is not valid JSON"})
		return
	}

	name := strings.TrimPrefix(restoredRef, "/outputs/")
	restoredPath, err := h.Outputs.Path(name)
	if err != nil || !h.Outputs.Exists(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "restored image not found"})
		return
	}

	videoName := storage.DerivedName(storage.PrefixVideo, name, ".mp4")
	videoPath := filepath.Join(h.Outputs.Dir(), videoName)

	if _, err := h.Restoration.GenerateVideo(c.Request.Context(), restoredPath, md, videoPath); err != nil {
		status := http.StatusInternalServerError
		switch {
		case services.IsUnavailable(err):
			status = http.StatusServiceUnavailable
		case services.IsTimeout(err):
			status = http.StatusGatewayTimeout
		case services.IsRejected(err):
			status = http.StatusUnprocessableEntity
		}
		slog.Error("video generation failed", "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"video":   "/outputs/" + videoName,
	})
}

// serveFrom builds the file route for one store, with the store's own
// traversal guard deciding what is servable.
func (h *Handler) serveFrom(store *storage.LocalStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("filename")
		path, err := store.Path(name)
		if err != nil || !store.Exists(name) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.File(path)
	}
}

// mediaKind sniffs the stored file's magic bytes and returns "image",
// "video" or "" for anything else.
func mediaKind(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return ""
	}
	switch kind.MIME.Type {
	case "image", "video":
		return kind.MIME.Type
	}
	return ""
}
