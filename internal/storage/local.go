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

// Package storage manages media files on the local filesystem. Uploads get
// fresh uuid-based names so user-supplied filenames never touch the disk,
// and every lookup is guarded against path traversal. Derived artifacts
// (crops, restorations, videos) take prefixed names tied to their source so
// a request's file family is recognizable in a directory listing.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Derived-file name prefixes.
const (
	PrefixCropped  = "cropped_"
	PrefixRestored = "restored_"
	PrefixVideo    = "video_"
)

// LocalStore is a single flat directory of media files.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory when missing and returns the store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the store's directory path.
func (s *LocalStore) Dir() string { return s.dir }

// Save streams r into a newly named file, keeping only the extension of the
// original filename, and returns the stored name.
func (s *LocalStore) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.New().String() + ext

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return name, nil
}

// SaveBytes writes data under a newly named file with the given extension
// and returns the stored name.
func (s *LocalStore) SaveBytes(data []byte, ext string) (string, error) {
	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return name, nil
}

// Path resolves a stored name to its absolute location inside the store.
// Names carrying separators or traversal segments are rejected.
func (s *LocalStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid media name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Exists reports whether a stored name resolves to a regular file.
func (s *LocalStore) Exists(name string) bool {
	p, err := s.Path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// DerivedName builds the name for an artifact derived from source, swapping
// in a new extension when ext is non-empty.
func DerivedName(prefix, source, ext string) string {
	base := filepath.Base(source)
	if ext != "" {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ext
	}
	return prefix + base
}
