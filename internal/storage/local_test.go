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

package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/assert"

	"github.com/darkroomlabs/darkroom/internal/storage"
)

// TestSaveRenames checks uploads get fresh names that keep only the
// original extension, so hostile filenames never reach the disk.
func TestSaveRenames(t *testing.T) {
	store, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	assert.NoError(t, err)

	name, err := store.Save(strings.NewReader("fake image data"), "../../etc/passwd.JPG")
	assert.NoError(t, err)

	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.False(t, strings.Contains(name, "passwd"))
	assert.Equal(t, name, filepath.Base(name))

	path, err := store.Path(name)
	assert.NoError(t, err)
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))
}

// TestPathRejectsTraversal checks the lookup guard.
func TestPathRejectsTraversal(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err)

	for _, name := range []string{"", "../secret", "a/b.jpg", "..", "dir/../../x"} {
		_, err := store.Path(name)
		assert.Error(t, err)
	}
}

// TestExists checks Exists tracks real regular files only.
func TestExists(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	assert.NoError(t, err)

	assert.False(t, store.Exists("missing.jpg"))
	assert.False(t, store.Exists("../local_test.go"))

	name, err := store.SaveBytes([]byte("x"), ".jpg")
	assert.NoError(t, err)
	assert.True(t, store.Exists(name))
}

// TestDerivedName checks the prefix and extension swap rules.
func TestDerivedName(t *testing.T) {
	assert.Equal(t, "cropped_scan.jpg", storage.DerivedName(storage.PrefixCropped, "scan.jpg", ""))
	assert.Equal(t, "video_restored_scan.mp4", storage.DerivedName(storage.PrefixVideo, "/outputs/restored_scan.jpg", ".mp4"))
}
