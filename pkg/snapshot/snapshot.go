// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package snapshot keeps the last observed content of a watched file.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📄 FileNotFoundError is returned when a watched path does not exist at startup.
type FileNotFoundError struct {
	Path string
}

func (err FileNotFoundError) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// 📸 Snapshot is the in-memory copy of one watched file.
// Only the owning sync loop mutates it.
type Snapshot struct {
	path         string
	content      string
	lastModified time.Time
}

// 🏭 New creates a snapshot with known content
func New(path, content string, at time.Time) *Snapshot {
	return &Snapshot{
		path:         path,
		content:      content,
		lastModified: at,
	}
}

// 📖 Load reads path from fs and returns its snapshot.
func Load(ctx context.Context, fs afero.Fs, path string, at time.Time) (*Snapshot, error) {
	content, err := ReadText(fs, path)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Int("bytes", len(content)).
		Msg("loaded snapshot")

	return New(path, content, at), nil
}

// 👯 LoadPair loads both files of a pair concurrently.
func LoadPair(ctx context.Context, fs afero.Fs, pathA, pathB string, at time.Time) (*Snapshot, *Snapshot, error) {
	var a, b *Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = Load(gctx, fs, pathA, at)
		return err
	})
	g.Go(func() (err error) {
		b, err = Load(gctx, fs, pathB, at)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// ReadText reads the full text of path.
func ReadText(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", FileNotFoundError{Path: path}
		}
		return "", errors.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// Path returns the watched path
func (s *Snapshot) Path() string { return s.path }

// Name returns the base name of the watched path
func (s *Snapshot) Name() string { return filepath.Base(s.path) }

// Content returns the last observed content
func (s *Snapshot) Content() string { return s.content }

// LastModified returns when the content was last updated
func (s *Snapshot) LastModified() time.Time { return s.lastModified }

// HasContent reports whether the content is non-blank.
func (s *Snapshot) HasContent() bool {
	return strings.TrimSpace(s.content) != ""
}

// Matches reports whether text is byte-identical to the snapshot content.
func (s *Snapshot) Matches(text string) bool {
	return s.content == text
}

// Update records newly observed or written content.
func (s *Snapshot) Update(content string, at time.Time) {
	s.content = content
	s.lastModified = at
}
