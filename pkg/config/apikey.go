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

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// ErrMissingAPIKey is returned when the API key file is absent, unreadable or blank.
var ErrMissingAPIKey = errors.Base("anthropic api key not found")

const (
	// Dir is the per-user directory under $HOME
	Dir = ".twinsync"
	// APIKeyFile holds the API key on a single line
	APIKeyFile = "api_key"
)

// settingsNames are tried in order when no settings file is given
var settingsNames = []string{"config.yaml", "config.yml", "config.json", "config.hcl"}

// 🏠 UserDir returns ~/.twinsync
func UserDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, Dir), nil
}

// 🔑 APIKeyPath returns ~/.twinsync/api_key
func APIKeyPath() (string, error) {
	dir, err := UserDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, APIKeyFile), nil
}

// 🔑 ReadAPIKey reads the key at path. Trailing whitespace is ignored.
func ReadAPIKey(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("%w at %s", ErrMissingAPIKey, path)
		}
		return "", errors.Errorf("%w: reading %s: %v", ErrMissingAPIKey, path, err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", errors.Errorf("%w: %s is empty", ErrMissingAPIKey, path)
	}
	if strings.ContainsAny(key, "\r\n") {
		return "", errors.Errorf("%w: %s must contain a single line", ErrMissingAPIKey, path)
	}
	return key, nil
}

// 🔍 LoadSettings loads path when given, else the first settings file found in
// ~/.twinsync, else the defaults.
func LoadSettings(ctx context.Context, fs afero.Fs, path string) (*Settings, error) {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, errors.Errorf("expanding %s: %w", path, err)
		}
		return Load(ctx, fs, expanded)
	}

	dir, err := UserDir()
	if err != nil {
		return nil, err
	}

	for _, name := range settingsNames {
		candidate := filepath.Join(dir, name)
		_, err := fs.Stat(candidate)
		if err == nil {
			return Load(ctx, fs, candidate)
		}
		if !os.IsNotExist(err) {
			return nil, errors.Errorf("checking settings file %s: %w", candidate, err)
		}
	}

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Msg("no settings file, using defaults")
	return Defaults(), nil
}
