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

package main

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/twinsync/pkg/config"
	"github.com/walteh/twinsync/pkg/llm"
	"github.com/walteh/twinsync/pkg/log"
	"github.com/walteh/twinsync/pkg/pair"
	"github.com/walteh/twinsync/pkg/snapshot"
	"github.com/walteh/twinsync/pkg/watch"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const defaultMaxRetries = 2

// CompleterFactory builds the model client once settings and the api key are known.
type CompleterFactory func(settings *config.Settings, apiKey string) (llm.Completer, error)

// 🎯 Handler wires settings, snapshots, the watcher and the sync loop together
type Handler struct {
	opts         rootOpts
	fs           afero.Fs
	console      io.Writer
	clock        clockwork.Clock
	newCompleter CompleterFactory
}

// NewHandler creates a handler writing operator output to console
func NewHandler(fs afero.Fs, console io.Writer) *Handler {
	return &Handler{
		fs:           fs,
		console:      console,
		clock:        clockwork.NewRealClock(),
		newCompleter: newAnthropicCompleter,
	}
}

func newAnthropicCompleter(settings *config.Settings, apiKey string) (llm.Completer, error) {
	return llm.NewAnthropicCompleter(llm.AnthropicOptions{
		APIKey:     apiKey,
		BaseURL:    settings.BaseURL,
		Timeout:    settings.RequestTimeoutDuration(),
		MaxRetries: defaultMaxRetries,
	})
}

// 🚀 Run syncs pathA and pathB until ctx is cancelled. Only startup errors are returned.
func (h *Handler) Run(ctx context.Context, pathA, pathB string) error {
	zlog := zerolog.Ctx(ctx)

	settings, err := config.LoadSettings(ctx, h.fs, h.opts.configFile)
	if err != nil {
		return errors.Errorf("loading settings: %w", err)
	}
	if h.opts.model != "" {
		if err := config.ValidateModel(h.opts.model); err != nil {
			return err
		}
		settings.Model = h.opts.model
	}
	zlog.Debug().Str("settings", settings.String()).Msg("settings loaded")

	a, b, err := snapshot.LoadPair(ctx, h.fs, pathA, pathB, h.clock.Now())
	if err != nil {
		return err
	}

	keyPath, err := config.APIKeyPath()
	if err != nil {
		return err
	}
	apiKey, err := config.ReadAPIKey(h.fs, keyPath)
	if err != nil {
		return err
	}

	completer, err := h.newCompleter(settings, apiKey)
	if err != nil {
		return errors.Errorf("creating model client: %w", err)
	}

	ui := log.New(h.console, *zlog, !color.NoColor)
	ctx = log.NewContext(ctx, ui)

	watcher, err := watch.New(ctx, watch.Options{Debounce: watch.DefaultDebounce}, a.Path(), b.Path())
	if err != nil {
		return err
	}

	p := pair.New(h.fs, completer, a, b, pair.Options{
		Model:       settings.Model,
		MaxTokens:   settings.MaxTokens,
		SettleDelay: settings.SettleDelayDuration(),
		Clock:       h.clock,
		Reporter:    ui,
	})

	ui.Header("keeping files in sync")
	ui.Watching(a.Name(), b.Name(), settings.Model)

	// the watcher is already running, so our own write is seen and found unchanged
	if err := p.Bootstrap(ctx); err != nil {
		zlog.Debug().Err(err).Msg("bootstrap failed")
	}

	return h.serve(ctx, p, watcher)
}

func (h *Handler) serve(ctx context.Context, p *pair.Pair, watcher *watch.Watcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.Go(func() error {
		defer cancel()
		return p.Run(ctx, watcher.Changes(p.A().Path()), watcher.Changes(p.B().Path()))
	})
	g.Go(func() error {
		<-ctx.Done()
		return watcher.Close()
	})

	err := g.Wait()
	log.FromContext(ctx).LogNewline()
	log.FromContext(ctx).Info("stopped watching")
	return err
}
