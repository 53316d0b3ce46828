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

// Package watch turns filesystem events for a fixed set of files into one
// notification channel per file.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultDebounce waits for a burst of writes to settle before notifying.
const DefaultDebounce = 50 * time.Millisecond

// 🔧 Options configures a Watcher
type Options struct {
	// Debounce delays a notification until no event arrived for this long. Zero notifies immediately.
	Debounce time.Duration
}

type subscription struct {
	path  string
	ch    chan struct{}
	timer *time.Timer
}

// 👀 Watcher watches individual files through their parent directories so
// editors that save by renaming over the file are still seen.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	subs     map[string]*subscription

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// 🏭 New starts watching paths. Every path must exist.
func New(ctx context.Context, opts Options, paths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: opts.Debounce,
		subs:     make(map[string]*subscription, len(paths)),
	}

	dirs := map[string]bool{}
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.closeWatcher(ctx)
			return nil, errors.Errorf("resolving %s: %w", path, err)
		}

		if _, ok := w.subs[abs]; !ok {
			w.subs[abs] = &subscription{path: abs, ch: make(chan struct{}, 1)}
		}

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			// release the handles of the directories added so far
			w.closeWatcher(ctx)
			return nil, errors.Errorf("watching %q: %w", dir, err)
		}
		dirs[dir] = true
	}

	w.wg.Add(1)
	go w.run(ctx)

	zerolog.Ctx(ctx).Debug().Int("files", len(w.subs)).Int("dirs", len(dirs)).Msg("watcher started")
	return w, nil
}

// 📡 Changes returns the notification channel for path, or nil if path is not watched.
// A notification means the file may have changed; readers must compare content.
// The channel is closed by Close.
func (w *Watcher) Changes(path string) <-chan struct{} {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	sub, ok := w.subs[abs]
	if !ok {
		return nil
	}
	return sub.ch
}

// 🛑 Close releases the underlying watch handles and closes every Changes channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, sub := range w.subs {
		if sub.timer != nil {
			sub.timer.Stop()
		}
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	for _, sub := range w.subs {
		close(sub.ch)
	}

	if err != nil {
		return errors.Errorf("closing watcher: %w", err)
	}
	return nil
}

func (w *Watcher) closeWatcher(ctx context.Context) {
	if err := w.fsw.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close file watcher")
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	logger := zerolog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// removals and renames away are followed by a create when the file comes back
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	sub, ok := w.subs[filepath.Clean(event.Name)]
	if !ok {
		return
	}

	zerolog.Ctx(ctx).Debug().Str("path", sub.path).Str("op", event.Op.String()).Msg("file event")
	w.notify(sub)
}

func (w *Watcher) notify(sub *subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if w.debounce <= 0 {
		send(sub.ch)
		return
	}

	if sub.timer != nil {
		sub.timer.Stop()
	}
	sub.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.closed {
			send(sub.ch)
		}
	})
}

// send coalesces notifications: if one is already pending the new one is merged into it.
func send(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
