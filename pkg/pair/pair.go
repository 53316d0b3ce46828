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

// Package pair keeps two files in sync by rewriting one whenever the other changes.
package pair

import (
	"context"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/twinsync/pkg/llm"
	"github.com/walteh/twinsync/pkg/prompt"
	"github.com/walteh/twinsync/pkg/sanitize"
	"github.com/walteh/twinsync/pkg/snapshot"
	"gitlab.com/tozd/go/errors"
)

// 📣 Reporter receives operator-facing events. *log.Logger implements it.
type Reporter interface {
	ChangeDetected(name string, at time.Time)
	AutoTranslating(source, target string)
	TranslationStarted(source, target string)
	TranslationSucceeded(source, target string, elapsed time.Duration)
	TranslationFailed(source, target string, err error)
	Warning(msg string)
}

// 🔧 Options configures a Pair
type Options struct {
	// Model is passed through to the completer unchanged
	Model string
	// MaxTokens bounds every response
	MaxTokens int64
	// SettleDelay is how long the gate stays closed after a step finishes
	SettleDelay time.Duration
	// Clock defaults to the real clock
	Clock clockwork.Clock
	// Reporter defaults to a no-op reporter
	Reporter Reporter
	// Observer, when set, is called on the loop goroutine for every outcome
	Observer func(Outcome)
}

// 👯 Pair owns the two snapshots and the gate.
// Everything except New must be called from a single goroutine.
type Pair struct {
	fs        afero.Fs
	completer llm.Completer
	a, b      *snapshot.Snapshot
	gate      Gate

	model       string
	maxTokens   int64
	settleDelay time.Duration
	clock       clockwork.Clock
	reporter    Reporter
	observer    func(Outcome)
}

// 🏭 New creates a pair from two loaded snapshots
func New(fs afero.Fs, completer llm.Completer, a, b *snapshot.Snapshot, opts Options) *Pair {
	p := &Pair{
		fs:          fs,
		completer:   completer,
		a:           a,
		b:           b,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		settleDelay: opts.SettleDelay,
		clock:       opts.Clock,
		reporter:    opts.Reporter,
		observer:    opts.Observer,
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.reporter == nil {
		p.reporter = nopReporter{}
	}
	return p
}

// A returns the first snapshot
func (p *Pair) A() *snapshot.Snapshot { return p.a }

// B returns the second snapshot
func (p *Pair) B() *snapshot.Snapshot { return p.b }

// State returns the gate state
func (p *Pair) State() State { return p.gate.State() }

// ✨ Bootstrap fills an empty file from a non-empty one. It does nothing when
// both files are empty or both have content. A failed step is reported and returned.
func (p *Pair) Bootstrap(ctx context.Context) error {
	var source, target *snapshot.Snapshot
	switch {
	case p.a.HasContent() && !p.b.HasContent():
		source, target = p.a, p.b
	case p.b.HasContent() && !p.a.HasContent():
		source, target = p.b, p.a
	default:
		zerolog.Ctx(ctx).Debug().
			Bool("a_has_content", p.a.HasContent()).
			Bool("b_has_content", p.b.HasContent()).
			Msg("nothing to bootstrap")
		return nil
	}

	p.reporter.AutoTranslating(source.Name(), target.Name())

	if err := p.Step(ctx, source, target); err != nil {
		p.observe(Outcome{Kind: Failed, Path: source.Path(), Err: err})
		return err
	}
	p.observe(Outcome{Kind: Transformed, Path: source.Path()})
	return nil
}

// 🔄 Step rewrites target from source and updates the target snapshot.
// On failure the target file and snapshot are left untouched.
func (p *Pair) Step(ctx context.Context, source, target *snapshot.Snapshot) error {
	start := p.clock.Now()
	p.reporter.TranslationStarted(source.Name(), target.Name())

	if err := p.transform(ctx, source, target); err != nil {
		p.reporter.TranslationFailed(source.Name(), target.Name(), err)
		return err
	}

	p.reporter.TranslationSucceeded(source.Name(), target.Name(), p.clock.Since(start))
	return nil
}

func (p *Pair) transform(ctx context.Context, source, target *snapshot.Snapshot) error {
	instruction := prompt.Build(
		prompt.Document{Name: source.Name(), Content: source.Content()},
		prompt.Document{Name: target.Name(), Content: target.Content()},
	)

	zerolog.Ctx(ctx).Debug().
		Str("source", source.Path()).
		Str("target", target.Path()).
		Str("model", p.model).
		Int("prompt_bytes", len(instruction)).
		Msg("requesting transformation")

	response, err := p.completer.Complete(ctx, llm.Request{
		Model:     p.model,
		Prompt:    instruction,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return errors.Errorf("requesting transformation: %w", err)
	}

	// a response that already arrived is written even if ctx was cancelled meanwhile
	text := sanitize.StripCodeFence(response)

	if err := writeText(p.fs, target.Path(), text); err != nil {
		return err
	}

	target.Update(text, p.clock.Now())
	return nil
}

// writeText replaces the content of an existing file, keeping its permission bits.
// The text goes to a temp file in the same directory which is then renamed over
// path, so a failed write leaves path as it was.
func writeText(fs afero.Fs, path, text string) (err error) {
	info, err := fs.Stat(path)
	if err != nil {
		return errors.Errorf("stat %s: %w", path, err)
	}

	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".twinsync-*")
	if err != nil {
		return errors.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return errors.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("writing %s: %w", path, err)
	}
	if err := fs.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return errors.Errorf("setting mode of %s: %w", path, err)
	}
	if err := fs.Rename(tmp.Name(), path); err != nil {
		return errors.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (p *Pair) observe(o Outcome) {
	if p.observer != nil {
		p.observer(o)
	}
}

type nopReporter struct{}

func (nopReporter) ChangeDetected(string, time.Time) {}
func (nopReporter) AutoTranslating(string, string) {}
func (nopReporter) TranslationStarted(string, string) {}
func (nopReporter) TranslationSucceeded(string, string, time.Duration) {}
func (nopReporter) TranslationFailed(string, string, error) {}
func (nopReporter) Warning(string) {}
