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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const timeFormat = "15:04:05"

// 🎯 Logger prints operator status lines and mirrors them into zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	spinner bool

	mu     sync.Mutex
	active *pterm.SpinnerPrinter
}

// 🏭 New creates a new logger. When spinner is true a pterm spinner runs while
// a translation is in flight; it should only be enabled on a terminal.
func New(console io.Writer, zlog zerolog.Logger, spinner bool) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		spinner: spinner,
	}
}

type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

func stamp(at time.Time) string {
	return color.New(color.Faint).Sprint("[" + at.Format(timeFormat) + "]")
}

func arrow(source, target string) string {
	return fmt.Sprintf("%s %s %s",
		color.New(color.Bold).Sprint(source),
		color.New(color.Faint).Sprint("→"),
		color.New(color.Bold).Sprint(target))
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("twinsync")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 👀 Watching logs the pair being watched
func (l *Logger) Watching(a, b, model string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(a),
		color.New(color.Faint).Sprint("⇄"),
		color.New(color.Bold).Sprint(b),
		color.New(color.FgYellow).Sprint("("+model+")"))
	l.zlog.Info().Str("a", a).Str("b", b).Str("model", model).Msg("watching pair")
}

// ⟳ ChangeDetected logs an external edit of name
func (l *Logger) ChangeDetected(name string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s %s\n",
		stamp(at),
		color.New(color.FgBlue).Sprint("⟳"),
		fmt.Sprintf("change detected in %s", color.New(color.Bold).Sprint(name)))
	l.zlog.Info().Str("file", name).Time("at", at).Msg("change detected")
}

// ✨ AutoTranslating logs the startup fill of an empty file
func (l *Logger) AutoTranslating(source, target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s auto-translating %s\n",
		stamp(time.Now()),
		color.New(color.FgCyan).Sprint("✨"),
		arrow(source, target))
	l.zlog.Info().Str("source", source).Str("target", target).Msg("auto-translating empty file")
}

// 🚀 TranslationStarted logs the start of a transformation
func (l *Logger) TranslationStarted(source, target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zlog.Debug().Str("source", source).Str("target", target).Msg("translation started")

	text := "translating " + arrow(source, target)
	if !l.spinner {
		fmt.Fprintf(l.console, "%s %s %s\n", stamp(time.Now()), color.New(color.FgYellow).Sprint("…"), text)
		return
	}

	sp, err := pterm.DefaultSpinner.WithWriter(l.console).WithRemoveWhenDone(false).Start(text)
	if err != nil {
		l.zlog.Debug().Err(err).Msg("starting spinner")
		return
	}
	l.active = sp
}

// ✅ TranslationSucceeded logs a finished transformation
func (l *Logger) TranslationSucceeded(source, target string, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf("updated %s from %s in %s", target, source, elapsed.Round(time.Millisecond))
	l.zlog.Info().Str("source", source).Str("target", target).Dur("elapsed", elapsed).Msg("translation succeeded")

	if l.active != nil {
		l.active.Success(msg)
		l.active = nil
		return
	}
	fmt.Fprintf(l.console, "%s %s %s\n", stamp(time.Now()), color.New(color.FgGreen).Sprint("✓"), msg)
}

// ❌ TranslationFailed logs a failed transformation; target was left untouched
func (l *Logger) TranslationFailed(source, target string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf("failed to update %s from %s: %v", target, source, err)
	l.zlog.Error().Err(err).Str("source", source).Str("target", target).Msg("translation failed")

	if l.active != nil {
		l.active.Fail(msg)
		l.active = nil
		return
	}
	fmt.Fprintf(l.console, "%s %s %s\n", stamp(time.Now()), color.New(color.FgRed).Sprint("✗"), color.New(color.FgRed).Sprint(msg))
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}
