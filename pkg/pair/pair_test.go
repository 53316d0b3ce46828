package pair

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/twinsync/gen/mockery"
	"github.com/walteh/twinsync/pkg/llm"
	"github.com/walteh/twinsync/pkg/snapshot"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	pathA       = "/work/polish.md"
	pathB       = "/work/english.md"
	testModel   = "claude-sonnet-4-0"
	settleDelay = 100 * time.Millisecond
)

// 📋 recordingReporter captures reporter calls
type recordingReporter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingReporter) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingReporter) ChangeDetected(name string, _ time.Time) { r.add("changed " + name) }
func (r *recordingReporter) AutoTranslating(source, target string) {
	r.add("auto " + source + " -> " + target)
}
func (r *recordingReporter) TranslationStarted(source, target string) {
	r.add("start " + source + " -> " + target)
}
func (r *recordingReporter) TranslationSucceeded(source, target string, _ time.Duration) {
	r.add("ok " + source + " -> " + target)
}
func (r *recordingReporter) TranslationFailed(source, target string, _ error) {
	r.add("fail " + source + " -> " + target)
}
func (r *recordingReporter) Warning(msg string) { r.add("warn " + msg) }

func (r *recordingReporter) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type harness struct {
	fs        afero.Fs
	clock     clockwork.FakeClock
	completer *mockery.MockCompleter_llm
	reporter  *recordingReporter
	outcomes  chan Outcome
	pair      *Pair

	aChanges chan struct{}
	bChanges chan struct{}
	cancel   context.CancelFunc
	done     chan error
}

func newHarness(t *testing.T, contentA, contentB string) *harness {
	t.Helper()

	h := &harness{
		fs:        afero.NewMemMapFs(),
		clock:     clockwork.NewFakeClock(),
		completer: mockery.NewMockCompleter_llm(t),
		reporter:  &recordingReporter{},
		outcomes:  make(chan Outcome, 32),
		aChanges:  make(chan struct{}, 1),
		bChanges:  make(chan struct{}, 1),
	}

	require.NoError(t, afero.WriteFile(h.fs, pathA, []byte(contentA), 0o644))
	require.NoError(t, afero.WriteFile(h.fs, pathB, []byte(contentB), 0o600))

	a, b, err := snapshot.LoadPair(context.Background(), h.fs, pathA, pathB, h.clock.Now())
	require.NoError(t, err)

	h.pair = New(h.fs, h.completer, a, b, Options{
		Model:       testModel,
		MaxTokens:   4096,
		SettleDelay: settleDelay,
		Clock:       h.clock,
		Reporter:    h.reporter,
		Observer:    func(o Outcome) { h.outcomes <- o },
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.pair.Run(ctx, h.aChanges, h.bChanges) }()
	t.Cleanup(func() { h.stop(t) })
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	select {
	case err := <-h.done:
		assert.NoError(t, err, "Run should return cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func (h *harness) edit(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, path, []byte(content), 0o644))
}

func (h *harness) read(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(h.fs, path)
	require.NoError(t, err)
	return string(data)
}

func (h *harness) expect(t *testing.T, kind OutcomeKind) Outcome {
	t.Helper()
	select {
	case o := <-h.outcomes:
		require.Equal(t, kind.String(), o.Kind.String(), "unexpected outcome for %q (err: %v)", o.Path, o.Err)
		return o
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s outcome", kind)
		return Outcome{}
	}
}

// rearm advances past the settle delay and waits for the gate to reopen.
func (h *harness) rearm(t *testing.T) {
	t.Helper()
	h.clock.BlockUntil(1)
	h.clock.Advance(settleDelay)
	h.expect(t, Rearmed)
}

func (h *harness) assertNoOutcome(t *testing.T) {
	t.Helper()
	select {
	case o := <-h.outcomes:
		t.Fatalf("unexpected outcome %s for %q", o.Kind, o.Path)
	case <-time.After(50 * time.Millisecond):
	}
}

// diskFullFs fails every write made through a file it opened for writing.
type diskFullFs struct{ afero.Fs }

func (fs diskFullFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f, err := fs.Fs.OpenFile(name, flag, perm)
	if err != nil || flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		return f, err
	}
	return diskFullFile{f}, nil
}

func (fs diskFullFs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

type diskFullFile struct{ afero.File }

func (diskFullFile) Write([]byte) (int, error)       { return 0, errors.New("disk full") }
func (diskFullFile) WriteString(string) (int, error) { return 0, errors.New("disk full") }

func dirNames(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

// sourceOf extracts the source document from a built instruction.
func sourceOf(prompt string) string {
	_, rest, _ := strings.Cut(prompt, "<source>\n")
	body, _, _ := strings.Cut(rest, "\n</source>")
	return body
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, s)
}

func TestBootstrap(t *testing.T) {
	tests := []struct {
		name     string
		contentA string
		contentB string
		response string
		wantA    string
		wantB    string
		events   []string
	}{
		{
			name:     "fills_empty_b_from_a",
			contentA: "Witaj świecie!",
			contentB: "",
			response: "```markdown\nHello world!\n```",
			wantA:    "Witaj świecie!",
			wantB:    "Hello world!",
			events: []string{
				"auto polish.md -> english.md",
				"start polish.md -> english.md",
				"ok polish.md -> english.md",
			},
		},
		{
			name:     "fills_whitespace_only_a_from_b",
			contentA: "  \n",
			contentB: "Hello world!",
			response: "Witaj świecie!",
			wantA:    "Witaj świecie!",
			wantB:    "Hello world!",
			events: []string{
				"auto english.md -> polish.md",
				"start english.md -> polish.md",
				"ok english.md -> polish.md",
			},
		},
		{
			name:     "both_have_content",
			contentA: "Witaj",
			contentB: "Hello",
			wantA:    "Witaj",
			wantB:    "Hello",
		},
		{
			name:     "both_empty",
			contentA: "",
			contentB: "\n",
			wantA:    "",
			wantB:    "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.contentA, tt.contentB)

			if tt.response != "" {
				h.completer.EXPECT().
					Complete(mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
						return req.Model == testModel && req.MaxTokens == 4096
					})).
					Return(tt.response, nil).
					Times(1)
			}

			require.NoError(t, h.pair.Bootstrap(context.Background()), "bootstrap should succeed")

			assert.Equal(t, tt.wantA, h.read(t, pathA), "file a")
			assert.Equal(t, tt.wantB, h.read(t, pathB), "file b")
			assert.Equal(t, h.read(t, pathA), h.pair.A().Content(), "snapshot a matches disk")
			assert.Equal(t, h.read(t, pathB), h.pair.B().Content(), "snapshot b matches disk")
			assert.Equal(t, tt.events, h.reporter.Events(), "reported events")
		})
	}
}

func TestBootstrapPromptCarriesSourceAndNames(t *testing.T) {
	h := newHarness(t, "Witaj świecie!", "")

	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req llm.Request) (string, error) {
			assert.Contains(t, req.Prompt, "polish.md")
			assert.Contains(t, req.Prompt, "english.md")
			assert.Equal(t, "Witaj świecie!", sourceOf(req.Prompt))
			assert.Contains(t, req.Prompt, "is currently empty")
			return "Hello world!", nil
		}).
		Times(1)

	require.NoError(t, h.pair.Bootstrap(context.Background()))
	h.expect(t, Transformed)
}

func TestBootstrapFailureLeavesTargetUntouched(t *testing.T) {
	h := newHarness(t, "Witaj świecie!", "")

	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		Return("", errors.New("overloaded")).
		Times(1)

	err := h.pair.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")

	o := h.expect(t, Failed)
	assert.Equal(t, pathA, o.Path)
	assert.Equal(t, "", h.read(t, pathB))
	assert.Equal(t, "", h.pair.B().Content())
}

func TestChangeTransformsOtherFile(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req llm.Request) (string, error) {
			assert.Equal(t, "Witaj świecie!", sourceOf(req.Prompt))
			assert.Contains(t, req.Prompt, "<target>\nHello\n</target>")
			return "Hello world!", nil
		}).
		Times(1)
	h.start(t)

	h.edit(t, pathA, "Witaj świecie!")
	h.aChanges <- struct{}{}

	o := h.expect(t, Transformed)
	assert.Equal(t, pathA, o.Path)
	assert.Equal(t, Processing, h.pair.State(), "gate stays closed until the settle delay elapses")

	h.rearm(t)

	assert.Equal(t, "Hello world!", h.read(t, pathB))
	assert.Equal(t, "Hello world!", h.pair.B().Content())
	assert.Equal(t, "Witaj świecie!", h.pair.A().Content())
	assert.Equal(t, []string{
		"changed polish.md",
		"start polish.md -> english.md",
		"ok polish.md -> english.md",
	}, h.reporter.Events())
}

func TestOverlappingNotificationsRunOneStep(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")

	started := make(chan struct{})
	release := make(chan struct{})
	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		RunAndReturn(func(context.Context, llm.Request) (string, error) {
			close(started)
			<-release
			return "Hello world!", nil
		}).
		Times(1)
	h.start(t)

	h.edit(t, pathA, "Witaj świecie!")
	h.aChanges <- struct{}{}
	<-started

	// arrive while the step is in flight
	h.edit(t, pathA, "Witaj świecie!!")
	h.aChanges <- struct{}{}
	h.bChanges <- struct{}{}
	close(release)

	h.expect(t, Transformed)
	dropped := []string{h.expect(t, Dropped).Path, h.expect(t, Dropped).Path}
	assert.ElementsMatch(t, []string{pathA, pathB}, dropped)

	h.rearm(t)
	h.assertNoOutcome(t)

	// dropped edits are not retried
	assert.Equal(t, "Witaj świecie!", h.pair.A().Content())
}

func TestUnchangedContentSkipsStep(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.completer.EXPECT().Complete(mock.Anything, mock.Anything).Return("Hello world!", nil).Once()
	h.start(t)

	h.aChanges <- struct{}{}
	o := h.expect(t, Unchanged)
	assert.Equal(t, pathA, o.Path)
	assert.Equal(t, Idle, h.pair.State(), "nothing was written so the gate reopens at once")

	h.bChanges <- struct{}{}
	h.expect(t, Unchanged)
	assert.Equal(t, Idle, h.pair.State())
	assert.Empty(t, h.reporter.Events())

	// a real edit right after a no-op notification is not dropped, without the clock moving
	h.edit(t, pathA, "Witaj świecie!")
	h.aChanges <- struct{}{}
	h.expect(t, Transformed)
	assert.Equal(t, "Hello world!", h.read(t, pathB))
	h.rearm(t)
}

func TestFailedStepLeavesTargetAndReopensGate(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		Return("", errors.New("connection reset")).
		Once()
	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		Return("Hello again", nil).
		Once()
	h.start(t)

	h.edit(t, pathA, "Witaj świecie!")
	h.aChanges <- struct{}{}

	o := h.expect(t, Failed)
	require.Error(t, o.Err)
	assert.Contains(t, o.Err.Error(), "connection reset")
	assert.Equal(t, "Hello", h.read(t, pathB), "target file untouched")
	assert.Equal(t, "Hello", h.pair.B().Content(), "target snapshot untouched")
	assert.Equal(t, "Witaj świecie!", h.pair.A().Content(), "source snapshot records the edit")

	h.rearm(t)
	assert.Equal(t, Idle, h.pair.State())

	h.edit(t, pathA, "Witaj ponownie")
	h.aChanges <- struct{}{}
	h.expect(t, Transformed)
	h.rearm(t)

	assert.Equal(t, "Hello again", h.read(t, pathB))
}

func TestUnexpectedResponseIsRecoverable(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		Return("", errors.Errorf("%w: expected one text block", llm.ErrUnexpectedResponse)).
		Once()
	h.start(t)

	h.edit(t, pathA, "Witaj świecie!")
	h.aChanges <- struct{}{}

	o := h.expect(t, Failed)
	assert.True(t, errors.Is(o.Err, llm.ErrUnexpectedResponse), "error should wrap ErrUnexpectedResponse")
	h.rearm(t)
}

func TestReadFailureIsRecoverable(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.start(t)

	require.NoError(t, h.fs.Remove(pathA))
	h.aChanges <- struct{}{}

	o := h.expect(t, ReadFailed)
	var notFound snapshot.FileNotFoundError
	assert.True(t, errors.As(o.Err, &notFound), "error should be FileNotFoundError")
	assert.Equal(t, Idle, h.pair.State(), "gate reopens at once after a failed read")

	assert.Equal(t, "Witaj", h.pair.A().Content(), "snapshot kept after failed read")
	events := h.reporter.Events()
	require.Len(t, events, 1)
	assert.True(t, strings.HasPrefix(events[0], "warn could not re-read polish.md: "), "operator is warned, got %q", events[0])
}

func TestRoundTripDoesNotFeedBack(t *testing.T) {
	h := newHarness(t, "hello", "HELLO")

	// swapping case is its own inverse, so a feedback loop would keep flipping the files
	h.completer.EXPECT().
		Complete(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req llm.Request) (string, error) {
			return swapCase(sourceOf(req.Prompt)), nil
		}).
		Times(2)
	h.start(t)

	h.edit(t, pathA, "hello world")
	h.aChanges <- struct{}{}
	h.expect(t, Transformed)
	assert.Equal(t, "HELLO WORLD", h.read(t, pathB))

	// the watcher reports our own write while settling
	h.bChanges <- struct{}{}
	h.expect(t, Dropped)
	h.rearm(t)

	// or after settling
	h.bChanges <- struct{}{}
	h.expect(t, Unchanged)
	assert.Equal(t, Idle, h.pair.State())

	// a genuine edit of b still propagates
	h.edit(t, pathB, "GOODBYE WORLD")
	h.bChanges <- struct{}{}
	o := h.expect(t, Transformed)
	assert.Equal(t, pathB, o.Path)
	h.rearm(t)

	assert.Equal(t, "goodbye world", h.read(t, pathA))
	assert.Equal(t, "goodbye world", h.pair.A().Content())
}

func TestStepPreservesPermissions(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.completer.EXPECT().Complete(mock.Anything, mock.Anything).Return("Hello world!", nil).Once()

	require.NoError(t, h.pair.Step(context.Background(), h.pair.A(), h.pair.B()))

	info, err := h.fs.Stat(pathB)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, "Hello world!", h.read(t, pathB))
	assert.ElementsMatch(t, []string{"english.md", "polish.md"}, dirNames(t, h.fs, "/work"), "no temp file left behind")
}

func TestFailedWriteLeavesTargetIntact(t *testing.T) {
	tests := []struct {
		name   string
		source func(p *Pair) (*snapshot.Snapshot, *snapshot.Snapshot)
		target string
		want   string
	}{
		{
			name:   "a_to_b",
			source: func(p *Pair) (*snapshot.Snapshot, *snapshot.Snapshot) { return p.A(), p.B() },
			target: pathB,
			want:   "Hello",
		},
		{
			name:   "b_to_a",
			source: func(p *Pair) (*snapshot.Snapshot, *snapshot.Snapshot) { return p.B(), p.A() },
			target: pathA,
			want:   "Witaj",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "Witaj", "Hello")
			h.completer.EXPECT().Complete(mock.Anything, mock.Anything).Return("rewritten", nil).Once()

			p := New(diskFullFs{h.fs}, h.completer, h.pair.A(), h.pair.B(), Options{
				Model:    testModel,
				Clock:    h.clock,
				Reporter: h.reporter,
			})
			source, target := tt.source(p)

			err := p.Step(context.Background(), source, target)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")

			assert.Equal(t, tt.want, h.read(t, tt.target), "target file keeps its old content")
			assert.Equal(t, tt.want, target.Content(), "target snapshot untouched")
			assert.ElementsMatch(t, []string{"english.md", "polish.md"}, dirNames(t, h.fs, "/work"), "temp file removed")
		})
	}
}

func TestStepKeepsUnterminatedFence(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")
	h.completer.EXPECT().Complete(mock.Anything, mock.Anything).Return("```\nHello world!\n```\nDone.", nil).Once()

	require.NoError(t, h.pair.Step(context.Background(), h.pair.A(), h.pair.B()))
	assert.Equal(t, "```\nHello world!\n```\nDone.", h.read(t, pathB), "prose after the fence keeps the response as is")
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	h := newHarness(t, "Witaj", "Hello")

	done := make(chan error, 1)
	go func() { done <- h.pair.Run(context.Background(), h.aChanges, h.bChanges) }()

	close(h.bChanges)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after channel close")
	}
}

func TestGate(t *testing.T) {
	var g Gate
	assert.Equal(t, Idle, g.State())
	assert.True(t, g.TryEnter(), "idle gate admits")
	assert.Equal(t, Processing, g.State())
	assert.False(t, g.TryEnter(), "processing gate drops")
	g.Release()
	assert.True(t, g.TryEnter(), "released gate admits again")
}
