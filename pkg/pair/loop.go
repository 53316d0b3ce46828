package pair

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/twinsync/pkg/snapshot"
)

// 🔁 Run consumes change notifications for A and B until ctx is done or either
// channel is closed. Notifications that arrive while a step is running or
// settling are dropped, not queued.
func (p *Pair) Run(ctx context.Context, aChanges, bChanges <-chan struct{}) error {
	logger := zerolog.Ctx(ctx)
	var rearm <-chan time.Time

	for {
		// a due re-arm wins over pending notifications
		if rearm != nil {
			select {
			case <-rearm:
				rearm = p.release(ctx)
			default:
			}
		}

		select {
		case <-ctx.Done():
			logger.Debug().Msg("sync loop stopped")
			return nil

		case <-rearm:
			rearm = p.release(ctx)

		case _, ok := <-aChanges:
			if !ok {
				logger.Debug().Str("path", p.a.Path()).Msg("change stream closed")
				return nil
			}
			if armed := p.handle(ctx, p.a, p.b); armed != nil {
				rearm = armed
			}

		case _, ok := <-bChanges:
			if !ok {
				logger.Debug().Str("path", p.b.Path()).Msg("change stream closed")
				return nil
			}
			if armed := p.handle(ctx, p.b, p.a); armed != nil {
				rearm = armed
			}
		}
	}
}

// handle processes one notification for changed and returns the re-arm timer
// when a transformation ran. Notifications that wrote nothing reopen the gate at once.
func (p *Pair) handle(ctx context.Context, changed, other *snapshot.Snapshot) <-chan time.Time {
	logger := zerolog.Ctx(ctx)

	if !p.gate.TryEnter() {
		logger.Debug().Str("path", changed.Path()).Msg("dropping change while processing")
		p.observe(Outcome{Kind: Dropped, Path: changed.Path()})
		return nil
	}

	outcome := p.process(ctx, changed, other)
	if outcome.Kind == Unchanged || outcome.Kind == ReadFailed {
		// nothing was written, so there is no notification of ours to absorb
		p.gate.Release()
		p.observe(outcome)
		return nil
	}

	p.observe(outcome)
	return p.clock.After(p.settleDelay)
}

func (p *Pair) process(ctx context.Context, changed, other *snapshot.Snapshot) Outcome {
	logger := zerolog.Ctx(ctx)

	content, err := snapshot.ReadText(p.fs, changed.Path())
	if err != nil {
		logger.Debug().Err(err).Str("path", changed.Path()).Msg("re-reading changed file")
		p.reporter.Warning(fmt.Sprintf("could not re-read %s: %v", changed.Name(), err))
		return Outcome{Kind: ReadFailed, Path: changed.Path(), Err: err}
	}

	if changed.Matches(content) {
		logger.Debug().Str("path", changed.Path()).Msg("content unchanged")
		return Outcome{Kind: Unchanged, Path: changed.Path()}
	}

	now := p.clock.Now()
	changed.Update(content, now)
	p.reporter.ChangeDetected(changed.Name(), now)

	if err := p.Step(ctx, changed, other); err != nil {
		return Outcome{Kind: Failed, Path: changed.Path(), Err: err}
	}
	return Outcome{Kind: Transformed, Path: changed.Path()}
}

func (p *Pair) release(ctx context.Context) <-chan time.Time {
	p.gate.Release()
	zerolog.Ctx(ctx).Debug().Msg("gate re-armed")
	p.observe(Outcome{Kind: Rearmed})
	return nil
}
