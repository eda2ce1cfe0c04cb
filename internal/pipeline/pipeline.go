// Package pipeline orchestrates one filter run: a producer task reads the
// source, a pool of matcher workers scores items, and a consumer task
// merges matches into the best-K set and periodically emits rendered
// frames. Everything observes a shared stop signal so a new keystroke can
// cancel the previous run without waiting for it to drain.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/flowfilter/internal/bestset"
	"github.com/standardbeagle/flowfilter/internal/display"
	"github.com/standardbeagle/flowfilter/internal/errors"
	"github.com/standardbeagle/flowfilter/internal/item"
	"github.com/standardbeagle/flowfilter/internal/matcher"
	"github.com/standardbeagle/flowfilter/internal/progress"
	"github.com/standardbeagle/flowfilter/internal/source"
)

// SearchContext carries the per-run parameters the driver hands to Run.
type SearchContext struct {
	Icon       item.IconKind
	Winwidth   int
	Number     int // K, size of the best set
	Progressor progress.Progressor
	Debounce   time.Duration
	Workers    int // 0 = NumCPU
	ChanSize   int // worker/consumer channel bound, 0 = 4096
	Query      string
}

// Run starts a pipeline over src with the given matcher and returns a
// Control immediately. Configuration problems are reported synchronously
// before any task is spawned.
func Run(ctx context.Context, sctx SearchContext, m *matcher.Matcher, src source.Source) (*Control, error) {
	if sctx.Progressor == nil {
		return nil, errors.NewConfigInvalidError("progressor", "", fmt.Errorf("progressor is required"))
	}
	if sctx.Number <= 0 {
		return nil, errors.NewConfigInvalidError("number", fmt.Sprint(sctx.Number), fmt.Errorf("best-set size must be positive"))
	}
	if sctx.Winwidth < 0 {
		return nil, errors.NewConfigInvalidError("winwidth", fmt.Sprint(sctx.Winwidth), fmt.Errorf("width cannot be negative"))
	}
	if sctx.Workers <= 0 {
		sctx.Workers = runtime.NumCPU()
	}
	if sctx.ChanSize <= 0 {
		sctx.ChanSize = 4096
	}
	if sctx.Debounce <= 0 {
		sctx.Debounce = 200 * time.Millisecond
	}

	runCtx, cancel := context.WithCancel(ctx)
	ctl := &Control{cancel: cancel, done: make(chan struct{})}

	go ctl.run(runCtx, sctx, m, src)
	return ctl, nil
}

// run executes the producer/worker/consumer graph and closes ctl.done when
// everything has drained.
func (c *Control) run(ctx context.Context, sctx SearchContext, m *matcher.Matcher, src source.Source) {
	defer close(c.done)

	var totalProcessed atomic.Uint64
	items := make(chan item.Item, sctx.ChanSize)
	matches := make(chan *matcher.MatchedItem, sctx.ChanSize)

	// Producer: reads the source and feeds the workers. The emit callback
	// refuses further items once the stop signal is set, which also stops
	// the source promptly.
	producerErr := make(chan error, 1)
	go func() {
		defer close(items)
		err := src.Produce(ctx, func(it item.Item) bool {
			if c.stop.Load() {
				return false
			}
			select {
			case items <- it:
				return true
			case <-ctx.Done():
				return false
			}
		})
		producerErr <- err
	}()

	// Worker pool: CPU-bound scoring on dedicated goroutines.
	workers, _ := errgroup.WithContext(ctx)
	for i := 0; i < sctx.Workers; i++ {
		workers.Go(func() error {
			for it := range items {
				if c.stop.Load() {
					continue // keep draining so the producer never blocks
				}
				mi := m.Match(it)
				totalProcessed.Add(1)
				if mi == nil {
					continue
				}
				select {
				case matches <- mi:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}

	go func() {
		_ = workers.Wait()
		close(matches)
	}()

	// Consumer: single owner of the best set, frame emission on a fixed
	// debounce cadence. The timer is armed by the first match after an
	// emission, so a burst inside one window coalesces into one frame.
	best := bestset.New(sctx.Number)
	printer := display.NewPrinter(display.Options{Winwidth: sctx.Winwidth, Icon: sctx.Icon})

	var totalMatched uint64
	var debounce *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	emit := func(final bool) {
		if c.stop.Load() {
			return
		}
		frame := printer.Render(best.Snapshot())
		if final {
			sctx.Progressor.Finished(frame, totalMatched, totalProcessed.Load())
		} else {
			sctx.Progressor.Update(frame, totalMatched, totalProcessed.Load())
		}
	}

	for matches != nil {
		select {
		case mi, ok := <-matches:
			if !ok {
				matches = nil
				continue
			}
			totalMatched++
			best.TryInsert(mi)
			if debounceC == nil {
				debounce = time.NewTimer(sctx.Debounce)
				debounceC = debounce.C
			}
		case <-debounceC:
			debounceC = nil
			if best.Dirty() {
				emit(false)
			}
		}
	}

	err := <-producerErr
	if err != nil && ctx.Err() == nil && !c.stop.Load() {
		c.err.Store(err)
		sctx.Progressor.Failed(err)
		return
	}

	if c.stop.Load() || ctx.Err() != nil {
		// Cancelled: exit without a final frame.
		return
	}

	emit(true)
}
