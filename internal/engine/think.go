package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessplay/internal/board"
)

// ErrAlreadyThinking is returned by Think when a previous call has not
// yet returned. Only one think call may own the engine's Position at
// a time (spec's single-threaded cooperative resource model).
var ErrAlreadyThinking = errors.New("engine: a Think call is already in progress")

// Think runs iterative deepening to completion or cancellation and
// returns the best move found. It bounds the search goroutine's
// lifetime with an errgroup so cancellation always joins back with the
// caller instead of leaking a goroutine: cancelling ctx or calling
// Stop unwinds the search, the group waits for it to actually return,
// and only then does Think hand back control.
func (e *Engine) Think(ctx context.Context, pos *board.Position, limits SearchLimits) (board.Move, error) {
	if !e.thinking.CompareAndSwap(false, true) {
		return board.NoMove, ErrAlreadyThinking
	}
	defer e.thinking.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var best board.Move
	g.Go(func() error {
		defer close(done)
		best = e.SearchWithLimits(pos, limits)
		return nil
	})

	// Stop the search as soon as ctx is cancelled; the goroutine above
	// still runs to completion through g.Wait, it just unwinds fast.
	// When the search finishes on its own, this watcher returns too.
	g.Go(func() error {
		select {
		case <-ctx.Done():
			e.Stop()
			return ctx.Err()
		case <-done:
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return best, fmt.Errorf("engine: think: %w", err)
	}
	return best, nil
}
