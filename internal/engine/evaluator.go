package engine

import "github.com/hailam/chessplay/internal/board"

// Evaluator scores a position from the side-to-move's perspective.
// The search never reaches into an Evaluator's internals; it treats
// every implementation as an opaque oracle, which lets the default
// material+PST evaluator in internal/eval be swapped for another
// implementation (e.g. an NNUE-backed one) without touching search.go
// or worker.go.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}
