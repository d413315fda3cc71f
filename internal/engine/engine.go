package engine

import (
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/eval"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
	MultiPV  int           // Number of principal variations to report (0 or 1 = single PV)
}

// MultiPVResult is one line of a SearchMultiPV result, ordered best first.
type MultiPVResult struct {
	Move  board.Move
	Score int
	Depth int
	PV    []board.Move
}

// Difficulty represents the AI difficulty level.
type Difficulty int

const (
	Easy   Difficulty = iota // ~2-3 ply, 500ms
	Medium                   // ~4-5 ply, 2s
	Hard                     // ~6+ ply, 5s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 5, MoveTime: 2 * time.Second},
	Hard:   {Depth: 7, MoveTime: 5 * time.Second},
}

// TablebaseProber is the injectable endgame-tablebase interface,
// mirroring internal/tablebase.Prober's shape without importing that
// package: a real prober can be plugged in without engine depending
// on the storage/download machinery behind it. This module wires the
// interface but does not itself probe during search (see Non-goals).
type TablebaseProber interface {
	MaxPieces() int
	Available() bool
}

// Engine is the chess AI engine.
type Engine struct {
	searcher   *Searcher
	tt         *TranspositionTable
	evaluator  Evaluator
	difficulty Difficulty

	tablebase        TablebaseProber
	syzygyProbeDepth int

	// thinking guards Think against overlapping calls; see think.go.
	thinking atomic.Bool

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table
// size in MB, using the default material+PST evaluator.
func NewEngine(ttSizeMB int) *Engine {
	return NewEngineWithEvaluator(ttSizeMB, eval.NewDefaultEvaluator(1))
}

// NewEngineWithEvaluator creates a new chess engine backed by an arbitrary
// Evaluator oracle.
func NewEngineWithEvaluator(ttSizeMB int, evaluator Evaluator) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	return &Engine{
		searcher:   NewSearcherWithEvaluator(tt, evaluator),
		tt:         tt,
		evaluator:  evaluator,
		difficulty: Medium,
	}
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// Search finds the best move for the given position.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// SearchWithLimits finds the best move with specific search limits.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.searcher.Reset()
	e.tt.NewSearch()

	startTime := time.Now()
	var bestMove board.Move
	var bestScore int
	var lastDepth int

	// Determine maximum depth
	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	// Determine deadline
	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	// Aspiration window parameters
	const initialWindow = 50 // Start with Â±50 centipawns

	// Iterative deepening
	for depth := 1; depth <= maxDepth; depth++ {
		// Check time before starting new iteration
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		var move board.Move
		var score int

		// Use aspiration windows after depth 4 and when we have a previous score
		if depth >= 5 && bestMove != board.NoMove {
			window := initialWindow
			alpha := bestScore - window
			beta := bestScore + window

			// Aspiration window search with widening
			for {
				move, score = e.searcher.SearchWithBounds(pos, depth, alpha, beta)

				// Check if search was stopped
				if e.searcher.stopFlag.Load() {
					break
				}

				if score <= alpha {
					// Fail low - widen window down
					alpha = -Infinity
				} else if score >= beta {
					// Fail high - widen window up
					beta = Infinity
				} else {
					// Score within window, we're done
					break
				}

				// If both bounds are infinite, we've done a full search
				if alpha == -Infinity && beta == Infinity {
					break
				}
			}
		} else {
			// Full window search for early depths
			move, score = e.searcher.Search(pos, depth)
		}

		// Check if search was stopped
		if e.searcher.stopFlag.Load() {
			break
		}

		// Update best move
		if move != board.NoMove {
			bestMove = move
			bestScore = score
			lastDepth = depth
		}

		// Report info
		if e.OnInfo != nil {
			elapsed := time.Since(startTime)
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Score:    bestScore,
				Nodes:    e.searcher.Nodes(),
				Time:     elapsed,
				PV:       e.searcher.GetPV(),
				HashFull: e.tt.HashFull(),
			})
		}

		// Early termination: found mate
		if score > MateScore-100 || score < -MateScore+100 {
			break
		}

		// Check time after iteration
		if !deadline.IsZero() {
			elapsed := time.Since(startTime)
			remaining := limits.MoveTime - elapsed

			// If we've used more than half the time, don't start another iteration
			if remaining < elapsed {
				break
			}
		}
	}

	e.searcher.lastScore = bestScore
	e.searcher.lastDepth = lastDepth
	return bestMove
}

// SearchMultiPV finds the N best distinct root moves, ordered best first.
// It re-runs the full iterative deepening search once per line, excluding
// the root moves already reported by earlier lines from TT cutoffs.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []MultiPVResult {
	n := limits.MultiPV
	if n <= 0 {
		n = 1
	}

	single := limits
	single.MultiPV = 0

	var results []MultiPVResult
	var excluded []board.Move

	for i := 0; i < n; i++ {
		e.searcher.SetExcludedMoves(excluded)
		move := e.SearchWithLimits(pos, single)
		if move == board.NoMove {
			break
		}

		pv := e.searcher.GetPV()
		score := e.searcher.lastScore
		results = append(results, MultiPVResult{Move: move, Score: score, Depth: e.searcher.lastDepth, PV: pv})
		excluded = append(excluded, move)
	}

	// Each line comes from its own search, so order them by score.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}

	e.searcher.SetExcludedMoves(nil)
	return results
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.ClearOrderer()
}

// SetPositionHistory records the game's position hashes seen so far so
// the search can detect repetitions against moves played before the
// current search root, not just within its own tree.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.searcher.SetRootHistory(hashes)
}

// SetTablebase installs an endgame-tablebase prober. A nil prober (the
// default) leaves the engine relying purely on search.
func (e *Engine) SetTablebase(p TablebaseProber) {
	e.tablebase = p
}

// SetSyzygyProbeDepth sets the depth threshold below which the search
// would consult the tablebase prober, once one is wired in.
func (e *Engine) SetSyzygyProbeDepth(depth int) {
	e.syzygyProbeDepth = depth
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		played := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(played)
	}

	return nodes
}

// PerftDivide runs perft one ply at a time and reports the subtree
// node count per root move, for move-generator debugging (mirrors the
// teacher's "perft divide" UCI debug command). Each root move is
// counted on its own Position copy via an errgroup so the fan-out
// can't race on shared make/unmake state.
func (e *Engine) PerftDivide(pos *board.Position, depth int) (map[string]uint64, uint64) {
	results := make(map[string]uint64)
	if depth < 1 {
		return results, 1
	}

	moves := pos.GenerateLegalMoves()
	counts := make([]uint64, moves.Len())

	var g errgroup.Group
	for i := 0; i < moves.Len(); i++ {
		i := i
		move := moves.Get(i)
		g.Go(func() error {
			branch := pos.Copy()
			played := branch.MakeMove(move)
			counts[i] = e.Perft(branch, depth-1)
			branch.UnmakeMove(played)
			return nil
		})
	}
	g.Wait() // errgroup.Group.Go's func never returns an error here

	var total uint64
	for i := 0; i < moves.Len(); i++ {
		results[moves.Get(i).String()] = counts[i]
		total += counts[i]
	}
	return results, total
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.evaluator.Evaluate(pos)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// Simple integer to string (avoid fmt import)
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
