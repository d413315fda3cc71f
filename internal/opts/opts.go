// Package opts holds the small configuration structs the engine core
// is built from. They are plain Go structs with documented zero-value
// defaults, populated by a glue layer (cmd/corvid-uci, or any other
// embedder) the way the teacher's uci.handleSetOption populates
// Engine fields directly. There is no config file format and no flags
// package here: loading configuration from a file or the command line
// is the embedder's job, not the core's.
package opts

import "time"

// TableSizes configures the memory given to the engine's hash tables.
// The fields mirror the teacher's NewEngine(ttSizeMB)/NewPawnTable(sizeMB)
// constructors. NewTranspositionTable does not replace a zero HashMB
// with a default; DefaultTableSizes supplies the usual values.
type TableSizes struct {
	HashMB     int // transposition table size in MB
	PawnHashMB int // pawn structure cache size in MB
}

// DefaultTableSizes returns the sizes corvid-uci uses when the
// embedder doesn't override them.
func DefaultTableSizes() TableSizes {
	return TableSizes{HashMB: 64, PawnHashMB: 1}
}

// TimeControl carries the UCI "go" time-control parameters, modeled on
// engine.UCILimits. It is kept separate from engine.SearchLimits: this
// struct is what a protocol layer parses from wire text, SearchLimits
// is what the search controller actually consumes, and the embedder
// is the one that reduces one to the other (mirroring
// uci.calculateLimits/calculateTimeForMove in the teacher).
type TimeControl struct {
	WTime, BTime time.Duration
	WInc, BInc   time.Duration
	MovesToGo    int
	MoveTime     time.Duration
	Depth        int
	Nodes        uint64
	Infinite     bool
}
