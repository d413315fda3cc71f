package engine

import "sync"

// SharedHistory is the cross-worker counterpart to MoveOrderer's
// per-thread history table: every Lazy SMP worker folds its own
// from/to move successes into one shared [64][64] table, so a
// quiet move that scores well on one thread gets a head start in
// move ordering on the others. It is read far more often than it is
// written, so a single RWMutex guarding the whole table is enough -
// splitting it into shards like TranspositionTable would only pay
// off at a worker count this engine doesn't run.
type SharedHistory struct {
	mu    sync.RWMutex
	table [64][64]int32
}

// NewSharedHistory creates an empty shared history table.
func NewSharedHistory() *SharedHistory {
	return &SharedHistory{}
}

// Update folds a depth-scaled bonus into the shared score for the
// from/to pair, clamped to [historyMalusFloor, historyOverflowCap] to
// keep long searches from overflowing it.
func (sh *SharedHistory) Update(from, to, bonus int) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := sh.table[from][to] + int32(bonus)
	switch {
	case v > historyOverflowCap:
		v = historyOverflowCap
	case v < historyMalusFloor:
		v = historyMalusFloor
	}
	sh.table[from][to] = v
}

// Get returns the current shared score for the from/to pair.
func (sh *SharedHistory) Get(from, to int) int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return int(sh.table[from][to])
}
