package tablebase

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
)

func TestNoopProberAlwaysUnavailable(t *testing.T) {
	var p Prober = NoopProber{}
	pos := board.NewPosition()

	if p.Available() {
		t.Error("NoopProber.Available() should be false")
	}
	if p.MaxPieces() != 0 {
		t.Errorf("NoopProber.MaxPieces() = %d, want 0", p.MaxPieces())
	}
	if res := p.Probe(pos); res.Found {
		t.Error("NoopProber.Probe() should report Found=false")
	}
	if res := p.ProbeRoot(pos); res.Found {
		t.Error("NoopProber.ProbeRoot() should report Found=false")
	}
}

func TestWDLToScoreOrdering(t *testing.T) {
	ply := 4
	win := WDLToScore(WDLWin, ply)
	cursedWin := WDLToScore(WDLCursedWin, ply)
	draw := WDLToScore(WDLDraw, ply)
	blessedLoss := WDLToScore(WDLBlessedLoss, ply)
	loss := WDLToScore(WDLLoss, ply)

	if !(win > cursedWin && cursedWin > draw && draw > blessedLoss && blessedLoss > loss) {
		t.Errorf("WDL scores not strictly ordered: win=%d cursedWin=%d draw=%d blessedLoss=%d loss=%d",
			win, cursedWin, draw, blessedLoss, loss)
	}
}

func TestCountPiecesStartPosition(t *testing.T) {
	pos := board.NewPosition()
	if got := CountPieces(pos); got != 32 {
		t.Errorf("CountPieces() = %d, want 32", got)
	}
}
