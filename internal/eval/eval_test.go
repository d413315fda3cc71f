package eval

import (
	"testing"

	"github.com/hailam/chessplay/internal/board"
)

func TestEvaluateStartPositionIsBalanced(t *testing.T) {
	pos := board.NewPosition()
	score := Evaluate(pos)
	if score < -30 || score > 30 {
		t.Errorf("expected near-zero score for the start position, got %d", score)
	}
}

func TestEvaluateMaterialCountsPieces(t *testing.T) {
	pos := board.NewPosition()
	if got := EvaluateMaterial(pos); got != 0 {
		t.Errorf("expected balanced material at the start position, got %d", got)
	}
}

func TestDefaultEvaluatorSatisfiesInterface(t *testing.T) {
	var _ interface {
		Evaluate(pos *board.Position) int
	} = NewDefaultEvaluator(1)
}

func TestPawnCacheRoundTrip(t *testing.T) {
	pc := NewPawnCache(1)
	pos := board.NewPosition()

	if _, _, found := pc.probe(pos.PawnKey); found {
		t.Error("expected cache miss before any store")
	}

	pc.store(pos.PawnKey, 5, -5)
	mg, eg, found := pc.probe(pos.PawnKey)
	if !found {
		t.Fatal("expected cache hit after store")
	}
	if mg != 5 || eg != -5 {
		t.Errorf("got mg=%d eg=%d, want mg=5 eg=-5", mg, eg)
	}

	pc.Clear()
	if _, _, found := pc.probe(pos.PawnKey); found {
		t.Error("expected cache miss after Clear")
	}
}

func TestDefaultEvaluatorMatchesEvaluateWithCache(t *testing.T) {
	pos := board.NewPosition()
	e := NewDefaultEvaluator(1)
	if got, want := e.Evaluate(pos), Evaluate(pos); got != want {
		t.Errorf("DefaultEvaluator.Evaluate = %d, want %d (matching Evaluate on a fresh cache)", got, want)
	}
}
