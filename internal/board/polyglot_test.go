package board

import "testing"

// The Polyglot book format spec publishes this as the hash of the
// standard starting position; cross-engine book tools agree on it.
func TestPolyglotHashStartPosition(t *testing.T) {
	pos := NewPosition()
	want := uint64(0x463b96181691fc9c)
	if got := pos.PolyglotHash(); got != want {
		t.Errorf("PolyglotHash() = %016x, want %016x", got, want)
	}
}

func TestPolyglotHashChangesAfterMove(t *testing.T) {
	pos := NewPosition()
	before := pos.PolyglotHash()

	move := NewMove(E2, E4)
	pos.MakeMove(move)

	if after := pos.PolyglotHash(); after == before {
		t.Error("PolyglotHash should change after a move")
	}
}
