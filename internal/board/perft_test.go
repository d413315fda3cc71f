package board

import "testing"

// Perft counts the number of leaf nodes at the given depth.
// This is the standard way to verify move generation correctness.
func perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}

	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return int64(moves.Len())
	}

	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		played := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(played)
	}
	return nodes
}

// TestPerftStartingPosition tests move generation from the starting position.
func TestPerftStartingPosition(t *testing.T) {
	pos := NewPosition()

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
		{4, 197281},
		{5, 4865609},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := perft(pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftKiwipete tests the famous Kiwipete position with many edge cases.
// FEN: r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -
func TestPerftKiwipete(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
		{4, 4085603},
		{5, 193690690},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := perft(pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftCastlingRookEndpoints exercises the castling-rights-touched-
// by-rook-move/capture edge cases at depth 6, a FEN drawn from the
// initial position with White holding two kingside rooks (g1, h1).
// FEN: r3k2r/8/8/8/3pPp2/8/8/R3K1RR b KQkq e3 0 1
func TestPerftCastlingRookEndpoints(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/3pPp2/8/8/R3K1RR b KQkq e3 0 1")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	if got := perft(pos, 6); got != 485647607 {
		t.Errorf("perft(6) = %d, want %d", got, 485647607)
	}
}

// TestPerftMateInTwoFixture uses a mate-in-2 position purely as a
// movegen correctness fixture (the node count, not the mating line,
// is what's being checked here).
// FEN: 8/7p/p5pb/4k3/P1pPn3/8/P5PP/1rB2RK1 b - d3 0 28
func TestPerftMateInTwoFixture(t *testing.T) {
	pos, err := ParseFEN("8/7p/p5pb/4k3/P1pPn3/8/P5PP/1rB2RK1 b - d3 0 28")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	if got := perft(pos, 6); got != 38633283 {
		t.Errorf("perft(6) = %d, want %d", got, 38633283)
	}
}

// TestZobristStabilityOverPlies plays 40 plies from the starting
// position, undoes them all, and checks the signature returns to
// exactly its starting value - a Zobrist key with a missing or
// mismatched XOR term would drift silently instead of failing any
// single move's correctness check.
func TestZobristStabilityOverPlies(t *testing.T) {
	pos := NewPosition()
	startHash := pos.Hash

	played := make([]Move, 0, 40)
	for i := 0; i < 40; i++ {
		moves := pos.GenerateLegalMoves()
		if moves.Len() == 0 {
			t.Fatalf("ran out of legal moves after %d plies", i)
		}
		m := moves.Get(i % moves.Len())
		played = append(played, pos.MakeMove(m))
	}

	for i := len(played) - 1; i >= 0; i-- {
		pos.UnmakeMove(played[i])
	}

	if pos.Hash != startHash {
		t.Errorf("Zobrist signature after 40 plies + 40 undos = %016x, want %016x", pos.Hash, startHash)
	}
}

// TestPerftPosition3 tests en passant edge cases.
// FEN: 8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -
func TestPerftPosition3(t *testing.T) {
	pos, err := ParseFEN("8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
		{5, 674624},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := perft(pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftEnPassantPin tests the specific en passant horizontal pin edge case.
// FEN: 8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1
// Black pawn on e4 can capture en passant d3, but this would expose the black king
// on a4 to the white rook on h4.
func TestPerftEnPassantPin(t *testing.T) {
	pos, err := ParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	if err != nil {
		t.Fatalf("Failed to parse FEN: %v", err)
	}

	// The en passant capture should be illegal
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsEnPassant() {
			t.Errorf("En passant move %v should be illegal (horizontal pin)", m)
		}
	}

	// Verify perft
	// Depth 1: Ka3, Ka5, Kb3, Kb4, Kb5, e3 = 6 moves
	// Depth 2: After e4e3 (14), after king moves (16 each x5) = 14 + 80 = 94
	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 6},
		{2, 94},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := perft(pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}
