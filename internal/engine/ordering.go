package engine

import (
	"github.com/hailam/chessplay/internal/board"
)

// Ordering scores. Later stages only need to beat the previous
// stage's floor, so these are spaced widely enough that a bonus from
// one heuristic can never vault a move into the wrong stage.
const (
	scoreTTMove      = 10_000_000
	scoreGoodCapture = 1_000_000
	scoreKiller1     = 900_000
	scoreKiller2     = 800_000
	scoreBadCapture  = -100_000

	historyOverflowCap = 400_000
	historyMalusFloor  = -400_000

	// Near the root, regular history has seen too few updates to be
	// trusted; a separate, ply-indexed table (Stockfish calls this
	// low-ply history) gets blended in for the first few plies only.
	lowPlyHistoryDepth = 4
)

// mvvLva[victim][attacker]: higher means a more attractive capture.
// Capturing a big piece with a small one scores highest within a row.
var mvvLva = [6][6]int{
	/* Pawn   */ {15, 14, 14, 13, 12, 11},
	/* Knight */ {25, 24, 24, 23, 22, 21},
	/* Bishop */ {35, 34, 34, 33, 32, 31},
	/* Rook   */ {45, 44, 44, 43, 42, 41},
	/* Queen  */ {55, 54, 54, 53, 52, 51},
	/* King   */ {0, 0, 0, 0, 0, 0}, // unreachable: kings aren't captured
}

// MoveOrderer accumulates move-ordering signal across a search: which
// quiet moves cut off the search before (killers, history), which
// captures tend to win material (capture history), and what the right
// reply to a given opponent move tends to be (counter-move tables).
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	history      [64][64]int
	lowPlyHistory [lowPlyHistoryDepth][64][64]int

	counterMoves [12][64]board.Move

	// [attacker piece][to square][captured type]
	captureHistory [12][64][6]int

	// [prev piece][prev to][this piece][this to]
	counterMoveHistory [12][64][12][64]int
}

func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

func halveAll1D(t *[64][64]int) {
	for i := range t {
		for j := range t[i] {
			t[i][j] /= 2
		}
	}
}

// Clear ages every table for a fresh search: killers and counter
// moves are wiped outright (they're only meaningful within one
// search), while the history-style tables are halved rather than
// zeroed so accumulated signal survives across moves in a game.
func (mo *MoveOrderer) Clear() {
	for ply := range mo.killers {
		mo.killers[ply] = [2]board.Move{board.NoMove, board.NoMove}
	}

	halveAll1D(&mo.history)
	for p := range mo.lowPlyHistory {
		halveAll1D(&mo.lowPlyHistory[p])
	}

	for piece := range mo.counterMoves {
		for sq := range mo.counterMoves[piece] {
			mo.counterMoves[piece][sq] = board.NoMove
		}
	}

	for a := range mo.captureHistory {
		for sq := range mo.captureHistory[a] {
			for v := range mo.captureHistory[a][sq] {
				mo.captureHistory[a][sq][v] /= 2
			}
		}
	}

	for pp := range mo.counterMoveHistory {
		for pt := range mo.counterMoveHistory[pp] {
			for mp := range mo.counterMoveHistory[pp][pt] {
				for mt := range mo.counterMoveHistory[pp][pt][mp] {
					mo.counterMoveHistory[pp][pt][mp][mt] /= 2
				}
			}
		}
	}
}

// ScoreMoves scores every move in moves for plain ordering (TT move,
// MVV-LVA captures, killers, history).
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

// ScoreMovesWithCounter is ScoreMoves plus counter-move and
// counter-move-history bonuses derived from the move played at the
// previous ply.
func (mo *MoveOrderer) ScoreMovesWithCounter(pos *board.Position, moves *board.MoveList, ply int, ttMove, prevMove board.Move) []int {
	scores := make([]int, moves.Len())
	counterMove := mo.GetCounterMove(prevMove, pos)

	prevPiece := board.Piece(board.NoPiece)
	if prevMove != board.NoMove {
		prevPiece = pos.PieceAt(prevMove.To())
	}

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		score := mo.scoreMove(pos, move, ply, ttMove)

		if move == counterMove && score < scoreKiller2 {
			score = scoreKiller2 - 10_000 // ranks just under the second killer
		}

		if move != ttMove && !move.IsCapture(pos) && !move.IsPromotion() {
			movePiece := pos.PieceAt(move.From())
			score += mo.GetCountermoveHistoryScore(prevMove, prevPiece, movePiece, move.To()) / 2
		}

		scores[i] = score
	}

	return scores
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return scoreTTMove
	}

	if m.IsCapture(pos) {
		return mo.scoreCapture(pos, m)
	}

	if m.IsPromotion() {
		return scoreGoodCapture - 1000 + int(m.Promotion())*100
	}

	if m == mo.killers[ply][0] {
		return scoreKiller1
	}
	if m == mo.killers[ply][1] {
		return scoreKiller2
	}

	from, to := m.From(), m.To()
	score := mo.history[from][to]
	if ply < lowPlyHistoryDepth {
		score += mo.lowPlyHistory[ply][from][to]
	}
	return score
}

func (mo *MoveOrderer) scoreCapture(pos *board.Position, m board.Move) int {
	attackerPiece := pos.PieceAt(m.From())
	if attackerPiece == board.NoPiece {
		return scoreGoodCapture
	}
	attacker := attackerPiece.Type()

	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else {
		capturedPiece := pos.PieceAt(m.To())
		if capturedPiece == board.NoPiece {
			return scoreGoodCapture
		}
		victim = capturedPiece.Type()
	}

	if victim >= board.King || attacker > board.King {
		return scoreGoodCapture
	}

	score := scoreGoodCapture + mvvLva[victim][attacker]*1000
	score += mo.GetCaptureHistoryScore(attackerPiece, m.To(), victim) / 4

	if pieceValues[attacker] < pieceValues[victim] {
		score += 10_000 // attacker is cheaper than victim: clearly winning
	}

	return score
}

// SortMoves fully sorts moves by scores, descending. Selection sort
// is fine here: move lists rarely exceed a few dozen entries.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove moves the highest-scoring move at or after index into
// index, so a search that aborts early never pays for sorting moves
// it was never going to try.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers records m as a killer at ply, bumping the previous
// first killer down to second.
func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

func bumpBounded(score *int, bonus int, overflow func()) {
	*score += bonus
	if *score > historyOverflowCap {
		overflow()
	}
}

func maluate(score *int, bonus int) {
	*score -= bonus
	if *score < historyMalusFloor {
		*score = historyMalusFloor
	}
}

// UpdateHistory reinforces (isGood) or penalizes (!isGood) a quiet
// move's [from][to] history score, scaled by depth^2.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int, isGood bool) {
	from, to := m.From(), m.To()
	bonus := depth * depth
	if isGood {
		bumpBounded(&mo.history[from][to], bonus, func() { halveAll1D(&mo.history) })
	} else {
		maluate(&mo.history[from][to], bonus)
	}
}

// UpdateLowPlyHistory is UpdateHistory's near-root counterpart: it
// only records anything for the first lowPlyHistoryDepth plies, where
// the regular history table hasn't accumulated enough signal yet.
func (mo *MoveOrderer) UpdateLowPlyHistory(m board.Move, ply, depth int, isGood bool) {
	if ply >= lowPlyHistoryDepth {
		return
	}
	from, to := m.From(), m.To()
	bonus := depth * depth
	if isGood {
		bumpBounded(&mo.lowPlyHistory[ply][from][to], bonus, func() { halveAll1D(&mo.lowPlyHistory[ply]) })
	} else {
		maluate(&mo.lowPlyHistory[ply][from][to], bonus)
	}
}

// UpdateCounterMove records counterMove as the reply to prevMove.
func (mo *MoveOrderer) UpdateCounterMove(prevMove, counterMove board.Move, pos *board.Position) {
	if prevMove == board.NoMove {
		return
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return
	}
	mo.counterMoves[piece][prevMove.To()] = counterMove
}

// GetCounterMove returns the recorded reply to prevMove, if any.
func (mo *MoveOrderer) GetCounterMove(prevMove board.Move, pos *board.Position) board.Move {
	if prevMove == board.NoMove {
		return board.NoMove
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return board.NoMove
	}
	return mo.counterMoves[piece][prevMove.To()]
}

// GetHistoryScore returns m's plain history score, used for
// history-based pruning of late quiet moves.
func (mo *MoveOrderer) GetHistoryScore(m board.Move) int {
	return mo.history[m.From()][m.To()]
}

// UpdateCaptureHistory reinforces or penalizes a capture keyed by
// attacking piece, destination square, and victim type.
func (mo *MoveOrderer) UpdateCaptureHistory(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType, depth int, isGood bool) {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return
	}
	bonus := depth * depth
	cell := &mo.captureHistory[attackerPiece][toSq][capturedType]
	if isGood {
		bumpBounded(cell, bonus, mo.scaleCaptureHistory)
	} else {
		maluate(cell, bonus)
	}
}

func (mo *MoveOrderer) scaleCaptureHistory() {
	for a := range mo.captureHistory {
		for sq := range mo.captureHistory[a] {
			for v := range mo.captureHistory[a][sq] {
				mo.captureHistory[a][sq][v] /= 2
			}
		}
	}
}

// GetCaptureHistoryScore returns the capture history score for the
// given attacker/destination/victim triple.
func (mo *MoveOrderer) GetCaptureHistoryScore(attackerPiece board.Piece, toSq board.Square, capturedType board.PieceType) int {
	if attackerPiece == board.NoPiece || capturedType >= board.King {
		return 0
	}
	return mo.captureHistory[attackerPiece][toSq][capturedType]
}

// UpdateCountermoveHistory reinforces or penalizes a quiet move keyed
// by both its own piece/destination and the previous move's.
func (mo *MoveOrderer) UpdateCountermoveHistory(prevMove, thisMove board.Move, prevPiece, movePiece board.Piece, depth int, isGood bool) {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return
	}
	bonus := depth * depth
	cell := &mo.counterMoveHistory[prevPiece][prevMove.To()][movePiece][thisMove.To()]
	if isGood {
		bumpBounded(cell, bonus, mo.scaleCounterMoveHistory)
	} else {
		maluate(cell, bonus)
	}
}

func (mo *MoveOrderer) scaleCounterMoveHistory() {
	for pp := range mo.counterMoveHistory {
		for pt := range mo.counterMoveHistory[pp] {
			for mp := range mo.counterMoveHistory[pp][pt] {
				for mt := range mo.counterMoveHistory[pp][pt][mp] {
					mo.counterMoveHistory[pp][pt][mp][mt] /= 2
				}
			}
		}
	}
}

// GetCountermoveHistoryScore returns the CMH score for playing a move
// with movePiece landing on moveTo, right after prevPiece moved to
// prevMove's destination.
func (mo *MoveOrderer) GetCountermoveHistoryScore(prevMove board.Move, prevPiece, movePiece board.Piece, moveTo board.Square) int {
	if prevMove == board.NoMove || prevPiece == board.NoPiece || movePiece == board.NoPiece {
		return 0
	}
	return mo.counterMoveHistory[prevPiece][prevMove.To()][movePiece][moveTo]
}
