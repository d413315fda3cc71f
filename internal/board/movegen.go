package board

import (
	"fmt"
	"log"
)

// DebugMoveValidation enables internal consistency assertions (king
// bitboard presence, signature sanity, side-to-move ownership) during
// move generation and make/unmake. Off by default; turn on when
// chasing a movegen or make/unmake bug.
var DebugMoveValidation = false

// GenerateLegalMoves returns every legal move available to the side
// to move.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves returns every move that follows piece
// movement rules, without checking whether it leaves the mover's own
// king in check.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generateAllMoves(ml)
	return ml
}

// GenerateCaptures returns every legal capture (including promotions
// and en passant), used by quiescence search.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generateCaptures(ml)
	return p.filterLegalMoves(ml)
}

// GenerateChecks returns legal non-capture moves that give check,
// used by quiescence search to extend past captures alone.
func (p *Position) GenerateChecks() *MoveList {
	ml := NewMoveList()
	p.generateChecks(ml)
	return p.filterLegalMoves(ml)
}

// slidingAttacker computes a piece's attack set from a square given
// the current occupancy; knight and king attacks ignore occupancy but
// share the signature so one loop can drive every piece type.
type slidingAttacker func(Square, Bitboard) Bitboard

func ignoreOccupancy(f func(Square) Bitboard) slidingAttacker {
	return func(sq Square, _ Bitboard) Bitboard { return f(sq) }
}

// emitPieceMoves walks every piece of type pt for us and adds a move
// for each destination square allowed by target.
func (p *Position) emitPieceMoves(ml *MoveList, us Color, pt PieceType, attacker slidingAttacker, occupied, target Bitboard) {
	pieces := p.Pieces[us][pt]
	for pieces != 0 {
		from := pieces.PopLSB()
		dests := attacker(from, occupied) & target
		for dests != 0 {
			ml.Add(NewMove(from, dests.PopLSB()))
		}
	}
}

func (p *Position) checkKingConsistency(us Color) {
	if !DebugMoveValidation {
		return
	}
	kingBB := p.Pieces[us][King]
	if kingBB == 0 {
		log.Printf("MOVEGEN FATAL: %v King bitboard empty! KingSquare=%v AllOcc=%x Hash=%x",
			us, p.KingSquare[us], uint64(p.AllOccupied), p.Hash)
	} else if p.KingSquare[us] != kingBB.LSB() {
		log.Printf("MOVEGEN FATAL: %v KingSquare=%v but King bitboard says %v! Hash=%x",
			us, p.KingSquare[us], kingBB.LSB(), p.Hash)
	}
}

// generateAllMoves fills ml with every pseudo-legal move: pawns,
// knights, sliders, the king, and castling.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	enemies := p.Occupied[them]
	reachable := ^p.Occupied[us]

	p.checkKingConsistency(us)

	p.generatePawnMoves(ml, us, enemies, occupied)
	p.emitPieceMoves(ml, us, Knight, ignoreOccupancy(KnightAttacks), occupied, reachable)
	p.emitPieceMoves(ml, us, Bishop, BishopAttacks, occupied, reachable)
	p.emitPieceMoves(ml, us, Rook, RookAttacks, occupied, reachable)
	p.emitPieceMoves(ml, us, Queen, QueenAttacks, occupied, reachable)
	p.generateKingMoves(ml, us)
	p.generateCastlingMoves(ml, us)
}

// generateCaptures fills ml with pseudo-legal captures, en passant,
// and pawn promotions (a promoting push is included even though it
// captures nothing, since quiescence search must not ignore it).
func (p *Position) generateCaptures(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemies := p.Occupied[them]
	occupied := p.AllOccupied

	p.generatePawnCaptures(ml, us, enemies, occupied)
	p.emitPieceMoves(ml, us, Knight, ignoreOccupancy(KnightAttacks), occupied, enemies)
	p.emitPieceMoves(ml, us, Bishop, BishopAttacks, occupied, enemies)
	p.emitPieceMoves(ml, us, Rook, RookAttacks, occupied, enemies)
	p.emitPieceMoves(ml, us, Queen, QueenAttacks, occupied, enemies)

	from := p.KingSquare[us]
	for attacks := KingAttacks(from) & enemies; attacks != 0; {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// generateChecks fills ml with pseudo-legal non-capture moves that
// would give check, found by intersecting each piece's attack set
// with the squares from which it would attack the enemy king.
func (p *Position) generateChecks(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemyKing := p.KingSquare[them]
	occupied := p.AllOccupied
	empty := ^occupied

	knightSquares := KnightAttacks(enemyKing) & empty
	p.emitPieceMoves(ml, us, Knight, ignoreOccupancy(KnightAttacks), occupied, knightSquares)

	bishopSquares := BishopAttacks(enemyKing, occupied) & empty
	p.emitPieceMoves(ml, us, Bishop, BishopAttacks, occupied, bishopSquares)

	rookSquares := RookAttacks(enemyKing, occupied) & empty
	p.emitPieceMoves(ml, us, Rook, RookAttacks, occupied, rookSquares)

	p.emitPieceMoves(ml, us, Queen, QueenAttacks, occupied, bishopSquares|rookSquares)
}

// pawnShifts bundles the color-dependent geometry pawn move
// generation needs: which way pawns push and capture, which rank a
// double push lands on, which rank promotes, and the square offset
// (to - from) a single push covers.
type pawnShifts struct {
	push, captureLeft, captureRight func(Bitboard) Bitboard
	doublePushRank, promoRank       Bitboard
	step                            int
}

func pawnShiftsFor(us Color) pawnShifts {
	if us == White {
		return pawnShifts{
			push: Bitboard.North, captureLeft: Bitboard.NorthWest, captureRight: Bitboard.NorthEast,
			doublePushRank: Rank3, promoRank: Rank8, step: -8,
		}
	}
	return pawnShifts{
		push: Bitboard.South, captureLeft: Bitboard.SouthWest, captureRight: Bitboard.SouthEast,
		doublePushRank: Rank6, promoRank: Rank1, step: 8,
	}
}

// epAttackers finds the pawns of us that could legally capture en
// passant onto ep.
func epAttackers(ep Square, pawns Bitboard, us Color) Bitboard {
	epBB := SquareBB(ep)
	if us == White {
		return (epBB.SouthWest() | epBB.SouthEast()) & pawns
	}
	return (epBB.NorthWest() | epBB.NorthEast()) & pawns
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// addShiftedMoves walks every set bit in dests and adds a move whose
// origin is offset by backStep squares - the common shape for turning
// a shifted-bitboard of landing squares back into moves.
func addShiftedMoves(ml *MoveList, dests Bitboard, backStep int, promote bool) {
	for dests != 0 {
		to := dests.PopLSB()
		from := Square(int(to) - backStep)
		if promote {
			addPromotions(ml, from, to)
		} else {
			ml.Add(NewMove(from, to))
		}
	}
}

// generatePawnMoves adds every pseudo-legal pawn move: pushes,
// captures, promotions of both, and en passant.
func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	dir := pawnShiftsFor(us)
	empty := ^occupied

	push1 := dir.push(pawns) & empty
	push2 := dir.push(push1&dir.doublePushRank) & empty
	attackLeft := dir.captureLeft(pawns) & enemies
	attackRight := dir.captureRight(pawns) & enemies

	addShiftedMoves(ml, push1&^dir.promoRank, dir.step, false)
	addShiftedMoves(ml, push2, 2*dir.step, false)
	addShiftedMoves(ml, attackLeft&^dir.promoRank, dir.step-1, false)
	addShiftedMoves(ml, attackRight&^dir.promoRank, dir.step+1, false)

	addShiftedMoves(ml, push1&dir.promoRank, dir.step, true)
	addShiftedMoves(ml, attackLeft&dir.promoRank, dir.step-1, true)
	addShiftedMoves(ml, attackRight&dir.promoRank, dir.step+1, true)

	if p.EnPassant != NoSquare {
		attackers := epAttackers(p.EnPassant, pawns, us)
		for attackers != 0 {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
		}
	}
}

// generatePawnCaptures is generatePawnMoves restricted to moves that
// belong in a captures-only list: diagonal captures (plain or
// promoting), en passant, and promoting straight pushes (no capture,
// but too forcing for quiescence search to skip).
func (p *Position) generatePawnCaptures(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	dir := pawnShiftsFor(us)
	empty := ^occupied

	attackLeft := dir.captureLeft(pawns) & enemies
	attackRight := dir.captureRight(pawns) & enemies

	addShiftedMoves(ml, attackLeft&^dir.promoRank, dir.step-1, false)
	addShiftedMoves(ml, attackRight&^dir.promoRank, dir.step+1, false)
	addShiftedMoves(ml, attackLeft&dir.promoRank, dir.step-1, true)
	addShiftedMoves(ml, attackRight&dir.promoRank, dir.step+1, true)
	addShiftedMoves(ml, dir.push(pawns)&empty&dir.promoRank, dir.step, true)

	if p.EnPassant != NoSquare {
		attackers := epAttackers(p.EnPassant, pawns, us)
		for attackers != 0 {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
		}
	}
}

// generateKingMoves adds the king's non-castling moves, reading its
// square from the piece bitboard rather than the cached KingSquare so
// a desynced cache shows up as a missing move instead of a panic.
func (p *Position) generateKingMoves(ml *MoveList, us Color) {
	kingBB := p.Pieces[us][King]
	if kingBB == 0 {
		return
	}
	from := kingBB.LSB()
	for attacks := KingAttacks(from) & ^p.Occupied[us]; attacks != 0; {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

type castlingPath struct {
	right              CastlingRights
	kingFrom, kingTo   Square
	emptySquares       Bitboard
	kingTransitSquares [3]Square
}

func castlingPathsFor(us Color) [2]castlingPath {
	if us == White {
		return [2]castlingPath{
			{WhiteKingSideCastle, E1, G1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
			{WhiteQueenSideCastle, E1, C1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
		}
	}
	return [2]castlingPath{
		{BlackKingSideCastle, E8, G8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
		{BlackQueenSideCastle, E8, C8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
	}
}

// generateCastlingMoves adds both castling moves still available to
// us: the squares the rook crosses must be empty, and the king's
// whole path (including its start square) must be unattacked.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	for _, path := range castlingPathsFor(us) {
		if p.CastlingRights&path.right == 0 {
			continue
		}
		if p.AllOccupied&path.emptySquares != 0 {
			continue
		}
		attacked := false
		for _, sq := range path.kingTransitSquares {
			if p.IsSquareAttacked(sq, them) {
				attacked = true
				break
			}
		}
		if !attacked {
			ml.Add(NewCastling(path.kingFrom, path.kingTo))
		}
	}
}

// DebugLegalMoveVerification enables dual-path verification in filterLegalMoves.
// Set to true during development to catch any fast path bugs.
var DebugLegalMoveVerification = false

// filterLegalMoves keeps only the moves in ml that don't leave the
// mover's own king in check, using Stockfish's shortcut: a move whose
// piece isn't pinned, isn't the king, and isn't en passant can never
// expose the king, so it's accepted without make/unmake.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()
	pinned := p.ComputePinned()
	ksq := p.KingSquare[p.SideToMove]
	inCheck := p.Checkers != 0

	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)

		if inCheck {
			if p.IsLegalFast(m, pinned) {
				result.Add(m)
			}
			continue
		}

		from := m.From()
		if from != ksq && !m.IsEnPassant() && pinned&SquareBB(from) == 0 {
			p.verifyFastPath(m, true, pinned, ksq)
			result.Add(m)
			continue
		}

		fastLegal := p.IsLegalFast(m, pinned)
		p.verifyFastPath(m, fastLegal, pinned, ksq)
		if fastLegal {
			result.Add(m)
		} else if DebugLegalMoveVerification && p.IsLegal(m) {
			fmt.Printf("DEBUG MISMATCH: IsLegalFast rejected move %v but IsLegal accepted it\n", m)
			result.Add(m)
		}
	}

	return result
}

// verifyFastPath cross-checks the fast legality shortcuts against the
// make/unmake-based IsLegal whenever DebugLegalMoveVerification is on;
// a no-op otherwise.
func (p *Position) verifyFastPath(m Move, fastResult bool, pinned Bitboard, ksq Square) {
	if !DebugLegalMoveVerification {
		return
	}
	if fastResult != p.IsLegal(m) {
		fmt.Printf("DEBUG MISMATCH: fast path said %v for move %v but IsLegal disagreed (pinned=%v ksq=%v)\n",
			fastResult, m, pinned, ksq)
	}
}

// IsLegalFast reports whether m is legal without make/unmake for the
// common cases: king moves check the destination directly, moves made
// while in check are checked against the blocking/capturing squares,
// and everything else is legal unless its piece is pinned off the
// line it's moving along.
func (p *Position) IsLegalFast(m Move, pinned Bitboard) bool {
	from := m.From()
	to := m.To()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	if from == ksq {
		if m.IsCastling() {
			return checkers == 0
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if checkers != 0 {
		if checkers.PopCount() > 1 {
			return false
		}

		checker := checkers.LSB()
		validTargets := SquareBB(checker) | Between(checker, ksq)

		if m.IsEnPassant() {
			capturedSq := epCapturedSquare(to, us)
			if capturedSq != checker {
				return false
			}
			return p.isLegalEnPassant(m)
		}

		if validTargets&SquareBB(to) == 0 {
			return false
		}
		if pinned&SquareBB(from) != 0 && !Aligned(from, to, ksq) {
			return false
		}
		return true
	}

	if m.IsEnPassant() {
		return p.isLegalEnPassant(m)
	}
	if pinned&SquareBB(from) == 0 {
		return true
	}
	return Aligned(from, to, ksq)
}

func epCapturedSquare(to Square, us Color) Square {
	if us == White {
		return to + 8
	}
	return to - 8
}

// isLegalEnPassant resolves en passant the slow way: removing two
// pawns on the same rank can expose a horizontal attack on the king
// that the pin bitboard alone doesn't catch, so this plays the move
// and checks directly.
func (p *Position) isLegalEnPassant(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	played := p.MakeMove(m)
	if p.SideToMove == us {
		return false // no piece of ours on from: nothing was played
	}
	attacked := !played.Undo().Valid || p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(played)
	return !attacked
}

// IsLegal checks legality by actually playing m and looking for an
// attack on the king it left behind. Correct by construction; kept
// around for the debug cross-checks in filterLegalMoves.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from := m.From()
	ksq := p.KingSquare[us]

	if from == ksq {
		if m.IsCastling() {
			return true
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(m.To(), them, occ) == 0
	}

	played := p.MakeMove(m)
	if p.SideToMove == us {
		return false // no piece of ours on from: nothing was played
	}
	attacked := !played.Undo().Valid || p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(played)
	return !attacked
}

// MakeMove plays m on the position in place and returns m with its
// undo record attached, ready to be handed back to UnmakeMove. The
// returned move's Undo().Valid is false if m turned out to be illegal.
// When from holds no piece of the side to move, MakeMove returns at
// once and the position is unchanged. When the move leaves the mover's
// own king in check, the position is still mutated and the caller must
// still call UnmakeMove to restore it.
func (p *Position) MakeMove(m Move) Move {
	p.debugCheckBeforeMove(m)

	undo := p.snapshotUndoState()

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)

	if piece == NoPiece {
		return Move{bits: m.bits, undo: undo}
	}
	if piece.Color() != us {
		if DebugMoveValidation {
			log.Printf("DEBUG: MakeMove - trying to move %v piece when %v to move! Move: %v (from=%v to=%v)",
				piece.Color(), us, m, from, to)
		}
		return Move{bits: m.bits, undo: undo}
	}

	undo.Valid = true
	pt := piece.Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	p.applyCapture(m, us, them, undo)

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[us][Pawn][from]
		p.PawnKey ^= zobristPiece[us][Pawn][to]
	}

	if m.IsPromotion() {
		p.applyPromotion(m, us, to)
	}
	if m.IsCastling() {
		p.moveCastlingRook(from, to, us)
	}

	p.updateCastlingRightsAfterMove(pt, us, from, to)
	p.updateEnPassantSquare(pt, from, to)

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.UpdateCheckers()

	if p.IsSquareAttacked(p.KingSquare[us], them) {
		if DebugMoveValidation {
			log.Printf("MAKEMOVE ILLEGAL: %v left King at %v in check! move=%v hash=%x",
				us, p.KingSquare[us], m, p.Hash)
		}
		undo.Valid = false
	}

	return Move{bits: m.bits, undo: undo}
}

func (p *Position) debugCheckBeforeMove(m Move) {
	if !DebugMoveValidation {
		return
	}
	us := p.SideToMove
	them := us.Other()
	if p.Pieces[us][King] == 0 {
		log.Printf("MAKEMOVE ENTRY: %v King bitboard empty! move=%v hash=%x", us, m, p.Hash)
	}
	if p.Pieces[them][King] == 0 {
		log.Printf("MAKEMOVE ENTRY: %v (opponent) King bitboard empty! move=%v hash=%x", them, m, p.Hash)
	}
	if captured := p.PieceAt(m.To()); captured != NoPiece && captured.Type() == King {
		log.Printf("MAKEMOVE ILLEGAL: Trying to capture %v King at %v! move=%v hash=%x",
			captured.Color(), m.To(), m, p.Hash)
	}
}

func (p *Position) snapshotUndoState() *UndoInfo {
	return &UndoInfo{
		CapturedPiece:  NoPiece,
		CastlingRights: p.CastlingRights,
		EnPassant:      p.EnPassant,
		HalfMoveClock:  p.HalfMoveClock,
		Hash:           p.Hash,
		PawnKey:        p.PawnKey,
		Checkers:       p.Checkers,
		KingSquare:     p.KingSquare,
		Pieces:         p.Pieces,
		Occupied:       p.Occupied,
		AllOccupied:    p.AllOccupied,
		Valid:          false,
	}
}

// applyCapture removes whatever m captures, if anything, updating the
// main and pawn Zobrist keys to match.
func (p *Position) applyCapture(m Move, us, them Color, undo *UndoInfo) {
	to := m.To()
	if m.IsEnPassant() {
		capturedSq := epCapturedSquare(to, us)
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
		p.PawnKey ^= zobristPiece[them][Pawn][capturedSq]
		return
	}
	captured := p.PieceAt(to)
	if captured == NoPiece {
		return
	}
	undo.CapturedPiece = captured
	p.removePiece(to)
	p.Hash ^= zobristPiece[them][captured.Type()][to]
	if captured.Type() == Pawn {
		p.PawnKey ^= zobristPiece[them][Pawn][to]
	}
}

func (p *Position) applyPromotion(m Move, us Color, to Square) {
	promoPt := m.Promotion()
	p.Pieces[us][Pawn] &^= SquareBB(to)
	p.Pieces[us][promoPt] |= SquareBB(to)
	p.Hash ^= zobristPiece[us][Pawn][to]
	p.Hash ^= zobristPiece[us][promoPt][to]
	p.PawnKey ^= zobristPiece[us][Pawn][to]
}

func (p *Position) moveCastlingRook(kingFrom, kingTo Square, us Color) {
	var rookFrom, rookTo Square
	if kingTo > kingFrom {
		rookFrom = NewSquare(7, kingFrom.Rank())
		rookTo = NewSquare(5, kingFrom.Rank())
	} else {
		rookFrom = NewSquare(0, kingFrom.Rank())
		rookTo = NewSquare(3, kingFrom.Rank())
	}
	p.movePiece(rookFrom, rookTo)
	p.Hash ^= zobristPiece[us][Rook][rookFrom]
	p.Hash ^= zobristPiece[us][Rook][rookTo]
}

func (p *Position) updateCastlingRightsAfterMove(pt PieceType, us Color, from, to Square) {
	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	if from == A1 || to == A1 {
		p.CastlingRights &^= WhiteQueenSideCastle
	}
	if from == H1 || to == H1 {
		p.CastlingRights &^= WhiteKingSideCastle
	}
	if from == A8 || to == A8 {
		p.CastlingRights &^= BlackQueenSideCastle
	}
	if from == H8 || to == H8 {
		p.CastlingRights &^= BlackKingSideCastle
	}
	p.Hash ^= zobristCastling[p.CastlingRights]
}

func (p *Position) updateEnPassantSquare(pt PieceType, from, to Square) {
	if pt != Pawn || abs(int(to)-int(from)) != 16 {
		return
	}
	epSquare := Square((int(from) + int(to)) / 2)
	p.EnPassant = epSquare
	p.Hash ^= zobristEnPassant[epSquare.File()]
}

// UnmakeMove restores the position to what it was before the MakeMove
// call that produced m's undo record.
func (p *Position) UnmakeMove(m Move) {
	undo := m.undo
	us := p.SideToMove.Other()

	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.KingSquare = undo.KingSquare
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
	p.SideToMove = us

	if us == Black {
		p.FullMoveNumber--
	}
}

// HasLegalMoves reports whether the side to move has any legal move,
// without the allocation cost of building a full legal move list.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	pinned := p.ComputePinned()
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegalFast(ml.Get(i), pinned) {
			return true
		}
	}
	return false
}

func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsDraw reports every draw condition derivable from the position
// alone (stalemate, the fifty-move clock, insufficient material) -
// repetition needs the game's move history and is checked elsewhere.
func (p *Position) IsDraw() bool {
	if p.IsStalemate() {
		return true
	}
	if p.HalfMoveClock >= 100 {
		return true
	}
	return p.IsInsufficientMaterial()
}

// IsInsufficientMaterial reports true for K-vs-K and K+one-minor-vs-K;
// it does not attempt the rarer KBN-vs-K or same-colored-bishops
// cases, which still require checkmate to be proven by search.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wMinors := p.Pieces[White][Knight].PopCount() + p.Pieces[White][Bishop].PopCount()
	bMinors := p.Pieces[Black][Knight].PopCount() + p.Pieces[Black][Bishop].PopCount()

	if wMinors+bMinors == 0 {
		return true
	}
	if wMinors <= 1 && bMinors == 0 {
		return true
	}
	if bMinors <= 1 && wMinors == 0 {
		return true
	}
	return false
}
