package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chessplay/internal/board"
)

// lmrReductions[depth][moveCount] is a precomputed table of late-move
// reductions, following Stockfish's logarithmic formula so the hot
// negamax loop never calls math.Log.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(21.46 * math.Log(float64(d)) * 21.46 * math.Log(float64(m)) / 1024.0)
		}
	}
}

// Worker runs one Lazy-SMP search thread: its own position copy, move
// ordering, and search stacks, sharing only the transposition table
// and the cross-worker history table with its siblings.
type Worker struct {
	id int

	pos     *board.Position
	orderer *MoveOrderer

	nodes uint64
	pv    PVTable

	undoStack [MaxPly]board.Move
	evalStack [MaxPly]int

	posHistory    []uint64
	rootPosHashes []uint64

	excludedRootMoves []board.Move // Multi-PV: moves already reported at root

	tt            *TranspositionTable
	evaluator     Evaluator
	sharedHistory *SharedHistory
	corrHistory   *CorrectionHistory
	stopFlag      *atomic.Bool

	resultCh chan<- WorkerResult
	depth    int
}

// WorkerResult is one worker's completed search at a given depth.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     board.Move
	PV       []board.Move
	Nodes    uint64
}

func NewWorker(id int, tt *TranspositionTable, evaluator Evaluator, sharedHistory *SharedHistory, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		id:            id,
		orderer:       NewMoveOrderer(),
		tt:            tt,
		evaluator:     evaluator,
		sharedHistory: sharedHistory,
		corrHistory:   NewCorrectionHistory(),
		stopFlag:      stopFlag,
	}
}

func (w *Worker) ID() int       { return w.id }
func (w *Worker) Nodes() uint64 { return w.nodes }

func (w *Worker) Reset() {
	w.nodes = 0
	w.orderer.Clear()
}

// SetRootHistory supplies the game's position history up to the
// current move, used for repetition detection inside the search.
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootPosHashes = append(w.rootPosHashes[:0], hashes...)
}

func (w *Worker) SetResultChannel(ch chan<- WorkerResult) {
	w.resultCh = ch
}

// SetExcludedMoves marks root moves that a Multi-PV search has
// already reported, so this worker searches past them.
func (w *Worker) SetExcludedMoves(moves []board.Move) {
	w.excludedRootMoves = moves
}

func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos.Copy()
	w.posHistory = make([]uint64, 0, len(w.rootPosHashes)+MaxPly)
	w.posHistory = append(w.posHistory, w.rootPosHashes...)
	w.posHistory = append(w.posHistory, w.pos.Hash)
}

// SearchDepth runs one full-width search at depth and, if a result
// channel is attached, reports the outcome on it.
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	w.depth = depth
	score := w.negamax(depth, 0, alpha, beta, board.NoMove)
	bestMove := w.rootBestMove()

	if w.resultCh != nil && !w.stopFlag.Load() {
		w.resultCh <- WorkerResult{
			WorkerID: w.id,
			Depth:    depth,
			Score:    score,
			Move:     bestMove,
			PV:       w.GetPV(),
			Nodes:    w.nodes,
		}
	}

	return bestMove, score
}

// rootBestMove returns the PV's first move, falling back to any
// legal move if the PV came back empty (can happen on an immediate
// stop) rather than reporting NoMove to the caller.
func (w *Worker) rootBestMove() board.Move {
	if w.pv.length[0] > 0 {
		return w.pv.moves[0][0]
	}
	if w.stopFlag.Load() {
		return board.NoMove
	}
	if moves := w.pos.GenerateLegalMoves(); moves.Len() > 0 {
		return moves.Get(0)
	}
	return board.NoMove
}

func (w *Worker) evaluate() int {
	return w.evaluator.Evaluate(w.pos)
}

func (w *Worker) stopped() bool {
	return w.stopFlag.Load()
}

func (w *Worker) GetPV() []board.Move {
	pv := make([]board.Move, w.pv.length[0])
	copy(pv, w.pv.moves[0][:w.pv.length[0]])
	return pv
}

func (w *Worker) isExcludedRootMove(move board.Move) bool {
	for _, excluded := range w.excludedRootMoves {
		if move == excluded {
			return true
		}
	}
	return false
}

// isDraw reports the three draw conditions the search itself must
// recognize: fifty-move clock, bare-material draws, and repetition.
// (Stalemate is handled where legal moves are generated, not here.)
func (w *Worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	return w.repeatedOnce()
}

func (w *Worker) repeatedOnce() bool {
	seen := 0
	for _, h := range w.posHistory {
		if h == w.pos.Hash {
			seen++
			if seen >= 2 {
				return true
			}
		}
	}
	return false
}

// ttProbeResult bundles what negamax needs from a transposition table
// hit: the move to try first, whether it's known to sit on the PV,
// possibly-tightened alpha/beta bounds, and - if the stored bound
// alone resolves this node - a usable score.
//
// A stored lower/upper bound is real information even when it isn't
// tight enough to resolve the node outright, so alpha/beta come back
// tightened the same way the original inline code reassigned its
// enclosing locals: everything negamax does after the probe (pruning
// and the move loop) must see the tightened window, not the caller's
// original one.
type ttProbeResult struct {
	move      board.Move
	isPV      bool
	hit       bool
	entry     TTEntry
	alpha     int
	beta      int
	cutoff    bool
	cutoffVal int
}

func (w *Worker) probeTT(depth, ply, alpha, beta int) ttProbeResult {
	res := ttProbeResult{alpha: alpha, beta: beta}

	entry, found := w.tt.Probe(w.pos.Hash)
	if !found {
		return res
	}
	res.hit = true
	res.entry = entry
	res.move = entry.BestMove
	res.isPV = entry.IsPV

	if res.move != board.NoMove {
		piece := w.pos.PieceAt(res.move.From())
		if piece == board.NoPiece || piece.Color() != w.pos.SideToMove {
			res.move = board.NoMove
		}
	}

	cutoffAllowed := ply > 0 || !w.isExcludedRootMove(res.move)
	if int(entry.Depth) < depth || !cutoffAllowed {
		return res
	}

	score := AdjustScoreFromTT(int(entry.Score), ply)
	switch entry.Flag {
	case TTExact:
		w.recordRootPV(ply, res.move)
		res.cutoff, res.cutoffVal = true, score
		return res
	case TTLowerBound:
		if score > res.alpha {
			res.alpha = score
		}
	case TTUpperBound:
		if score < res.beta {
			res.beta = score
		}
	}
	if res.alpha >= res.beta {
		w.recordRootPV(ply, res.move)
		res.cutoff, res.cutoffVal = true, score
	}
	return res
}

func (w *Worker) recordRootPV(ply int, move board.Move) {
	if ply == 0 && move != board.NoMove {
		w.pv.moves[0][0] = move
		w.pv.length[0] = 1
	}
}

// internalIterativeDeepening runs a shallow search first when the TT
// has no move to try, so a move is usually available for ordering by
// the time the full-depth search reaches this node.
func (w *Worker) internalIterativeDeepening(depth, ply, alpha, beta int, prevMove board.Move) board.Move {
	iidDepth := depth - 2
	if iidDepth < 1 {
		iidDepth = 1
	}
	w.negamax(iidDepth, ply, alpha, beta, prevMove)
	if entry, found := w.tt.Probe(w.pos.Hash); found {
		return entry.BestMove
	}
	return board.NoMove
}

// negamax is the search's workhorse: alpha-beta with PVS, guarded by
// a stack of depth-dependent pruning and extension heuristics.
func (w *Worker) negamax(depth, ply int, alpha, beta int, prevMove board.Move) int {
	if ply >= MaxPly-1 { // leaves room for pv.length[ply+1] below
		return w.evaluate()
	}
	if w.nodes&4095 == 0 && w.stopFlag.Load() {
		return 0
	}
	w.nodes++
	w.pv.length[ply] = ply

	if ply > 0 && w.isDraw() {
		return 0
	}

	tt := w.probeTT(depth, ply, alpha, beta)
	if tt.cutoff {
		return tt.cutoffVal
	}
	alpha, beta = tt.alpha, tt.beta
	ttMove := tt.move

	if depth >= 4 && ttMove == board.NoMove {
		ttMove = w.internalIterativeDeepening(depth, ply, alpha, beta, prevMove)
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()
	extension := 0
	if inCheck {
		extension = 1
	}
	if extension == 0 && depth >= threatExtensionMinDepth && ply > 0 && w.detectSeriousThreats() {
		extension = 1
	}

	rawEval := w.evaluate()
	staticEval := rawEval + w.corrHistory.Get(w.pos)
	w.evalStack[ply] = staticEval

	improving := ply >= 2 && staticEval > w.evalStack[ply-2]

	if score, ok := w.tryReverseFutility(depth, ply, beta, staticEval, inCheck, improving, tt.isPV); ok {
		return score
	}
	if score, ok := w.tryRazoring(depth, ply, alpha, beta, staticEval, inCheck); ok {
		return score
	}
	if score, ok := w.tryNullMove(depth, ply, beta, inCheck, tt.isPV); ok {
		return score
	}
	if score, ok := w.tryProbcut(depth, ply, beta, inCheck); ok {
		return score
	}

	pruneQuietMoves := w.quietMovesLookFutile(depth, ply, alpha, staticEval, inCheck)
	singularExtension := w.trySingularExtension(depth, ply, inCheck, prevMove, ttMove, tt)

	moves := w.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	return w.searchMoveList(depth, ply, alpha, beta, prevMove, ttMove, moves, extension, singularExtension, pruneQuietMoves, improving, inCheck, rawEval)
}

// tryReverseFutility skips the move loop outright when the static
// eval already clears beta by enough margin that no quiet move could
// plausibly save the opponent - never in PV nodes, to keep the PV
// backed by real search rather than a static guess.
func (w *Worker) tryReverseFutility(depth, ply, beta, staticEval int, inCheck, improving, ttPV bool) (int, bool) {
	if inCheck || depth > 6 || ply == 0 || ttPV {
		return 0, false
	}
	margin := 80 * depth
	if !improving {
		margin -= 20
	}
	if staticEval-margin >= beta {
		return beta, true
	}
	return 0, false
}

func (w *Worker) tryRazoring(depth, ply, alpha, beta, staticEval int, inCheck bool) (int, bool) {
	if depth > 2 || inCheck || ply == 0 {
		return 0, false
	}
	margin := 300 + 100*depth
	if staticEval+margin > alpha {
		return 0, false
	}
	score := w.quiescence(ply, alpha, beta)
	if score <= alpha {
		return score, true
	}
	return 0, false
}

func (w *Worker) tryNullMove(depth, ply, beta int, inCheck, ttPV bool) (int, bool) {
	if inCheck || depth < 3 || ply == 0 || ttPV || !w.pos.HasNonPawnMaterial() {
		return 0, false
	}
	reduction := 2 + depth/4
	if reduction > depth-1 {
		reduction = depth - 1
	}

	undo := w.pos.MakeNullMove()
	score := -w.negamax(depth-1-reduction, ply+1, -beta, -beta+1, board.NoMove)
	w.pos.UnmakeNullMove(undo)

	if score >= beta {
		return beta, true
	}
	return 0, false
}

// tryProbcut verifies, with a cheap reduced-depth search, whether any
// winning-SEE capture would itself cause a beta cutoff well above
// beta - if so that's taken as strong enough evidence to cut here.
func (w *Worker) tryProbcut(depth, ply, beta int, inCheck bool) (int, bool) {
	if depth < probcutDepth || inCheck || ply == 0 || abs(beta) >= MateScore-100 {
		return 0, false
	}
	probcutBeta := beta + probcutMargin
	searchDepth := depth - probcutReduction
	if searchDepth < 1 {
		searchDepth = 1
	}

	captures := w.pos.GenerateCaptures()
	for i := 0; i < captures.Len(); i++ {
		capture := captures.Get(i)
		if SEE(w.pos, capture) < 0 {
			continue
		}
		played := w.pos.MakeMove(capture)
		if !played.Undo().Valid {
			w.pos.UnmakeMove(played)
			continue
		}
		score := -w.negamax(searchDepth, ply+1, -probcutBeta, -probcutBeta+1, capture)
		w.pos.UnmakeMove(played)

		if score >= probcutBeta {
			return score, true
		}
	}
	return 0, false
}

func (w *Worker) quietMovesLookFutile(depth, ply, alpha, staticEval int, inCheck bool) bool {
	if depth > 3 || inCheck || ply == 0 {
		return false
	}
	futilityMargin := []int{0, 200, 300, 500}
	return staticEval+futilityMargin[depth] <= alpha
}

// trySingularExtension checks whether the TT move is the only move
// that avoids falling below a reduced bound; if every alternative
// fails low, the TT move is "singular" and gets searched one ply
// deeper when the move loop reaches it.
func (w *Worker) trySingularExtension(depth, ply int, inCheck bool, prevMove, ttMove board.Move, tt ttProbeResult) int {
	if depth < 8 || ttMove == board.NoMove || inCheck || !tt.hit {
		return 0
	}
	if tt.entry.Depth < int8(depth-3) || tt.entry.Flag == TTUpperBound {
		return 0
	}

	rBeta := int(tt.entry.Score) - 200
	singularDepth := (depth - 3) / 2
	if singularDepth < 1 {
		singularDepth = 1
	}
	if w.singularSearch(singularDepth, ply, rBeta-1, rBeta, prevMove, ttMove) < rBeta {
		return 1
	}
	return 0
}

// searchMoveList is negamax's main move loop: order, prune, recurse
// with PVS/LMR, and update the tables once a result is known.
func (w *Worker) searchMoveList(depth, ply, alpha, beta int, prevMove, ttMove board.Move, moves *board.MoveList, extension, singularExtension int, pruneQuietMoves, improving, inCheck bool, rawEval int) int {
	scores := w.orderer.ScoreMovesWithCounter(w.pos, moves, ply, ttMove, prevMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	movesSearched := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if ply == 0 && w.isExcludedRootMove(move) {
			continue
		}

		isCapture := move.IsCapture(w.pos)
		isPromotion := move.IsPromotion()

		if w.shouldSkipQuiet(pruneQuietMoves, depth, movesSearched, inCheck, improving, isCapture, isPromotion, bestMove, move, ttMove) {
			continue
		}
		if isCapture && depth <= 3 && !inCheck && movesSearched > 0 && SEE(w.pos, move) < 0 {
			continue
		}

		w.undoStack[ply] = w.pos.MakeMove(move)
		if !w.undoStack[ply].Undo().Valid {
			w.pos.UnmakeMove(w.undoStack[ply])
			continue
		}
		w.posHistory = append(w.posHistory, w.pos.Hash)
		movesSearched++

		newDepth := depth - 1 + extension
		if move == ttMove && singularExtension > 0 {
			newDepth += singularExtension
		}

		score := w.searchMove(move, ttMove, newDepth, ply, alpha, beta, movesSearched, depth, improving, isCapture, isPromotion)

		w.posHistory = w.posHistory[:len(w.posHistory)-1]
		w.pos.UnmakeMove(w.undoStack[ply])

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				flag = TTExact
				w.extendPV(ply, move)
			}
		}

		if score >= beta {
			w.recordRootPV(ply, bestMove)
			w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove, false)
			w.onBetaCutoff(move, prevMove, depth, ply, isCapture)
			return score
		}
	}

	if bestMove == board.NoMove && moves.Len() > 0 {
		bestMove = moves.Get(0)
		if bestScore == -Infinity {
			bestScore = alpha
		}
	}

	inCheckNow := w.pos.InCheck()
	if flag == TTExact && !inCheckNow && depth >= 2 {
		w.corrHistory.Update(w.pos, bestScore, rawEval, depth)
	}

	w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove, flag == TTExact)
	return bestScore
}

// shouldSkipQuiet applies, in order, futility pruning (skip every
// quiet move once one has already been tried and the position looks
// hopeless), late move pruning (skip quiet moves past a depth- and
// improving-dependent count), and history pruning (skip quiet moves
// whose history score has been consistently bad).
func (w *Worker) shouldSkipQuiet(pruneQuietMoves bool, depth, movesSearched int, inCheck, improving, isCapture, isPromotion bool, bestMove, move, ttMove board.Move) bool {
	if pruneQuietMoves && !isCapture && !isPromotion && bestMove != board.NoMove {
		return true
	}

	if inCheck || movesSearched == 0 || isCapture || isPromotion || move == ttMove {
		return false
	}

	if depth <= 7 {
		threshold := lmpThreshold[depth]
		if !improving {
			threshold = threshold * 2 / 3
		}
		if movesSearched >= threshold {
			return true
		}
	}

	if depth <= 3 && w.orderer.GetHistoryScore(move) < historyPruningThreshold {
		return true
	}

	return false
}

func (w *Worker) extendPV(ply int, move board.Move) {
	w.pv.moves[ply][ply] = move
	for j := ply + 1; j < w.pv.length[ply+1]; j++ {
		w.pv.moves[ply][j] = w.pv.moves[ply+1][j]
	}
	w.pv.length[ply] = w.pv.length[ply+1]
}

func (w *Worker) onBetaCutoff(move, prevMove board.Move, depth, ply int, isCapture bool) {
	if isCapture {
		attackerPiece := w.pos.PieceAt(move.From())
		capturedType := w.capturedTypeFor(move)
		w.orderer.UpdateCaptureHistory(attackerPiece, move.To(), capturedType, depth, true)
		return
	}

	w.orderer.UpdateKillers(move, ply)
	w.orderer.UpdateHistory(move, depth, true)
	w.orderer.UpdateLowPlyHistory(move, ply, depth, true)
	w.sharedHistory.Update(int(move.From()), int(move.To()), depth*depth)
	w.orderer.UpdateCounterMove(prevMove, move, w.pos)

	if prevMove != board.NoMove {
		prevPiece := w.pos.PieceAt(prevMove.To())
		movePiece := w.pos.PieceAt(move.To())
		w.orderer.UpdateCountermoveHistory(prevMove, move, prevPiece, movePiece, depth, true)
	}
}

func (w *Worker) capturedTypeFor(move board.Move) board.PieceType {
	if move.IsEnPassant() {
		return board.Pawn
	}
	if captured := w.pos.PieceAt(move.To()); captured != board.NoPiece {
		return captured.Type()
	}
	return board.Pawn
}

// searchMove recurses for one already-made move, picking between a
// plain full-window search, a zero-window re-search, and late-move
// reduction depending on where this move falls in the ordered list.
func (w *Worker) searchMove(move, ttMove board.Move, newDepth, ply, alpha, beta, movesSearched, depth int, improving, isCapture, isPromotion bool) int {
	if movesSearched > 4 && depth >= 3 && !w.pos.InCheck() && !isCapture && !isPromotion {
		return w.searchWithLMR(move, ttMove, newDepth, ply, alpha, beta, movesSearched, depth, improving)
	}
	if movesSearched == 1 {
		return -w.negamax(newDepth, ply+1, -beta, -alpha, move)
	}
	score := -w.negamax(newDepth, ply+1, -alpha-1, -alpha, move)
	if score > alpha && score < beta {
		score = -w.negamax(newDepth, ply+1, -beta, -alpha, move)
	}
	return score
}

func (w *Worker) searchWithLMR(move, ttMove board.Move, newDepth, ply, alpha, beta, movesSearched, depth int, improving bool) int {
	d := depth
	if d > 63 {
		d = 63
	}
	m := movesSearched
	if m > 63 {
		m = 63
	}
	reduction := lmrReductions[d][m]
	if !improving {
		reduction++
	}
	if move == ttMove {
		reduction -= 2
	}

	from, to := move.From(), move.To()
	histScore := (w.orderer.history[from][to] + w.sharedHistory.Get(int(from), int(to))) / 2
	reduction -= histScore / 8192

	if reduction < 1 {
		reduction = 1
	}
	reducedDepth := newDepth - reduction
	if reducedDepth < 1 {
		reducedDepth = 1
	}

	score := -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha, move)
	if score > alpha {
		score = -w.negamax(newDepth, ply+1, -beta, -alpha, move)
	}
	return score
}

func (w *Worker) quiescence(ply int, alpha, beta int) int {
	return w.quiescenceInternal(ply, 0, alpha, beta)
}

// quiescenceInternal extends the search through captures (and, at its
// first ply, check-giving quiets) past the nominal horizon so the
// static eval is never trusted on a position with a hanging piece.
func (w *Worker) quiescenceInternal(ply, qPly int, alpha, beta int) int {
	const maxQuiescencePly = 32
	if ply >= MaxPly || qPly > maxQuiescencePly {
		return w.evaluate()
	}
	if w.stopFlag.Load() {
		return 0
	}
	w.nodes++

	if lazy := materialBalance(w.pos); lazy-lazyEvalMargin >= beta {
		return beta
	} else if lazy+lazyEvalMargin <= alpha {
		return alpha
	}

	standPat := w.evaluate()
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}
	if standPat+QueenValue < alpha {
		return alpha
	}

	alpha = w.searchQuiescenceCaptures(ply, qPly, alpha, beta, standPat)
	if alpha >= beta {
		return beta
	}

	if qPly == 0 && !w.pos.InCheck() {
		alpha = w.searchQuiescenceChecks(ply, qPly, alpha, beta)
	}

	return alpha
}

func (w *Worker) searchQuiescenceCaptures(ply, qPly, alpha, beta, standPat int) int {
	moves := w.pos.GenerateCaptures()
	scores := w.orderer.ScoreMoves(w.pos, moves, ply, board.NoMove)

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		if !w.pos.InCheck() && w.captureLooksHopeless(move, standPat, alpha) {
			continue
		}

		played := w.pos.MakeMove(move)
		if !played.Undo().Valid {
			w.pos.UnmakeMove(played)
			continue
		}
		score := -w.quiescenceInternal(ply+1, qPly+1, -beta, -alpha)
		w.pos.UnmakeMove(played)

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

func (w *Worker) captureLooksHopeless(move board.Move, standPat, alpha int) bool {
	var captureValue int
	if move.IsEnPassant() {
		captureValue = PawnValue
	} else if captured := w.pos.PieceAt(move.To()); captured != board.NoPiece {
		captureValue = pieceValues[captured.Type()]
	}
	if move.IsPromotion() {
		captureValue += QueenValue - PawnValue
	}
	return standPat+captureValue+200 < alpha
}

func (w *Worker) searchQuiescenceChecks(ply, qPly, alpha, beta int) int {
	checkMoves := w.pos.GenerateChecks()

	for i := 0; i < checkMoves.Len(); i++ {
		move := checkMoves.Get(i)
		if move.IsCapture(w.pos) {
			continue
		}

		played := w.pos.MakeMove(move)
		if !played.Undo().Valid {
			w.pos.UnmakeMove(played)
			continue
		}
		if !w.pos.InCheck() {
			w.pos.UnmakeMove(played)
			continue
		}

		score := -w.quiescenceInternal(ply+1, qPly+1, -beta, -alpha)
		w.pos.UnmakeMove(played)

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// singularSearch re-searches the position with excludedMove removed
// from consideration, used by trySingularExtension to check whether
// any alternative move comes close to the TT move's score.
func (w *Worker) singularSearch(depth, ply int, alpha, beta int, prevMove, excludedMove board.Move) int {
	moves := w.pos.GenerateLegalMoves()
	bestScore := -Infinity

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		if move == excludedMove {
			continue
		}

		w.undoStack[ply] = w.pos.MakeMove(move)
		if !w.undoStack[ply].Undo().Valid {
			w.pos.UnmakeMove(w.undoStack[ply])
			continue
		}
		w.posHistory = append(w.posHistory, w.pos.Hash)

		score := -w.negamax(depth-1, ply+1, -beta, -alpha, move)

		w.posHistory = w.posHistory[:len(w.posHistory)-1]
		w.pos.UnmakeMove(w.undoStack[ply])

		if score > bestScore {
			bestScore = score
		}
		if score >= beta {
			return score
		}
	}

	if bestScore == -Infinity {
		return alpha
	}
	return bestScore
}

// detectSeriousThreats looks for a threat extension trigger: one of
// our pieces hanging to an undefended enemy attack, or a queen/rook
// attacked by a cheaper piece.
func (w *Worker) detectSeriousThreats() bool {
	pos := w.pos
	us := pos.SideToMove
	them := us.Other()
	occupied := pos.AllOccupied

	enemyPawn := computePawnAttacksBB(pos, them)
	enemyKnight := computeKnightAttacksBB(pos, them)
	enemyBishop := computeBishopAttacksBB(pos, them, occupied)
	enemyRook := computeRookAttacksBB(pos, them, occupied)
	enemyQueen := computeQueenAttacksBB(pos, them, occupied)
	enemyAttacks := enemyPawn | enemyKnight | enemyBishop | enemyRook | enemyQueen

	ourDefenses := computePawnAttacksBB(pos, us) | computeKnightAttacksBB(pos, us) |
		computeBishopAttacksBB(pos, us, occupied) | computeRookAttacksBB(pos, us, occupied) |
		computeQueenAttacksBB(pos, us, occupied) | board.KingAttacks(pos.KingSquare[us])

	ourPieces := pos.Occupied[us] &^ board.SquareBB(pos.KingSquare[us])
	hanging := ourPieces & enemyAttacks &^ ourDefenses

	for hanging != 0 {
		sq := hanging.PopLSB()
		if piece := pos.PieceAt(sq); piece != board.NoPiece && pieceValues[piece.Type()] >= threatExtensionThreshold {
			return true
		}
	}

	// A queen attacked by anything lesser, or a rook attacked by a
	// minor or pawn, is worth extending even if it isn't hanging
	// outright (the defender may just be outgunned in the exchange).
	if pos.Pieces[us][board.Queen]&(enemyPawn|enemyKnight|enemyBishop|enemyRook) != 0 {
		return true
	}
	if pos.Pieces[us][board.Rook]&(enemyPawn|enemyKnight|enemyBishop) != 0 {
		return true
	}

	return false
}
