package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/engine"
	"github.com/hailam/chessplay/internal/opts"
	"github.com/hailam/chessplay/internal/tablebase"
)

// UCI implements the Universal Chess Interface protocol over stdin/stdout.
type UCI struct {
	engine   *engine.Engine
	position *board.Position

	positionHashes []uint64 // for repetition detection

	syzygyPath       string
	syzygyProbeDepth int

	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool

	profileFile *os.File
}

// New creates a UCI handler driving eng.
func New(eng *engine.Engine) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
	}
}

// commandHandlers maps each top-level UCI command to its handler. It
// is built once per UCI instance (rather than as a package-level var)
// so each entry can close over u without an extra dispatch switch.
func (u *UCI) commandHandlers() map[string]func([]string) {
	return map[string]func([]string){
		"uci":        func([]string) { u.handleUCI() },
		"isready":    func([]string) { fmt.Println("readyok") },
		"ucinewgame": func([]string) { u.handleNewGame() },
		"position": func(args []string) {
			if board.DebugMoveValidation {
				fmt.Fprintf(os.Stderr, "info string DEBUG: position %s\n", strings.Join(args, " "))
			}
			u.handlePosition(args)
		},
		"go":        u.handleGo,
		"stop":      func([]string) { u.handleStop() },
		"quit":      func([]string) { u.handleQuit() },
		"setoption": u.handleSetOption,
		"d":         func([]string) { fmt.Println(u.position.String()) },
		"perft":     u.handlePerft,
	}
}

// Run reads UCI commands from stdin until EOF, dispatching each to
// its handler; unrecognized commands are silently ignored, matching
// what most UCI engines do when a GUI sends a command they don't
// support.
func (u *UCI) Run() {
	handlers := u.commandHandlers()
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		handler, ok := handlers[fields[0]]
		if !ok {
			continue
		}
		handler(fields[1:])
	}
}

func (u *UCI) handleUCI() {
	fmt.Println("id name ChessPlay")
	fmt.Println("id author ChessPlay Team")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name SyzygyPath type string default <empty>")
	fmt.Println("option name SyzygyProbeDepth type spin default 1 min 1 max 100")
	fmt.Println("uciok")
}

func (u *UCI) handleNewGame() {
	u.engine.Clear()
	u.position = board.NewPosition()
	u.positionHashes = []uint64{u.position.Hash}
}

// handlePosition parses one of:
//
//	position startpos
//	position startpos moves e2e4 e7e5
//	position fen <fen>
//	position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	u.positionHashes = nil

	moveStart, ok := u.setBasePosition(args)
	if !ok {
		return
	}
	u.positionHashes = append(u.positionHashes, u.position.Hash)

	if moveStart < len(args) {
		if err := u.applyMoveSequence(args[moveStart:]); err != nil {
			fmt.Fprintf(os.Stderr, "info string Invalid move: %v\n", err)
			return
		}
	}

	u.logPositionDebug()
}

// setBasePosition handles the "startpos"/"fen" prefix of a position
// command, setting u.position and returning the index of the first
// move argument (len(args) if there is no "moves" keyword).
func (u *UCI) setBasePosition(args []string) (moveStart int, ok bool) {
	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		return movesKeywordIndex(args, 1), true
	case "fen":
		fenEnd := movesKeywordIndex(args[1:], len(args)-1) + 1
		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "info string Invalid FEN: %v\n", err)
			return 0, false
		}
		u.position = pos
		return movesKeywordIndex(args, len(args)), true
	default:
		return 0, false
	}
}

// movesKeywordIndex scans args for "moves" and returns the index of
// the argument right after it, or fallback if "moves" isn't present.
func movesKeywordIndex(args []string, fallback int) int {
	for i, arg := range args {
		if arg == "moves" {
			return i + 1
		}
	}
	return fallback
}

func (u *UCI) applyMoveSequence(moveStrs []string) error {
	for _, moveStr := range moveStrs {
		move := u.parseMove(moveStr)
		if move == board.NoMove {
			return fmt.Errorf("%s", moveStr)
		}
		u.position.MakeMove(move)
		u.position.UpdateCheckers()
		u.positionHashes = append(u.positionHashes, u.position.Hash)
	}
	return nil
}

func (u *UCI) logPositionDebug() {
	if !board.DebugMoveValidation {
		return
	}
	legal := u.position.GenerateLegalMoves()
	var legalStrs []string
	for i := 0; i < legal.Len() && i < 8; i++ {
		legalStrs = append(legalStrs, legal.Get(i).String())
	}
	fmt.Fprintf(os.Stderr, "info string DEBUG: After position setup - hash=%016x inCheck=%v legal=%v...\n",
		u.position.Hash, u.position.InCheck(), legalStrs)
}

var promoLetters = map[byte]board.PieceType{
	'q': board.Queen, 'r': board.Rook, 'b': board.Bishop, 'n': board.Knight,
}

// parseMove resolves a long-algebraic UCI move string (e.g. "e2e4" or
// "e7e8q") against the position's current legal moves, rather than
// constructing a Move directly - that way a string naming an illegal
// or malformed move reliably comes back as board.NoMove.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')
	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, 7-fromRank) // internal rank 0 is the 8th rank
	to := board.NewSquare(toFile, 7-toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		promo = promoLetters[moveStr[4]]
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if promo != 0 {
			if m.IsPromotion() && m.Promotion() == promo {
				return m
			}
		} else if !m.IsPromotion() {
			return m
		}
	}
	return board.NoMove
}

// GoOptions holds parsed "go" command options. It is an alias for
// opts.TimeControl: this is the protocol layer doing the parsing that
// struct exists for.
type GoOptions = opts.TimeControl

// goValueParsers maps each "go" argument keyword that takes a value to
// a function applying that value to opts. "infinite" takes no value
// and is handled separately in parseGoOptions.
var goValueParsers = map[string]func(o *GoOptions, value string){
	"depth": func(o *GoOptions, v string) { o.Depth, _ = strconv.Atoi(v) },
	"nodes": func(o *GoOptions, v string) {
		n, _ := strconv.ParseUint(v, 10, 64)
		o.Nodes = n
	},
	"movetime":  func(o *GoOptions, v string) { o.MoveTime = parseMillis(v) },
	"wtime":     func(o *GoOptions, v string) { o.WTime = parseMillis(v) },
	"btime":     func(o *GoOptions, v string) { o.BTime = parseMillis(v) },
	"winc":      func(o *GoOptions, v string) { o.WInc = parseMillis(v) },
	"binc":      func(o *GoOptions, v string) { o.BInc = parseMillis(v) },
	"movestogo": func(o *GoOptions, v string) { o.MovesToGo, _ = strconv.Atoi(v) },
}

func parseMillis(v string) time.Duration {
	ms, _ := strconv.Atoi(v)
	return time.Duration(ms) * time.Millisecond
}

func (u *UCI) parseGoOptions(args []string) GoOptions {
	var opts GoOptions
	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			opts.Infinite = true
			continue
		}
		if parse, ok := goValueParsers[args[i]]; ok && i+1 < len(args) {
			parse(&opts, args[i+1])
			i++
		}
	}
	return opts
}

// handleGo parses a "go" command, starts the search on a copy of the
// current position in its own goroutine, and replies with "bestmove"
// once the search completes.
func (u *UCI) handleGo(args []string) {
	goOpts := u.parseGoOptions(args)

	u.engine.SetPositionHistory(u.positionHashes)
	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.sendInfo(info)
	}

	limits := u.calculateLimits(goOpts)

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()
	rootPos := u.position.Copy()

	go func() {
		defer close(u.searchDone)
		bestMove := u.engine.SearchWithLimits(pos, limits)
		u.searching = false
		u.reportBestMove(bestMove, rootPos)
	}()
}

// reportBestMove validates bestMove against rootPos's legal moves
// before printing it - the search thread mutates its own position
// copy extensively, so rootPos (a separate, untouched copy) is the
// source of truth for what's actually legal to play.
func (u *UCI) reportBestMove(bestMove board.Move, rootPos *board.Position) {
	legal := rootPos.GenerateLegalMoves()

	if bestMove != board.NoMove {
		for i := 0; i < legal.Len(); i++ {
			if legal.Get(i) != bestMove {
				continue
			}
			if board.DebugMoveValidation {
				fmt.Fprintf(os.Stderr, "info string DEBUG: Sending bestmove %s (hash=%016x)\n", bestMove.String(), rootPos.Hash)
			}
			fmt.Printf("bestmove %s\n", bestMove.String())
			return
		}
		fmt.Fprintf(os.Stderr, "info string CRITICAL: Search returned illegal move %s (not in %d legal moves)\n", bestMove.String(), legal.Len())
		var legalStrs []string
		for i := 0; i < legal.Len() && i < 10; i++ {
			legalStrs = append(legalStrs, legal.Get(i).String())
		}
		fmt.Fprintf(os.Stderr, "info string Legal moves (first 10): %v\n", legalStrs)
	} else {
		fmt.Fprintf(os.Stderr, "info string WARNING: Search returned NoMove, using fallback\n")
	}

	if legal.Len() > 0 {
		fmt.Printf("bestmove %s\n", legal.Get(0).String())
	} else {
		fmt.Println("bestmove 0000")
	}
}

func (u *UCI) calculateLimits(goOpts GoOptions) engine.SearchLimits {
	var limits engine.SearchLimits

	if goOpts.Infinite {
		limits.Infinite = true
		return limits
	}
	if goOpts.Depth > 0 {
		limits.Depth = goOpts.Depth
	}
	if goOpts.Nodes > 0 {
		limits.Nodes = goOpts.Nodes
	}

	if goOpts.MoveTime > 0 {
		limits.MoveTime = goOpts.MoveTime
	} else if goOpts.WTime > 0 || goOpts.BTime > 0 {
		limits.MoveTime = u.calculateTimeForMove(goOpts)
	}

	return limits
}

// calculateTimeForMove splits the side's remaining clock across an
// estimate of the moves left in the game, folding in 90% of the
// increment and capping the result well short of the full clock.
func (u *UCI) calculateTimeForMove(goOpts GoOptions) time.Duration {
	var ourTime, ourInc time.Duration
	if u.position.SideToMove == board.White {
		ourTime, ourInc = goOpts.WTime, goOpts.WInc
	} else {
		ourTime, ourInc = goOpts.BTime, goOpts.BInc
	}

	movesRemaining := goOpts.MovesToGo
	if movesRemaining == 0 {
		movesRemaining = u.estimateMovesRemaining()
	}

	baseTime := ourTime / time.Duration(movesRemaining)
	moveTime := baseTime + (ourInc * 90 / 100)

	if maxTime := ourTime * 90 / 100; moveTime > maxTime {
		moveTime = maxTime
	}
	if moveTime < 10*time.Millisecond {
		moveTime = 10 * time.Millisecond
	}

	fmt.Printf("info string time_allocated=%dms moves_remaining=%d our_time=%dms our_inc=%dms\n",
		moveTime.Milliseconds(), movesRemaining, ourTime.Milliseconds(), ourInc.Milliseconds())

	return moveTime
}

func (u *UCI) estimateMovesRemaining() int {
	switch totalPieces := u.position.AllOccupied.PopCount(); {
	case totalPieces > 24:
		return 40 // opening/early middlegame
	case totalPieces > 12:
		return 30 // middlegame
	default:
		return 20 // endgame
	}
}

// sendInfo prints one "info" line for a completed iteration of
// iterative deepening, validating the PV against a scratch copy of
// the position so a desynced search thread can never cause an
// illegal move sequence to reach the GUI.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		scoreToken(info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}

	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}
	if pv := u.validatedPV(info.PV); len(pv) > 0 {
		parts = append(parts, "pv "+strings.Join(pv, " "))
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

func scoreToken(score int) string {
	switch {
	case score > engine.MateScore-100:
		return fmt.Sprintf("score mate %d", (engine.MateScore-score+1)/2)
	case score < -engine.MateScore+100:
		return fmt.Sprintf("score mate %d", -(engine.MateScore+score+1)/2)
	default:
		return fmt.Sprintf("score cp %d", score)
	}
}

func (u *UCI) validatedPV(pv []board.Move) []string {
	valid := make([]string, 0, len(pv))
	testPos := u.position.Copy()

	for _, move := range pv {
		legal := testPos.GenerateLegalMoves()
		found := false
		for i := 0; i < legal.Len(); i++ {
			if legal.Get(i) == move {
				found = true
				break
			}
		}
		if !found {
			break
		}
		valid = append(valid, move.String())
		testPos.MakeMove(move)
	}
	return valid
}

func (u *UCI) handleStop() {
	if !u.searching {
		return
	}
	u.stopRequested.Store(true)
	u.engine.Stop()
	<-u.searchDone
}

func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		fmt.Fprintf(os.Stderr, "info string CPU profile saved\n")
	}
	os.Exit(0)
}

// setOptionHandlers maps a lowercased option name to the action that
// applies its value.
func (u *UCI) setOptionHandlers() map[string]func(value string) {
	return map[string]func(string){
		"hash": func(string) {
			// Resizing the shared transposition table mid-game would need
			// engine support that doesn't exist yet; the option is
			// accepted but has no effect.
		},
		"syzygypath": func(value string) {
			u.syzygyPath = value
			u.initSyzygy()
		},
		"syzygyprobedepth": func(value string) {
			depth, err := strconv.Atoi(value)
			if err == nil && depth >= 1 {
				u.syzygyProbeDepth = depth
				u.engine.SetSyzygyProbeDepth(depth)
			}
		},
		"debug": func(value string) {
			enabled := strings.ToLower(value) == "true"
			board.DebugMoveValidation = enabled
			if enabled {
				fmt.Fprintf(os.Stderr, "info string Debug mode enabled\n")
			}
		},
		"cpuprofile": u.setCPUProfile,
	}
}

func (u *UCI) handleSetOption(args []string) {
	name, value := parseNameValue(args)
	if handle, ok := u.setOptionHandlers()[strings.ToLower(name)]; ok {
		handle(value)
	}
}

// parseNameValue splits "setoption" arguments of the form
// "name <words...> value <words...>" into the name and value spans.
func parseNameValue(args []string) (name, value string) {
	readingName, readingValue := false, false
	for _, arg := range args {
		switch arg {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			switch {
			case readingName:
				name = appendWord(name, arg)
			case readingValue:
				value = appendWord(value, arg)
			}
		}
	}
	return name, value
}

func appendWord(s, word string) string {
	if s == "" {
		return word
	}
	return s + " " + word
}

func (u *UCI) setCPUProfile(value string) {
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
		fmt.Fprintf(os.Stderr, "info string CPU profile stopped\n")
		u.profileFile = nil
	}
	if value == "" || value == "stop" {
		return
	}

	f, err := os.Create(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "info string Failed to create profile: %v\n", err)
		return
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "info string Failed to start profile: %v\n", err)
		return
	}
	u.profileFile = f
	fmt.Fprintf(os.Stderr, "info string CPU profiling to %s\n", value)
}

// initSyzygy wires the injectable tablebase prober. Real Syzygy probing
// is out of scope for this module; setting SyzygyPath installs a no-op
// prober so the option is honored without pretending to probe.
func (u *UCI) initSyzygy() {
	if u.syzygyPath == "" {
		return
	}

	u.engine.SetTablebase(tablebase.NoopProber{})

	probeDepth := u.syzygyProbeDepth
	if probeDepth < 1 {
		probeDepth = 1
	}
	u.engine.SetSyzygyProbeDepth(probeDepth)

	fmt.Fprintf(os.Stderr, "info string Tablebase path set to %s (no-op prober, probing not implemented)\n", u.syzygyPath)
}

// handlePerft runs a perft test. "perft divide <depth>" additionally
// breaks the node count down per root move, for move-generator
// debugging.
func (u *UCI) handlePerft(args []string) {
	divide := len(args) > 0 && args[0] == "divide"
	if divide {
		args = args[1:]
	}

	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()

	var nodes uint64
	if divide {
		perMove, total := u.engine.PerftDivide(u.position, depth)
		for move, count := range perMove {
			fmt.Printf("%s: %d\n", move, count)
		}
		nodes = total
	} else {
		nodes = u.engine.Perft(u.position, depth)
	}

	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}
