package shogi

import "fmt"

type Result string

const (
	ResultOngoing        Result = "ONGOING"
	ResultBlackWin       Result = "BLACK_WIN"
	ResultWhiteWin       Result = "WHITE_WIN"
	ResultBlackResign    Result = "BLACK_RESIGN"
	ResultWhiteResign    Result = "WHITE_RESIGN"
	ResultDrawRepetition Result = "DRAW_REPETITION"
)

func (r Result) Terminal() bool { return r != ResultOngoing && r != "" }

// Winner reports the winning side; ok is false for ongoing games and draws.
func (r Result) Winner() (Color, bool) {
	switch r {
	case ResultBlackWin, ResultWhiteResign:
		return Black, true
	case ResultWhiteWin, ResultBlackResign:
		return White, true
	default:
		return Black, false
	}
}

// Game is a single game record. Snapshots()[i] is the position before Moves()[i].
type Game struct {
	pos       Position
	moves     []Move
	snapshots []Position
	result    Result
}

func NewGame() *Game { return NewGameFromPosition(NewPosition()) }

func NewGameFromPosition(pos Position) *Game {
	g := &Game{pos: pos, result: ResultOngoing}
	g.result = g.evaluate()
	return g
}

func (g *Game) Clone() *Game {
	return &Game{
		pos:       g.pos,
		moves:     append([]Move(nil), g.moves...),
		snapshots: append([]Position(nil), g.snapshots...),
		result:    g.result,
	}
}

func (g *Game) Position() Position { return g.pos }
func (g *Game) Board() Board       { return g.pos.Board }
func (g *Game) Turn() Color        { return g.pos.Turn }
func (g *Game) Hand(c Color) Hand  { return g.pos.Hands[c] }
func (g *Game) Ply() int           { return len(g.moves) }
func (g *Game) Result() Result     { return g.result }
func (g *Game) InCheck() bool      { return g.pos.InCheck() }

func (g *Game) Moves() []Move { return append([]Move(nil), g.moves...) }

func (g *Game) Snapshots() []Position { return append([]Position(nil), g.snapshots...) }

// LegalMoves is empty once the game is over.
func (g *Game) LegalMoves() []Move {
	if g.result.Terminal() {
		return nil
	}
	return g.pos.LegalMoves()
}

// USIMoves returns the history as USI tokens.
func (g *Game) USIMoves() []string {
	out := make([]string, len(g.moves))
	for i, m := range g.moves {
		out[i] = m.USI()
	}
	return out
}

// InitialSFEN is the position the history starts from.
func (g *Game) InitialSFEN() string {
	if len(g.snapshots) > 0 {
		return g.snapshots[0].SFEN(1)
	}
	return g.pos.SFEN(1)
}

// Apply parses a USI token and plays it.
func (g *Game) Apply(token string) (Move, error) {
	m, err := ParseUSI(token)
	if err != nil {
		return Move{}, err
	}
	if err := g.ApplyMove(m); err != nil {
		return Move{}, err
	}
	return m, nil
}

func (g *Game) ApplyMove(m Move) error {
	if g.result.Terminal() {
		return ErrGameOver
	}
	legal := false
	for _, lm := range g.pos.LegalMoves() {
		if lm == m {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("%w: %s", ErrIllegal, m.USI())
	}
	g.snapshots = append(g.snapshots, g.pos)
	g.moves = append(g.moves, m)
	g.pos = g.pos.Play(m)
	g.result = g.evaluate()
	return nil
}

// Undo takes back the last move. The result reverts to ongoing since
// moves are only ever played in ongoing games.
func (g *Game) Undo() (Move, error) {
	n := len(g.moves)
	if n == 0 {
		return Move{}, ErrNoHistory
	}
	last := g.moves[n-1]
	g.pos = g.snapshots[n-1]
	g.moves = g.moves[:n-1]
	g.snapshots = g.snapshots[:n-1]
	g.result = ResultOngoing
	return last, nil
}

// Resign ends the game in favour of the side not to move. It reports false
// when the game was already over.
func (g *Game) Resign() bool {
	if g.result.Terminal() {
		return false
	}
	if g.pos.Turn == Black {
		g.result = ResultBlackResign
	} else {
		g.result = ResultWhiteResign
	}
	return true
}

func (g *Game) evaluate() Result {
	if !g.pos.anyLegalMove() {
		if g.pos.Turn == Black {
			return ResultWhiteWin
		}
		return ResultBlackWin
	}
	if r, ok := g.repetition(); ok {
		return r
	}
	return ResultOngoing
}

// repetition detects the fourth occurrence of the current position. When every
// move one side made in the cycle gave check, that side loses.
func (g *Game) repetition() (Result, bool) {
	seen, first := 1, -1
	for i := len(g.snapshots) - 1; i >= 0 && seen < 4; i-- {
		if g.snapshots[i] == g.pos {
			seen++
			first = i
		}
	}
	if seen < 4 {
		return "", false
	}
	checking := [2]bool{true, true}
	for j := first; j < len(g.moves); j++ {
		mover := g.snapshots[j].Turn
		after := g.pos
		if j+1 < len(g.snapshots) {
			after = g.snapshots[j+1]
		}
		if !after.InCheck() {
			checking[mover] = false
		}
	}
	switch {
	case checking[Black]:
		return ResultWhiteWin, true
	case checking[White]:
		return ResultBlackWin, true
	default:
		return ResultDrawRepetition, true
	}
}
