package projection

import (
	"github.com/park285/annan-shogi-server/internal/notation"
	"github.com/park285/annan-shogi-server/internal/shogi"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

// AIStatus describes the agent assignment shown alongside the board.
type AIStatus struct {
	Enabled bool
	Side    *shogi.Color
}

// Build derives the full client view of g. It never mutates the game.
func Build(g *shogi.Game, ai AIStatus) (*annandto.Snapshot, error) {
	rec, err := notation.FromGame(g)
	if err != nil {
		return nil, err
	}

	board := g.Board()
	snap := &annandto.Snapshot{
		Board:      make([][]*annandto.Cell, 0, 9),
		AnnanInfo:  make([][]*annandto.AnnanCell, 0, 9),
		Turn:       g.Turn().String(),
		BlackHand:  handCounts(g.Hand(shogi.Black)),
		WhiteHand:  handCounts(g.Hand(shogi.White)),
		LegalMoves: []string{},
		InCheck:    g.InCheck(),
		Result:     string(g.Result()),
		Ply:        g.Ply(),
		AIEnabled:  ai.Enabled,
		Log:        rec.Log,
		KIF:        rec.KIF,
	}
	if ai.Side != nil {
		side := ai.Side.String()
		snap.AIColor = &side
	}

	for rank := 1; rank <= 9; rank++ {
		row := make([]*annandto.Cell, 0, 9)
		annan := make([]*annandto.AnnanCell, 0, 9)
		for file := 9; file >= 1; file-- {
			sq := shogi.Square{File: file, Rank: rank}
			pc := board.At(sq)
			if pc.Empty() {
				row = append(row, nil)
				annan = append(annan, nil)
				continue
			}
			row = append(row, &annandto.Cell{
				Type:  pc.Type.String(),
				Kanji: notation.PieceKanji(pc.Type),
				Color: pc.Color.String(),
			})
			annan = append(annan, effectiveCell(board, sq, pc))
		}
		snap.Board = append(snap.Board, row)
		snap.AnnanInfo = append(snap.AnnanInfo, annan)
	}

	if g.Result() == shogi.ResultOngoing {
		for _, m := range g.LegalMoves() {
			snap.LegalMoves = append(snap.LegalMoves, m.USI())
		}
	}
	return snap, nil
}

// effectiveCell is nil for kings, unclassifiable squares and unchanged movement.
func effectiveCell(b shogi.Board, sq shogi.Square, pc shogi.Piece) *annandto.AnnanCell {
	if pc.Type == shogi.OU {
		return nil
	}
	eff, ok := shogi.EffectiveType(b, sq, pc.Color)
	if !ok || eff == pc.Type {
		return nil
	}
	return &annandto.AnnanCell{
		EffectiveType:  eff.String(),
		EffectiveKanji: notation.PieceKanji(eff),
	}
}

func handCounts(h shogi.Hand) map[string]int {
	out := make(map[string]int)
	for _, t := range shogi.HandTypes {
		if n := h.Count(t); n > 0 {
			out[t.String()] = n
		}
	}
	return out
}
