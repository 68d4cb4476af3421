package notation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

var ErrHistoryMismatch = errors.New("move history does not match recorded positions")

// Header is the fixed KIF preamble; it is always exactly five lines.
var Header = [...]string{
	"# KIF形式棋譜ファイル",
	"手合割：平手",
	"先手：プレイヤー",
	"後手：プレイヤー(またはAI)",
	"手数----指手---------消費時間--",
}

// Record is the notation derived from a game's history.
type Record struct {
	Log []string
	KIF string
}

// Writer renders moves one at a time. The full-history Build is a replay
// through the same writer, so both paths compress recaptures identically.
type Writer struct {
	log     []string
	lines   []string
	prevDst shogi.Square
	hasPrev bool
}

func NewWriter() *Writer { return &Writer{} }

// Append renders m, which was played from the position `before`.
func (w *Writer) Append(m shogi.Move, before shogi.Position) error {
	mark := TurnMark(before.Turn)
	dst := SquareGlyph(m.To)
	if dst == "" {
		return fmt.Errorf("%w: destination %v", ErrHistoryMismatch, m.To)
	}

	var formal, compact string
	if m.IsDrop() {
		formal = dst + PieceKanji(m.Drop) + DropMark
		compact = mark + formal
	} else {
		pc := before.Board.At(m.From)
		if pc.Empty() {
			return fmt.Errorf("%w: no piece on %v for move %s", ErrHistoryMismatch, m.From, m.USI())
		}
		kanji := PieceKanji(pc.Type)
		promote := ""
		if m.Promote {
			promote = PromoteMark
		}
		dest := dst
		if w.hasPrev && w.prevDst == m.To {
			dest = SameSquare
		}
		formal = dest + kanji + promote + rawSquare(m.From)
		compact = mark + dst + kanji + promote + rawSquare(m.From)
	}
	w.prevDst, w.hasPrev = m.To, true

	w.lines = append(w.lines, fmt.Sprintf("%4d %s", len(w.lines)+1, formal))
	w.log = append(w.log, compact)
	return nil
}

func (w *Writer) Len() int { return len(w.lines) }

// Record returns copies; the writer stays usable.
func (w *Writer) Record() Record {
	all := make([]string, 0, len(Header)+len(w.lines))
	all = append(all, Header[:]...)
	all = append(all, w.lines...)
	return Record{
		Log: append([]string{}, w.log...),
		KIF: strings.Join(all, "\n"),
	}
}

// Build replays a full history. snapshots[i] must be the position before moves[i].
func Build(moves []shogi.Move, snapshots []shogi.Position) (Record, error) {
	if len(moves) != len(snapshots) {
		return Record{}, fmt.Errorf("%w: %d moves, %d snapshots", ErrHistoryMismatch, len(moves), len(snapshots))
	}
	w := NewWriter()
	for i, m := range moves {
		if err := w.Append(m, snapshots[i]); err != nil {
			return Record{}, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return w.Record(), nil
}

// FromGame is Build over a game's recorded history.
func FromGame(g *shogi.Game) (Record, error) {
	return Build(g.Moves(), g.Snapshots())
}
