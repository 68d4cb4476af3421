package notation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

func playAll(t *testing.T, g *shogi.Game, tokens ...string) {
	t.Helper()
	for _, tok := range tokens {
		_, err := g.Apply(tok)
		require.NoError(t, err, "apply %s", tok)
	}
}

func recaptureGame(t *testing.T) *shogi.Game {
	t.Helper()
	var p shogi.Position
	p.Board.Set(shogi.Square{File: 9, Rank: 9}, shogi.Piece{Type: shogi.OU, Color: shogi.Black})
	p.Board.Set(shogi.Square{File: 1, Rank: 1}, shogi.Piece{Type: shogi.OU, Color: shogi.White})
	p.Board.Set(shogi.Square{File: 5, Rank: 6}, shogi.Piece{Type: shogi.HI, Color: shogi.Black})
	p.Board.Set(shogi.Square{File: 5, Rank: 3}, shogi.Piece{Type: shogi.GI, Color: shogi.White})
	p.Board.Set(shogi.Square{File: 4, Rank: 2}, shogi.Piece{Type: shogi.KI, Color: shogi.White})
	return shogi.NewGameFromPosition(p)
}

func TestBuildEmptyHistory(t *testing.T) {
	rec, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Log)
	assert.Equal(t, strings.Join(Header[:], "\n"), rec.KIF)
	assert.Len(t, strings.Split(rec.KIF, "\n"), 5)
}

func TestBuildFirstMove(t *testing.T) {
	g := shogi.NewGame()
	playAll(t, g, "7g7f")

	rec, err := FromGame(g)
	require.NoError(t, err)
	require.Len(t, rec.Log, 1)
	assert.Equal(t, "☗７六歩(77)", rec.Log[0])

	lines := strings.Split(rec.KIF, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "   1 ７六歩(77)", lines[5])
}

func TestSameSquareCompression(t *testing.T) {
	g := recaptureGame(t)
	playAll(t, g, "5f5c+", "4b5c", "S*5d", "5c5d")

	rec, err := FromGame(g)
	require.NoError(t, err)

	lines := strings.Split(rec.KIF, "\n")
	require.Len(t, lines, 5+4)
	assert.Equal(t, []string{
		"   1 ５三飛成(56)",
		"   2 同　金(42)",
		"   3 ５四銀打",
		"   4 同　金(53)",
	}, lines[5:])

	// The log never compresses and always carries the mover's mark.
	assert.Equal(t, []string{
		"☗５三飛成(56)",
		"☖５三金(42)",
		"☗５四銀打",
		"☖５四金(53)",
	}, rec.Log)
}

func TestDropAndBoardMoveSuffixes(t *testing.T) {
	g := recaptureGame(t)
	playAll(t, g, "5f5c+", "4b5c", "S*5d")

	rec, err := FromGame(g)
	require.NoError(t, err)
	for i, m := range g.Moves() {
		line := strings.Split(rec.KIF, "\n")[5+i]
		if m.IsDrop() {
			assert.True(t, strings.HasSuffix(line, DropMark), line)
			assert.NotContains(t, line, "(")
		} else {
			assert.Equal(t, 1, strings.Count(line, "("), line)
		}
	}
}

func TestIncrementalMatchesReplay(t *testing.T) {
	g := recaptureGame(t)
	w := NewWriter()
	for _, tok := range []string{"5f5c+", "4b5c", "S*5d", "5c5d"} {
		before := g.Position()
		m, err := g.Apply(tok)
		require.NoError(t, err)
		require.NoError(t, w.Append(m, before))
	}
	full, err := FromGame(g)
	require.NoError(t, err)
	assert.Equal(t, full, w.Record())
	assert.Equal(t, 4, w.Len())
}

func TestBuildRejectsMismatchedHistory(t *testing.T) {
	m, err := shogi.ParseUSI("7g7f")
	require.NoError(t, err)

	_, err = Build([]shogi.Move{m}, nil)
	assert.ErrorIs(t, err, ErrHistoryMismatch)

	var empty shogi.Position
	_, err = Build([]shogi.Move{m}, []shogi.Position{empty})
	assert.ErrorIs(t, err, ErrHistoryMismatch)
}

func TestEncodeShiftJIS(t *testing.T) {
	g := shogi.NewGame()
	playAll(t, g, "7g7f")
	rec, err := FromGame(g)
	require.NoError(t, err)

	raw, charset, err := Encode(rec.KIF, EncodingShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, "Shift_JIS", charset)

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	require.NoError(t, err)
	assert.Equal(t, strings.ReplaceAll(rec.KIF, "\n", "\r\n")+"\r\n", string(decoded))

	_, _, err = Encode(rec.KIF, "ebcdic")
	assert.Error(t, err)
}
