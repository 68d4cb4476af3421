package shogi

import (
	"errors"
	"testing"
)

func hasMove(moves []Move, token string) bool {
	for _, m := range moves {
		if m.USI() == token {
			return true
		}
	}
	return false
}

func emptyPosition(turn Color) Position {
	var p Position
	p.Board.Set(Square{9, 9}, Piece{OU, Black})
	p.Turn = turn
	return p
}

func TestInitialSFEN(t *testing.T) {
	want := "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"
	if got := NewGame().InitialSFEN(); got != want {
		t.Fatalf("sfen = %q, want %q", got, want)
	}
}

func TestEffectiveTypeInheritsFromBehind(t *testing.T) {
	var b Board
	b.Set(Square{5, 5}, Piece{FU, Black})
	b.Set(Square{5, 6}, Piece{HI, Black})
	b.Set(Square{3, 5}, Piece{FU, White})
	b.Set(Square{3, 4}, Piece{KI, White})
	b.Set(Square{7, 5}, Piece{OU, Black})
	b.Set(Square{7, 6}, Piece{KA, Black})

	if eff, ok := EffectiveType(b, Square{5, 5}, Black); !ok || eff != HI {
		t.Fatalf("black pawn backed by rook: got %v ok=%v", eff, ok)
	}
	if eff, ok := EffectiveType(b, Square{3, 5}, White); !ok || eff != KI {
		t.Fatalf("white pawn backed by gold: got %v ok=%v", eff, ok)
	}
	if eff, ok := EffectiveType(b, Square{7, 5}, Black); !ok || eff != OU {
		t.Fatalf("king keeps its movement: got %v ok=%v", eff, ok)
	}
	if eff, ok := EffectiveType(b, Square{5, 6}, Black); !ok || eff != HI {
		t.Fatalf("rook with nothing behind: got %v ok=%v", eff, ok)
	}
	if _, ok := EffectiveType(b, Square{1, 1}, Black); ok {
		t.Fatalf("empty square must not classify")
	}
	if _, ok := EffectiveType(b, Square{5, 5}, White); ok {
		t.Fatalf("opponent piece must not classify")
	}
}

func TestOpeningPawnBackedByBishopMovesDiagonally(t *testing.T) {
	g := NewGame()
	legal := g.LegalMoves()
	if hasMove(legal, "8g8f") {
		t.Fatalf("8g pawn moves as a bishop and cannot step straight")
	}
	if !hasMove(legal, "8g7f") {
		t.Fatalf("expected 8g7f among legal moves")
	}
	if !hasMove(legal, "7g7f") {
		t.Fatalf("expected 7g7f among legal moves")
	}
	if _, err := g.Apply("8g8f"); !errors.Is(err, ErrIllegal) {
		t.Fatalf("8g8f: want ErrIllegal, got %v", err)
	}
	if g.Ply() != 0 {
		t.Fatalf("failed apply must not record a move")
	}
}

func TestParseUSI(t *testing.T) {
	for _, tok := range []string{"7g7f", "8h2b+", "P*5e"} {
		m, err := ParseUSI(tok)
		if err != nil {
			t.Fatalf("ParseUSI(%q): %v", tok, err)
		}
		if m.USI() != tok {
			t.Fatalf("ParseUSI(%q).USI() = %q", tok, m.USI())
		}
	}
	for _, tok := range []string{"", "zz", "0a1b", "7g7g", "K*5e", "7g7f=", "P*5j"} {
		if _, err := ParseUSI(tok); !errors.Is(err, ErrParse) {
			t.Fatalf("ParseUSI(%q): want ErrParse, got %v", tok, err)
		}
	}
}

func TestApplyUndoRoundTrip(t *testing.T) {
	g := NewGame()
	before := g.Position()
	if _, err := g.Apply("7g7f"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(g.Moves()) != len(g.Snapshots()) || g.Ply() != 1 {
		t.Fatalf("history lengths diverged")
	}
	if g.Snapshots()[0] != before {
		t.Fatalf("snapshot must hold the pre-move position")
	}
	if g.Turn() != White {
		t.Fatalf("turn should pass to white")
	}
	m, err := g.Undo()
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if m.USI() != "7g7f" {
		t.Fatalf("undo returned %s", m.USI())
	}
	if g.Position() != before || g.Result() != ResultOngoing || g.Ply() != 0 {
		t.Fatalf("undo did not restore the prior state")
	}
	if _, err := g.Undo(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("undo on empty history: want ErrNoHistory, got %v", err)
	}
}

func TestNifuRejected(t *testing.T) {
	p := emptyPosition(Black)
	p.Board.Set(Square{5, 1}, Piece{OU, White})
	p.Board.Set(Square{5, 7}, Piece{FU, Black})
	p.Hands[Black][FU] = 1
	legal := p.LegalMoves()
	if hasMove(legal, "P*5e") {
		t.Fatalf("second pawn on file 5 must be rejected")
	}
	if !hasMove(legal, "P*4e") {
		t.Fatalf("pawn drop on a free file should be legal")
	}
	if hasMove(legal, "P*4a") {
		t.Fatalf("pawn drop on the last rank must be rejected")
	}
}

func TestPawnDropMateRejected(t *testing.T) {
	p := emptyPosition(Black)
	p.Board.Set(Square{1, 1}, Piece{OU, White})
	p.Board.Set(Square{3, 2}, Piece{KI, Black})
	p.Board.Set(Square{2, 3}, Piece{GI, Black})
	p.Hands[Black][FU] = 1
	p.Hands[Black][KI] = 1

	g := NewGameFromPosition(p)
	legal := g.LegalMoves()
	if hasMove(legal, "P*1b") {
		t.Fatalf("pawn drop mate must be rejected")
	}
	if !hasMove(legal, "G*1b") {
		t.Fatalf("gold drop mate should be legal")
	}
	if _, err := g.Apply("G*1b"); err != nil {
		t.Fatalf("apply G*1b: %v", err)
	}
	if g.Result() != ResultBlackWin {
		t.Fatalf("result = %s, want %s", g.Result(), ResultBlackWin)
	}
	if !g.InCheck() {
		t.Fatalf("mated side should be in check")
	}
	if len(g.LegalMoves()) != 0 {
		t.Fatalf("finished game has no legal moves")
	}
	if _, err := g.Apply("9i9h"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("apply after mate: want ErrGameOver, got %v", err)
	}
}

func TestOnlyPawnDropMateLeft(t *testing.T) {
	var p Position
	p.Turn = Black
	for i := range p.Board {
		p.Board[i] = Piece{KI, White}
	}
	p.Board.Set(Square{1, 1}, Piece{})
	for rank := 2; rank <= 7; rank++ {
		p.Board.Set(Square{1, rank}, Piece{KE, White})
	}
	p.Board.Set(Square{1, 8}, Piece{})
	p.Board.Set(Square{1, 9}, Piece{OU, Black})
	p.Board.Set(Square{2, 1}, Piece{FU, Black})
	p.Board.Set(Square{2, 7}, Piece{OU, White})
	p.Board.Set(Square{2, 8}, Piece{})
	p.Board.Set(Square{2, 9}, Piece{KY, White})
	p.Hands[Black][FU] = 1

	// The pawn on 1h borrows king movement from 1i and mates the king on 2g.
	mated := p.Play(Move{To: Square{1, 8}, Drop: FU})
	if !mated.InCheck() || len(mated.LegalMoves()) != 0 {
		t.Fatalf("P*1h should mate")
	}
	if p.InCheck() {
		t.Fatalf("black should not start in check")
	}
	if legal := p.LegalMoves(); len(legal) != 0 {
		t.Fatalf("expected no legal moves, got %v", legal)
	}

	g := NewGameFromPosition(p)
	if g.Result() != ResultWhiteWin {
		t.Fatalf("result = %s, want %s", g.Result(), ResultWhiteWin)
	}
}

func TestForcedPromotionOnLastRank(t *testing.T) {
	p := emptyPosition(Black)
	p.Board.Set(Square{9, 1}, Piece{OU, White})
	p.Board.Set(Square{3, 2}, Piece{FU, Black})
	legal := p.LegalMoves()
	if !hasMove(legal, "3b3a+") {
		t.Fatalf("expected promoting pawn move")
	}
	if hasMove(legal, "3b3a") {
		t.Fatalf("pawn may not stay unpromoted on the last rank")
	}
}

func TestCaptureGoesToHandUnpromoted(t *testing.T) {
	p := emptyPosition(Black)
	p.Board.Set(Square{9, 1}, Piece{OU, White})
	p.Board.Set(Square{5, 5}, Piece{HI, Black})
	p.Board.Set(Square{5, 3}, Piece{TO, White})
	g := NewGameFromPosition(p)
	if _, err := g.Apply("5e5c+"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := g.Hand(Black).Count(FU); got != 1 {
		t.Fatalf("black hand FU = %d, want 1", got)
	}
	b := g.Board()
	if pc := b.At(Square{5, 3}); pc.Type != RY || pc.Color != Black {
		t.Fatalf("expected promoted rook on 5c, got %+v", pc)
	}
}

func TestFourfoldRepetitionIsDraw(t *testing.T) {
	g := NewGame()
	cycle := []string{"5i5h", "5a5b", "5h5i", "5b5a"}
	for i := 0; i < 3; i++ {
		for j, tok := range cycle {
			if g.Result() != ResultOngoing {
				t.Fatalf("game ended early at cycle %d move %d: %s", i, j, g.Result())
			}
			if _, err := g.Apply(tok); err != nil {
				t.Fatalf("apply %s: %v", tok, err)
			}
		}
	}
	if g.Result() != ResultDrawRepetition {
		t.Fatalf("result = %s, want %s", g.Result(), ResultDrawRepetition)
	}
}

func TestPerpetualCheckLoses(t *testing.T) {
	p := emptyPosition(Black)
	p.Board.Set(Square{2, 5}, Piece{HI, Black})
	p.Board.Set(Square{1, 1}, Piece{OU, White})
	g := NewGameFromPosition(p)
	cycle := []string{"2e1e", "1a2a", "1e2e", "2a1a"}
	for i := 0; i < 3; i++ {
		for j, tok := range cycle {
			if g.Result() != ResultOngoing {
				t.Fatalf("game ended early at cycle %d move %d: %s", i, j, g.Result())
			}
			if _, err := g.Apply(tok); err != nil {
				t.Fatalf("apply %s: %v", tok, err)
			}
		}
	}
	if g.Ply() != 12 {
		t.Fatalf("ply = %d, want 12", g.Ply())
	}
	if g.Result() != ResultWhiteWin {
		t.Fatalf("result = %s, want %s", g.Result(), ResultWhiteWin)
	}
}

func TestResign(t *testing.T) {
	g := NewGame()
	if !g.Resign() {
		t.Fatalf("resign on an ongoing game should succeed")
	}
	if g.Result() != ResultBlackResign {
		t.Fatalf("result = %s", g.Result())
	}
	if w, ok := g.Result().Winner(); !ok || w != White {
		t.Fatalf("winner should be white")
	}
	if g.Resign() {
		t.Fatalf("second resign must be a no-op")
	}
	if _, err := g.Apply("7g7f"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("apply after resign: want ErrGameOver, got %v", err)
	}
}
