package notation

import (
	"strconv"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

const (
	SameSquare  = "同　"
	DropMark    = "打"
	PromoteMark = "成"

	BlackMark = "☗"
	WhiteMark = "☖"
)

var pieceKanji = map[shogi.PieceType]string{
	shogi.FU: "歩",
	shogi.KY: "香",
	shogi.KE: "桂",
	shogi.GI: "銀",
	shogi.KI: "金",
	shogi.KA: "角",
	shogi.HI: "飛",
	shogi.OU: "玉",
	shogi.TO: "と",
	shogi.NY: "杏",
	shogi.NK: "圭",
	shogi.NG: "全",
	shogi.UM: "馬",
	shogi.RY: "龍",
}

var (
	fileGlyphs = [...]string{"", "１", "２", "３", "４", "５", "６", "７", "８", "９"}
	rankGlyphs = [...]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}
)

// PieceKanji returns the display glyph, or "" for NoPiece.
func PieceKanji(t shogi.PieceType) string { return pieceKanji[t] }

func TurnMark(c shogi.Color) string {
	if c == shogi.White {
		return WhiteMark
	}
	return BlackMark
}

// SquareGlyph renders a destination such as "７六".
func SquareGlyph(sq shogi.Square) string {
	if !sq.Valid() {
		return ""
	}
	return fileGlyphs[sq.File] + rankGlyphs[sq.Rank]
}

// rawSquare is the parenthesised source suffix, digits only: "(77)".
func rawSquare(sq shogi.Square) string {
	return "(" + strconv.Itoa(sq.File) + strconv.Itoa(sq.Rank) + ")"
}
