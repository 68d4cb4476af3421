package shogi

import (
	"fmt"
	"strings"
)

type Color uint8

const (
	Black Color = iota
	White
)

func (c Color) Opponent() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "WHITE"
	}
	return "BLACK"
}

// ParseColor accepts "black"/"white" in any case.
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black":
		return Black, true
	case "white":
		return White, true
	default:
		return Black, false
	}
}

type PieceType uint8

const (
	NoPiece PieceType = iota
	FU
	KY
	KE
	GI
	KI
	KA
	HI
	OU
	TO
	NY
	NK
	NG
	UM
	RY
)

var pieceCodes = [...]string{"", "FU", "KY", "KE", "GI", "KI", "KA", "HI", "OU", "TO", "NY", "NK", "NG", "UM", "RY"}

func (t PieceType) String() string {
	if int(t) < len(pieceCodes) {
		return pieceCodes[t]
	}
	return fmt.Sprintf("PieceType(%d)", uint8(t))
}

// ParsePieceType maps a CSA code such as "FU" back to its type.
func ParsePieceType(code string) (PieceType, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i := 1; i < len(pieceCodes); i++ {
		if pieceCodes[i] == code {
			return PieceType(i), true
		}
	}
	return NoPiece, false
}

// HandTypes lists the kinds that can be held, in conventional order.
var HandTypes = [...]PieceType{HI, KA, KI, GI, KE, KY, FU}

var promotions = map[PieceType]PieceType{FU: TO, KY: NY, KE: NK, GI: NG, KA: UM, HI: RY}

func (t PieceType) CanPromote() bool {
	_, ok := promotions[t]
	return ok
}

func (t PieceType) Promoted() PieceType {
	if p, ok := promotions[t]; ok {
		return p
	}
	return t
}

func (t PieceType) IsPromoted() bool { return t >= TO }

// Unpromoted returns the base kind a captured piece reverts to.
func (t PieceType) Unpromoted() PieceType {
	for base, promoted := range promotions {
		if promoted == t {
			return base
		}
	}
	return t
}

type Piece struct {
	Type  PieceType
	Color Color
}

func (p Piece) Empty() bool { return p.Type == NoPiece }

// Hand counts held pieces indexed by unpromoted type.
type Hand [HI + 1]int

func (h Hand) Count(t PieceType) int {
	if t == NoPiece || t > HI {
		return 0
	}
	return h[t]
}

func (h Hand) Total() int {
	n := 0
	for _, t := range HandTypes {
		n += h[t]
	}
	return n
}
