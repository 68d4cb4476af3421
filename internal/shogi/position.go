package shogi

import (
	"strconv"
	"strings"
)

// Square uses the conventional numbering: File 1..9 from Black's right,
// Rank 1..9 from White's back rank.
type Square struct {
	File int
	Rank int
}

func (s Square) Valid() bool {
	return s.File >= 1 && s.File <= 9 && s.Rank >= 1 && s.Rank <= 9
}

// index orders squares rank-major with files descending, matching the display grid.
func (s Square) index() int { return (s.Rank-1)*9 + (9 - s.File) }

func (s Square) String() string {
	if !s.Valid() {
		return "--"
	}
	return strconv.Itoa(s.File) + string(rune('a'+s.Rank-1))
}

// relativeRank counts ranks from the far side as seen by c (1 = last rank).
func relativeRank(sq Square, c Color) int {
	if c == Black {
		return sq.Rank
	}
	return 10 - sq.Rank
}

type Board [81]Piece

func (b *Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq.index()]
}

func (b *Board) Set(sq Square, p Piece) {
	if sq.Valid() {
		b[sq.index()] = p
	}
}

// Position is a comparable value; two positions are the same for repetition purposes iff ==.
type Position struct {
	Board Board
	Hands [2]Hand
	Turn  Color
}

var backRank = [...]PieceType{KY, KE, GI, KI, OU, KI, GI, KE, KY}

// NewPosition returns the even-game starting position.
func NewPosition() Position {
	var p Position
	for i, t := range backRank {
		file := 9 - i
		p.Board.Set(Square{file, 1}, Piece{t, White})
		p.Board.Set(Square{file, 9}, Piece{t, Black})
		p.Board.Set(Square{file, 3}, Piece{FU, White})
		p.Board.Set(Square{file, 7}, Piece{FU, Black})
	}
	p.Board.Set(Square{8, 2}, Piece{HI, White})
	p.Board.Set(Square{2, 2}, Piece{KA, White})
	p.Board.Set(Square{8, 8}, Piece{KA, Black})
	p.Board.Set(Square{2, 8}, Piece{HI, Black})
	p.Turn = Black
	return p
}

// Play returns the position after m without checking legality.
func (p Position) Play(m Move) Position {
	next := p
	c := p.Turn
	if m.IsDrop() {
		next.Hands[c][m.Drop]--
		next.Board.Set(m.To, Piece{m.Drop, c})
	} else {
		pc := next.Board.At(m.From)
		if captured := next.Board.At(m.To); !captured.Empty() {
			next.Hands[c][captured.Type.Unpromoted()]++
		}
		if m.Promote {
			pc.Type = pc.Type.Promoted()
		}
		next.Board.Set(m.From, Piece{})
		next.Board.Set(m.To, pc)
	}
	next.Turn = c.Opponent()
	return next
}

// InCheck reports whether the side to move has its king attacked.
func (p Position) InCheck() bool { return p.kingAttacked(p.Turn) }

func (p Position) kingAttacked(c Color) bool {
	king, ok := p.kingSquare(c)
	if !ok {
		return false
	}
	return p.Board.attacked(king, c.Opponent())
}

func (p Position) kingSquare(c Color) (Square, bool) {
	for i, pc := range p.Board {
		if pc.Type == OU && pc.Color == c {
			return squareAt(i), true
		}
	}
	return Square{}, false
}

func squareAt(i int) Square { return Square{File: 9 - i%9, Rank: i/9 + 1} }

var sfenLetters = map[PieceType]byte{FU: 'P', KY: 'L', KE: 'N', GI: 'S', KI: 'G', KA: 'B', HI: 'R', OU: 'K'}

// SFEN renders the position with the given move number.
func (p Position) SFEN(moveNumber int) string {
	var sb strings.Builder
	for rank := 1; rank <= 9; rank++ {
		empty := 0
		for file := 9; file >= 1; file-- {
			pc := p.Board.At(Square{file, rank})
			if pc.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			if pc.Type.IsPromoted() {
				sb.WriteByte('+')
			}
			letter := sfenLetters[pc.Type.Unpromoted()]
			if pc.Color == White {
				letter += 'a' - 'A'
			}
			sb.WriteByte(letter)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank < 9 {
			sb.WriteByte('/')
		}
	}
	if p.Turn == Black {
		sb.WriteString(" b ")
	} else {
		sb.WriteString(" w ")
	}
	hands := 0
	for _, c := range []Color{Black, White} {
		for _, t := range HandTypes {
			n := p.Hands[c][t]
			if n == 0 {
				continue
			}
			if n > 1 {
				sb.WriteString(strconv.Itoa(n))
			}
			letter := sfenLetters[t]
			if c == White {
				letter += 'a' - 'A'
			}
			sb.WriteByte(letter)
			hands++
		}
	}
	if hands == 0 {
		sb.WriteByte('-')
	}
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(moveNumber))
	return sb.String()
}
