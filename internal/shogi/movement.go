package shogi

// vec is a step in Black's frame; dr < 0 points toward rank 1.
type vec struct{ df, dr int }

type movement struct {
	steps  []vec
	slides []vec
}

var (
	goldSteps   = []vec{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}}
	silverSteps = []vec{{-1, -1}, {0, -1}, {1, -1}, {-1, 1}, {1, 1}}
	kingSteps   = []vec{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
	diagonals   = []vec{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	orthogonals = []vec{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
)

var movements = map[PieceType]movement{
	FU: {steps: []vec{{0, -1}}},
	KY: {slides: []vec{{0, -1}}},
	KE: {steps: []vec{{-1, -2}, {1, -2}}},
	GI: {steps: silverSteps},
	KI: {steps: goldSteps},
	KA: {slides: diagonals},
	HI: {slides: orthogonals},
	OU: {steps: kingSteps},
	TO: {steps: goldSteps},
	NY: {steps: goldSteps},
	NK: {steps: goldSteps},
	NG: {steps: goldSteps},
	UM: {steps: orthogonals, slides: diagonals},
	RY: {steps: diagonals, slides: orthogonals},
}

func backward(c Color) int {
	if c == Black {
		return 1
	}
	return -1
}

// EffectiveType reports the kind the occupant of sq moves as: a non-king piece
// with a friendly piece directly behind it borrows that piece's movement.
// ok is false when sq is off the board, empty, or not owned by c.
func EffectiveType(b Board, sq Square, c Color) (PieceType, bool) {
	pc := b.At(sq)
	if pc.Empty() || pc.Color != c {
		return NoPiece, false
	}
	if pc.Type == OU {
		return OU, true
	}
	behind := b.At(Square{sq.File, sq.Rank + backward(c)})
	if !behind.Empty() && behind.Color == c {
		return behind.Type, true
	}
	return pc.Type, true
}

// destinations appends every square a c-owned piece moving as t from `from` can reach.
func (b *Board) destinations(from Square, t PieceType, c Color, dst []Square) []Square {
	m := movements[t]
	dir := 1
	if c == White {
		dir = -1
	}
	for _, v := range m.steps {
		to := Square{from.File + v.df, from.Rank + v.dr*dir}
		if !to.Valid() {
			continue
		}
		if q := b.At(to); !q.Empty() && q.Color == c {
			continue
		}
		dst = append(dst, to)
	}
	for _, v := range m.slides {
		to := from
		for {
			to = Square{to.File + v.df, to.Rank + v.dr*dir}
			if !to.Valid() {
				break
			}
			q := b.At(to)
			if !q.Empty() {
				if q.Color != c {
					dst = append(dst, to)
				}
				break
			}
			dst = append(dst, to)
		}
	}
	return dst
}

// attacked reports whether any piece of `by` can move onto sq.
func (b *Board) attacked(sq Square, by Color) bool {
	var buf [32]Square
	for i, pc := range b {
		if pc.Empty() || pc.Color != by {
			continue
		}
		from := squareAt(i)
		eff, ok := EffectiveType(*b, from, by)
		if !ok {
			continue
		}
		for _, to := range b.destinations(from, eff, by, buf[:0]) {
			if to == sq {
				return true
			}
		}
	}
	return false
}
