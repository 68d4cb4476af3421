package shogi

// LegalMoves lists every legal move for the side to move, board moves first.
func (p Position) LegalMoves() []Move {
	var out []Move
	for _, m := range p.pseudoMoves() {
		next := p.Play(m)
		if next.kingAttacked(p.Turn) {
			continue
		}
		if m.Drop == FU && next.InCheck() && !next.hasLegalMove() {
			continue // uchifuzume
		}
		out = append(out, m)
	}
	return out
}

// anyLegalMove agrees with len(LegalMoves()) > 0. Checking pawn drops are
// deferred since only they need the uchifuzume search.
func (p Position) anyLegalMove() bool {
	var pawnChecks []Position
	for _, m := range p.pseudoMoves() {
		next := p.Play(m)
		if next.kingAttacked(p.Turn) {
			continue
		}
		if m.Drop == FU && next.InCheck() {
			pawnChecks = append(pawnChecks, next)
			continue
		}
		return true
	}
	for _, next := range pawnChecks {
		if next.hasLegalMove() {
			return true
		}
	}
	return false
}

// hasLegalMove ignores the pawn-drop-mate restriction. It is only asked about
// the side answering a pawn check, which no pawn drop can answer.
func (p Position) hasLegalMove() bool {
	for _, m := range p.pseudoMoves() {
		if !p.Play(m).kingAttacked(p.Turn) {
			return true
		}
	}
	return false
}

func (p Position) pseudoMoves() []Move {
	c := p.Turn
	moves := make([]Move, 0, 128)
	var buf [32]Square
	for i, pc := range p.Board {
		if pc.Empty() || pc.Color != c {
			continue
		}
		from := squareAt(i)
		eff, ok := EffectiveType(p.Board, from, c)
		if !ok {
			continue
		}
		for _, to := range p.Board.destinations(from, eff, c, buf[:0]) {
			canPromote := pc.Type.CanPromote() && (relativeRank(from, c) <= 3 || relativeRank(to, c) <= 3)
			if canPromote {
				moves = append(moves, Move{From: from, To: to, Promote: true})
			}
			if !deadEnd(pc.Type, to, c) {
				moves = append(moves, Move{From: from, To: to})
			}
		}
	}
	for _, t := range HandTypes {
		if p.Hands[c][t] == 0 {
			continue
		}
		for i, pc := range p.Board {
			if !pc.Empty() {
				continue
			}
			to := squareAt(i)
			if deadEnd(t, to, c) || (t == FU && p.hasPawnOnFile(to.File, c)) {
				continue
			}
			moves = append(moves, Move{To: to, Drop: t})
		}
	}
	return moves
}

// deadEnd reports whether an unpromoted t on sq could never move again.
func deadEnd(t PieceType, sq Square, c Color) bool {
	switch t {
	case FU, KY:
		return relativeRank(sq, c) == 1
	case KE:
		return relativeRank(sq, c) <= 2
	default:
		return false
	}
}

func (p Position) hasPawnOnFile(file int, c Color) bool {
	for rank := 1; rank <= 9; rank++ {
		pc := p.Board.At(Square{file, rank})
		if pc.Type == FU && pc.Color == c {
			return true
		}
	}
	return false
}
