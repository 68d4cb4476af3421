package shogi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse     = errors.New("malformed move token")
	ErrIllegal   = errors.New("illegal move")
	ErrNoHistory = errors.New("no moves to undo")
	ErrGameOver  = errors.New("game is already over")
)

// Move is either a drop (Drop != NoPiece, From unset) or a board move.
type Move struct {
	From    Square
	To      Square
	Drop    PieceType
	Promote bool
}

func (m Move) IsDrop() bool { return m.Drop != NoPiece }

// USI renders the move as a USI token: "7g7f", "8h2b+", "P*5e".
func (m Move) USI() string {
	if m.IsDrop() {
		return string(sfenLetters[m.Drop]) + "*" + m.To.String()
	}
	s := m.From.String() + m.To.String()
	if m.Promote {
		s += "+"
	}
	return s
}

func (m Move) String() string { return m.USI() }

// ParseUSI decodes a USI move token. It checks syntax only.
func ParseUSI(token string) (Move, error) {
	s := strings.TrimSpace(token)
	switch {
	case len(s) == 4 && s[1] == '*':
		var drop PieceType
		for t, letter := range sfenLetters {
			if letter == s[0] && t != OU {
				drop = t
			}
		}
		to, ok := parseSquare(s[2:4])
		if drop == NoPiece || !ok {
			return Move{}, fmt.Errorf("%w: %q", ErrParse, token)
		}
		return Move{To: to, Drop: drop}, nil
	case len(s) == 4 || (len(s) == 5 && s[4] == '+'):
		from, okFrom := parseSquare(s[0:2])
		to, okTo := parseSquare(s[2:4])
		if !okFrom || !okTo || from == to {
			return Move{}, fmt.Errorf("%w: %q", ErrParse, token)
		}
		return Move{From: from, To: to, Promote: len(s) == 5}, nil
	default:
		return Move{}, fmt.Errorf("%w: %q", ErrParse, token)
	}
}

func parseSquare(s string) (Square, bool) {
	if len(s) != 2 || s[0] < '1' || s[0] > '9' || s[1] < 'a' || s[1] > 'i' {
		return Square{}, false
	}
	return Square{File: int(s[0] - '0'), Rank: int(s[1]-'a') + 1}, true
}
