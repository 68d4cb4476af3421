package agent

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

const mateScoreCP = 30000

var pieceValues = map[shogi.PieceType]int{
	shogi.FU: 100,
	shogi.KY: 300,
	shogi.KE: 400,
	shogi.GI: 500,
	shogi.KI: 600,
	shogi.KA: 800,
	shogi.HI: 1000,
	shogi.TO: 600,
	shogi.NY: 600,
	shogi.NK: 600,
	shogi.NG: 600,
	shogi.UM: 1200,
	shogi.RY: 1400,
}

// Greedy is the built-in opponent: a two-ply material search over the
// legal moves, with the opponent's best material reply assumed.
type Greedy struct {
	sampler *Sampler
}

func NewGreedy(seed uint64) *Greedy {
	return &Greedy{sampler: NewSampler(seed)}
}

func (g *Greedy) SelectMove(ctx context.Context, game *shogi.Game, temperature float64) (Selection, error) {
	start := time.Now()
	pos := game.Position()
	mover := pos.Turn

	type scored struct {
		move shogi.Move
		cand Candidate
	}
	var list []scored
	for _, m := range game.LegalMoves() {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		next := pos.Play(m)
		replies := next.LegalMoves()
		cand := Candidate{Move: m.USI()}
		if len(replies) == 0 {
			cand.ScoreCP = mateScoreCP
		} else {
			worst := math.MaxInt
			var refutation shogi.Move
			for _, r := range replies {
				if v := material(next.Play(r), mover); v < worst {
					worst, refutation = v, r
				}
			}
			cand.ScoreCP = worst
			cand.Principal = []string{m.USI(), refutation.USI()}
		}
		list = append(list, scored{move: m, cand: cand})
	}
	if len(list) == 0 {
		return Selection{Elapsed: time.Since(start)}, nil
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].cand.ScoreCP > list[j].cand.ScoreCP })
	cands := make([]Candidate, len(list))
	for i, s := range list {
		cands[i] = s.cand
	}
	chosen := list[g.sampler.Pick(cands, temperature)].move
	return Selection{Move: &chosen, Candidates: cands, Elapsed: time.Since(start)}, nil
}

// material scores pos from c's point of view in centipawns.
func material(pos shogi.Position, c shogi.Color) int {
	score := 0
	for _, pc := range pos.Board {
		if pc.Empty() {
			continue
		}
		if pc.Color == c {
			score += pieceValues[pc.Type]
		} else {
			score -= pieceValues[pc.Type]
		}
	}
	for _, t := range shogi.HandTypes {
		score += pos.Hands[c].Count(t) * pieceValues[t]
		score -= pos.Hands[c.Opponent()].Count(t) * pieceValues[t]
	}
	return score
}
