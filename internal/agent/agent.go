package agent

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

// Candidate is one scored option, best first in a Selection.
type Candidate struct {
	Move      string
	ScoreCP   int
	Principal []string
}

// Selection is an agent's answer. Move is nil when the agent declines to move.
type Selection struct {
	Move       *shogi.Move
	Candidates []Candidate
	Elapsed    time.Duration
}

// Sampler picks among candidates; temperature is measured in pawns (100 cp).
type Sampler struct {
	mu  sync.Mutex
	src rand.Source
}

func NewSampler(seed uint64) *Sampler {
	return &Sampler{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Pick returns an index into cands. At temperature <= 0 it is the first
// highest-scoring candidate; above zero it samples a softmax of the scores.
func (s *Sampler) Pick(cands []Candidate, temperature float64) int {
	if len(cands) == 0 {
		return -1
	}
	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = float64(c.ScoreCP) / 100
	}
	if temperature <= 0 || len(cands) == 1 {
		return floats.MaxIdx(scores)
	}
	floats.Scale(1/temperature, scores)
	floats.AddConst(-floats.Max(scores), scores)
	for i, v := range scores {
		scores[i] = math.Exp(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return int(distuv.NewCategorical(scores, s.src).Rand())
}
