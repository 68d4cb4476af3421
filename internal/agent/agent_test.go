package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

func TestPickZeroTemperatureIsArgmax(t *testing.T) {
	s := NewSampler(1)
	cands := []Candidate{{Move: "a", ScoreCP: 10}, {Move: "b", ScoreCP: 90}, {Move: "c", ScoreCP: 90}}
	assert.Equal(t, 1, s.Pick(cands, 0))
	assert.Equal(t, -1, s.Pick(nil, 0))
	assert.Equal(t, 0, s.Pick(cands[:1], 5))
}

func TestPickSamplesWithinRange(t *testing.T) {
	s := NewSampler(7)
	cands := []Candidate{{ScoreCP: 0}, {ScoreCP: 50}, {ScoreCP: 100}}
	seen := map[int]bool{}
	for i := 0; i < 300; i++ {
		idx := s.Pick(cands, 10)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(cands))
		seen[idx] = true
	}
	assert.Len(t, seen, 3, "a hot temperature should reach every candidate")

	// A tiny temperature against a large gap always lands on the best one.
	for i := 0; i < 50; i++ {
		assert.Equal(t, 2, s.Pick([]Candidate{{ScoreCP: 0}, {ScoreCP: 0}, {ScoreCP: 5000}}, 0.01))
	}
}

func TestGreedyTakesFreeMaterial(t *testing.T) {
	var p shogi.Position
	p.Board.Set(shogi.Square{File: 9, Rank: 9}, shogi.Piece{Type: shogi.OU, Color: shogi.Black})
	p.Board.Set(shogi.Square{File: 1, Rank: 1}, shogi.Piece{Type: shogi.OU, Color: shogi.White})
	p.Board.Set(shogi.Square{File: 5, Rank: 5}, shogi.Piece{Type: shogi.HI, Color: shogi.Black})
	p.Board.Set(shogi.Square{File: 5, Rank: 2}, shogi.Piece{Type: shogi.KI, Color: shogi.White})
	g := shogi.NewGameFromPosition(p)

	sel, err := NewGreedy(3).SelectMove(context.Background(), g, 0)
	require.NoError(t, err)
	require.NotNil(t, sel.Move)
	assert.Equal(t, "5e5b+", sel.Move.USI())
	require.NotEmpty(t, sel.Candidates)
	assert.Equal(t, "5e5b+", sel.Candidates[0].Move)
	for i := 1; i < len(sel.Candidates); i++ {
		assert.GreaterOrEqual(t, sel.Candidates[i-1].ScoreCP, sel.Candidates[i].ScoreCP)
	}
}

func TestGreedyFinishedGameHasNoMove(t *testing.T) {
	g := shogi.NewGame()
	g.Resign()
	sel, err := NewGreedy(1).SelectMove(context.Background(), g, 0)
	require.NoError(t, err)
	assert.Nil(t, sel.Move)
}

func TestGreedyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGreedy(1).SelectMove(ctx, shogi.NewGame(), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
