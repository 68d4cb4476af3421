package usi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/agent"
	"github.com/park285/annan-shogi-server/internal/shogi"
)

type Config struct {
	BinaryPath string
	Options    map[string]string
	MoveTimeMS int
	MultiPV    int
	Seed       uint64
}

// Agent plays moves chosen by an external USI engine. The engine process is
// started lazily and replaced after any protocol failure.
type Agent struct {
	cfg     Config
	start   func(ctx context.Context) (*Session, error)
	sampler *agent.Sampler
	logger  *zap.Logger

	mu      sync.Mutex
	session *Session
}

func New(cfg Config, logger *zap.Logger) (*Agent, error) {
	if cfg.BinaryPath == "" {
		return nil, errors.New("usi engine path is required")
	}
	if cfg.MultiPV <= 0 {
		cfg.MultiPV = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := make(map[string]string, len(cfg.Options)+1)
	for k, v := range cfg.Options {
		opts[k] = v
	}
	opts["MultiPV"] = strconv.Itoa(cfg.MultiPV)

	a := &Agent{cfg: cfg, sampler: agent.NewSampler(cfg.Seed), logger: logger}
	a.start = func(ctx context.Context) (*Session, error) {
		return NewSession(ctx, cfg.BinaryPath, opts)
	}
	return a, nil
}

func (a *Agent) SelectMove(ctx context.Context, game *shogi.Game, temperature float64) (agent.Selection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	started := time.Now()
	sess, err := a.ensureSession(ctx)
	if err != nil {
		return agent.Selection{}, err
	}
	resp, err := sess.Search(ctx, SearchRequest{
		SFEN:       game.InitialSFEN(),
		Moves:      game.USIMoves(),
		MoveTimeMS: a.cfg.MoveTimeMS,
	})
	if err != nil {
		a.discard()
		return agent.Selection{}, fmt.Errorf("usi search: %w", err)
	}

	sel := agent.Selection{Elapsed: time.Since(started)}
	if resp.BestMove == "" || resp.BestMove == "resign" || resp.BestMove == "win" {
		a.logger.Info("usi_no_move", zap.String("bestmove", resp.BestMove))
		return sel, nil
	}

	legal := make(map[string]shogi.Move)
	for _, m := range game.LegalMoves() {
		legal[m.USI()] = m
	}
	for _, c := range resp.Candidates {
		if _, ok := legal[c.Move]; ok {
			sel.Candidates = append(sel.Candidates, agent.Candidate{Move: c.Move, ScoreCP: c.ScoreCP, Principal: c.Principal})
		}
	}
	if len(sel.Candidates) == 0 {
		sel.Candidates = []agent.Candidate{{Move: resp.BestMove}}
	}

	chosen := sel.Candidates[0].Move
	if temperature > 0 {
		chosen = sel.Candidates[a.sampler.Pick(sel.Candidates, temperature)].Move
	} else if _, ok := legal[resp.BestMove]; ok {
		chosen = resp.BestMove
	}
	m, ok := legal[chosen]
	if !ok {
		return agent.Selection{}, fmt.Errorf("usi engine proposed illegal move %q", chosen)
	}
	sel.Move = &m
	return sel, nil
}

func (a *Agent) ensureSession(ctx context.Context) (*Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	sess, err := a.start(ctx)
	if err != nil {
		return nil, fmt.Errorf("start usi engine: %w", err)
	}
	if err := sess.NewGame(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	a.logger.Info("usi_engine_ready", zap.String("path", a.cfg.BinaryPath))
	a.session = sess
	return sess, nil
}

func (a *Agent) discard() {
	if a.session == nil {
		return
	}
	if err := a.session.Close(); err != nil {
		a.logger.Debug("usi_engine_close", zap.Error(err))
	}
	a.session = nil
}

// Close stops the engine process if one is running.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.discard()
	return nil
}
