package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/agent"
	"github.com/park285/annan-shogi-server/internal/archive"
	"github.com/park285/annan-shogi-server/internal/domain"
	"github.com/park285/annan-shogi-server/internal/projection"
	"github.com/park285/annan-shogi-server/internal/shogi"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

var (
	ErrParseFailure     = errors.New("move token could not be parsed")
	ErrIllegalMove      = errors.New("move is not legal")
	ErrEmptyHistory     = errors.New("no moves to undo")
	ErrGameAlreadyOver  = errors.New("game already over")
	ErrAgentUnavailable = errors.New("ai agent unavailable")
	ErrAgentFailed      = errors.New("ai agent failed")
)

// Agent chooses a move for the side to move. A nil Selection.Move means
// the agent has nothing to play.
type Agent interface {
	SelectMove(ctx context.Context, game *shogi.Game, temperature float64) (agent.Selection, error)
}

// Publisher receives every snapshot produced by a mutation.
type Publisher interface {
	Publish(snap *annandto.Snapshot)
}

// GameSource creates the game a session starts from.
type GameSource func() *shogi.Game

type Config struct {
	ResetClearsAI bool
}

// Service owns the single live game. Every operation runs under one mutex
// and returns a fresh snapshot.
type Service struct {
	newGame   GameSource
	agent     Agent
	store     Store
	archive   archive.Repository
	publisher Publisher
	cfg       Config
	logger    *zap.Logger

	mu        sync.Mutex
	game      *shogi.Game
	id        string
	aiSide    *shogi.Color
	startedAt time.Time
	agentTime time.Duration
	archived  bool
}

// NewService builds a session around a fresh game. agent, store, repo and
// publisher are optional.
func NewService(source GameSource, ag Agent, store Store, repo archive.Repository, publisher Publisher, cfg Config, logger *zap.Logger) (*Service, error) {
	if source == nil {
		source = shogi.NewGame
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	game := source()
	if game == nil {
		return nil, fmt.Errorf("game source returned nil game")
	}
	return &Service{
		newGame:   source,
		agent:     ag,
		store:     store,
		archive:   repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		game:      game,
		id:        uuid.NewString(),
		startedAt: time.Now(),
	}, nil
}

func (s *Service) State(ctx context.Context) (*annandto.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// SessionUUID identifies the current game; reset assigns a new one.
func (s *Service) SessionUUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// StateWithLastMove returns the snapshot together with the USI token of the
// most recent move ("" when there is none), read under one lock.
func (s *Service) StateWithLastMove(ctx context.Context) (*annandto.Snapshot, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.snapshot()
	if err != nil {
		return nil, "", err
	}
	last := ""
	if moves := s.game.Moves(); len(moves) > 0 {
		last = moves[len(moves)-1].USI()
	}
	return snap, last, nil
}

func (s *Service) Apply(ctx context.Context, token string) (*annandto.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token = strings.TrimSpace(token)
	if _, err := s.game.Apply(token); err != nil {
		return nil, mapRulesError(err)
	}
	s.logger.Info("move_applied",
		zap.String("session_uuid", s.id),
		zap.String("move", token),
		zap.Int("ply", s.game.Ply()),
		zap.String("result", string(s.game.Result())),
	)
	return s.commit(ctx)
}

func (s *Service) Undo(ctx context.Context) (*annandto.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.game.Undo()
	if err != nil {
		return nil, mapRulesError(err)
	}
	s.logger.Info("move_undone", zap.String("session_uuid", s.id), zap.String("move", m.USI()), zap.Int("ply", s.game.Ply()))
	return s.commit(ctx)
}

// Resign ends the game for the side to move. It is a no-op on a finished game.
func (s *Service) Resign(ctx context.Context) (*annandto.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.Resign() {
		return s.snapshot()
	}
	s.logger.Info("game_resigned", zap.String("session_uuid", s.id), zap.String("result", string(s.game.Result())))
	return s.commit(ctx)
}

func (s *Service) Reset(ctx context.Context) (*annandto.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.game = s.newGame()
	s.id = uuid.NewString()
	s.startedAt = time.Now()
	s.agentTime = 0
	s.archived = false
	if s.cfg.ResetClearsAI {
		s.aiSide = nil
	}
	s.logger.Info("session_reset", zap.String("session_uuid", s.id))
	return s.commit(ctx)
}

// Configure assigns the AI to "black" or "white"; any other mode clears it.
func (s *Service) Configure(ctx context.Context, mode string) (*annandto.Snapshot, *shogi.Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.aiSide = nil
	if c, ok := shogi.ParseColor(mode); ok {
		s.aiSide = &c
	}
	s.logger.Info("ai_configured", zap.String("session_uuid", s.id), zap.String("mode", mode), zap.Bool("enabled", s.aiSide != nil))
	snap, err := s.commit(ctx)
	if err != nil {
		return nil, nil, err
	}
	return snap, copyColor(s.aiSide), nil
}

// AIMove asks the agent for a move at temperature 0 and plays it.
func (s *Service) AIMove(ctx context.Context) (*annandto.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent == nil {
		return nil, ErrAgentUnavailable
	}
	if s.game.Result().Terminal() {
		return nil, ErrGameAlreadyOver
	}

	sel, err := s.agent.SelectMove(ctx, s.game.Clone(), 0)
	if err != nil {
		s.logger.Warn("ai_move_failed", zap.String("session_uuid", s.id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	s.agentTime += sel.Elapsed
	if sel.Move == nil {
		s.logger.Info("ai_move_declined", zap.String("session_uuid", s.id), zap.Duration("elapsed", sel.Elapsed))
		return s.snapshot()
	}
	if err := s.game.ApplyMove(*sel.Move); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	fields := []zap.Field{
		zap.String("session_uuid", s.id),
		zap.String("move", sel.Move.USI()),
		zap.Duration("elapsed", sel.Elapsed),
		zap.Int("candidates", len(sel.Candidates)),
	}
	if len(sel.Candidates) > 0 {
		fields = append(fields, zap.Int("score_cp", sel.Candidates[0].ScoreCP))
	}
	s.logger.Info("ai_move_applied", fields...)
	return s.commit(ctx)
}

// commit: 저장 + 종국 아카이브 + 피드 발행. 부수효과 실패는 로그만 남기고
// 메모리 상태를 기준으로 유지.
func (s *Service) commit(ctx context.Context) (*annandto.Snapshot, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	// 에이전트 탐색으로 호출자 데드라인이 이미 소진됐을 수 있음
	bg := context.WithoutCancel(ctx)
	s.save(bg)
	s.archiveIfFinished(bg, snap.KIF)
	if s.publisher != nil {
		s.publisher.Publish(snap)
	}
	return snap, nil
}

func (s *Service) snapshot() (*annandto.Snapshot, error) {
	snap, err := projection.Build(s.game, projection.AIStatus{Enabled: s.agent != nil, Side: s.aiSide})
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	snap.SessionUUID = s.id
	return snap, nil
}

func (s *Service) save(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.payload()); err != nil {
		s.logger.Warn("session_save_failed", zap.String("session_uuid", s.id), zap.Error(err))
	}
}

func (s *Service) archiveIfFinished(ctx context.Context, kif string) {
	result := s.game.Result()
	if s.archive == nil || s.archived || !result.Terminal() {
		return
	}
	now := time.Now()
	rec := &domain.AnnanGame{
		SessionUUID: s.id,
		Result:      string(result),
		MovesUSI:    s.game.USIMoves(),
		KIF:         kif,
		Ply:         s.game.Ply(),
		StartedAt:   s.startedAt,
		EndedAt:     now,
		Duration:    now.Sub(s.startedAt),
		AgentTime:   s.agentTime,
	}
	if w, ok := result.Winner(); ok {
		rec.Winner = w.String()
	}
	if s.aiSide != nil {
		rec.AISide = s.aiSide.String()
	}
	id, err := s.archive.InsertGame(ctx, rec)
	switch {
	case errors.Is(err, archive.ErrDuplicateGame):
		s.logger.Debug("game_already_archived", zap.String("session_uuid", s.id))
	case err != nil:
		s.logger.Warn("game_archive_failed", zap.String("session_uuid", s.id), zap.Error(err))
		return
	default:
		s.logger.Info("game_archived", zap.String("session_uuid", s.id), zap.Int64("game_id", id), zap.String("result", rec.Result))
	}
	s.archived = true
}

func mapRulesError(err error) error {
	switch {
	case errors.Is(err, shogi.ErrParse):
		return fmt.Errorf("%w: %w", ErrParseFailure, err)
	case errors.Is(err, shogi.ErrIllegal):
		return fmt.Errorf("%w: %w", ErrIllegalMove, err)
	case errors.Is(err, shogi.ErrNoHistory):
		return fmt.Errorf("%w: %w", ErrEmptyHistory, err)
	case errors.Is(err, shogi.ErrGameOver):
		return fmt.Errorf("%w: %w", ErrGameAlreadyOver, err)
	default:
		return err
	}
}

func copyColor(c *shogi.Color) *shogi.Color {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
