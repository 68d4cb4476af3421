package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/shogi"
)

// Store persists the live session between restarts.
type Store interface {
	Load(ctx context.Context) (*Payload, error)
	Save(ctx context.Context, payload *Payload) error
}

// Payload는 저장되는 세션 형태. 복원 시 수순을 재생해 재구성.
type Payload struct {
	SessionUUID string    `json:"session_uuid"`
	Moves       []string  `json:"moves"`
	ResignedBy  string    `json:"resigned_by,omitempty"`
	AISide      string    `json:"ai_side,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AgentTimeMS int64     `json:"agent_time_ms,omitempty"`
}

func (s *Service) payload() *Payload {
	p := &Payload{
		SessionUUID: s.id,
		Moves:       s.game.USIMoves(),
		StartedAt:   s.startedAt,
		AgentTimeMS: s.agentTime.Milliseconds(),
	}
	switch s.game.Result() {
	case shogi.ResultBlackResign:
		p.ResignedBy = shogi.Black.String()
	case shogi.ResultWhiteResign:
		p.ResignedBy = shogi.White.String()
	}
	if s.aiSide != nil {
		p.AISide = s.aiSide.String()
	}
	return p
}

// Restore replaces the live game with the stored session, if any. It
// reports whether a session was found.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	payload, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if payload == nil || payload.SessionUUID == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := replaySession(s.newGame(), payload)
	if err != nil {
		return false, err
	}
	s.game = game
	s.id = payload.SessionUUID
	s.startedAt = payload.StartedAt
	s.agentTime = time.Duration(payload.AgentTimeMS) * time.Millisecond
	s.aiSide = nil
	if c, ok := shogi.ParseColor(payload.AISide); ok {
		s.aiSide = &c
	}
	s.archived = game.Result().Terminal()
	s.logger.Info("session_restored",
		zap.String("session_uuid", s.id),
		zap.Int("ply", game.Ply()),
		zap.String("result", string(game.Result())),
	)
	if s.publisher != nil {
		if snap, err := s.snapshot(); err == nil {
			s.publisher.Publish(snap)
		}
	}
	return true, nil
}

func replaySession(game *shogi.Game, payload *Payload) (*shogi.Game, error) {
	for _, mv := range payload.Moves {
		if _, err := game.Apply(strings.TrimSpace(mv)); err != nil {
			return nil, fmt.Errorf("replay move %s: %w", mv, err)
		}
	}
	if payload.ResignedBy != "" {
		c, ok := shogi.ParseColor(payload.ResignedBy)
		if !ok || c != game.Turn() {
			return nil, fmt.Errorf("replay resignation by %q: side to move is %s", payload.ResignedBy, game.Turn())
		}
		game.Resign()
	}
	return game, nil
}
