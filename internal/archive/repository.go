package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/park285/annan-shogi-server/internal/domain"
)

var (
	ErrDuplicateGame = errors.New("annan game already archived")
	ErrGameNotFound  = errors.New("annan game not found")
)

type Repository interface {
	InsertGame(ctx context.Context, game *domain.AnnanGame) (int64, error)
	GetRecentGames(ctx context.Context, limit int) ([]*domain.AnnanGame, error)
	GetGame(ctx context.Context, id int64) (*domain.AnnanGame, error)
	GetGameBySession(ctx context.Context, sessionUUID string) (*domain.AnnanGame, error)
}

// Schema creates the archive table. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS annan_games (
	id             BIGSERIAL PRIMARY KEY,
	session_uuid   TEXT NOT NULL UNIQUE,
	result         TEXT NOT NULL,
	winner         TEXT NOT NULL DEFAULT '',
	moves_usi      JSONB NOT NULL,
	kif            TEXT NOT NULL,
	ply            INTEGER NOT NULL,
	ai_side        TEXT NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT,
	agent_time_ms  BIGINT
)`

const selectColumns = `
	id, session_uuid, result, winner, moves_usi, kif, ply, ai_side,
	started_at, ended_at, duration_ms, agent_time_ms`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create annan_games: %w", err)
	}
	return nil
}

func (r *repository) InsertGame(ctx context.Context, game *domain.AnnanGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil annan game payload")
	}
	moves, err := json.Marshal(game.MovesUSI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_usi: %w", err)
	}

	const query = `
		INSERT INTO annan_games (
			session_uuid, result, winner, moves_usi, kif, ply, ai_side,
			started_at, ended_at, duration_ms, agent_time_ms
		)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_uuid) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(ctx, query,
		game.SessionUUID,
		game.Result,
		game.Winner,
		moves,
		game.KIF,
		game.Ply,
		game.AISide,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
		game.AgentTime.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert annan game: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) GetRecentGames(ctx context.Context, limit int) ([]*domain.AnnanGame, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT`+selectColumns+` FROM annan_games ORDER BY ended_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select annan games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.AnnanGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annan games: %w", err)
	}
	return games, nil
}

func (r *repository) GetGame(ctx context.Context, id int64) (*domain.AnnanGame, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+selectColumns+` FROM annan_games WHERE id = $1`, id)
	return scanOne(row)
}

func (r *repository) GetGameBySession(ctx context.Context, sessionUUID string) (*domain.AnnanGame, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+selectColumns+` FROM annan_games WHERE session_uuid = $1`, sessionUUID)
	return scanOne(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*domain.AnnanGame, error) {
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	return game, err
}

func scanGame(s scanner) (*domain.AnnanGame, error) {
	var (
		game       domain.AnnanGame
		movesJSON  []byte
		durationMS sql.NullInt64
		agentMS    sql.NullInt64
	)
	if err := s.Scan(
		&game.ID,
		&game.SessionUUID,
		&game.Result,
		&game.Winner,
		&movesJSON,
		&game.KIF,
		&game.Ply,
		&game.AISide,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&agentMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan annan game: %w", err)
	}
	if len(movesJSON) > 0 {
		if err := json.Unmarshal(movesJSON, &game.MovesUSI); err != nil {
			return nil, fmt.Errorf("unmarshal moves_usi: %w", err)
		}
	}
	if durationMS.Valid {
		game.Duration = msDuration(durationMS.Int64)
	}
	if agentMS.Valid {
		game.AgentTime = msDuration(agentMS.Int64)
	}
	return &game, nil
}
