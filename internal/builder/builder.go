package builder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/agent"
	"github.com/park285/annan-shogi-server/internal/agent/usi"
	"github.com/park285/annan-shogi-server/internal/archive"
	"github.com/park285/annan-shogi-server/internal/config"
	"github.com/park285/annan-shogi-server/internal/feed"
	"github.com/park285/annan-shogi-server/internal/httpapi"
	"github.com/park285/annan-shogi-server/internal/msgcat"
	"github.com/park285/annan-shogi-server/internal/render"
	"github.com/park285/annan-shogi-server/internal/session"
)

type Deps struct {
	Service *session.Service
	Hub     *feed.Hub
	Repo    archive.Repository
	HTTP    *httpapi.Server

	rdb   *redis.Client
	close []func() error
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}
	ok := false
	defer func() {
		if !ok {
			_ = d.Close()
		}
	}()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	// Session store (Redis optional)
	var store session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := session.ParseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		d.rdb = redis.NewClient(opts)
		d.close = append(d.close, d.rdb.Close)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		store = session.NewRedisStore(d.rdb, cfg.SessionKey, time.Duration(cfg.SessionTTLSec)*time.Second)
	} else {
		logger.Warn("session_store_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	// Archive (Postgres optional, memory otherwise)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := d.openArchive(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.Repo = repo
	} else {
		logger.Warn("archive_in_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Repo = archive.NewMemoryRepository()
	}

	var ag session.Agent
	switch cfg.Agent {
	case config.AgentUSI:
		a, err := usi.New(usi.Config{
			BinaryPath: cfg.USIEnginePath,
			Options:    cfg.USIOptions,
			MoveTimeMS: cfg.USIMoveTimeMS,
			MultiPV:    cfg.USIMultiPV,
			Seed:       uint64(time.Now().UnixNano()),
		}, logger.Named("usi"))
		if err != nil {
			return nil, fmt.Errorf("init usi agent: %w", err)
		}
		d.close = append(d.close, a.Close)
		ag = a
	case config.AgentBuiltin:
		ag = agent.NewGreedy(uint64(time.Now().UnixNano()))
	}
	logger.Info("agent_selected", zap.String("agent", cfg.Agent))

	d.Hub = feed.NewHub(0, logger.Named("feed"))
	d.Service, err = session.NewService(nil, ag, store, d.Repo, d.Hub, session.Config{ResetClearsAI: cfg.ResetClearsAI}, logger.Named("session"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if restored, err := d.Service.Restore(ctx); err != nil {
		logger.Warn("session_restore_failed", zap.Error(err))
	} else if !restored {
		if snap, err := d.Service.State(ctx); err == nil {
			d.Hub.Publish(snap)
		}
	}

	d.HTTP, err = httpapi.New(d.Service, d.Repo, render.NewPNGRenderer(), catalog, httpapi.Config{RequestTimeout: cfg.RequestTimeout}, logger.Named("http"))
	if err != nil {
		return nil, err
	}

	ok = true
	return d, nil
}

// OpenArchive connects to Postgres and ensures the archive table exists.
func OpenArchive(databaseURL string) (archive.Repository, func() error, error) {
	d := &Deps{}
	repo, err := d.openArchive(databaseURL)
	if err != nil {
		_ = d.Close()
		return nil, nil, err
	}
	return repo, d.Close, nil
}

func (d *Deps) openArchive(databaseURL string) (archive.Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	d.close = append(d.close, db.Close)
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := archive.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return archive.NewRepository(db), nil
}

// Close releases everything New opened, newest first.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.close) - 1; i >= 0; i-- {
		if err := d.close[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.close = nil
	return errors.Join(errs...)
}
