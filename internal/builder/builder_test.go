package builder

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/annan-shogi-server/internal/config"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		SessionKey:    "annan:session",
		SessionTTLSec: 3600,
		Agent:         config.AgentBuiltin,
	}
}

func TestNewWithoutExternalServices(t *testing.T) {
	deps, err := New(baseConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer deps.Close()

	snap, err := deps.Service.State(context.Background())
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !snap.AIEnabled {
		t.Fatalf("builtin agent should be enabled")
	}
	if deps.Hub == nil || deps.HTTP == nil || deps.Repo == nil {
		t.Fatalf("missing dependencies: %+v", deps)
	}
}

func TestNewWithoutAgent(t *testing.T) {
	cfg := baseConfig()
	cfg.Agent = config.AgentNone
	deps, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer deps.Close()
	snap, _ := deps.Service.State(context.Background())
	if snap.AIEnabled {
		t.Fatalf("agent must be disabled")
	}
}

func TestNewRestoresFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := baseConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := first.Service.Apply(ctx, "7g7f"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	id := first.Service.SessionUUID()
	_ = first.Close()

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("second new: %v", err)
	}
	defer second.Close()
	snap, _ := second.Service.State(ctx)
	if snap.SessionUUID != id || snap.Ply != 1 {
		t.Fatalf("session not restored: id=%s ply=%d", snap.SessionUUID, snap.Ply)
	}
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := baseConfig()
	cfg.RedisURL = "http://nope"
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error")
	}
}
