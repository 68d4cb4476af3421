package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("errors.agent_unavailable", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "AIが有効ではありません" {
		t.Fatalf("unexpected message %q", got)
	}
	got, err = c.Render("errors.parse", map[string]string{"Detail": "zz"})
	if err != nil || got != "指し手を解釈できません: zz" {
		t.Fatalf("Render parse = %q, %v", got, err)
	}
	if _, err := c.Render("errors.parse", map[string]string{}); err == nil {
		t.Fatalf("missing template field should fail")
	}
	if _, err := c.Render("errors.nope", nil); err == nil {
		t.Fatalf("unknown key should fail")
	}
	if s := c.Text("errors.nope", nil, "fallback"); s != "fallback" {
		t.Fatalf("Text fallback = %q", s)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("errors:\n  game_over: \"対局は終わっています\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s := c.Text("errors.game_over", nil, ""); s != "対局は終わっています" {
		t.Fatalf("override not applied: %q", s)
	}
	if s := c.Text("errors.empty_history", nil, ""); s != "戻せる手がありません" {
		t.Fatalf("embedded default lost: %q", s)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("errors:\n  game_over: \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("duplicate override keys should fail")
	}
}
