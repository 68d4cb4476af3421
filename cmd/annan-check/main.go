package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/annan-shogi-server/internal/apiclient"
	"github.com/park285/annan-shogi-server/internal/feed"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

func main() {
	baseURL := os.Getenv("ANNAN_BASE_URL")
	feedURL := os.Getenv("ANNAN_FEED_URL")
	if baseURL == "" {
		log.Fatal("ANNAN_BASE_URL is required")
	}

	client := apiclient.New(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := client.State(ctx)
	if err != nil {
		log.Printf("/api/state error: %v", err)
	} else {
		log.Printf("/api/state ok: session=%s ply=%d turn=%s result=%s ai=%v", snap.SessionUUID, snap.Ply, snap.Turn, snap.Result, snap.AIEnabled)
	}

	if feedURL == "" {
		log.Println("ANNAN_FEED_URL not set; skipping feed check")
		return
	}

	w := feed.NewWatcher(feedURL, 5)
	w.OnStateChange(func(state feed.State) {
		log.Printf("feed state: %s", state)
	})
	w.OnSnapshot(func(s *annandto.Snapshot) {
		fmt.Printf("feed snapshot session=%s ply=%d result=%s\n", s.SessionUUID, s.Ply, s.Result)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := w.Connect(cctx); err != nil {
		log.Printf("feed connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = w.Close(context.Background())
}
