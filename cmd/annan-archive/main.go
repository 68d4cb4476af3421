package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/archive"
	"github.com/park285/annan-shogi-server/internal/builder"
	"github.com/park285/annan-shogi-server/internal/obslog"
)

func main() {
	out := flag.String("out", "annan_games.parquet", "output parquet file")
	limit := flag.Int("limit", 1000, "number of most recent games to export")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	repo, closeDB, err := builder.OpenArchive(dsn)
	if err != nil {
		log.Fatalf("archive open error: %v", err)
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	n, err := archive.ExportParquet(ctx, repo, *out, *limit)
	if err != nil {
		log.Fatalf("export error: %v", err)
	}
	logger.Info("archive_exported", zap.String("path", *out), zap.Int("games", n))
}
