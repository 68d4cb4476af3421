package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/park285/annan-shogi-server/internal/domain"
)

// GameRow is the columnar layout of one archived game.
type GameRow struct {
	ID          int64  `parquet:"name=id, type=INT64"`
	SessionUUID string `parquet:"name=session_uuid, type=BYTE_ARRAY, convertedtype=UTF8"`
	Result      string `parquet:"name=result, type=BYTE_ARRAY, convertedtype=UTF8"`
	Winner      string `parquet:"name=winner, type=BYTE_ARRAY, convertedtype=UTF8"`
	Moves       string `parquet:"name=moves_usi, type=BYTE_ARRAY, convertedtype=UTF8"`
	KIF         string `parquet:"name=kif, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ply         int32  `parquet:"name=ply, type=INT32"`
	AISide      string `parquet:"name=ai_side, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartedAt   int64  `parquet:"name=started_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	EndedAt     int64  `parquet:"name=ended_at, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	DurationMS  int64  `parquet:"name=duration_ms, type=INT64"`
	AgentTimeMS int64  `parquet:"name=agent_time_ms, type=INT64"`
}

func rowFromGame(g *domain.AnnanGame) GameRow {
	return GameRow{
		ID:          g.ID,
		SessionUUID: g.SessionUUID,
		Result:      g.Result,
		Winner:      g.Winner,
		Moves:       strings.Join(g.MovesUSI, " "),
		KIF:         g.KIF,
		Ply:         int32(g.Ply),
		AISide:      g.AISide,
		StartedAt:   g.StartedAt.UnixMilli(),
		EndedAt:     g.EndedAt.UnixMilli(),
		DurationMS:  g.Duration.Milliseconds(),
		AgentTimeMS: g.AgentTime.Milliseconds(),
	}
}

// ExportParquet writes the most recent limit games from repo to a
// snappy-compressed parquet file at path and returns the row count.
func ExportParquet(ctx context.Context, repo Repository, path string, limit int) (int, error) {
	games, err := repo.GetRecentGames(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("load games: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(GameRow), 1)
	if err != nil {
		return 0, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, g := range games {
		if err := pw.Write(rowFromGame(g)); err != nil {
			return 0, fmt.Errorf("write game %d: %w", g.ID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return 0, fmt.Errorf("finish parquet: %w", err)
	}
	return len(games), nil
}
