package domain

import "time"

// AnnanGame is a finished game as stored in the archive.
type AnnanGame struct {
	ID          int64
	SessionUUID string
	Result      string
	Winner      string
	MovesUSI    []string
	KIF         string
	Ply         int
	AISide      string
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
	AgentTime   time.Duration
}
