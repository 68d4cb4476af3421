package annandto

import "time"

// GameSummary is an archived game as listed by the history endpoints.
type GameSummary struct {
	ID          int64     `json:"id"`
	SessionUUID string    `json:"session_uuid"`
	Result      string    `json:"result"`
	Winner      string    `json:"winner,omitempty"`
	Ply         int       `json:"ply"`
	AISide      string    `json:"ai_side,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// GameDetail adds the move record to a summary.
type GameDetail struct {
	GameSummary
	Moves []string `json:"moves"`
	KIF   string   `json:"kif"`
}
