package annandto

// Cell is one occupied square of the board view.
type Cell struct {
	Type  string `json:"type"`
	Kanji string `json:"kanji"`
	Color string `json:"color"`
}

// AnnanCell marks a piece whose effective movement differs from its own.
type AnnanCell struct {
	EffectiveType  string `json:"effective_type"`
	EffectiveKanji string `json:"effective_kanji"`
}

// Snapshot is the complete session view returned after every operation.
// Board and AnnanInfo are 9x9, rank 1 first, file 9 first within a rank;
// nil entries are empty squares.
type Snapshot struct {
	SessionUUID string         `json:"session_uuid"`
	Board       [][]*Cell      `json:"board"`
	AnnanInfo   [][]*AnnanCell `json:"annan_info"`
	Turn        string         `json:"turn"`
	BlackHand   map[string]int `json:"black_hand"`
	WhiteHand   map[string]int `json:"white_hand"`
	LegalMoves  []string       `json:"legal_moves"`
	InCheck     bool           `json:"in_check"`
	Result      string         `json:"result"`
	Ply         int            `json:"ply"`
	AIEnabled   bool           `json:"ai_enabled"`
	AIColor     *string        `json:"ai_color"`
	Log         []string       `json:"log"`
	KIF         string         `json:"kif"`
}

