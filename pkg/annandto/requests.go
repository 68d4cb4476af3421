package annandto

type MoveRequest struct {
	Move string `json:"move"`
}

type ConfigRequest struct {
	AIMode string `json:"ai_mode"`
}

type ConfigResponse struct {
	Status  string  `json:"status"`
	AIColor *string `json:"ai_color"`
}
