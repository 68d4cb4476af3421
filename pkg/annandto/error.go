package annandto

// DomainError is the transport-facing form of a session failure.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "annan session error"
}
