package httpapi

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/park285/annan-shogi-server/internal/archive"
	"github.com/park285/annan-shogi-server/internal/session"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

type errorMapping struct {
	target    error
	status    int
	code      string
	key       string
	retryable bool
}

// Order matters: an agent timeout wraps both ErrAgentFailed and the deadline.
var errorMappings = []errorMapping{
	{target: session.ErrParseFailure, status: fasthttp.StatusBadRequest, code: "parse_failure", key: "errors.parse"},
	{target: session.ErrIllegalMove, status: fasthttp.StatusBadRequest, code: "illegal_move", key: "errors.illegal"},
	{target: session.ErrEmptyHistory, status: fasthttp.StatusBadRequest, code: "empty_history", key: "errors.empty_history"},
	{target: session.ErrGameAlreadyOver, status: fasthttp.StatusBadRequest, code: "game_over", key: "errors.game_over"},
	{target: session.ErrAgentUnavailable, status: fasthttp.StatusBadRequest, code: "agent_unavailable", key: "errors.agent_unavailable"},
	{target: archive.ErrGameNotFound, status: fasthttp.StatusNotFound, code: "game_not_found", key: "errors.game_not_found"},
}

func (s *Server) domainError(err error, detail string) (int, annandto.DomainError) {
	data := map[string]string{"Detail": detail}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, annandto.DomainError{
				Code:      m.code,
				Message:   s.catalog.Text(m.key, data, m.target.Error()),
				Retryable: m.retryable,
			}
		}
	}
	switch {
	case isTimeout(err):
		return fasthttp.StatusGatewayTimeout, annandto.DomainError{
			Code:      "timeout",
			Message:   s.catalog.Text("errors.timeout", nil, "timeout"),
			Retryable: true,
		}
	case errors.Is(err, session.ErrAgentFailed):
		return fasthttp.StatusBadRequest, annandto.DomainError{
			Code:      "agent_failed",
			Message:   s.catalog.Text("errors.agent_failed", nil, session.ErrAgentFailed.Error()),
			Retryable: true,
		}
	default:
		return fasthttp.StatusInternalServerError, annandto.DomainError{
			Code:    "internal",
			Message: s.catalog.Text("errors.internal", nil, "internal error"),
		}
	}
}
