package httpapi

import (
	"fmt"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/park285/annan-shogi-server/internal/domain"
	"github.com/park285/annan-shogi-server/internal/notation"
	"github.com/park285/annan-shogi-server/internal/render"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

func (s *Server) handleKIF(rc *fasthttp.RequestCtx) {
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	snap, err := s.session.State(ctx)
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	body, charset, err := notation.Encode(snap.KIF, string(rc.QueryArgs().Peek("encoding")))
	if err != nil {
		s.badRequest(rc, err.Error())
		return
	}
	rc.SetStatusCode(fasthttp.StatusOK)
	rc.SetContentType("text/plain; charset=" + charset)
	rc.Response.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="annan-%s.kif"`, snap.SessionUUID))
	rc.SetBody(body)
}

func (s *Server) handleBoard(rc *fasthttp.RequestCtx) {
	if s.renderer == nil {
		s.writeError(rc, fasthttp.StatusNotFound, annandto.DomainError{
			Code:    "not_found",
			Message: s.catalog.Text("errors.not_found", nil, "not found"),
		})
		return
	}
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	snap, last, err := s.session.StateWithLastMove(ctx)
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	png, err := s.renderer.RenderPNG(ctx, snap, render.Options{LastMove: last})
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	rc.SetStatusCode(fasthttp.StatusOK)
	rc.SetContentType("image/png")
	rc.Response.Header.Set("Cache-Control", "no-store")
	rc.SetBody(png)
}

func (s *Server) handleGames(rc *fasthttp.RequestCtx) {
	out := make([]annandto.GameSummary, 0)
	if s.games == nil {
		s.writeJSON(rc, fasthttp.StatusOK, out)
		return
	}
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	games, err := s.games.GetRecentGames(ctx, parseLimit(rc.QueryArgs().Peek("limit")))
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	for _, g := range games {
		out = append(out, summaryFromGame(g))
	}
	s.writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) handleGame(rc *fasthttp.RequestCtx, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(rc, "invalid game id "+strconv.Quote(rawID))
		return
	}
	if s.games == nil {
		s.writeError(rc, fasthttp.StatusNotFound, annandto.DomainError{
			Code:    "game_not_found",
			Message: s.catalog.Text("errors.game_not_found", nil, "game not found"),
		})
		return
	}
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	g, err := s.games.GetGame(ctx, id)
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, annandto.GameDetail{
		GameSummary: summaryFromGame(g),
		Moves:       g.MovesUSI,
		KIF:         g.KIF,
	})
}

func summaryFromGame(g *domain.AnnanGame) annandto.GameSummary {
	return annandto.GameSummary{
		ID:          g.ID,
		SessionUUID: g.SessionUUID,
		Result:      g.Result,
		Winner:      g.Winner,
		Ply:         g.Ply,
		AISide:      g.AISide,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
		DurationMS:  g.Duration.Milliseconds(),
	}
}
