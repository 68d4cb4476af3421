package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/archive"
	"github.com/park285/annan-shogi-server/internal/msgcat"
	"github.com/park285/annan-shogi-server/internal/render"
	"github.com/park285/annan-shogi-server/internal/shogi"
	"github.com/park285/annan-shogi-server/pkg/annandto"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultGameLimit = 10
	maxGameLimit     = 100
	requestIDHeader  = "X-Request-ID"
)

// Session is the game controller served by the API.
type Session interface {
	State(ctx context.Context) (*annandto.Snapshot, error)
	Apply(ctx context.Context, token string) (*annandto.Snapshot, error)
	Undo(ctx context.Context) (*annandto.Snapshot, error)
	Resign(ctx context.Context) (*annandto.Snapshot, error)
	Reset(ctx context.Context) (*annandto.Snapshot, error)
	Configure(ctx context.Context, mode string) (*annandto.Snapshot, *shogi.Color, error)
	AIMove(ctx context.Context) (*annandto.Snapshot, error)
	StateWithLastMove(ctx context.Context) (*annandto.Snapshot, string, error)
}

type Config struct {
	RequestTimeout time.Duration
}

type Server struct {
	session  Session
	games    archive.Repository
	renderer render.BoardRenderer
	catalog  *msgcat.Catalog
	timeout  time.Duration
	logger   *zap.Logger
	srv      *fasthttp.Server
}

// New builds the API server. games and renderer may be nil; their endpoints
// then serve empty results or 404.
func New(session Session, games archive.Repository, renderer render.BoardRenderer, catalog *msgcat.Catalog, cfg Config, logger *zap.Logger) (*Server, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	s := &Server{
		session:  session,
		games:    games,
		renderer: renderer,
		catalog:  catalog,
		timeout:  cfg.RequestTimeout,
		logger:   logger,
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "annan-shogi",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

// Serve runs on an existing listener, e.g. an in-memory one in tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler wraps routing with request IDs, CORS and access logging.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		started := time.Now()
		reqID, err := gonanoid.New(12)
		if err != nil {
			reqID = strconv.FormatUint(rc.ID(), 10)
		}
		rc.Response.Header.Set(requestIDHeader, reqID)
		rc.Response.Header.Set("Access-Control-Allow-Origin", "*")
		rc.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		rc.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")

		if rc.IsOptions() {
			rc.SetStatusCode(fasthttp.StatusNoContent)
		} else {
			s.route(rc)
		}

		s.logger.Info("http_request",
			zap.String("request_id", reqID),
			zap.ByteString("method", rc.Method()),
			zap.ByteString("path", rc.Path()),
			zap.Int("status", rc.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
}

func (s *Server) route(rc *fasthttp.RequestCtx) {
	path := string(rc.Path())
	get, post := rc.IsGet(), rc.IsPost()

	switch {
	case get && path == "/healthz":
		s.writeJSON(rc, fasthttp.StatusOK, map[string]string{"status": s.catalog.Text("status.ok", nil, "ok")})
	case get && path == "/api/state":
		s.withSnapshot(rc, s.session.State)
	case post && path == "/api/move":
		s.handleMove(rc)
	case post && path == "/api/undo":
		s.withSnapshot(rc, s.session.Undo)
	case post && path == "/api/resign":
		s.withSnapshot(rc, s.session.Resign)
	case post && path == "/api/reset":
		s.withSnapshot(rc, s.session.Reset)
	case post && path == "/api/config":
		s.handleConfig(rc)
	case post && path == "/api/ai_move":
		s.withSnapshot(rc, s.session.AIMove)
	case get && path == "/api/kif":
		s.handleKIF(rc)
	case get && path == "/api/board.png":
		s.handleBoard(rc)
	case get && path == "/api/games":
		s.handleGames(rc)
	case get && strings.HasPrefix(path, "/api/games/"):
		s.handleGame(rc, strings.TrimPrefix(path, "/api/games/"))
	default:
		s.writeError(rc, fasthttp.StatusNotFound, annandto.DomainError{
			Code:    "not_found",
			Message: s.catalog.Text("errors.not_found", nil, "not found"),
		})
	}
}

func (s *Server) requestContext(rc *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(rc, s.timeout)
}

func (s *Server) withSnapshot(rc *fasthttp.RequestCtx, op func(context.Context) (*annandto.Snapshot, error)) {
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	snap, err := op(ctx)
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, snap)
}

func (s *Server) handleMove(rc *fasthttp.RequestCtx) {
	var req annandto.MoveRequest
	if err := json.Unmarshal(rc.PostBody(), &req); err != nil {
		s.badRequest(rc, err.Error())
		return
	}
	if strings.TrimSpace(req.Move) == "" {
		s.badRequest(rc, "move is required")
		return
	}
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	snap, err := s.session.Apply(ctx, req.Move)
	if err != nil {
		s.fail(rc, err, req.Move)
		return
	}
	s.writeJSON(rc, fasthttp.StatusOK, snap)
}

func (s *Server) handleConfig(rc *fasthttp.RequestCtx) {
	var req annandto.ConfigRequest
	if body := rc.PostBody(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.badRequest(rc, err.Error())
			return
		}
	}
	ctx, cancel := s.requestContext(rc)
	defer cancel()
	_, side, err := s.session.Configure(ctx, req.AIMode)
	if err != nil {
		s.fail(rc, err, "")
		return
	}
	resp := annandto.ConfigResponse{Status: s.catalog.Text("status.ok", nil, "ok")}
	if side != nil {
		name := side.String()
		resp.AIColor = &name
	}
	s.writeJSON(rc, fasthttp.StatusOK, resp)
}

func (s *Server) fail(rc *fasthttp.RequestCtx, err error, detail string) {
	status, derr := s.domainError(err, detail)
	if status >= fasthttp.StatusInternalServerError {
		s.logger.Error("http_request_failed", zap.ByteString("path", rc.Path()), zap.Error(err))
	}
	s.writeError(rc, status, derr)
}

func (s *Server) badRequest(rc *fasthttp.RequestCtx, detail string) {
	s.writeError(rc, fasthttp.StatusBadRequest, annandto.DomainError{
		Code:    "bad_request",
		Message: s.catalog.Text("errors.bad_request", map[string]string{"Detail": detail}, "bad request: "+detail),
	})
}

func (s *Server) writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("http_encode_failed", zap.Error(err))
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json; charset=utf-8")
	rc.SetBody(body)
}

func (s *Server) writeError(rc *fasthttp.RequestCtx, status int, derr annandto.DomainError) {
	s.writeJSON(rc, status, derr)
}

func parseLimit(raw []byte) int {
	n, err := strconv.Atoi(string(raw))
	if err != nil || n <= 0 {
		return defaultGameLimit
	}
	if n > maxGameLimit {
		return maxGameLimit
	}
	return n
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
