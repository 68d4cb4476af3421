package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/annan-shogi-server/pkg/annandto"
)

// APIError is a non-2xx reply. Domain carries the decoded error body when
// the server sent one.
type APIError struct {
	Status int
	Domain annandto.DomainError
}

func (e *APIError) Error() string {
	if e.Domain.Message != "" {
		return fmt.Sprintf("annan api error: status=%d code=%s: %s", e.Status, e.Domain.Code, e.Domain.Message)
	}
	return fmt.Sprintf("annan api error: status=%d", e.Status)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 60 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State(ctx context.Context) (*annandto.Snapshot, error) {
	var snap annandto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/state", nil, &snap, true); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) Move(ctx context.Context, token string) (*annandto.Snapshot, error) {
	return c.postSnapshot(ctx, "/api/move", annandto.MoveRequest{Move: token})
}

func (c *Client) Undo(ctx context.Context) (*annandto.Snapshot, error) {
	return c.postSnapshot(ctx, "/api/undo", nil)
}

func (c *Client) Resign(ctx context.Context) (*annandto.Snapshot, error) {
	return c.postSnapshot(ctx, "/api/resign", nil)
}

func (c *Client) Reset(ctx context.Context) (*annandto.Snapshot, error) {
	return c.postSnapshot(ctx, "/api/reset", nil)
}

func (c *Client) AIMove(ctx context.Context) (*annandto.Snapshot, error) {
	return c.postSnapshot(ctx, "/api/ai_move", nil)
}

func (c *Client) Configure(ctx context.Context, mode string) (*annandto.ConfigResponse, error) {
	var resp annandto.ConfigResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/config", annandto.ConfigRequest{AIMode: mode}, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Games(ctx context.Context, limit int) ([]annandto.GameSummary, error) {
	var out []annandto.GameSummary
	path := "/api/games?limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Game(ctx context.Context, id int64) (*annandto.GameDetail, error) {
	var out annandto.GameDetail
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/games/"+strconv.FormatInt(id, 10), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// KIF downloads the transcript in the given encoding ("utf8" or "sjis").
func (c *Client) KIF(ctx context.Context, encoding string) ([]byte, error) {
	var body []byte
	err := c.do(ctx, fasthttp.MethodGet, "/api/kif?encoding="+encoding, nil, true, func(resp *fasthttp.Response) error {
		body = append([]byte(nil), resp.Body()...)
		return nil
	})
	return body, err
}

func (c *Client) postSnapshot(ctx context.Context, path string, in any) (*annandto.Snapshot, error) {
	var snap annandto.Snapshot
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, in, &snap, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	return c.do(ctx, method, path, payload, retry, func(resp *fasthttp.Response) error {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// do sends one request. Only idempotent calls pass retry; they are retried
// on transport errors and 5xx replies with exponential backoff.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool, onOK func(*fasthttp.Response) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			_ = json.Unmarshal(resp.Body(), &apiErr.Domain)
			if !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
		} else {
			return onOK(resp)
		}

		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
