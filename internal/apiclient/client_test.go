package apiclient

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, h fasthttp.RequestHandler) func(string) (net.Conn, error) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, h) }()
	t.Cleanup(func() { _ = ln.Close() })
	return func(string) (net.Conn, error) { return ln.Dial() }
}

func TestStateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	dial := serve(t, func(rc *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			rc.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		rc.SetContentType("application/json")
		rc.SetBodyString(`{"turn":"BLACK","ply":4}`)
	})

	c := New("http://annan.test", WithDial(dial), WithRetry(3))
	snap, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Ply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMoveIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	dial := serve(t, func(rc *fasthttp.RequestCtx) {
		calls.Add(1)
		rc.SetStatusCode(fasthttp.StatusBadGateway)
	})

	c := New("http://annan.test", WithDial(dial), WithRetry(3))
	_, err := c.Move(context.Background(), "7g7f")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusBadGateway, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDomainErrorDecoded(t *testing.T) {
	dial := serve(t, func(rc *fasthttp.RequestCtx) {
		rc.SetStatusCode(fasthttp.StatusBadRequest)
		rc.SetBodyString(`{"code":"game_over","error":"ゲーム終了済み"}`)
	})
	c := New("http://annan.test", WithDial(dial))
	_, err := c.Undo(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "game_over", apiErr.Domain.Code)
	assert.Contains(t, err.Error(), "ゲーム終了済み")
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoffDuration(1))
	assert.Equal(t, 200*time.Millisecond, backoffDuration(2))
	assert.Equal(t, 3200*time.Millisecond, backoffDuration(99))
}
