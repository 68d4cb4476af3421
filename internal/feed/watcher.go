package feed

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/annan-shogi-server/pkg/annandto"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type SnapshotCallback func(snap *annandto.Snapshot)

type StateCallback func(state State)

// Watcher follows a feed endpoint and reconnects with backoff when the
// connection drops.
type Watcher struct {
	url string

	connM sync.Mutex
	conn  *websocket.Conn

	state  State
	stateM sync.RWMutex

	cbM      sync.RWMutex
	snapCbs  []SnapshotCallback
	stateCbs []StateCallback

	maxReconnectAttempts int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewWatcher(url string, maxReconnectAttempts int) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		url:                  url,
		maxReconnectAttempts: maxReconnectAttempts,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

func (w *Watcher) OnSnapshot(cb SnapshotCallback) {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.snapCbs = append(w.snapCbs, cb)
}

func (w *Watcher) OnStateChange(cb StateCallback) {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.stateCbs = append(w.stateCbs, cb)
}

func (w *Watcher) State() State {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

func (w *Watcher) Connect(ctx context.Context) error {
	if s := w.State(); s == StateConnected || s == StateConnecting {
		return nil
	}
	w.setState(StateConnecting)
	if err := w.dial(ctx); err != nil {
		w.setState(StateFailed)
		w.scheduleReconnect()
		return err
	}
	return nil
}

func (w *Watcher) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, w.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)

	w.connM.Lock()
	w.conn = conn
	w.connM.Unlock()
	w.setState(StateConnected)

	w.wg.Add(1)
	go w.listen(conn)
	return nil
}

func (w *Watcher) listen(conn *websocket.Conn) {
	defer w.wg.Done()
	for {
		var snap annandto.Snapshot
		if err := wsjson.Read(w.rootCtx, conn, &snap); err != nil {
			if w.isStopping() {
				return
			}
			w.setState(StateDisconnected)
			w.closeConn(websocket.StatusGoingAway, "reconnect")
			w.scheduleReconnect()
			return
		}

		w.cbM.RLock()
		callbacks := append([]SnapshotCallback(nil), w.snapCbs...)
		w.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(&snap)
		}
	}
}

func (w *Watcher) scheduleReconnect() {
	if w.maxReconnectAttempts <= 0 {
		return
	}
	w.setState(StateReconnecting)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for attempt := 1; attempt <= w.maxReconnectAttempts; attempt++ {
			select {
			case <-w.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			if err := w.dial(w.rootCtx); err == nil {
				return
			}
		}
		w.setState(StateFailed)
	}()
}

func (w *Watcher) setState(state State) {
	w.stateM.Lock()
	w.state = state
	w.stateM.Unlock()

	w.cbM.RLock()
	callbacks := append([]StateCallback(nil), w.stateCbs...)
	w.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (w *Watcher) Close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.closeConn(websocket.StatusNormalClosure, "close")
	w.rootCancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (w *Watcher) closeConn(code websocket.StatusCode, reason string) {
	w.connM.Lock()
	conn := w.conn
	w.conn = nil
	w.connM.Unlock()
	if conn != nil {
		_ = conn.Close(code, reason)
	}
}

func (w *Watcher) isStopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// backoffDuration doubles from 100ms and caps at 3.2s.
func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}
