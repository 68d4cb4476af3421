package feed

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/pkg/annandto"
)

const defaultBuffer = 8

// Hub fans snapshots out to subscribers. Publish never blocks; a subscriber
// whose buffer is full misses that snapshot.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan *annandto.Snapshot
	nextID  int
	last    *annandto.Snapshot
	buffer  int
	dropped int
	logger  *zap.Logger
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: make(map[int]chan *annandto.Snapshot), buffer: buffer, logger: logger}
}

func (h *Hub) Publish(snap *annandto.Snapshot) {
	if snap == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = snap
	for id, ch := range h.subs {
		select {
		case ch <- snap:
		default:
			h.dropped++
			h.logger.Debug("feed_drop", zap.Int("subscriber", id), zap.Int("ply", snap.Ply))
		}
	}
}

// Subscribe registers a subscriber. The channel starts with the latest
// snapshot when one has been published. cancel closes the channel.
func (h *Hub) Subscribe() (<-chan *annandto.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan *annandto.Snapshot, h.buffer)
	if h.last != nil {
		ch <- h.last
	}
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts snapshots skipped for slow subscribers.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
