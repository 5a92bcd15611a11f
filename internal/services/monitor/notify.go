package monitor

import (
	"sync"

	"github.com/NordCoder/Hertz/internal/domain/service"
)

const DefaultNotifyBuffer = 64

// Notification is emitted after every recorded probe.
type Notification struct {
	ID       service.ID
	Outcome  service.Outcome
	Previous service.Status
	Changed  bool
}

// hub fans notifications out to bounded subscriber queues. A full queue drops the
// notification instead of blocking the probe pipeline.
type hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Notification
	next   int
	closed bool
}

func newHub() *hub { return &hub{subs: make(map[int]chan Notification)} }

func (h *hub) subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = DefaultNotifyBuffer
	}
	ch := make(chan Notification, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// publish returns the number of subscribers that missed n.
func (h *hub) publish(n Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			dropped++
		}
	}
	return dropped
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
