package monitor

import "github.com/NordCoder/Hertz/internal/domain/service"

const DefaultHistoryCapacity = 60

// History is a fixed-capacity ring of outcomes, oldest evicted first.
// It is not safe for concurrent use; the registry lock guards it.
type History struct {
	buf  []service.Outcome
	head int // index of the oldest entry
	n    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]service.Outcome, capacity)}
}

func (h *History) Cap() int { return len(h.buf) }
func (h *History) Len() int { return h.n }

func (h *History) Append(o service.Outcome) {
	if h.n < len(h.buf) {
		h.buf[(h.head+h.n)%len(h.buf)] = o
		h.n++
		return
	}
	h.buf[h.head] = o
	h.head = (h.head + 1) % len(h.buf)
}

// Recent returns up to k newest outcomes, oldest first.
func (h *History) Recent(k int) []service.Outcome {
	if k <= 0 || h.n == 0 {
		return nil
	}
	if k > h.n {
		k = h.n
	}
	out := make([]service.Outcome, k)
	start := h.head + h.n - k
	for i := 0; i < k; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

func (h *History) Latest() (service.Outcome, bool) {
	if h.n == 0 {
		return service.Outcome{}, false
	}
	return h.buf[(h.head+h.n-1)%len(h.buf)], true
}

func (h *History) Status() service.Status {
	last, ok := h.Latest()
	if !ok {
		return service.StatusUnknown
	}
	return last.Status
}

// UptimePct is the share of UP outcomes in the retained window, 0 when empty.
func (h *History) UptimePct() float64 {
	if h.n == 0 {
		return 0
	}
	up := 0
	for i := 0; i < h.n; i++ {
		if h.buf[(h.head+i)%len(h.buf)].Status == service.StatusUp {
			up++
		}
	}
	return float64(up) / float64(h.n) * 100
}
