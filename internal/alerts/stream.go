package alerts

import (
	"sync"

	"fleet-tracking-service/internal/models"
)

const defaultRecentSize = 256

// Stream keeps a bounded ring of recent violations and fans new ones out to
// subscribers. Slow subscribers lose violations rather than stall the tick.
type Stream struct {
	mu      sync.Mutex
	size    int
	recent  []models.SpeedViolation
	subs    map[int]chan models.SpeedViolation
	nextSub int
}

// NewStream returns a Stream retaining up to size recent violations; size <= 0
// selects the default of 256.
func NewStream(size int) *Stream {
	if size <= 0 {
		size = defaultRecentSize
	}
	return &Stream{
		size: size,
		subs: make(map[int]chan models.SpeedViolation),
	}
}

// Record stores the violation and notifies subscribers without blocking.
func (s *Stream) Record(v models.SpeedViolation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recent = append(s.recent, v)
	if over := len(s.recent) - s.size; over > 0 {
		s.recent = s.recent[over:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribe registers a buffered listener for future violations. The returned
// cancel removes the subscription and closes the channel; it is safe to call
// more than once.
func (s *Stream) Subscribe(buffer int) (<-chan models.SpeedViolation, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan models.SpeedViolation, buffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Recent returns up to limit violations, newest first. limit <= 0 returns
// everything retained.
func (s *Stream) Recent(limit int) []models.SpeedViolation {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.SpeedViolation, n)
	for i := 0; i < n; i++ {
		out[i] = s.recent[len(s.recent)-1-i]
	}
	return out
}
