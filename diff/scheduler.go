package diff

import (
	"sync"
	"time"
)

// scheduler coalesces per-buffer recompute requests. Edits mark a buffer
// pending and restart one shared debounce timer; when it fires every pending
// buffer recomputes exactly once and the pending set clears. A zero-delay
// request still goes through the timer so same-tick requests coalesce.
type scheduler struct {
	mu      sync.Mutex
	pending map[int]struct{}
	timer   *time.Timer
	fire    func(ids []int)
}

func newScheduler(fire func(ids []int)) *scheduler {
	return &scheduler{
		pending: make(map[int]struct{}),
		fire:    fire,
	}
}

// schedule marks id pending and (re)starts the debounce window.
func (s *scheduler) schedule(id int, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = struct{}{}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, s.run)
}

// drop removes id from tracking, bypassing the debounce.
func (s *scheduler) drop(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// stop cancels any armed timer and clears the pending set.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = make(map[int]struct{})
}

func (s *scheduler) run() {
	s.mu.Lock()
	ids := make([]int, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.pending = make(map[int]struct{})
	s.mu.Unlock()

	if len(ids) > 0 {
		s.fire(ids)
	}
}
