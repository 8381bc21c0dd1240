// Package settlement resolves pending payments after a delay.
package settlement

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs keyed callbacks after a delay. Scheduling a key that is
// already pending replaces the earlier task.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	// Cancel drops a pending task and reports whether one was dropped.
	Cancel(key string) bool
	// Wait blocks until every task that has started has returned.
	Wait()
	// Stop drops all pending tasks and refuses new ones.
	Stop()
}

// TimerScheduler runs each task on its own timer goroutine.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	stopped bool
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *TimerScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.dropLocked(key)

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		// t is assigned before the lock is released
		s.mu.Lock()
		if s.timers[key] == t {
			delete(s.timers, key)
		}
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = t
}

func (s *TimerScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked(key)
}

func (s *TimerScheduler) Wait() {
	s.wg.Wait()
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key := range s.timers {
		s.dropLocked(key)
	}
}

// Pending reports how many tasks have not fired yet.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *TimerScheduler) dropLocked(key string) bool {
	t, ok := s.timers[key]
	if !ok {
		return false
	}
	delete(s.timers, key)
	if t.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

// ManualScheduler only runs tasks when its virtual clock is advanced.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks map[string]manualTask
}

type manualTask struct {
	due time.Duration
	seq uint64
	fn  func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[string]manualTask)}
}

func (s *ManualScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.tasks[key] = manualTask{due: s.now + delay, seq: s.seq, fn: fn}
}

func (s *ManualScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[key]; !ok {
		return false
	}
	delete(s.tasks, key)
	return true
}

func (s *ManualScheduler) Wait() {}

func (s *ManualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]manualTask)
}

// Pending reports how many tasks have not run yet.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Advance moves the virtual clock forward by d and runs every task that
// became due, earliest first, on the calling goroutine.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	s.now += d
	now := s.now
	s.mu.Unlock()
	return s.runUntil(now)
}

// RunAll runs every pending task regardless of its delay, including tasks
// scheduled by the ones it runs.
func (s *ManualScheduler) RunAll() int {
	ran := 0
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return ran
		}
		var last time.Duration
		for _, t := range s.tasks {
			if t.due > last {
				last = t.due
			}
		}
		if last > s.now {
			s.now = last
		}
		now := s.now
		s.mu.Unlock()
		ran += s.runUntil(now)
	}
}

func (s *ManualScheduler) runUntil(now time.Duration) int {
	s.mu.Lock()
	var due []manualTask
	for key, t := range s.tasks {
		if t.due <= now {
			due = append(due, t)
			delete(s.tasks, key)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
	return len(due)
}
