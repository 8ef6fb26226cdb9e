package rx

import (
	"sort"
	"sync"
	"time"
)

// TestScheduler runs tasks against a virtual clock. Nothing runs until the
// clock is advanced, which makes time-based operators deterministic.
type TestScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*timedTask
}

type timedTask struct {
	task
	at  time.Time
	seq uint64
}

// NewTestScheduler returns a scheduler whose clock starts at start.
func NewTestScheduler(start time.Time) *TestScheduler {
	return &TestScheduler{now: start}
}

func (s *TestScheduler) Name() string { return "test" }

func (s *TestScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule queues fn at the current virtual time.
func (s *TestScheduler) Schedule(fn func()) Disposable {
	return s.ScheduleAfter(0, fn)
}

// ScheduleAfter queues fn at now+delay.
func (s *TestScheduler) ScheduleAfter(delay time.Duration, fn func()) Disposable {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &timedTask{task: task{run: fn}, at: s.now.Add(delay), seq: s.seq}
	i := sort.Search(len(s.tasks), func(i int) bool {
		return s.tasks[i].at.After(t.at)
	})
	s.tasks = append(s.tasks, nil)
	copy(s.tasks[i+1:], s.tasks[i:])
	s.tasks[i] = t
	return &t.task
}

// AdvanceBy moves the clock forward by d, running every task that falls
// due on the way, in time order.
func (s *TestScheduler) AdvanceBy(d time.Duration) {
	s.AdvanceTo(s.Now().Add(d))
}

// AdvanceTo moves the clock to target, running due tasks in time order.
// Tasks scheduled by those tasks run too if they fall due before target.
func (s *TestScheduler) AdvanceTo(target time.Time) {
	for {
		s.mu.Lock()
		next := s.popDue(target)
		if next == nil {
			if target.After(s.now) {
				s.now = target
			}
			s.mu.Unlock()
			return
		}
		if next.at.After(s.now) {
			s.now = next.at
		}
		s.mu.Unlock()

		next.run()
	}
}

// Flush runs every task due at the current time.
func (s *TestScheduler) Flush() {
	s.AdvanceBy(0)
}

// Pending returns the number of tasks that have not run or been cancelled.
func (s *TestScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled.Load() {
			n++
		}
	}
	return n
}

func (s *TestScheduler) popDue(target time.Time) *timedTask {
	for len(s.tasks) > 0 {
		t := s.tasks[0]
		if t.at.After(target) {
			return nil
		}
		s.tasks = s.tasks[1:]
		if !t.cancelled.Load() {
			return t
		}
	}
	return nil
}
