package simulation

import (
	"context"
	"sort"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
)

type job struct {
	key      string
	due      time.Duration
	interval time.Duration // zero for one-shot jobs
	order    uint64
	fn       func(ctx context.Context)
}

// Scheduler tracks due times for periodic and debounced work on a virtual
// timeline advanced by RunDue. It keeps running while the driver is paused.
//
// Each key has at most one pending job. Debounce resets the due time of an
// existing job instead of queueing another.
type Scheduler struct {
	now    time.Duration
	jobs   map[string]*job
	nextID uint64
	ran    uint64
	logger common.Logger
}

// NewScheduler creates an empty scheduler
func NewScheduler(logger common.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*job),
		logger: common.OrNoOp(logger),
	}
}

// Every runs fn each interval, first after one interval
func (s *Scheduler) Every(key string, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	s.nextID++
	s.jobs[key] = &job{key: key, due: s.now + interval, interval: interval, order: s.nextID, fn: fn}
}

// Debounce runs fn once, delay after the most recent call for key
func (s *Scheduler) Debounce(key string, delay time.Duration, fn func(ctx context.Context)) {
	if delay < 0 {
		delay = 0
	}
	if existing, ok := s.jobs[key]; ok && existing.interval == 0 {
		existing.due = s.now + delay
		existing.fn = fn
		return
	}
	s.nextID++
	s.jobs[key] = &job{key: key, due: s.now + delay, order: s.nextID, fn: fn}
}

// Cancel drops the job for key and reports whether one existed
func (s *Scheduler) Cancel(key string) bool {
	if _, ok := s.jobs[key]; !ok {
		return false
	}
	delete(s.jobs, key)
	return true
}

// Pending reports whether a job is waiting for key
func (s *Scheduler) Pending(key string) bool {
	_, ok := s.jobs[key]
	return ok
}

// DueIn returns the time until key's next run
func (s *Scheduler) DueIn(key string) (time.Duration, bool) {
	j, ok := s.jobs[key]
	if !ok {
		return 0, false
	}
	return j.due - s.now, true
}

// Elapsed returns the scheduler's virtual time
func (s *Scheduler) Elapsed() time.Duration { return s.now }

// Executions returns how many jobs have run
func (s *Scheduler) Executions() uint64 { return s.ran }

// RunDue advances virtual time by elapsed and runs every job that came due,
// ordered by due time then registration. Jobs scheduled during the run are
// never due in the same call. Returns the number of jobs run.
func (s *Scheduler) RunDue(ctx context.Context, elapsed time.Duration) int {
	if elapsed > 0 {
		s.now += elapsed
	}

	due := make([]*job, 0)
	for _, j := range s.jobs {
		if j.due <= s.now {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		if due[i].due != due[k].due {
			return due[i].due < due[k].due
		}
		return due[i].order < due[k].order
	})

	ran := 0
	for _, j := range due {
		// A previous job may have cancelled, replaced or postponed this one
		if current, ok := s.jobs[j.key]; !ok || current != j || j.due > s.now {
			continue
		}
		if j.interval > 0 {
			j.due += j.interval
			if j.due <= s.now {
				// Skip missed runs after a stall instead of bursting
				j.due = s.now + j.interval
			}
		} else {
			delete(s.jobs, j.key)
		}
		fn := j.fn
		common.Guard(s.logger, "scheduled/"+j.key, nil, func() error {
			fn(ctx)
			return nil
		})
		s.ran++
		ran++
	}
	return ran
}
