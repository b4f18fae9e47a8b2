/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taglimit

import (
	"fmt"
	"sync"

	"github.com/acronis/go-taglimit/log"
)

// Task is an opaque unit of work. The limiter never inspects it,
// it only decides when (and whether) to hand it to the TaskRunner.
type Task func()

// TaskRunner is an external concurrency primitive that executes tasks
// asynchronously relative to the submitting goroutine.
// The limiter does not create or manage worker goroutines itself.
type TaskRunner interface {
	Execute(task Task)
}

// TaskRunnerFunc is an adapter to allow the use of ordinary functions as TaskRunner.
type TaskRunnerFunc func(task Task)

// Execute is a part of TaskRunner interface.
func (f TaskRunnerFunc) Execute(task Task) {
	f(task)
}

// Log fields used by TaggedLimiter.
const (
	LogFieldTag = "tag"
)

// TaggedLimiter imposes a concurrency limit on each tag, keeping at most one pending task per tag.
// If more tasks are submitted while one is already pending, the pending task is dropped
// and replaced by the most recent one. Dropped tasks are never executed and receive no notification.
//
// Slots are created lazily on the first submission for a tag and are kept
// for the whole lifetime of the limiter.
type TaggedLimiter struct {
	runner      TaskRunner
	limitPerTag int
	logger      log.FieldLogger
	metrics     MetricsCollector

	mu    sync.Mutex
	slots map[string]*slot
}

// Opts represents an options for TaggedLimiter.
type Opts struct {
	// Logger is used for logging diagnostic messages about anomalous accounting states.
	// No logging is done if it is nil.
	Logger log.FieldLogger

	// MetricsCollector is used to collect statistics about the limiter usage.
	// It can be nil, in this case, metrics will be disabled.
	MetricsCollector MetricsCollector
}

// New creates a new TaggedLimiter that uses the passed runner for executing tasks
// and allows at most limitPerTag concurrently running tasks for each tag.
// Zero limitPerTag is a legal degenerate configuration under which every submitted task
// is queued (and eventually dropped) and no task ever runs.
func New(runner TaskRunner, limitPerTag int) (*TaggedLimiter, error) {
	return NewWithOpts(runner, limitPerTag, Opts{})
}

// MustNew is a version of New that panics on error.
func MustNew(runner TaskRunner, limitPerTag int) *TaggedLimiter {
	tl, err := New(runner, limitPerTag)
	if err != nil {
		panic(err)
	}
	return tl
}

// NewWithOpts is a configurable version of New.
func NewWithOpts(runner TaskRunner, limitPerTag int, opts Opts) (*TaggedLimiter, error) {
	if runner == nil {
		return nil, fmt.Errorf("task runner is required")
	}
	if limitPerTag < 0 {
		return nil, fmt.Errorf("limit per tag should not be negative, got %d", limitPerTag)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetricsCollector
	}
	return &TaggedLimiter{
		runner:      runner,
		limitPerTag: limitPerTag,
		logger:      logger,
		metrics:     metrics,
		slots:       make(map[string]*slot),
	}, nil
}

// MustNewWithOpts is a version of NewWithOpts that panics on error.
func MustNewWithOpts(runner TaskRunner, limitPerTag int, opts Opts) *TaggedLimiter {
	tl, err := NewWithOpts(runner, limitPerTag, opts)
	if err != nil {
		panic(err)
	}
	return tl
}

// Submit hands the task to the runner if the tag is under its concurrency limit.
// Otherwise, it stores the task as the only pending one for the tag,
// dropping any previously pending task.
//
// Submit returns true if the task was put into the pending slot
// (i.e. it may be dropped later without being run), and false if the task
// was handed to the runner for immediate execution.
// It never blocks waiting for the task (or any other task) to complete.
// Any string (including empty) is accepted as a tag.
func (tl *TaggedLimiter) Submit(tag string, task Task) bool {
	return tl.getOrCreateSlot(tag).submit(task)
}

// LimitPerTag returns the concurrency limit applied to each tag.
func (tl *TaggedLimiter) LimitPerTag() int {
	return tl.limitPerTag
}

// TagsAmount returns the number of tags ever submitted to the limiter.
func (tl *TaggedLimiter) TagsAmount() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.slots)
}

// getOrCreateSlot is the only place where the tag map is accessed.
// The limiter mutex is never held while slot methods are called,
// so a congested tag cannot stall submissions for other tags.
func (tl *TaggedLimiter) getOrCreateSlot(tag string) *slot {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	s, ok := tl.slots[tag]
	if !ok {
		s = &slot{
			limit:   tl.limitPerTag,
			runner:  tl.runner,
			logger:  tl.logger.With(log.String(LogFieldTag, tag)),
			metrics: tl.metrics,
		}
		tl.slots[tag] = s
		tl.metrics.SetTagsAmount(len(tl.slots))
	}
	return s
}

// slot is per-tag bookkeeping: the count of currently running tasks
// and at most one pending task waiting for a free running slot.
type slot struct {
	limit   int
	runner  TaskRunner
	logger  log.FieldLogger
	metrics MetricsCollector

	mu      sync.Mutex
	running int
	pending Task
}

func (s *slot) submit(task Task) bool {
	s.mu.Lock()
	wrapped, queued := s.admit(task)
	s.mu.Unlock()
	// Dispatching outside the critical section keeps the slot mutex out of the runner's way:
	// a runner that executes tasks synchronously on the calling goroutine would otherwise
	// deadlock on the completion callback.
	if wrapped != nil {
		s.runner.Execute(wrapped)
	}
	return queued
}

// admit decides whether the task may start running right now.
// It either accounts the task as running and returns its wrapped form to be handed to the runner,
// or stores the task as pending (dropping the previously pending one) and returns queued=true.
// Must be called with s.mu held.
func (s *slot) admit(task Task) (wrapped Task, queued bool) {
	if s.running > s.limit {
		// Should be unreachable, indicates an accounting bug. Clamp and carry on.
		s.logger.Warn("running tasks count is greater than the limit",
			log.Int("running", s.running), log.Int("limit", s.limit))
		s.running = s.limit
	}
	if s.running == s.limit {
		if s.pending != nil {
			s.metrics.IncDroppedTasks()
		}
		s.pending = task
		s.metrics.IncQueuedTasks()
		return nil, true
	}
	s.running++
	s.metrics.IncRunningTasks()
	return func() {
		defer s.onTaskFinished()
		task()
	}, false
}

// onTaskFinished is invoked exactly once per task that was handed to the runner,
// after the task's execution, whether it finished normally or panicked.
func (s *slot) onTaskFinished() {
	s.mu.Lock()
	if s.running <= 0 {
		// A finished callback without a running task means the completion
		// bookkeeping got out of sync somewhere. Clamp and carry on.
		s.logger.Warn("task finished for a tag without running tasks",
			log.Int("running", s.running))
		s.running = 1
	}
	s.running--
	s.metrics.DecRunningTasks()
	var wrapped Task
	if s.pending != nil {
		next := s.pending
		s.pending = nil
		// The just-freed capacity normally lets the pending task start right away,
		// but admit correctly re-queues it when it doesn't (limit=0).
		wrapped, _ = s.admit(next)
	}
	s.mu.Unlock()
	if wrapped != nil {
		s.runner.Execute(wrapped)
	}
}
