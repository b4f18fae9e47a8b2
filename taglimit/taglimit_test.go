/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taglimit

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-taglimit/log/logtest"
)

// manualRunner collects handed tasks and runs them only when the test says so.
type manualRunner struct {
	mu    sync.Mutex
	tasks []Task
}

func (r *manualRunner) Execute(task Task) {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
}

// runNext runs the oldest handed task synchronously on the calling goroutine.
func (r *manualRunner) runNext() bool {
	r.mu.Lock()
	if len(r.tasks) == 0 {
		r.mu.Unlock()
		return false
	}
	task := r.tasks[0]
	r.tasks = r.tasks[1:]
	r.mu.Unlock()
	task()
	return true
}

func (r *manualRunner) runAll() {
	for r.runNext() {
	}
}

func (r *manualRunner) tasksCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func goRunner() TaskRunner {
	return TaskRunnerFunc(func(task Task) {
		go task()
	})
}

func TestNew(t *testing.T) {
	t.Run("nil runner", func(t *testing.T) {
		tl, err := New(nil, 1)
		require.EqualError(t, err, "task runner is required")
		require.Nil(t, tl)
	})

	t.Run("negative limit", func(t *testing.T) {
		tl, err := New(&manualRunner{}, -1)
		require.EqualError(t, err, "limit per tag should not be negative, got -1")
		require.Nil(t, tl)
	})

	t.Run("must version panics", func(t *testing.T) {
		require.Panics(t, func() {
			MustNew(&manualRunner{}, -1)
		})
	})

	t.Run("zero limit is legal", func(t *testing.T) {
		tl, err := New(&manualRunner{}, 0)
		require.NoError(t, err)
		require.Equal(t, 0, tl.LimitPerTag())
	})
}

func TestTaggedLimiter_Submit(t *testing.T) {
	t.Run("runs immediately while under the limit", func(t *testing.T) {
		runner := &manualRunner{}
		tl := MustNew(runner, 2)

		var a1Run, a2Run bool
		require.False(t, tl.Submit("a", func() { a1Run = true }))
		require.False(t, tl.Submit("a", func() { a2Run = true }))
		require.Equal(t, 2, runner.tasksCount())

		runner.runAll()
		require.True(t, a1Run)
		require.True(t, a2Run)
	})

	t.Run("tasks over the limit go to the single pending slot", func(t *testing.T) {
		runner := &manualRunner{}
		tl := MustNew(runner, 2)

		var a3Run, b1Run bool
		require.False(t, tl.Submit("a", func() {}))
		require.False(t, tl.Submit("a", func() {}))
		require.True(t, tl.Submit("a", func() { a3Run = true }))

		// Tag "b" is unaffected by tag "a" being at its limit.
		require.False(t, tl.Submit("b", func() { b1Run = true }))

		require.Equal(t, 2, runner.tasksCount())
		require.False(t, a3Run)

		// The first "a" task finishes and the pending one is handed to the runner.
		require.True(t, runner.runNext())
		require.Equal(t, 2, runner.tasksCount())

		runner.runAll()
		require.True(t, a3Run)
		require.True(t, b1Run)
	})

	t.Run("newer pending task supersedes the older one", func(t *testing.T) {
		runner := &manualRunner{}
		tl := MustNew(runner, 2)

		var a3Run, a4Run bool
		require.False(t, tl.Submit("a", func() {}))
		require.False(t, tl.Submit("a", func() {}))
		require.True(t, tl.Submit("a", func() { a3Run = true }))
		require.True(t, tl.Submit("a", func() { a4Run = true }))

		runner.runAll()
		require.False(t, a3Run, "pending task should have been dropped when the next one was submitted")
		require.True(t, a4Run)
	})

	t.Run("empty tag is an ordinary key", func(t *testing.T) {
		runner := &manualRunner{}
		tl := MustNew(runner, 1)

		require.False(t, tl.Submit("", func() {}))
		require.True(t, tl.Submit("", func() {}))
		require.Equal(t, 1, tl.TagsAmount())
	})

	t.Run("zero limit never runs anything", func(t *testing.T) {
		runner := &manualRunner{}
		tl := MustNew(runner, 0)

		for i := 0; i < 10; i++ {
			require.True(t, tl.Submit("a", func() { t.Error("task should never run") }))
			require.True(t, tl.Submit("b", func() { t.Error("task should never run") }))
		}
		require.Equal(t, 0, runner.tasksCount())
	})
}

func TestTaggedLimiter_PendingRuns(t *testing.T) {
	tl := MustNew(goRunner(), 2)

	a1Started, a1Release := make(chan struct{}), make(chan struct{})
	a2Started, a2Release := make(chan struct{}), make(chan struct{})
	a3Done := make(chan struct{})

	require.False(t, tl.Submit("a", func() { close(a1Started); <-a1Release }))
	require.False(t, tl.Submit("a", func() { close(a2Started); <-a2Release }))
	<-a1Started
	<-a2Started

	require.True(t, tl.Submit("a", func() { close(a3Done) }))

	// Let the first task finish, the pending one should be run.
	close(a1Release)
	select {
	case <-a3Done:
	case <-time.After(time.Second):
		t.Fatal("pending task was not run after a running slot freed")
	}
	close(a2Release)
}

func TestTaggedLimiter_RunningTasksNeverExceedLimit(t *testing.T) {
	const limitPerTag = 3
	const submittersNum = 8
	const submissionsPerSubmitter = 50

	tags := []string{"a", "b", "c"}
	tl := MustNew(goRunner(), limitPerTag)

	running := make([]*atomic.Int32, len(tags))
	maxRunning := make([]*atomic.Int32, len(tags))
	for i := range tags {
		running[i] = atomic.NewInt32(0)
		maxRunning[i] = atomic.NewInt32(0)
	}

	var wg sync.WaitGroup
	for s := 0; s < submittersNum; s++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < submissionsPerSubmitter; i++ {
				tagIdx := rnd.Intn(len(tags))
				tl.Submit(tags[tagIdx], func() {
					cur := running[tagIdx].Inc()
					for {
						max := maxRunning[tagIdx].Load()
						if cur <= max || maxRunning[tagIdx].CompareAndSwap(max, cur) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					running[tagIdx].Dec()
				})
			}
		}(int64(s))
	}
	wg.Wait()

	// With no more submissions, all running and pending tasks should eventually drain.
	require.Eventually(t, func() bool {
		tl.mu.Lock()
		defer tl.mu.Unlock()
		for _, s := range tl.slots {
			s.mu.Lock()
			drained := s.running == 0 && s.pending == nil
			s.mu.Unlock()
			if !drained {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	for i := range tags {
		require.LessOrEqualf(t, int(maxRunning[i].Load()), limitPerTag,
			"tag %q had more concurrently running tasks than the limit", tags[i])
	}
}

func TestTaggedLimiter_ConcurrentSlotCreation(t *testing.T) {
	const submittersNum = 32

	tl := MustNew(goRunner(), submittersNum)

	var executed atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < submittersNum; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tl.Submit("same", func() { executed.Inc() })
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, tl.TagsAmount())
	require.Eventually(t, func() bool {
		return executed.Load() == submittersNum
	}, time.Second, time.Millisecond)
}

func TestSlot_AnomalousStates(t *testing.T) {
	t.Run("running count above the limit is clamped", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		runner := &manualRunner{}
		tl := MustNewWithOpts(runner, 2, Opts{Logger: logRecorder})

		s := tl.getOrCreateSlot("a")
		s.mu.Lock()
		s.running = 5
		s.mu.Unlock()

		require.True(t, tl.Submit("a", func() {}))
		require.Equal(t, 0, runner.tasksCount())

		entry, found := logRecorder.FindEntry("running tasks count is greater than the limit")
		require.True(t, found)
		runningField, found := entry.FindField("running")
		require.True(t, found)
		require.Equal(t, int64(5), runningField.Int)
		tagField, found := entry.FindField(LogFieldTag)
		require.True(t, found)
		require.Equal(t, "a", string(tagField.Bytes))

		s.mu.Lock()
		require.Equal(t, 2, s.running)
		require.NotNil(t, s.pending)
		s.mu.Unlock()
	})

	t.Run("finished callback without running tasks is clamped", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		runner := &manualRunner{}
		tl := MustNewWithOpts(runner, 2, Opts{Logger: logRecorder})

		s := tl.getOrCreateSlot("a")
		s.onTaskFinished()

		_, found := logRecorder.FindEntry("task finished for a tag without running tasks")
		require.True(t, found)

		s.mu.Lock()
		require.Equal(t, 0, s.running)
		s.mu.Unlock()
	})

	t.Run("pending task is still dispatched after clamping", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		runner := &manualRunner{}
		tl := MustNewWithOpts(runner, 1, Opts{Logger: logRecorder})

		var pendingRun bool
		require.False(t, tl.Submit("a", func() {}))
		require.True(t, tl.Submit("a", func() { pendingRun = true }))

		runner.runAll()
		require.True(t, pendingRun)
		require.Empty(t, logRecorder.Entries())
	})
}

func TestTaggedLimiter_TaskPanicStillFreesSlot(t *testing.T) {
	// The runner owns the panic handling policy, the limiter only guarantees
	// that its completion bookkeeping runs anyway.
	recoveringRunner := TaskRunnerFunc(func(task Task) {
		go func() {
			defer func() { _ = recover() }()
			task()
		}()
	})
	tl := MustNew(recoveringRunner, 1)

	panicStarted := make(chan struct{})
	require.False(t, tl.Submit("a", func() {
		close(panicStarted)
		panic("boom")
	}))
	<-panicStarted

	// After the panicked task finishes, the tag must be under its limit again.
	require.Eventually(t, func() bool {
		s := tl.getOrCreateSlot("a")
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running == 0
	}, time.Second, time.Millisecond)

	executed := make(chan struct{})
	require.False(t, tl.Submit("a", func() { close(executed) }))
	select {
	case <-executed:
	case <-time.After(time.Second):
		t.Fatal("task was not executed after the previous one panicked")
	}
}
