/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taskrunner

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-taglimit/log"
	"github.com/acronis/go-taglimit/taglimit"
)

// Pool is a taglimit.TaskRunner that executes tasks on a fixed set of worker goroutines.
// Tasks are passed to the workers through a bounded queue;
// Execute blocks while the queue is full, so the queue size should be chosen
// with the expected submission burstiness in mind.
type Pool struct {
	logger  log.FieldLogger
	metrics MetricsCollector

	workersNum int
	tasks      chan taglimit.Task

	running atomic.Bool
}

var _ taglimit.TaskRunner = (*Pool)(nil)

// PoolOpts represents an options for Pool.
type PoolOpts struct {
	// MetricsCollector is used to collect statistics about the pool usage.
	// It can be nil, in this case, metrics will be disabled.
	MetricsCollector MetricsCollector
}

// NewPool creates a new Pool with the passed configuration.
// Nil cfg means the default configuration. Logger may be nil, in this case nothing is logged.
func NewPool(cfg *Config, logger log.FieldLogger) (*Pool, error) {
	return NewPoolWithOpts(cfg, logger, PoolOpts{})
}

// NewPoolWithOpts is a configurable version of NewPool.
func NewPoolWithOpts(cfg *Config, logger log.FieldLogger, opts PoolOpts) (*Pool, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if cfg.WorkersNum <= 0 {
		return nil, fmt.Errorf("workers number should be positive, got %d", cfg.WorkersNum)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("queue size should not be negative, got %d", cfg.QueueSize)
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetricsCollector
	}
	return &Pool{
		logger:     logger,
		metrics:    metrics,
		workersNum: cfg.WorkersNum,
		tasks:      make(chan taglimit.Task, cfg.QueueSize),
	}, nil
}

// MustNewPool is a version of NewPool that panics on error.
func MustNewPool(cfg *Config, logger log.FieldLogger) *Pool {
	p, err := NewPool(cfg, logger)
	if err != nil {
		panic(err)
	}
	return p
}

// Execute puts the task into the pool's queue.
// It blocks while the queue is full and never blocks on the task's completion.
func (p *Pool) Execute(task taglimit.Task) {
	p.tasks <- task
	p.metrics.SetQueueLength(len(p.tasks))
}

// Run starts the workers and blocks until the passed context is canceled.
// Tasks that are being executed at the moment of cancellation are finished,
// tasks still sitting in the queue are not picked up.
// It returns an error if the pool is already running.
func (p *Pool) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("pool is already running")
	}
	defer p.running.Store(false)

	p.logger.Infof("starting task runner pool (workersNum=%d, queueSize=%d)...", p.workersNum, cap(p.tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workersNum; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workerLoop(ctx)
		}()
	}
	wg.Wait()

	p.logger.Info("task runner pool stopped")
	return nil
}

func (p *Pool) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			p.metrics.SetQueueLength(len(p.tasks))
			p.runTask(task)
		}
	}
}

func (p *Pool) runTask(task taglimit.Task) {
	p.metrics.IncBusyWorkers()
	defer func() {
		if pv := recover(); pv != nil {
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			p.logger.Error(fmt.Sprintf("task panic: %+v", pv), log.Bytes("stack", stack))
			p.metrics.IncTaskPanics()
		}
		p.metrics.DecBusyWorkers()
		p.metrics.IncExecutedTasks()
	}()
	task()
}
