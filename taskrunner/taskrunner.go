/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taskrunner

import (
	"fmt"
	"runtime"

	"github.com/rs/xid"

	"github.com/acronis/go-taglimit/log"
	"github.com/acronis/go-taglimit/taglimit"
)

// Log fields used by runners.
const (
	LogFieldTaskID = "task_id"
)

const logStackSize = 8192

// Go is a taglimit.TaskRunner that executes each task in its own goroutine.
type Go struct {
	logger log.FieldLogger
}

var _ taglimit.TaskRunner = (*Go)(nil)

// NewGo creates a new Go runner. Logger may be nil, in this case nothing is logged.
func NewGo(logger log.FieldLogger) *Go {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Go{logger: logger}
}

// Execute runs the task in a new goroutine and returns immediately.
// A panicking task is recovered and logged with its task id.
func (g *Go) Execute(task taglimit.Task) {
	taskID := xid.New().String()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				stack := make([]byte, logStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				g.logger.Error(fmt.Sprintf("task panic: %+v", p),
					log.String(LogFieldTaskID, taskID), log.Bytes("stack", stack))
			}
		}()
		g.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
			logFunc("executing task", log.String(LogFieldTaskID, taskID))
		})
		task()
	}()
}
