/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taskrunner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-taglimit/log/logtest"
)

func TestGo_Execute(t *testing.T) {
	t.Run("task is executed asynchronously", func(t *testing.T) {
		r := NewGo(nil)
		executed := make(chan struct{})
		r.Execute(func() { close(executed) })
		select {
		case <-executed:
		case <-time.After(time.Second):
			t.Fatal("task was not executed")
		}
	})

	t.Run("panicked task is recovered and logged", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		r := NewGo(logRecorder)
		r.Execute(func() { panic("boom") })

		require.Eventually(t, func() bool {
			_, found := logRecorder.FindEntry("task panic: boom")
			return found
		}, time.Second, time.Millisecond*10)

		entry, _ := logRecorder.FindEntry("task panic: boom")
		taskIDField, found := entry.FindField(LogFieldTaskID)
		require.True(t, found)
		require.NotEmpty(t, string(taskIDField.Bytes))
		_, found = entry.FindField("stack")
		require.True(t, found)
	})
}
