/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package taskrunner provides ready-to-use implementations of the taglimit.TaskRunner interface:
// a goroutine-per-task runner and a fixed-size worker pool with a bounded queue.
// Both recover task panics so that a panicking task cannot take down the process.
package taskrunner
