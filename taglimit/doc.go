/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package taglimit provides a per-tag concurrency limiter with a single pending slot per tag.
// Each tag is allowed to have at most a fixed number of tasks running at the same time;
// a task submitted while its tag is at the limit is kept as the only pending task
// and replaces (drops) any previously pending one. This makes the limiter suitable
// for cases where only the most recent task per tag needs to be run, e.g. re-issued
// refresh requests.
package taglimit
