/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taskrunner

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics to analyze how the pool is used.
type MetricsCollector interface {
	// SetQueueLength sets the current number of tasks waiting in the queue.
	SetQueueLength(int)

	// IncBusyWorkers increments the number of workers that are executing tasks right now.
	IncBusyWorkers()

	// DecBusyWorkers decrements the number of workers that are executing tasks right now.
	DecBusyWorkers()

	// IncExecutedTasks increments the total number of executed tasks (including panicked ones).
	IncExecutedTasks()

	// IncTaskPanics increments the total number of tasks that panicked during execution.
	IncTaskPanics()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the pool.
type PrometheusMetrics struct {
	QueueLength        *prometheus.GaugeVec
	BusyWorkers        *prometheus.GaugeVec
	ExecutedTasksTotal *prometheus.CounterVec
	TaskPanicsTotal    *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	queueLength := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "task_runner_queue_length",
			Help:        "Number of tasks waiting in the queue.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	busyWorkers := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "task_runner_busy_workers",
			Help:        "Number of workers that are executing tasks right now.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	executedTasksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "task_runner_executed_tasks_total",
			Help:        "Number of executed tasks (including panicked ones).",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	taskPanicsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "task_runner_task_panics_total",
			Help:        "Number of tasks that panicked during execution.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		QueueLength:        queueLength,
		BusyWorkers:        busyWorkers,
		ExecutedTasksTotal: executedTasksTotal,
		TaskPanicsTotal:    taskPanicsTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		QueueLength:        pm.QueueLength.MustCurryWith(labels),
		BusyWorkers:        pm.BusyWorkers.MustCurryWith(labels),
		ExecutedTasksTotal: pm.ExecutedTasksTotal.MustCurryWith(labels),
		TaskPanicsTotal:    pm.TaskPanicsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.QueueLength,
		pm.BusyWorkers,
		pm.ExecutedTasksTotal,
		pm.TaskPanicsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueueLength)
	prometheus.Unregister(pm.BusyWorkers)
	prometheus.Unregister(pm.ExecutedTasksTotal)
	prometheus.Unregister(pm.TaskPanicsTotal)
}

// SetQueueLength sets the current number of tasks waiting in the queue.
func (pm *PrometheusMetrics) SetQueueLength(length int) {
	pm.QueueLength.With(nil).Set(float64(length))
}

// IncBusyWorkers increments the number of workers that are executing tasks right now.
func (pm *PrometheusMetrics) IncBusyWorkers() {
	pm.BusyWorkers.With(nil).Inc()
}

// DecBusyWorkers decrements the number of workers that are executing tasks right now.
func (pm *PrometheusMetrics) DecBusyWorkers() {
	pm.BusyWorkers.With(nil).Dec()
}

// IncExecutedTasks increments the total number of executed tasks (including panicked ones).
func (pm *PrometheusMetrics) IncExecutedTasks() {
	pm.ExecutedTasksTotal.With(nil).Inc()
}

// IncTaskPanics increments the total number of tasks that panicked during execution.
func (pm *PrometheusMetrics) IncTaskPanics() {
	pm.TaskPanicsTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetQueueLength(int) {}
func (disabledMetrics) IncBusyWorkers()    {}
func (disabledMetrics) DecBusyWorkers()    {}
func (disabledMetrics) IncExecutedTasks()  {}
func (disabledMetrics) IncTaskPanics()     {}

var disabledMetricsCollector = disabledMetrics{}
