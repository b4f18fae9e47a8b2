/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package taglimit

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics to analyze how the limiter is used.
type MetricsCollector interface {
	// SetTagsAmount sets the total number of tags known to the limiter.
	SetTagsAmount(int)

	// IncRunningTasks increments the number of currently running tasks.
	IncRunningTasks()

	// DecRunningTasks decrements the number of currently running tasks.
	DecRunningTasks()

	// IncQueuedTasks increments the total number of tasks put into the pending slot.
	IncQueuedTasks()

	// IncDroppedTasks increments the total number of pending tasks dropped because of being superseded.
	IncDroppedTasks()
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

// PrometheusMetrics represents Prometheus metrics for the limiter.
type PrometheusMetrics struct {
	TagsAmount        *prometheus.GaugeVec
	RunningTasks      *prometheus.GaugeVec
	QueuedTasksTotal  *prometheus.CounterVec
	DroppedTasksTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	tagsAmount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "tagged_limiter_tags_amount",
			Help:        "Total number of tags known to the limiter.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	runningTasks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "tagged_limiter_running_tasks",
			Help:        "Number of currently running tasks.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	queuedTasksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "tagged_limiter_queued_tasks_total",
			Help:        "Number of tasks put into the pending slot.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	droppedTasksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "tagged_limiter_dropped_tasks_total",
			Help:        "Number of pending tasks dropped because of being superseded.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		TagsAmount:        tagsAmount,
		RunningTasks:      runningTasks,
		QueuedTasksTotal:  queuedTasksTotal,
		DroppedTasksTotal: droppedTasksTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		TagsAmount:        pm.TagsAmount.MustCurryWith(labels),
		RunningTasks:      pm.RunningTasks.MustCurryWith(labels),
		QueuedTasksTotal:  pm.QueuedTasksTotal.MustCurryWith(labels),
		DroppedTasksTotal: pm.DroppedTasksTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.TagsAmount,
		pm.RunningTasks,
		pm.QueuedTasksTotal,
		pm.DroppedTasksTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.TagsAmount)
	prometheus.Unregister(pm.RunningTasks)
	prometheus.Unregister(pm.QueuedTasksTotal)
	prometheus.Unregister(pm.DroppedTasksTotal)
}

// SetTagsAmount sets the total number of tags known to the limiter.
func (pm *PrometheusMetrics) SetTagsAmount(amount int) {
	pm.TagsAmount.With(nil).Set(float64(amount))
}

// IncRunningTasks increments the number of currently running tasks.
func (pm *PrometheusMetrics) IncRunningTasks() {
	pm.RunningTasks.With(nil).Inc()
}

// DecRunningTasks decrements the number of currently running tasks.
func (pm *PrometheusMetrics) DecRunningTasks() {
	pm.RunningTasks.With(nil).Dec()
}

// IncQueuedTasks increments the total number of tasks put into the pending slot.
func (pm *PrometheusMetrics) IncQueuedTasks() {
	pm.QueuedTasksTotal.With(nil).Inc()
}

// IncDroppedTasks increments the total number of pending tasks dropped because of being superseded.
func (pm *PrometheusMetrics) IncDroppedTasks() {
	pm.DroppedTasksTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetTagsAmount(int) {}
func (disabledMetrics) IncRunningTasks() {}
func (disabledMetrics) DecRunningTasks() {}
func (disabledMetrics) IncQueuedTasks()  {}
func (disabledMetrics) IncDroppedTasks() {}

var disabledMetricsCollector = disabledMetrics{}
