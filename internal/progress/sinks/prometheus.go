package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shelfscope/shelfscope/internal/progress"
)

// PrometheusSink exports batch progress metrics. It owns all collectors for
// tasks started/completed/running plus extraction counters.
type PrometheusSink struct {
	tasksStarted   prometheus.Counter
	tasksCompleted *prometheus.CounterVec
	tasksRunning   prometheus.Gauge
	taskRuntime    *prometheus.HistogramVec

	recordsExtracted *prometheus.CounterVec
	scrollCycles     prometheus.Histogram
	stepOutcomes     *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shelfscope_tasks_started_total",
			Help: "Total scrape tasks that have started.",
		}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfscope_tasks_completed_total",
			Help: "Total scrape tasks completed partitioned by result.",
		}, []string{"result"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shelfscope_tasks_running",
			Help: "Current number of running scrape tasks.",
		}),
		taskRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shelfscope_task_runtime_seconds",
			Help:    "Wall time per completed scrape task.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		recordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfscope_records_extracted_total",
			Help: "Extracted product records partitioned by location.",
		}, []string{"location"}),
		scrollCycles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shelfscope_scroll_cycles",
			Help:    "Scroll cycles executed per task.",
			Buckets: []float64{1, 2, 5, 10, 20, 40, 80},
		}),
		stepOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shelfscope_step_outcomes_total",
			Help: "Soft UI step completions partitioned by step and outcome.",
		}, []string{"step", "outcome"}),
	}
	for _, collector := range []prometheus.Collector{
		s.tasksStarted,
		s.tasksCompleted,
		s.tasksRunning,
		s.taskRuntime,
		s.recordsExtracted,
		s.scrollCycles,
		s.stepOutcomes,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the event batch.
func (s *PrometheusSink) Consume(ctx context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch evt.Stage {
		case progress.StageTaskStart:
			s.tasksStarted.Inc()
			s.tasksRunning.Inc()
		case progress.StageTaskStep:
			s.stepOutcomes.WithLabelValues(evt.Step, evt.Outcome).Inc()
		case progress.StageTaskDone:
			s.tasksRunning.Dec()
			s.tasksCompleted.WithLabelValues("succeeded").Inc()
			s.taskRuntime.WithLabelValues("succeeded").Observe(evt.Dur.Seconds())
			s.recordsExtracted.WithLabelValues(evt.Location).Add(float64(evt.Records))
			s.scrollCycles.Observe(float64(evt.ScrollCycles))
		case progress.StageTaskError:
			s.tasksRunning.Dec()
			s.tasksCompleted.WithLabelValues("failed").Inc()
			s.taskRuntime.WithLabelValues("failed").Observe(evt.Dur.Seconds())
		case progress.StageBatchDone:
			// Batch completion carries no per-task counters.
		}
	}
	return nil
}

// Close is a no-op; collectors live for the process lifetime.
func (s *PrometheusSink) Close(_ context.Context) error {
	return nil
}
