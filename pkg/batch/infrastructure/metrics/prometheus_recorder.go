// Package metrics provides the Prometheus and OpenTelemetry backends of the
// engine's MetricRecorder and Tracer.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	model "github.com/tigerroll/weatheretl/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/weatheretl/pkg/batch/core/metrics"
	logger "github.com/tigerroll/weatheretl/pkg/batch/support/util/logger"
)

// PrometheusOptions controls where Flush delivers the registry.
type PrometheusOptions struct {
	// TextfilePath is written in the node-exporter textfile format when set.
	TextfilePath string
	// PushgatewayURL receives a push under PushJobName when set.
	PushgatewayURL string
	PushJobName    string
}

// PrometheusRecorder is a Prometheus implementation of metrics.MetricRecorder.
// A batch process is short-lived, so metrics are exported on Flush rather than scraped.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	opts     PrometheusOptions

	jobDurationSeconds  *prometheus.HistogramVec
	jobStatusCounter    *prometheus.CounterVec
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec
	operationSeconds    *prometheus.HistogramVec
	lastSuccess         *prometheus.GaugeVec
}

// NewPrometheusRecorder creates a PrometheusRecorder with its own registry.
func NewPrometheusRecorder(opts PrometheusOptions) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		opts:     opts,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of finished batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of finished batch step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_read_total",
			Help: "Total items read by step.",
		}, []string{"step_name"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_write_total",
			Help: "Total items written by step.",
		}, []string{"step_name"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_operation_duration_seconds",
			Help:    "Duration of named operations such as API calls and tasklet executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "step_name", "status"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "batch_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful job execution.",
		}, []string{"job_name"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepReadCount,
		r.stepWriteCount,
		r.operationSeconds,
		r.lastSuccess,
	)
	return r
}

func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	if execution.Status == model.BatchStatusCompleted {
		r.lastSuccess.WithLabelValues(execution.JobName).Set(float64(execution.EndTime.Unix()))
	}
	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	jobName := jobNameOf(execution)
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		execution.StepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)
	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, stepName string, count int) {
	r.stepReadCount.WithLabelValues(stepName).Add(float64(count))
}

func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.stepWriteCount.WithLabelValues(stepName).Add(float64(count))
}

// RecordDuration observes duration under the "step" and "status" tags. Other tags are dropped.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name, tags["step"], tags["status"]).Observe(duration.Seconds())
}

// Flush writes the registry to the textfile and pushes it to the Pushgateway, as configured.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.opts.TextfilePath != "" {
		if err := prometheus.WriteToTextfile(r.opts.TextfilePath, r.registry); err != nil {
			return fmt.Errorf("failed to write metrics textfile %s: %w", r.opts.TextfilePath, err)
		}
		logger.Debugf("Metrics written to %s.", r.opts.TextfilePath)
	}
	if r.opts.PushgatewayURL != "" {
		jobName := r.opts.PushJobName
		if jobName == "" {
			jobName = "batch"
		}
		if err := push.New(r.opts.PushgatewayURL, jobName).Gatherer(r.registry).PushContext(ctx); err != nil {
			return fmt.Errorf("failed to push metrics to %s: %w", r.opts.PushgatewayURL, err)
		}
		logger.Debugf("Metrics pushed to %s.", r.opts.PushgatewayURL)
	}
	return nil
}

func jobNameOf(execution *model.StepExecution) string {
	if execution.JobExecution == nil {
		return ""
	}
	return execution.JobExecution.JobName
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
