package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/common/metrics"
	"card-program-wizard/internal/common/observability"
)

// Job outcomes, as recorded in worker metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeThrown    = "bpmn_error"
	OutcomeUnknown   = "unreported"
)

type JobHandler func(client worker.JobClient, job entities.Job)

type Worker struct {
	taskType string
	jw       worker.JobWorker
	logger   logger.Logger
}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in wcfg.
func StartWorker(zb zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, obs *observability.Observability, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jw := zb.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, handler, obs))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return &Worker{taskType: taskType, jw: jw, logger: log}
}

func (w *Worker) Stop() {
	if w == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.jw.Close()
	w.jw.AwaitClose()
}

// Instrument records duration, concurrency and outcome for every job the
// handler processes. The outcome is taken from the command the handler
// sends back to the gateway.
func Instrument(taskType string, handler JobHandler, obs *observability.Observability) JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		rc := &reportingClient{JobClient: client, outcome: OutcomeUnknown}
		handler(rc, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		switch rc.outcome {
		case OutcomeCompleted:
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		default:
			metrics.WorkerJobsFailed.WithLabelValues(taskType, rc.outcome).Inc()
		}

		ctx := context.Background()
		obs.RecordJobProcessed(ctx, taskType, rc.outcome)
		obs.RecordJobDuration(ctx, taskType, elapsed, rc.outcome)
	}
}

type reportingClient struct {
	worker.JobClient
	outcome string
}

func (c *reportingClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = OutcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *reportingClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = OutcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *reportingClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = OutcomeThrown
	return c.JobClient.NewThrowErrorCommand()
}
