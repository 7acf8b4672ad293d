package camunda

import (
	"errors"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	commonerrors "card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/metrics"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeJobClient records which command a handler asked for. The returned
// command steps are nil and must not be used.
type fakeJobClient struct {
	worker.JobClient
	calls []string
}

func (f *fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	f.calls = append(f.calls, "complete")
	return nil
}

func (f *fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	f.calls = append(f.calls, "fail")
	return nil
}

func (f *fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	f.calls = append(f.calls, "throw")
	return nil
}

func createTestJob() entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "instrument-test", Retries: 3}}
}

// ==========================
// Instrumentation Tests
// ==========================

func TestInstrument_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name     string
		taskType string
		call     func(worker.JobClient)
		outcome  string
	}{
		{name: "completed", taskType: "instrument-complete", call: func(c worker.JobClient) { c.NewCompleteJobCommand() }, outcome: OutcomeCompleted},
		{name: "failed", taskType: "instrument-fail", call: func(c worker.JobClient) { c.NewFailJobCommand() }, outcome: OutcomeFailed},
		{name: "thrown", taskType: "instrument-throw", call: func(c worker.JobClient) { c.NewThrowErrorCommand() }, outcome: OutcomeThrown},
		{name: "silent handler", taskType: "instrument-silent", call: func(worker.JobClient) {}, outcome: OutcomeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeJobClient{}
			var seen worker.JobClient
			handler := Instrument(tt.taskType, func(c worker.JobClient, job entities.Job) {
				seen = c
				tt.call(c)
			}, nil)

			handler(fake, createTestJob())

			assert.NotSame(t, fake, seen)
			assert.Equal(t, float64(0), testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(tt.taskType)))
			if tt.outcome == OutcomeCompleted {
				assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(tt.taskType)))
				assert.Equal(t, []string{"complete"}, fake.calls)
				return
			}
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(tt.taskType, tt.outcome)))
		})
	}
}

// ==========================
// Error Mapping Tests
// ==========================

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("rpc error: code = Unavailable desc = connection refused")))
	assert.True(t, IsTransient(errors.New("context deadline exceeded")))
	assert.False(t, IsTransient(errors.New("permission denied")))
	assert.False(t, IsTransient(nil))
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code commonerrors.ErrorCode
	}{
		{"context deadline exceeded", commonerrors.ErrCodeTimeout},
		{"rpc error: code = Unauthenticated", commonerrors.ErrCodeAuthenticationFailed},
		{"connection refused", commonerrors.ErrCodeExternalService},
	}
	for _, tt := range tests {
		se, ok := commonerrors.As(mapZeebeError(errors.New(tt.msg), "topology"))
		assert.True(t, ok, tt.msg)
		assert.Equal(t, tt.code, se.Code, tt.msg)
	}
}
