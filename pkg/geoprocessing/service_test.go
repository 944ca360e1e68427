package geoprocessing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"yqhp/geoanalysis/internal/gpserver"
	"yqhp/geoanalysis/pkg/connection"
	"yqhp/geoanalysis/pkg/journal"
	"yqhp/geoanalysis/pkg/metrics"
	"yqhp/geoanalysis/pkg/types"
)

var starting = types.JobMessage{Type: types.MessageTypeInformative, Description: "Starting"}

func densityJob() gpserver.Job {
	return gpserver.Job{
		ID: "j1",
		Snapshots: []types.JobSnapshot{
			{JobStatus: types.JobStatusExecuting, Messages: []types.JobMessage{starting}},
			{
				JobStatus: types.JobStatusSucceeded,
				Messages:  []types.JobMessage{starting},
				Results:   map[string]types.ResultParam{"resultLayer": {ParamURL: "resultLayer"}},
			},
		},
		Values: map[string]any{
			"resultLayer": map[string]any{"layerDefinition": map[string]any{"name": "density"}},
		},
	}
}

func newTestService(t *testing.T, server *gpserver.Server, opts ...ServiceOption) *Service {
	conn := connection.New(&connection.Config{Token: "secret", RequestTimeout: 5 * time.Second})
	t.Cleanup(conn.Close)

	opts = append([]ServiceOption{WithLogger(zap.NewNop()), WithSleep(noSleep)}, opts...)
	return NewService(conn, server.URL, opts...)
}

func TestService_RunCalculateDensity(t *testing.T) {
	server := gpserver.New(t)
	server.Enqueue("CalculateDensity", densityJob())

	sink := &recordingSink{}
	j := journal.NewMemory()
	svc := newTestService(t, server, WithSinks(sink), WithJournal(j))

	inv := NewInvocation("CalculateDensity", map[string]any{
		"inputLayer":  map[string]any{"url": "https://services.example.com/FeatureServer/0"},
		"radius":      5,
		"radiusUnits": "Miles",
	})

	res, err := svc.Run(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"resultLayer": map[string]any{"layerDefinition": map[string]any{"name": "density"}},
	}, res.Outputs)
	assert.Equal(t, "j1", res.Handle.JobID)
	assert.Equal(t, types.JobStatusSucceeded, res.Snapshot.JobStatus)
	assert.Equal(t, []string{"Starting"}, sink.descriptions())

	assert.Equal(t, 2, server.Polls("j1"))
	assert.Equal(t, 1, server.Fetches("j1", "resultLayer"))

	subs := server.Submissions("CalculateDensity")
	require.Len(t, subs, 1)
	assert.Equal(t, "json", subs[0]["f"])
	assert.Equal(t, "secret", subs[0]["token"])
	assert.Equal(t, "5", subs[0]["radius"])
	assert.Equal(t, "Miles", subs[0]["radiusUnits"])
	assert.JSONEq(t, `{"url":"https://services.example.com/FeatureServer/0"}`, subs[0]["inputLayer"])

	entry, err := j.Get(context.Background(), inv.ID())
	require.NoError(t, err)
	assert.Equal(t, "j1", entry.JobID)
	assert.Equal(t, metrics.OutcomeSucceeded, entry.Outcome)
	assert.Equal(t, []string{"resultLayer"}, entry.Outputs)
	assert.Equal(t, 1, entry.Messages)
}

func TestService_RunJournalsFailure(t *testing.T) {
	server := gpserver.New(t)
	server.Enqueue("FindHotSpots", gpserver.Job{
		ID: "hs",
		Snapshots: []types.JobSnapshot{{
			JobStatus: types.JobStatusFailed,
			Messages:  []types.JobMessage{{Type: types.MessageTypeError, Description: "Not enough features"}},
		}},
	})

	j := journal.NewMemory()
	svc := newTestService(t, server, WithJournal(j))
	inv := NewInvocation("FindHotSpots", nil)

	res, err := svc.Run(context.Background(), inv)
	var e *JobFailedError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "Not enough features", e.Message)
	require.NotNil(t, res)
	assert.Nil(t, res.Outputs)

	entry, err := j.Get(context.Background(), inv.ID())
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeFailed, entry.Outcome)
	assert.Equal(t, types.JobStatusFailed, entry.Status)
	assert.Contains(t, entry.Error, "Not enough features")
}

func TestService_RunOutputResolutionFailure(t *testing.T) {
	server := gpserver.New(t)
	server.Enqueue("OverlayLayers", gpserver.Job{
		ID: "ov",
		Snapshots: []types.JobSnapshot{{
			JobStatus: types.JobStatusSucceeded,
			Results: map[string]types.ResultParam{
				"A": {ParamURL: "results/A"},
				"B": {ParamURL: "results/B"},
			},
		}},
		Values:   map[string]any{"results/A": "a"},
		Failures: map[string]int{"results/B": 500},
	})

	svc := newTestService(t, server)
	res, err := svc.Run(context.Background(), NewInvocation("OverlayLayers", nil))

	var e *OutputResolutionError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "B", e.Output)
	assert.Equal(t, map[string]any{"A": "a"}, res.Outputs)
	assert.Equal(t, 1, server.Fetches("ov", "results/A"))
	assert.Equal(t, 1, server.Fetches("ov", "results/B"))
}

func TestService_RunOutputs(t *testing.T) {
	server := gpserver.New(t)
	job := densityJob()
	job.Snapshots[1].Results["extra"] = types.ResultParam{ParamURL: "extra"}
	server.Enqueue("CalculateDensity", job)

	svc := newTestService(t, server)
	res, err := svc.RunOutputs(context.Background(), NewInvocation("CalculateDensity", nil), "resultLayer")
	require.NoError(t, err)

	assert.Len(t, res.Outputs, 1)
	assert.Zero(t, server.Fetches("j1", "extra"))
}

func TestService_RunWithRetry(t *testing.T) {
	server := gpserver.New(t)
	server.Enqueue("CreateBuffers", gpserver.Job{
		ID:        "first",
		Snapshots: []types.JobSnapshot{{JobStatus: types.JobStatusCancelled}},
	})
	server.Enqueue("CreateBuffers", gpserver.Job{
		ID: "second",
		Snapshots: []types.JobSnapshot{{
			JobStatus: types.JobStatusSucceeded,
			Results:   map[string]types.ResultParam{"bufferLayer": {ParamURL: "bufferLayer"}},
		}},
		Values: map[string]any{"bufferLayer": "ok"},
	})

	j := journal.NewMemory()
	svc := newTestService(t, server, WithJournal(j))
	inv := NewInvocation("CreateBuffers", map[string]any{"distances": []float64{1, 2}})

	res, err := svc.RunWithRetry(context.Background(), inv, RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Handle.JobID)
	assert.NotEqual(t, inv.ID(), res.Invocation.ID())
	assert.Equal(t, inv.Params(), res.Invocation.Params())

	entries, err := j.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, server.Submissions("CreateBuffers"), 2)
}

func TestService_RunWithRetry_FailedIsFinal(t *testing.T) {
	server := gpserver.New(t)
	server.Enqueue("CreateBuffers", gpserver.Job{
		Snapshots: []types.JobSnapshot{{JobStatus: types.JobStatusFailed}},
	})

	svc := newTestService(t, server)
	_, err := svc.RunWithRetry(context.Background(), NewInvocation("CreateBuffers", nil), RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Millisecond})

	var e *JobFailedError
	require.ErrorAs(t, err, &e)
	assert.Len(t, server.Submissions("CreateBuffers"), 1)
}

func TestService_RunWithRetry_GivesUp(t *testing.T) {
	server := gpserver.New(t)
	for i := 0; i < 2; i++ {
		server.Enqueue("CreateBuffers", gpserver.Job{
			Snapshots: []types.JobSnapshot{{JobStatus: types.JobStatusTimedOut}},
		})
	}

	svc := newTestService(t, server)
	_, err := svc.RunWithRetry(context.Background(), NewInvocation("CreateBuffers", nil), RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond})

	var e *JobTimedOutError
	require.ErrorAs(t, err, &e)
	assert.Len(t, server.Submissions("CreateBuffers"), 2)
}

func TestService_RunWithRetry_ContextEndsDuringBackoff(t *testing.T) {
	server := gpserver.New(t)
	server.Enqueue("CreateBuffers", gpserver.Job{
		ID: "first",
		Snapshots: []types.JobSnapshot{{
			JobStatus: types.JobStatusCancelled,
			Messages:  []types.JobMessage{{Type: types.MessageTypeError, Description: "Cancelled by administrator"}},
		}},
	})

	svc := newTestService(t, server)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	res, err := svc.RunWithRetry(ctx, NewInvocation("CreateBuffers", nil), RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Minute})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var e *JobCancelledError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "first", e.Handle.JobID)
	require.NotNil(t, res)
	assert.Equal(t, "first", res.Handle.JobID)
	assert.Len(t, server.Submissions("CreateBuffers"), 1)
}

func TestService_RunBatch(t *testing.T) {
	server := gpserver.New(t)
	const n = 6
	invs := make([]Invocation, n)
	for i := 0; i < n; i++ {
		task := fmt.Sprintf("Task%d", i)
		status := types.JobStatusSucceeded
		if i%3 == 0 {
			status = types.JobStatusFailed
		}
		server.Enqueue(task, gpserver.Job{
			Snapshots: []types.JobSnapshot{
				{JobStatus: types.JobStatusExecuting},
				{JobStatus: status, Results: map[string]types.ResultParam{"out": {ParamURL: "out"}}},
			},
			Values: map[string]any{"out": float64(i)},
		})
		invs[i] = NewInvocation(task, nil)
	}

	var relayed atomic.Int32
	svc := newTestService(t, server, WithSinks(SinkFunc(func(types.MessageEvent) { relayed.Add(1) })))
	results := svc.RunBatch(context.Background(), invs, 3)
	require.Len(t, results, n)

	for i, r := range results {
		assert.Equal(t, invs[i].ID(), r.Invocation.ID())
		if i%3 == 0 {
			var e *JobFailedError
			assert.ErrorAs(t, r.Err, &e, "invocation %d", i)
			continue
		}
		require.NoError(t, r.Err, "invocation %d", i)
		assert.Equal(t, float64(i), r.Result.Outputs["out"])
	}
	assert.Zero(t, relayed.Load())
}

func TestOutcome(t *testing.T) {
	h := testHandle("t", "j")
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeSucceeded},
		{&JobFailedError{Handle: h}, metrics.OutcomeFailed},
		{&JobCancelledError{Handle: h}, metrics.OutcomeCancelled},
		{&JobTimedOutError{Handle: h}, metrics.OutcomeTimedOut},
		{&MalformedResultError{Handle: h}, metrics.OutcomeMalformed},
		{&NoJobStatusError{Handle: h}, metrics.OutcomeMalformed},
		{&MessageRegressionError{Handle: h}, metrics.OutcomeMalformed},
		{&PollLimitError{Handle: h}, metrics.OutcomeAbandoned},
		{&AbandonedError{Handle: h, Err: context.Canceled}, metrics.OutcomeAbandoned},
		{&OutputResolutionError{Handle: h, Output: "x"}, metrics.OutcomeUnresolved},
		{&StatusFetchError{Handle: h}, metrics.OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "%T", tt.err)
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))

	for _, typ := range []types.MessageType{types.MessageTypeInformative, types.MessageTypeWarning, types.MessageTypeError, "unknown"} {
		sink.Relay(types.MessageEvent{Task: "t", JobID: "j", Message: types.JobMessage{Type: typ, Description: string(typ)}})
	}

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	assert.Equal(t, zap.InfoLevel, entries[3].Level)
	assert.Equal(t, "j", entries[0].ContextMap()["job_id"])
}
