package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/dispatch"
	"github.com/c360studio/specsync/engine"
	"github.com/c360studio/specsync/impact"
)

func recordedResult() *engine.PassResult {
	return &engine.PassResult{
		State: engine.StateRecorded,
		Changes: []detect.ChangeItem{
			{Type: detect.ChangeSources},
			{Type: detect.ChangeContentRules},
		},
		Analysis: &impact.Analysis{ManualReviewRequired: []detect.ChangeItem{}},
		Summary:  &dispatch.Summary{ManualReviewItems: []detect.ChangeItem{}},
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result *engine.PassResult
		err    error
		want   string
	}{
		{"error wins over result", recordedResult(), errors.New("boom"), OutcomeFailed},
		{"nil result without error", nil, nil, OutcomeFailed},
		{"unchanged state", &engine.PassResult{State: engine.StateUnchanged}, nil, OutcomeUnchanged},
		{
			"manual review pending",
			&engine.PassResult{
				State: engine.StateRecorded,
				Analysis: &impact.Analysis{
					ManualReviewRequired: []detect.ChangeItem{{Type: detect.ChangeContentRules}},
				},
			},
			nil,
			OutcomeManualReview,
		},
		{"auto applied", recordedResult(), nil, OutcomeAutoApplied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.result, tt.err))
		})
	}
}

func TestCollector_ObservePass_AutoApplied(t *testing.T) {
	c := NewCollector()

	c.ObservePass(recordedResult(), nil, 120*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PassesTotal.WithLabelValues(OutcomeAutoApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChangesTotal.WithLabelValues("sources")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChangesTotal.WithLabelValues("content-rules")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.ManualReviewItems))
	assert.Greater(t, testutil.ToFloat64(c.LastPassTimestamp), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.PassDuration, "specsync_pass_duration_seconds"))
}

func TestCollector_ObservePass_ManualReview(t *testing.T) {
	c := NewCollector()

	result := recordedResult()
	result.Analysis.ManualReviewRequired = []detect.ChangeItem{{Type: detect.ChangeContentRules}}
	result.Summary.ManualReviewItems = []detect.ChangeItem{
		{Type: detect.ChangeContentRules},
		{Type: detect.ChangeOutputStructure},
	}

	c.ObservePass(result, nil, 80*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PassesTotal.WithLabelValues(OutcomeManualReview)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ManualReviewItems))
}

func TestCollector_ObservePass_Unchanged(t *testing.T) {
	c := NewCollector()

	c.ObservePass(&engine.PassResult{State: engine.StateUnchanged}, nil, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PassesTotal.WithLabelValues(OutcomeUnchanged)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.ManualReviewItems))
}

func TestCollector_ObservePass_Failure(t *testing.T) {
	c := NewCollector()

	c.ObservePass(nil, errors.New("spec unreadable"), 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PassesTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.ChangesTotal.WithLabelValues("sources")))
}

func TestNewCollector_IndependentRegistries(t *testing.T) {
	first := NewCollector()
	second := NewCollector()

	first.ObservePass(recordedResult(), nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(first.PassesTotal.WithLabelValues(OutcomeAutoApplied)))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.PassesTotal.WithLabelValues(OutcomeAutoApplied)))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObservePass(recordedResult(), nil, 50*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "specsync_passes_total")
	assert.Contains(t, body, "specsync_changes_detected_total")
	assert.Contains(t, body, "specsync_pass_duration_seconds")
}

func TestCollector_Serve_StopsOnCancel(t *testing.T) {
	c := NewCollector()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, "127.0.0.1:0", nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop after cancellation")
	}
}
