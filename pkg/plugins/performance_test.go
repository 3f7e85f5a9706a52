package plugins

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	cdpperf "github.com/chromedp/cdproto/performance"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/odvcencio/synthetics/pkg/browser"
)

func metricsReply(values map[string]float64) func(context.Context, string, easyjson.Marshaler, easyjson.Unmarshaler) error {
	return func(_ context.Context, _ string, _ easyjson.Marshaler, res easyjson.Unmarshaler) error {
		r := res.(*cdpperf.GetMetricsReturns)
		for name, v := range values {
			r.Metrics = append(r.Metrics, &cdpperf.Metric{Name: name, Value: v})
		}
		return nil
	}
}

func TestPerformance_BackgroundSampling(t *testing.T) {
	session, _ := newMockSession(t)
	allowCommand(session, cdpperf.CommandEnable)

	var calls atomic.Int32
	session.EXPECT().Execute(gomock.Any(), cdpperf.CommandGetMetrics, gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, m string, p easyjson.Marshaler, res easyjson.Unmarshaler) error {
			calls.Add(1)
			return metricsReply(map[string]float64{"Documents": float64(calls.Load())})(ctx, m, p, res)
		}).AnyTimes()

	perf := NewPerformance(5*time.Millisecond, nil)
	require.NoError(t, perf.Start(context.Background(), session))

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	perf.Stop()
	stopped := calls.Load()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "sampler halts on Stop")

	stats := perf.Stats()
	require.Contains(t, stats, "Documents")
	assert.GreaterOrEqual(t, stats["Documents"].Count, int64(3))
	assert.Equal(t, float64(1), stats["Documents"].Min)
}

func TestPerformance_MetricsBeforeStart(t *testing.T) {
	perf := NewPerformance(0, nil)
	_, err := perf.Metrics(context.Background())
	assert.ErrorIs(t, err, ErrCollectorNotStarted)
}

func TestPerformance_EnableFailure(t *testing.T) {
	session, _ := newMockSession(t)
	session.EXPECT().Execute(gomock.Any(), cdpperf.CommandEnable, gomock.Any(), gomock.Any()).Return(errors.New("no target"))

	perf := NewPerformance(0, nil)
	err := perf.Start(context.Background(), session)

	var protoErr *browser.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, cdpperf.CommandEnable, protoErr.Method)
	assert.ErrorIs(t, perf.Start(context.Background(), session), ErrCollectorStopped)
}

func TestPerformance_MetricsError(t *testing.T) {
	session, _ := newMockSession(t)
	allowCommand(session, cdpperf.CommandEnable)
	session.EXPECT().Execute(gomock.Any(), cdpperf.CommandGetMetrics, gomock.Any(), gomock.Any()).Return(browser.ErrSessionClosed)

	perf := NewPerformance(0, nil)
	require.NoError(t, perf.Start(context.Background(), session))

	err := perf.Sample(context.Background())
	assert.True(t, browser.IsSessionGone(err))
	assert.Empty(t, perf.Latest())
}

func TestPerformance_StopIsIdempotent(t *testing.T) {
	session, _ := newMockSession(t)
	allowCommand(session, cdpperf.CommandEnable)

	perf := NewPerformance(0, nil)
	require.NoError(t, perf.Start(context.Background(), session))
	assert.NotPanics(t, func() {
		perf.Stop()
		perf.Stop()
	})
}
