package metrics

import (
	"context"
	"testing"
	"time"

	"multicast-chat/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.MessageSent()
		m.MessageReceived()
		m.SendFailed()
		m.Discarded(ReasonDecode)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessageSent()
	m.MessageSent()
	m.MessageReceived()
	m.Discarded(ReasonDecode)
	m.Discarded(ReasonEcho)
	m.Discarded(ReasonEcho)

	require.Equal(t, float64(2), testutil.ToFloat64(m.SentTotal))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ReceivedTotal))
	require.Equal(t, float64(0), testutil.ToFloat64(m.SendErrorsTotal))
	require.Equal(t, float64(2), testutil.ToFloat64(m.DiscardedTotal.WithLabelValues(ReasonEcho)))

	n, err := testutil.GatherAndCount(reg, "mchat_datagrams_discarded_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry(), logger.Discard())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
