// Package metrics exposes chat session counters through Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"multicast-chat/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mchat"

const (
	ReasonDecode = "decode"
	ReasonEcho   = "echo"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	SentTotal       prometheus.Counter
	ReceivedTotal   prometheus.Counter
	SendErrorsTotal prometheus.Counter
	DiscardedTotal  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SentTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Chat messages handed to the multicast socket.",
		}),
		ReceivedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Datagrams decoded and delivered to the display callback.",
		}),
		SendErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Sends rejected by the transport.",
		}),
		DiscardedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_discarded_total",
			Help:      "Incoming datagrams dropped before delivery.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) MessageSent() {
	if m != nil {
		m.SentTotal.Inc()
	}
}

func (m *Metrics) MessageReceived() {
	if m != nil {
		m.ReceivedTotal.Inc()
	}
}

func (m *Metrics) SendFailed() {
	if m != nil {
		m.SendErrorsTotal.Inc()
	}
}

func (m *Metrics) Discarded(reason string) {
	if m != nil {
		m.DiscardedTotal.WithLabelValues(reason).Inc()
	}
}

// Serve exposes g on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log *logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
