package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "mexc_session_created_total", Help: "REST sessions constructed"})
	SessionsExpiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_session_expired_total", Help: "REST sessions torn down by reason"}, []string{"reason"})
	SessionPingsTotal    = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_session_pings_total", Help: "Keep-alive pings by result"}, []string{"result"})
	SessionActive        = promauto.NewGauge(prometheus.GaugeOpts{Name: "mexc_session_active", Help: "1 while a REST session handle is live"})

	StreamConnected       = promauto.NewGauge(prometheus.GaugeOpts{Name: "mexc_stream_connected", Help: "1 while the WebSocket is connected"})
	StreamReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_stream_reconnects_total", Help: "Reconnect attempts by result"}, []string{"result"})
	StreamMessagesTotal   = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_stream_messages_total", Help: "Inbound messages by emitted event"}, []string{"event"})
	StreamSentTotal       = promauto.NewCounter(prometheus.CounterOpts{Name: "mexc_stream_sent_total", Help: "Outbound control messages"})
	StreamErrorsTotal     = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_stream_errors_total", Help: "Stream errors by type"}, []string{"type"})

	APIRequestsTotal  = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_api_requests_total", Help: "REST requests by method and status"}, []string{"method", "status"})
	APIRequestSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "mexc_api_request_duration_seconds", Help: "REST request latency", Buckets: prometheus.ExponentialBuckets(0.005, 2, 12)})

	RecorderRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "mexc_recorder_records_total", Help: "Records accepted by the recorder"})
	RecorderFlushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_recorder_flushes_total", Help: "Sink flushes by sink and result"}, []string{"sink", "result"})
	RecorderBatchSize    = promauto.NewHistogram(prometheus.HistogramOpts{Name: "mexc_recorder_batch_size", Help: "Records per flushed batch", Buckets: prometheus.ExponentialBuckets(1, 2, 14)})
	RecorderFlushSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "mexc_recorder_flush_duration_seconds", Help: "Sink flush latency", Buckets: prometheus.ExponentialBuckets(0.001, 2, 14)}, []string{"sink"})
	RecorderBufferLen    = promauto.NewGauge(prometheus.GaugeOpts{Name: "mexc_recorder_buffer_len", Help: "Records waiting to be flushed"})
	RecorderDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "mexc_recorder_dropped_total", Help: "Records dropped because the buffer was full"})

	PollerPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "mexc_poller_polls_total", Help: "Ticker polls by result"}, []string{"result"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ResultLabel maps an error to the "ok"/"error" result label.
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
