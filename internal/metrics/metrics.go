package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "stockstream"

// Metrics groups every collector the service exports.
type Metrics struct {
	Stream  *Stream
	Feeds   *Feeds
	Writers *Writers
}

// New creates all collectors and registers them with reg.
// A nil reg creates unregistered collectors (useful in tests).
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Stream:  NewStream(reg),
		Feeds:   NewFeeds(reg),
		Writers: NewWriters(reg),
	}
}

// Stream instruments the vendor WebSocket and dispatch path.
// All methods are safe on a nil receiver.
type Stream struct {
	framesReceived prometheus.Counter
	invalidFrames  prometheus.Counter
	deliveries     prometheus.Counter
	reconnects     prometheus.Counter
	authFailures   prometheus.Counter
	state          *prometheus.GaugeVec
	subscriptions  prometheus.Gauge
}

// NewStream creates the stream collectors.
func NewStream(reg prometheus.Registerer) *Stream {
	f := promauto.With(reg)
	return &Stream{
		framesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "frames_received_total",
			Help: "Inbound WebSocket frames.",
		}),
		invalidFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "invalid_frames_total",
			Help: "Frames rejected by the codec.",
		}),
		deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "listener_deliveries_total",
			Help: "Listener invocations from dispatch.",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "reconnect_attempts_total",
			Help: "Scheduled reconnect attempts.",
		}),
		authFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "auth_failures_total",
			Help: "Status messages reporting error or max_connections.",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "connection_state",
			Help: "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream",
			Name: "desired_subscriptions",
			Help: "Subscriptions in the desired set.",
		}),
	}
}

func (s *Stream) FrameReceived() {
	if s != nil {
		s.framesReceived.Inc()
	}
}

func (s *Stream) InvalidFrame() {
	if s != nil {
		s.invalidFrames.Inc()
	}
}

func (s *Stream) Delivered(n int) {
	if s != nil && n > 0 {
		s.deliveries.Add(float64(n))
	}
}

func (s *Stream) Reconnect() {
	if s != nil {
		s.reconnects.Inc()
	}
}

func (s *Stream) AuthFailure() {
	if s != nil {
		s.authFailures.Inc()
	}
}

// SetState marks current as the active state among all.
func (s *Stream) SetState(current string, all []string) {
	if s == nil {
		return
	}
	for _, st := range all {
		v := 0.0
		if st == current {
			v = 1
		}
		s.state.WithLabelValues(st).Set(v)
	}
}

func (s *Stream) SetSubscriptions(n int) {
	if s != nil {
		s.subscriptions.Set(float64(n))
	}
}

// Feeds instruments the realtime batchers.
type Feeds struct {
	flushes *prometheus.CounterVec
	items   *prometheus.CounterVec
}

// NewFeeds creates the feed collectors.
func NewFeeds(reg prometheus.Registerer) *Feeds {
	f := promauto.With(reg)
	return &Feeds{
		flushes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed",
			Name: "flushes_total",
			Help: "Throttled batch flushes.",
		}, []string{"feed"}),
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed",
			Name: "flushed_items_total",
			Help: "Items applied by throttled flushes.",
		}, []string{"feed"}),
	}
}

func (f *Feeds) Flushed(feed string, items int) {
	if f == nil {
		return
	}
	f.flushes.WithLabelValues(feed).Inc()
	f.items.WithLabelValues(feed).Add(float64(items))
}

// Writers instruments the database batch writers.
type Writers struct {
	rows   *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewWriters creates the writer collectors.
func NewWriters(reg prometheus.Registerer) *Writers {
	f := promauto.With(reg)
	return &Writers{
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "writer",
			Name: "rows_total",
			Help: "Rows written, by result (inserted or conflict).",
		}, []string{"table", "result"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "writer",
			Name: "batch_errors_total",
			Help: "Failed batch inserts.",
		}, []string{"table"}),
	}
}

func (w *Writers) Rows(table string, inserted, conflicts int) {
	if w == nil {
		return
	}
	w.rows.WithLabelValues(table, "inserted").Add(float64(inserted))
	w.rows.WithLabelValues(table, "conflict").Add(float64(conflicts))
}

func (w *Writers) Error(table string) {
	if w != nil {
		w.errors.WithLabelValues(table).Inc()
	}
}
