// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xkilldash9x/humantype/internal/session"
)

const namespace = "humantype"

// Recorder exports typing activity as prometheus metrics. It implements
// session.Observer.
type Recorder struct {
	registry *prometheus.Registry

	keystrokes       *prometheus.CounterVec
	emissionFailures *prometheus.CounterVec
	sessions         *prometheus.CounterVec
	running          prometheus.Gauge
	keyInterval      prometheus.Histogram
	sessionDuration  prometheus.Histogram
	achievedWPM      prometheus.Gauge
}

var _ session.Observer = (*Recorder)(nil)

// New creates a recorder with its own registry, including the standard Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		keystrokes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keystrokes_total",
			Help:      "Keys emitted, by kind.",
		}, []string{"kind"}),
		emissionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emission_failures_total",
			Help:      "Keys the emitter failed to deliver, by kind.",
		}, []string{"kind"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished typing sessions, by outcome.",
		}, []string{"outcome"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_running",
			Help:      "1 while a typing session is running.",
		}),
		keyInterval: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "key_interval_seconds",
			Help:      "Time between consecutive key presses.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 1.6, 14),
		}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of finished sessions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		achievedWPM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_session_wpm",
			Help:      "Achieved words per minute of the last finished session.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.keystrokes,
		r.emissionFailures,
		r.sessions,
		r.running,
		r.keyInterval,
		r.sessionDuration,
		r.achievedWPM,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) SessionStarted(string, int) {
	r.running.Set(1)
}

func (r *Recorder) KeyEmitted(kind session.KeyKind, sincePrevious time.Duration) {
	r.keystrokes.WithLabelValues(string(kind)).Inc()
	if sincePrevious > 0 {
		r.keyInterval.Observe(sincePrevious.Seconds())
	}
}

func (r *Recorder) EmissionFailed(kind session.KeyKind) {
	r.emissionFailures.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) SessionEnded(_ string, outcome session.Outcome, typed int, elapsed time.Duration) {
	r.running.Set(0)
	r.sessions.WithLabelValues(string(outcome)).Inc()
	r.sessionDuration.Observe(elapsed.Seconds())
	if minutes := elapsed.Minutes(); minutes > 0 {
		r.achievedWPM.Set(float64(typed) / 5 / minutes)
	}
}
