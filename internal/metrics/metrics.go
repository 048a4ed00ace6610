package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeCompleted         = "completed"
	OutcomeFailed            = "failed"
	OutcomeNeedsConfirmation = "needs_confirmation"
	OutcomeInFlight          = "in_flight"
)

// Recorder collects attempt metrics on its own registry.
type Recorder struct {
	registry           *prometheus.Registry
	attemptsStarted    prometheus.Counter
	attemptsActive     prometheus.Gauge
	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Total number of quiz attempts started",
		}),
		attemptsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_attempts_active",
			Help: "Quiz attempts currently held in memory",
		}),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Quiz submissions by outcome",
			},
			[]string{"outcome"},
		),
		submissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_submission_duration_seconds",
			Help:    "Time spent waiting for the scoring backend",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		}),
	}
	r.registry.MustRegister(r.attemptsStarted, r.attemptsActive, r.submissions, r.submissionDuration)
	return r
}

func (r *Recorder) AttemptStarted() {
	r.attemptsStarted.Inc()
	r.attemptsActive.Inc()
}

func (r *Recorder) AttemptEnded() {
	r.attemptsActive.Dec()
}

func (r *Recorder) Submission(outcome string, elapsed time.Duration) {
	r.submissions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeFailed {
		r.submissionDuration.Observe(elapsed.Seconds())
	}
}

// Registry exposes the collectors, mostly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
