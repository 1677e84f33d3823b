package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NikitaDmitryuk/mediagram/internal/logutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediagram",
		Name:      "active_sessions",
		Help:      "Number of download sessions currently polling the daemon.",
	})

	SessionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediagram",
		Name:      "session_outcomes_total",
		Help:      "Finished download sessions by terminal state.",
	}, []string{"outcome"})

	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediagram",
		Name:      "submissions_total",
		Help:      "Transfers handed to the daemon by kind and result.",
	}, []string{"kind", "result"})

	NotificationEdits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediagram",
		Name:      "notification_edits_total",
		Help:      "Progress message edits sent to the chat.",
	})

	DaemonPollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediagram",
		Name:      "daemon_poll_errors_total",
		Help:      "Status polls that failed with a transport error.",
	})

	SearchRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediagram",
		Name:      "search_requests_total",
		Help:      "Search provider queries by provider and result.",
	}, []string{"provider", "result"})

	SearchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediagram",
		Name:      "search_duration_seconds",
		Help:      "Search provider latency in seconds, retries included.",
		Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ActiveSessions,
		SessionOutcomes,
		Submissions,
		NotificationEdits,
		DaemonPollErrors,
		SearchRequests,
		SearchDuration,
	)
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		logutils.Log.WithField("addr", s.srv.Addr).Info("Metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutils.Log.WithError(err).Error("Metrics endpoint stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
