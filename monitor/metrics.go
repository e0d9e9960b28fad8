package monitor

import (
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agent_tester"

var (
	agentCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agent_calls_total",
		Help:      "Agent calls by region and outcome (success or the failure kind).",
	}, []string{"region", "outcome"})

	agentCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "agent_call_duration_seconds",
		Help:      "Wall time of one create-conversation plus send-message exchange.",
		Buckets:   []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"region"})

	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Finished test runs by execution mode and final status.",
	}, []string{"mode", "status"})

	runsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runs_in_flight",
		Help:      "Test runs currently executing.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running binary.",
	}, []string{"version", "go_version"})

	registerOnce sync.Once
)

// InitPrometheusMonitoring registers every collector with reg.
func InitPrometheusMonitoring(reg prometheus.Registerer, version, goVersion string) error {
	var err error
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{agentCalls, agentCallDuration, runsTotal, runsInFlight, buildInfo} {
			if regErr := reg.Register(c); regErr != nil {
				var already prometheus.AlreadyRegisteredError
				if !errors.As(regErr, &already) {
					err = errors.Wrap(regErr, "register collector")
					return
				}
			}
		}
		buildInfo.WithLabelValues(version, goVersion).Set(1)
	})
	return err
}

// RecordAgentCall counts one agent call; failureKind is ignored on success.
func RecordAgentCall(region string, success bool, failureKind string, elapsed time.Duration) {
	outcome := "success"
	if !success {
		outcome = failureKind
		if outcome == "" {
			outcome = "failure"
		}
	}
	agentCalls.WithLabelValues(region, outcome).Inc()
	agentCallDuration.WithLabelValues(region).Observe(elapsed.Seconds())
}

// RunStarted marks a run in flight and returns the func that records its end.
func RunStarted(mode string) (finished func(status string)) {
	runsInFlight.Inc()
	var once sync.Once
	return func(status string) {
		once.Do(func() {
			runsInFlight.Dec()
			runsTotal.WithLabelValues(mode, status).Inc()
		})
	}
}
