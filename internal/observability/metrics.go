package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Guess outcomes counted by GuessesSubmitted.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeLocal    = "local"
	OutcomeUnsynced = "unsynced"
)

// Collector holds the game's Prometheus metrics in its own registry, so
// several collectors can coexist in one process (tests, multiple sessions).
type Collector struct {
	registry *prometheus.Registry

	GuessesSubmitted *prometheus.CounterVec
	StreakCommands   *prometheus.CounterVec
	AnonymousMerges  *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
}

// NewCollector creates a collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		GuessesSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guesses_submitted_total",
				Help:      "Guesses submitted, by outcome",
			},
			[]string{"outcome"},
		),
		StreakCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "streak_commands_total",
				Help:      "Streak commands applied, by kind",
			},
			[]string{"kind"},
		),
		AnonymousMerges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anonymous_merges_total",
				Help:      "Sign-in streak merges, by source",
			},
			[]string{"source"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(c.GuessesSubmitted, c.StreakCommands, c.AnonymousMerges, c.BreakerState)
	return c
}

// Registry exposes the collector's registry for exporters and tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the registry in the Prometheus text format to path,
// replacing it atomically, for a node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// RecordGuess counts one submission outcome.
func (c *Collector) RecordGuess(outcome string) {
	c.GuessesSubmitted.WithLabelValues(outcome).Inc()
}

// RecordStreakCommand counts one applied streak command.
func (c *Collector) RecordStreakCommand(kind string) {
	c.StreakCommands.WithLabelValues(kind).Inc()
}

// RecordMerge counts one sign-in merge.
func (c *Collector) RecordMerge(source string) {
	c.AnonymousMerges.WithLabelValues(source).Inc()
}

// SetBreakerState records a breaker transition.
func (c *Collector) SetBreakerState(name string, state int) {
	c.BreakerState.WithLabelValues(name).Set(float64(state))
}
