package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exposed by the HTTP server.
type Metrics struct {
	// Registry owns these metrics. A private registry avoids duplicate
	// collector panics when NewMetrics is called more than once in tests.
	Registry *prometheus.Registry

	rowsImported    prometheus.Counter
	duplicateRows   prometheus.Counter
	importErrors    prometheus.Counter
	classifications *prometheus.CounterVec
	trainingRuns    prometheus.Counter
}

// NewMetrics creates a dedicated registry and registers all application
// metrics in it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		rowsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_rows_imported_total",
			Help: "Total statement rows imported as new transactions.",
		}),
		duplicateRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_duplicate_rows_total",
			Help: "Total statement rows matching an existing transaction.",
		}),
		importErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_import_errors_total",
			Help: "Total row-level import errors.",
		}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_classifications_total",
			Help: "Total classification decisions by method.",
		}, []string{"method"}),
		trainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "tally_training_runs_total",
			Help: "Total successful classifier training runs.",
		}),
	}
}

// RecordImport tracks the outcome counts of one import batch.
func (m *Metrics) RecordImport(imported, duplicates, errors int) {
	m.rowsImported.Add(float64(imported))
	m.duplicateRows.Add(float64(duplicates))
	m.importErrors.Add(float64(errors))
}

// RecordClassification tracks one classification decision.
func (m *Metrics) RecordClassification(method string) {
	m.classifications.WithLabelValues(method).Inc()
}

// RecordTraining tracks one successful training run.
func (m *Metrics) RecordTraining() {
	m.trainingRuns.Inc()
}
