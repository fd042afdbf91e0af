package materialize

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RunsTotal counts finished materialization runs by outcome.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depmesh_runs_total",
			Help: "Total number of materialization runs",
		},
		[]string{"status"},
	)

	// NodesUpserted counts node upserts issued to the graph store.
	NodesUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "depmesh_nodes_upserted_total",
			Help: "Total number of node upserts issued",
		},
	)

	// EdgesUpserted counts edge upserts issued to the graph store.
	EdgesUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "depmesh_edges_upserted_total",
			Help: "Total number of edge upserts issued",
		},
	)

	// RunDuration tracks wall time of successful runs.
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "depmesh_run_duration_seconds",
			Help:    "Duration of successful materialization runs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(NodesUpserted)
	prometheus.MustRegister(EdgesUpserted)
	prometheus.MustRegister(RunDuration)
}
