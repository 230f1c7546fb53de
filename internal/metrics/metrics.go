// Package metrics holds the Prometheus collectors shared by the generators
// and the texture map pipeline.
//
// Collectors live on a private registry so importing arbor never touches
// the global Prometheus registry.
package metrics

import (
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var registry = prometheus.NewRegistry()

var (
	// Generations counts L-system rewrite generations.
	Generations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor", Subsystem: "lsystem", Name: "generations_total",
		Help: "Rewrite generations applied.",
	})

	// Symbols counts symbols in final rewritten strings.
	Symbols = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor", Subsystem: "lsystem", Name: "symbols_total",
		Help: "Symbols produced by completed rewrites.",
	})

	// TurtleNodes counts nodes created by turtle interpretation.
	TurtleNodes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor", Subsystem: "turtle", Name: "nodes_total",
		Help: "Branch nodes created by the turtle interpreter.",
	})

	// ColonizeIterations counts space colonization growth iterations.
	ColonizeIterations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor", Subsystem: "colonize", Name: "iterations_total",
		Help: "Space colonization growth iterations.",
	})

	// AttractorsKilled counts attractors deactivated by nearby growth.
	AttractorsKilled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbor", Subsystem: "colonize", Name: "attractors_killed_total",
		Help: "Attractors deactivated within kill distance.",
	})

	// Graphs counts finished graphs by source.
	Graphs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor", Name: "graphs_total",
		Help: "Branch graphs produced, by generator.",
	}, []string{"source"})

	// JFAPasses counts Jump Flood passes submitted to a device.
	JFAPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbor", Subsystem: "texmap", Name: "jfa_passes_total",
		Help: "Jump Flood passes executed, by device.",
	}, []string{"device"})

	// RasterSeconds observes end-to-end rasterization time.
	RasterSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arbor", Subsystem: "texmap", Name: "rasterize_seconds",
		Help:    "Time to rasterize a graph into texture maps.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"device"})

	// PoolTextures reports textures currently acquired from texture pools.
	PoolTextures = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "arbor", Subsystem: "texmap", Name: "pool_textures_in_use",
		Help: "Textures acquired from pools and not yet released.",
	})
)

func init() {
	registry.MustRegister(
		Generations, Symbols, TurtleNodes,
		ColonizeIterations, AttractorsKilled, Graphs,
		JFAPasses, RasterSeconds, PoolTextures,
	)
}

// Registry returns the registry holding every arbor collector, for callers
// that want to serve it (e.g. with promhttp.HandlerFor).
func Registry() *prometheus.Registry { return registry }

// WriteText writes all collectors in the Prometheus text exposition format.
func WriteText(w io.Writer) error {
	mfs, err := registry.Gather()
	if err != nil {
		return err
	}
	sort.Slice(mfs, func(i, j int) bool { return mfs[i].GetName() < mfs[j].GetName() })
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
