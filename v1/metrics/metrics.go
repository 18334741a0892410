package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TagCounter tracks the number of tags issued by the allocator.
	TagCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rooted_tags_allocated_total",
		Help: "Total number of root tags allocated",
	})
	// RootCounter tracks the number of roots created.
	RootCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rooted_roots_created_total",
		Help: "Total number of lock domains created",
	})
	// LockCounter tracks the number of guards handed out.
	LockCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rooted_lock_acquisitions_total",
		Help: "Total number of root lock acquisitions",
	})
	// ContendedCounter tracks lock attempts that found the root already held,
	// from TryLock as well as from blocking acquisitions that had to wait.
	ContendedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rooted_lock_contended_total",
		Help: "Total number of lock attempts that found the root held",
	})
	// ViolationCounter counts lock-discipline violations by kind.
	ViolationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rooted_violations_total",
		Help: "Total number of lock-discipline violations",
	}, []string{"kind"})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers the process-wide rooted metrics on the
// provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(TagCounter, RootCounter, LockCounter, ContendedCounter, ViolationCounter)
}
