package rooted

import (
	"context"
	"errors"
	"log/slog"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-rooted/v1/metrics"
	"github.com/mirkobrombin/go-rooted/v1/tag"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-rooted/v1/rooted")

// Root is a lock domain: a mutex identified by a globally unique tag. It
// holds no payload. Handles refer to a root only through a copy of its tag.
//
// A Root must outlive every Guard and handle derived from it.
type Root struct {
	// sem is a one-slot semaphore: a full slot means the root is locked.
	sem  chan struct{}
	tag  tag.Tag
	name string

	logger       *slog.Logger
	waitHist     prometheus.Histogram
	holdHist     prometheus.Histogram
	traceEnabled bool
}

// Option configures a Root.
type Option func(*Root)

// WithName sets the name used in logs and span attributes. By default a
// random UUID is used.
func WithName(name string) Option {
	return func(r *Root) {
		r.name = name
	}
}

// WithLogger sets the logger used for debug events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Root) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracing records an OpenTelemetry span for every blocking acquisition.
func WithTracing() Option {
	return func(r *Root) {
		r.traceEnabled = true
	}
}

// WithMetrics enables lock wait and hold time histograms on the provided
// registerer. Roots sharing a registerer share the histograms. A nil
// registerer leaves metrics disabled.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Root) {
		if reg == nil {
			return
		}
		r.waitHist = registerHistogram(reg, prometheus.HistogramOpts{
			Name:    "rooted_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a root",
			Buckets: prometheus.DefBuckets,
		})
		r.holdHist = registerHistogram(reg, prometheus.HistogramOpts{
			Name:    "rooted_lock_hold_seconds",
			Help:    "Time a root was held before its guard was unlocked",
			Buckets: prometheus.DefBuckets,
		})
	}
}

func registerHistogram(reg prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
		panic(err)
	}
	return h
}

// NewRoot returns an unlocked root with a freshly allocated tag.
func NewRoot(opts ...Option) *Root {
	r := &Root{
		sem:    make(chan struct{}, 1),
		tag:    tag.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.name == "" {
		r.name = defaultName(r.tag)
	}
	metrics.RootCounter.Inc()
	r.logger.Debug("rooted: root created", "root", r.name, "tag", r.tag.String())
	return r
}

func defaultName(t tag.Tag) string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return t.String()
	}
	return id
}

// Tag returns the root's tag.
func (r *Root) Tag() tag.Tag {
	return r.tag
}

// Name returns the root's name.
func (r *Root) Name() string {
	return r.name
}

// Lock blocks until the root is acquired and returns the proof of it.
func (r *Root) Lock() *Guard {
	g, _ := r.acquire(context.Background())
	return g
}

// LockContext is like Lock but gives up when ctx is done, returning ctx.Err().
func (r *Root) LockContext(ctx context.Context) (*Guard, error) {
	return r.acquire(ctx)
}

// TryLock acquires the root only if it is free.
func (r *Root) TryLock() (*Guard, bool) {
	select {
	case r.sem <- struct{}{}:
		return r.newGuard(), true
	default:
		metrics.ContendedCounter.Inc()
		return nil, false
	}
}

// Do runs fn with the root locked. The guard is unlocked when fn returns.
// If fn panics or exits the goroutine, borrows it left outstanding are ended
// and the root is unlocked before unwinding continues.
func (r *Root) Do(fn func(g *Guard)) {
	g := r.Lock()
	returned := false
	defer func() {
		if !returned {
			g.forceUnlock()
		}
	}()
	fn(g)
	returned = true
	g.Unlock()
}

func (r *Root) acquire(ctx context.Context) (*Guard, error) {
	var span trace.Span
	if r.traceEnabled {
		ctx, span = tracer.Start(ctx, "Root.Lock", trace.WithAttributes(
			attribute.String("rooted.root", r.name),
			attribute.String("rooted.tag", r.tag.String()),
		))
		defer span.End()
	}
	var start time.Time
	if r.traceEnabled || r.waitHist != nil {
		start = time.Now()
	}

	select {
	case r.sem <- struct{}{}:
	default:
		metrics.ContendedCounter.Inc()
		r.logger.Debug("rooted: waiting for root", "root", r.name)
		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			if span != nil {
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, "lock wait abandoned")
			}
			return nil, ctx.Err()
		}
	}

	if !start.IsZero() {
		wait := time.Since(start)
		if r.waitHist != nil {
			r.waitHist.Observe(wait.Seconds())
		}
		if span != nil {
			span.SetAttributes(attribute.Int64("rooted.wait_ms", wait.Milliseconds()))
		}
	}
	return r.newGuard(), nil
}

func (r *Root) newGuard() *Guard {
	metrics.LockCounter.Inc()
	g := &Guard{root: r, tag: r.tag, held: true}
	if r.holdHist != nil {
		g.acquired = time.Now()
	}
	return g
}
