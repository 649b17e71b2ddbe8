// Package orchestrator dispatches provider checks for a case concurrently and
// drives each one to a terminal status.
//
//	Run ─┬─ companiesHouse ─► cache? ─► breaker ─► limiter ─► attempt ─► retry/backoff
//	     ├─ fca            ─► ...
//	     └─ lexisNexis     ─► ...
//
// Every applicable check ends success or failed; Run returns once all are
// terminal. Cancel stops retries for a case. A call abandoned by timeout or
// cancellation keeps running under its own deadline and a success that
// arrives afterwards goes to the late-result sink.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"kycengine/internal/platform/config"
	"kycengine/internal/verification/cache"
	"kycengine/internal/verification/metrics"
	"kycengine/internal/verification/models"
	"kycengine/internal/verification/providers"
	dErrors "kycengine/pkg/domain-errors"
	"kycengine/pkg/platform/circuit"
)

var tracer = otel.Tracer("kycengine/verification")

// ErrCancelled is the cancellation cause recorded by Cancel.
var ErrCancelled = errors.New("enrichment cancelled")

// Config is the dispatch policy applied to every provider.
type Config struct {
	AttemptTimeout  time.Duration
	MaxAttempts     int
	Backoff         time.Duration
	MaxBackoff      time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	CacheTTL        time.Duration
}

// ConfigFrom maps the service configuration onto the dispatch policy.
func ConfigFrom(cfg config.ProvidersConfig) Config {
	return Config{
		AttemptTimeout:  cfg.AttemptTimeout,
		MaxAttempts:     cfg.MaxAttempts,
		Backoff:         cfg.Backoff,
		RatePerSecond:   cfg.RatePerSecond,
		Burst:           cfg.Burst,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
		CacheTTL:        cfg.CacheTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// LateResultSink receives successes whose attempt had already been abandoned.
// The receiver decides whether the case still accepts them.
type LateResultSink func(caseID string, result models.CheckResult)

// Orchestrator is safe for concurrent use across cases.
type Orchestrator struct {
	registry *providers.Registry
	cfg      Config
	cache    cache.Cache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	late     LateResultSink

	limiters map[models.Provider]*rate.Limiter
	breakers map[models.Provider]*circuit.Breaker

	mu      sync.Mutex
	nextRun uint64
	running map[string]map[uint64]context.CancelCauseFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCache enables the success-result cache.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

func WithLateResultSink(sink LateResultSink) Option {
	return func(o *Orchestrator) { o.late = sink }
}

// WithClock overrides the time source for result timestamps and breakers.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New builds an orchestrator over the registered providers.
func New(registry *providers.Registry, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		cfg:      cfg.withDefaults(),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		limiters: make(map[models.Provider]*rate.Limiter, len(models.AllProviders)),
		breakers: make(map[models.Provider]*circuit.Breaker, len(models.AllProviders)),
		running:  make(map[string]map[uint64]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(o)
	}

	limit := rate.Inf
	if o.cfg.RatePerSecond > 0 {
		limit = rate.Limit(o.cfg.RatePerSecond)
	}
	for _, p := range models.AllProviders {
		o.limiters[p] = rate.NewLimiter(limit, o.cfg.Burst)
		o.breakers[p] = circuit.New(string(p),
			circuit.WithFailureThreshold(o.cfg.BreakerFailures),
			circuit.WithSuccessThreshold(1),
			circuit.WithCooldown(o.cfg.BreakerCooldown),
			circuit.WithClock(o.now),
		)
	}
	return o
}

// Request describes one dispatch for a case.
type Request struct {
	Subject    models.Subject
	Generation int
	// Providers are the applicable providers, decided by Plan.
	Providers []models.Provider
	// MaxAttempts overrides the configured attempt budget when positive.
	MaxAttempts int
	// BypassCache forces a provider call, as on a manual re-trigger.
	BypassCache bool
	// OnResult, when set, is called with each terminal result as it lands.
	OnResult func(models.CheckResult)
}

// Run dispatches every requested provider concurrently and returns when all
// of them are terminal. Provider failures are results, not errors.
func (o *Orchestrator) Run(ctx context.Context, req Request) (map[models.Provider]models.CheckResult, error) {
	if req.Subject.CaseID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "case id is required")
	}

	runCtx, done := o.register(ctx, req.Subject.CaseID)
	defer done()

	var (
		mu      sync.Mutex
		results = make(map[models.Provider]models.CheckResult, len(req.Providers))
		g       errgroup.Group
	)
	for _, p := range req.Providers {
		g.Go(func() error {
			res := o.check(ctx, runCtx, req, p)
			o.metrics.IncrementCheckResult(string(p), string(res.Status))

			mu.Lock()
			results[p] = res
			mu.Unlock()

			if req.OnResult != nil {
				req.OnResult(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// Cancel stops further attempts for every run of caseID. It reports whether
// anything was running.
func (o *Orchestrator) Cancel(caseID string) bool {
	o.mu.Lock()
	runs := o.running[caseID]
	delete(o.running, caseID)
	o.mu.Unlock()

	for _, cancel := range runs {
		cancel(ErrCancelled)
	}
	return len(runs) > 0
}

// Running reports whether caseID has a dispatch in progress.
func (o *Orchestrator) Running(caseID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.running[caseID]) > 0
}

// BreakerState exposes a provider's circuit position for health reporting.
func (o *Orchestrator) BreakerState(p models.Provider) circuit.State {
	if b, ok := o.breakers[p]; ok {
		return b.State()
	}
	return circuit.StateClosed
}

func (o *Orchestrator) register(ctx context.Context, caseID string) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)

	o.mu.Lock()
	o.nextRun++
	id := o.nextRun
	if o.running[caseID] == nil {
		o.running[caseID] = make(map[uint64]context.CancelCauseFunc)
	}
	o.running[caseID][id] = cancel
	o.mu.Unlock()

	return runCtx, func() {
		o.mu.Lock()
		if runs := o.running[caseID]; runs != nil {
			delete(runs, id)
			if len(runs) == 0 {
				delete(o.running, caseID)
			}
		}
		o.mu.Unlock()
		cancel(nil)
	}
}

// check drives one provider to a terminal result. base bounds provider calls;
// runCtx additionally carries cancellation for the case.
func (o *Orchestrator) check(base, runCtx context.Context, req Request, p models.Provider) models.CheckResult {
	pending := models.Pending(p, req.Generation, o.now())
	logger := o.logger.With("case_id", req.Subject.CaseID, "provider", string(p), "generation", req.Generation)

	prov, ok := o.registry.Get(p)
	if !ok {
		err := providers.NewProviderError(providers.ErrorInternal, p, "provider not configured", nil)
		logger.ErrorContext(base, "provider check failed", "error", err)
		return pending.Failed(0, providers.AsFailure(err), o.now())
	}

	key := req.Subject.CacheKey()
	if payload, hit := o.cached(runCtx, p, key, req.BypassCache, logger); hit {
		res := pending.Succeeded(0, payload, o.now())
		res.Cached = true
		return res
	}

	maxAttempts := o.cfg.MaxAttempts
	if req.MaxAttempts > 0 {
		maxAttempts = req.MaxAttempts
	}

	calls := 0
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if runCtx.Err() != nil {
			lastErr = cancelled(runCtx, p)
			break
		}

		payload, called, err := o.attempt(base, runCtx, req, prov, attempt, pending.RequestedAt)
		if called {
			calls++
		}
		if err == nil {
			o.store(runCtx, p, key, payload, logger)
			logger.InfoContext(base, "provider check succeeded", "attempts", calls)
			return pending.Succeeded(calls, payload, o.now())
		}
		lastErr = err

		if !providers.IsRetryable(err) || attempt == maxAttempts {
			break
		}
		logger.WarnContext(base, "provider attempt failed, retrying",
			"attempt", attempt,
			"category", string(providers.GetCategory(err)),
			"error", err,
		)
		if !o.backoff(runCtx, attempt) {
			lastErr = cancelled(runCtx, p)
			break
		}
	}

	logger.WarnContext(base, "provider check failed",
		"attempts", calls,
		"category", string(providers.GetCategory(lastErr)),
		"error", lastErr,
	)
	return pending.Failed(calls, providers.AsFailure(lastErr), o.now())
}

type callResult struct {
	payload map[string]any
	err     error
}

// attempt issues one provider call. called is false when the breaker or the
// limiter stopped the attempt before a request was made.
func (o *Orchestrator) attempt(
	base, runCtx context.Context,
	req Request,
	prov providers.Provider,
	n int,
	requestedAt time.Time,
) (payload map[string]any, called bool, err error) {
	p := prov.ID()
	breaker := o.breakers[p]
	if !breaker.Allow() {
		pe := providers.NewProviderError(providers.ErrorProviderOutage, p, "circuit open", nil)
		pe.Retryable = false
		return nil, false, pe
	}
	if err := o.limiters[p].Wait(runCtx); err != nil {
		return nil, false, cancelled(runCtx, p)
	}

	// The call context derives from base so that cancelling the case does
	// not cut an in-flight request short of its own deadline.
	callCtx, cancelCall := context.WithTimeout(base, o.cfg.AttemptTimeout)
	start := o.now()
	out := make(chan callResult, 1)
	go func() {
		ctx, span := tracer.Start(callCtx, "provider.check", trace.WithAttributes(
			attribute.String("provider", string(p)),
			attribute.String("case_id", req.Subject.CaseID),
			attribute.Int("attempt", n),
			attribute.Int("generation", req.Generation),
		))
		payload, err := prov.Check(ctx, req.Subject)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(providers.GetCategory(err)))
		}
		span.End()
		out <- callResult{payload: payload, err: err}
	}()

	select {
	case r := <-out:
		cancelCall()
		o.record(base, p, r.err, o.now().Sub(start))
		return r.payload, true, r.err

	case <-callCtx.Done():
		err := providers.NewProviderError(providers.ErrorTimeout, p, "attempt timed out", callCtx.Err())
		o.record(base, p, err, o.now().Sub(start))
		go o.awaitLate(out, cancelCall, req, p, n, requestedAt)
		return nil, true, err

	case <-runCtx.Done():
		go o.awaitLate(out, cancelCall, req, p, n, requestedAt)
		return nil, true, cancelled(runCtx, p)
	}
}

// record feeds one call outcome into the breaker and metrics. Only failures
// that signal provider unavailability count against the circuit.
func (o *Orchestrator) record(ctx context.Context, p models.Provider, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = string(providers.GetCategory(err))
	}
	o.metrics.ObserveAttempt(string(p), outcome, d)

	breaker := o.breakers[p]
	if err != nil && providers.IsRetryable(err) {
		if _, change := breaker.RecordFailure(); change.Opened {
			o.metrics.SetCircuitOpen(string(p), true)
			o.logger.WarnContext(ctx, "provider circuit opened", "provider", string(p))
		}
		return
	}
	if _, change := breaker.RecordSuccess(); change.Closed {
		o.metrics.SetCircuitOpen(string(p), false)
		o.logger.InfoContext(ctx, "provider circuit closed", "provider", string(p))
	}
}

// awaitLate waits for an abandoned call and forwards a success to the sink.
func (o *Orchestrator) awaitLate(
	out <-chan callResult,
	cancelCall context.CancelFunc,
	req Request,
	p models.Provider,
	n int,
	requestedAt time.Time,
) {
	r := <-out
	cancelCall()
	if r.err != nil {
		return
	}

	ctx := context.Background()
	o.store(ctx, p, req.Subject.CacheKey(), r.payload, o.logger)
	o.metrics.IncrementLateResult(string(p))
	o.logger.InfoContext(ctx, "late provider result",
		"case_id", req.Subject.CaseID,
		"provider", string(p),
		"generation", req.Generation,
	)
	if o.late == nil {
		return
	}
	pending := models.CheckResult{
		Provider:    p,
		Status:      models.StatusPending,
		Generation:  req.Generation,
		RequestedAt: requestedAt,
	}
	o.late(req.Subject.CaseID, pending.Succeeded(n, r.payload, o.now()))
}

// backoff sleeps before attempt n+1. It returns false when the run is
// cancelled while waiting.
func (o *Orchestrator) backoff(ctx context.Context, n int) bool {
	delay := o.cfg.Backoff << (n - 1)
	if delay <= 0 || delay > o.cfg.MaxBackoff {
		delay = o.cfg.MaxBackoff
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) cached(ctx context.Context, p models.Provider, key string, bypass bool, logger *slog.Logger) (map[string]any, bool) {
	if o.cache == nil || bypass {
		return nil, false
	}
	payload, ok, err := o.cache.Get(ctx, p, key)
	if err != nil {
		logger.WarnContext(ctx, "provider cache read failed", "error", err)
		return nil, false
	}
	if ok {
		o.metrics.IncrementCacheHit(string(p))
	}
	return payload, ok
}

func (o *Orchestrator) store(ctx context.Context, p models.Provider, key string, payload map[string]any, logger *slog.Logger) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, p, key, payload, o.cfg.CacheTTL); err != nil {
		logger.WarnContext(ctx, "provider cache write failed", "error", err)
	}
}

func cancelled(ctx context.Context, p models.Provider) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return providers.NewProviderError(providers.ErrorCancelled, p, "check cancelled", cause)
}
