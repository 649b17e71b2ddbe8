package catalog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	dErrors "kycengine/pkg/domain-errors"
)

// Registry holds the process-wide current catalog. Readers capture a
// snapshot once per operation; reload builds and validates a complete new
// snapshot before swapping the pointer, so no caller observes a mix of two
// versions.
type Registry struct {
	current atomic.Pointer[Snapshot]
	source  Source
	logger  *slog.Logger

	// serializes reloads; readers never take it
	reloadMu sync.Mutex
	onSwap   []func(prev, next *Snapshot)
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

func WithSource(src Source) RegistryOption {
	return func(r *Registry) { r.source = src }
}

// WithOnSwap registers a hook invoked after every successful swap.
func WithOnSwap(fn func(prev, next *Snapshot)) RegistryOption {
	return func(r *Registry) { r.onSwap = append(r.onSwap, fn) }
}

// NewRegistry creates a registry serving initial.
func NewRegistry(initial *Snapshot, opts ...RegistryOption) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(initial)
	return r
}

// Current returns the snapshot in force now.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Require returns the current snapshot if its version equals version.
// Work classified against an older catalog must be re-classified.
func (r *Registry) Require(version string) (*Snapshot, error) {
	cur := r.Current()
	if cur == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "no catalog loaded")
	}
	if cur.Version() != version {
		return nil, dErrors.Newf(dErrors.CodeCatalogVersionMismatch,
			"classified against catalog %s but %s is current; re-classify", version, cur.Version())
	}
	return cur, nil
}

// Swap installs next if its version is newer than the current one.
// force allows re-installing the same or an older version (rollback).
func (r *Registry) Swap(next *Snapshot, force bool) error {
	if next == nil {
		return dErrors.New(dErrors.CodeBadRequest, "snapshot is required")
	}
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	return r.swapLocked(next, force)
}

func (r *Registry) swapLocked(next *Snapshot, force bool) error {
	prev := r.Current()
	if prev != nil && !force && !next.SemVer().GreaterThan(prev.SemVer()) {
		return dErrors.Newf(dErrors.CodeConflict,
			"catalog %s is not newer than current %s", next.Version(), prev.Version())
	}
	r.current.Store(next)
	if r.logger != nil {
		prevVersion := ""
		if prev != nil {
			prevVersion = prev.Version()
		}
		r.logger.Info("rule catalog swapped",
			"previous_version", prevVersion,
			"version", next.Version(),
			"schema_version", next.SchemaVersion(),
		)
	}
	for _, fn := range r.onSwap {
		fn(prev, next)
	}
	return nil
}

// Reload loads a fresh snapshot from the configured source and swaps it in.
// On any error the current snapshot stays in force.
func (r *Registry) Reload(ctx context.Context, force bool) (*Snapshot, error) {
	if r.source == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "catalog registry has no source")
	}
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	next, err := r.source.Load(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "rule catalog reload failed", "error", err)
		}
		return nil, err
	}
	if err := r.swapLocked(next, force); err != nil {
		return nil, err
	}
	return next, nil
}
