package classification

import (
	"context"
	"log/slog"
	"sync"

	"kycengine/internal/catalog"
	"kycengine/internal/classification/metrics"
	dErrors "kycengine/pkg/domain-errors"
)

// Documents expands code into a copy of its ordered requirement list.
func Documents(s *catalog.Snapshot, code string) ([]catalog.DocumentRequirement, error) {
	set, ok := s.DocumentSet(code)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeUnknownDocumentSet,
			"document set %q is not defined in catalog %s", code, s.Version())
	}
	out := make([]catalog.DocumentRequirement, len(set.Documents))
	copy(out, set.Documents)
	return out, nil
}

// DocumentAssembler wraps Documents with integrity alerting. An unknown code
// means the catalog is broken, so the code is quarantined: later requests for
// it fail fast without re-alerting until a new catalog is installed.
type DocumentAssembler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	quarantined map[string]string // code -> catalog version
}

func NewDocumentAssembler(logger *slog.Logger, m *metrics.Metrics) *DocumentAssembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DocumentAssembler{
		logger:      logger,
		metrics:     m,
		quarantined: make(map[string]string),
	}
}

func (a *DocumentAssembler) Assemble(ctx context.Context, s *catalog.Snapshot, code string) ([]catalog.DocumentRequirement, error) {
	a.mu.RLock()
	version, blocked := a.quarantined[code]
	a.mu.RUnlock()
	if blocked && version == s.Version() {
		return nil, dErrors.Newf(dErrors.CodeUnknownDocumentSet,
			"document set %q is quarantined for catalog %s", code, version)
	}

	docs, err := Documents(s, code)
	if err != nil {
		a.mu.Lock()
		a.quarantined[code] = s.Version()
		a.mu.Unlock()
		a.metrics.IncrementIntegrityAlert("unknown_document_set")
		a.logger.ErrorContext(ctx, "catalog integrity violation",
			"alert", true,
			"document_set_code", code,
			"catalog_version", s.Version(),
			"error", err,
		)
		return nil, err
	}
	return docs, nil
}

// Quarantined reports whether code is currently quarantined.
func (a *DocumentAssembler) Quarantined(code string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.quarantined[code]
	return ok
}

// OnCatalogSwap lifts every quarantine. Register it with catalog.WithOnSwap.
func (a *DocumentAssembler) OnCatalogSwap(_, _ *catalog.Snapshot) {
	a.mu.Lock()
	clear(a.quarantined)
	a.mu.Unlock()
}
