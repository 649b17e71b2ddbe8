package providers

import (
	"context"
	"fmt"
	"sort"

	"kycengine/internal/verification/models"
)

// Provider is the interface every verification source implements. Check
// returns the normalized payload for a successful lookup or a ProviderError.
type Provider interface {
	ID() models.Provider
	Check(ctx context.Context, subject models.Subject) (map[string]any, error)
}

// Registry maintains the configured providers.
type Registry struct {
	providers map[models.Provider]Provider
}

func NewRegistry(ps ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[models.Provider]Provider)}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) error {
	id := p.ID()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.providers[id] = p
	return nil
}

func (r *Registry) Get(id models.Provider) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered provider ids in stable order.
func (r *Registry) IDs() []models.Provider {
	out := make([]models.Provider, 0, len(r.providers))
	for id := range r.providers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Func adapts a function to Provider. Used for stubs and local runs.
type Func struct {
	Name models.Provider
	Fn   func(ctx context.Context, subject models.Subject) (map[string]any, error)
}

func (f Func) ID() models.Provider { return f.Name }

func (f Func) Check(ctx context.Context, subject models.Subject) (map[string]any, error) {
	return f.Fn(ctx, subject)
}
