package providers

import (
	"kycengine/internal/platform/config"
	"kycengine/internal/verification/models"
)

// FromConfig builds the registry of HTTP providers that have a base URL. When
// sandbox is set, providers without a URL are served by Sandbox instead of
// being left unconfigured.
func FromConfig(cfg config.ProvidersConfig, sandbox bool) (*Registry, error) {
	endpoint := func(ep config.ProviderEndpoint) Endpoint {
		return Endpoint{BaseURL: ep.BaseURL, APIKey: ep.APIKey, Timeout: cfg.AttemptTimeout}
	}
	type entry struct {
		id  models.Provider
		ep  config.ProviderEndpoint
		new func(Endpoint) Provider
	}
	entries := []entry{
		{models.ProviderCompaniesHouse, cfg.CompaniesHouse, func(e Endpoint) Provider { return NewCompaniesHouse(e) }},
		{models.ProviderFCA, cfg.FCA, func(e Endpoint) Provider { return NewFCA(e) }},
		{models.ProviderDNB, cfg.DNB, func(e Endpoint) Provider { return NewDNB(e) }},
		{models.ProviderLexisNexis, cfg.LexisNexis, func(e Endpoint) Provider { return NewLexisNexis(e) }},
	}

	reg := &Registry{providers: make(map[models.Provider]Provider)}
	for _, e := range entries {
		switch {
		case e.ep.BaseURL != "":
			if err := reg.Register(e.new(endpoint(e.ep))); err != nil {
				return nil, err
			}
		case sandbox:
			if err := reg.Register(Sandbox(e.id)); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}
