package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"kycengine/internal/verification/models"
)

// FCA checks the Financial Services Register for the firm's authorisation.
type FCA struct {
	client *jsonClient
}

func NewFCA(ep Endpoint) *FCA {
	return &FCA{client: newJSONClient(models.ProviderFCA, ep, func(req *http.Request) {
		req.Header.Set("X-Auth-Key", ep.APIKey)
	})}
}

func (p *FCA) ID() models.Provider { return models.ProviderFCA }

type fcaSearchResponse struct {
	Status     string `json:"Status"`
	ResultInfo struct {
		TotalCount string `json:"total_count"`
	} `json:"ResultInfo"`
	Data []struct {
		Name            string `json:"Name"`
		ReferenceNumber string `json:"Reference Number"`
		Status          string `json:"Status"`
		Type            string `json:"Type of business or Individual"`
	} `json:"Data"`
}

func (p *FCA) Check(ctx context.Context, s models.Subject) (map[string]any, error) {
	name := strings.TrimSpace(s.LegalName)
	if err := requireField(p.ID(), "legal name", name); err != nil {
		return nil, err
	}
	var resp fcaSearchResponse
	q := url.Values{"q": {name}, "type": {"firm"}}
	if err := p.client.get(ctx, "/V0.1/Search", q, &resp); err != nil {
		return nil, err
	}

	for _, firm := range resp.Data {
		if !sameName(firm.Name, name) {
			continue
		}
		return map[string]any{
			"firmName":      firm.Name,
			"firmReference": firm.ReferenceNumber,
			"firmStatus":    firm.Status,
			"businessType":  firm.Type,
		}, nil
	}
	return nil, NewProviderError(ErrorNotFound, p.ID(), "no firm on the register matches "+name, nil)
}
