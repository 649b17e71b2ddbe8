package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"kycengine/internal/verification/models"
)

// minMatchConfidence is the lowest D&B confidence code accepted as a match.
const minMatchConfidence = 7

// DNB resolves the entity against the credit bureau's identity resolution API.
type DNB struct {
	client *jsonClient
}

func NewDNB(ep Endpoint) *DNB {
	return &DNB{client: newJSONClient(models.ProviderDNB, ep, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	})}
}

func (p *DNB) ID() models.Provider { return models.ProviderDNB }

type dnbMatchResponse struct {
	MatchCandidates []struct {
		Organization struct {
			DUNS        string `json:"duns"`
			PrimaryName string `json:"primaryName"`
			Status      struct {
				Description string `json:"description"`
			} `json:"dunsControlStatus"`
		} `json:"organization"`
		MatchQualityInformation struct {
			ConfidenceCode int `json:"confidenceCode"`
		} `json:"matchQualityInformation"`
	} `json:"matchCandidates"`
}

func (p *DNB) Check(ctx context.Context, s models.Subject) (map[string]any, error) {
	if err := requireField(p.ID(), "legal name", s.LegalName); err != nil {
		return nil, err
	}
	q := url.Values{
		"name":                     {strings.TrimSpace(s.LegalName)},
		"countryISOAlpha2Code":     {strings.ToUpper(strings.TrimSpace(s.Country))},
		"registrationNumber":       {strings.TrimSpace(s.RegistrationNumber)},
		"postalCode":               {strings.TrimSpace(s.Postcode)},
		"candidateMaximumQuantity": {"1"},
	}
	var resp dnbMatchResponse
	if err := p.client.get(ctx, "/v1/match/cleanseMatch", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.MatchCandidates) == 0 {
		return nil, NewProviderError(ErrorNotFound, p.ID(), "no match candidates", nil)
	}
	best := resp.MatchCandidates[0]
	confidence := best.MatchQualityInformation.ConfidenceCode
	if confidence < minMatchConfidence {
		return nil, NewProviderError(ErrorNotFound, p.ID(), "best match below confidence threshold", nil)
	}
	return map[string]any{
		"duns":            best.Organization.DUNS,
		"matchedName":     best.Organization.PrimaryName,
		"matchConfidence": confidence,
		"operatingStatus": best.Organization.Status.Description,
	}, nil
}
