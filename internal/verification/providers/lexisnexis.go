package providers

import (
	"context"
	"net/http"
	"strings"

	"kycengine/internal/verification/models"
)

// LexisNexis screens the entity for sanctions, PEP and adverse media hits.
type LexisNexis struct {
	client *jsonClient
}

func NewLexisNexis(ep Endpoint) *LexisNexis {
	return &LexisNexis{client: newJSONClient(models.ProviderLexisNexis, ep, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	})}
}

func (p *LexisNexis) ID() models.Provider { return models.ProviderLexisNexis }

type screeningRequest struct {
	EntityType string `json:"entityType"`
	Name       string `json:"name"`
	Country    string `json:"country,omitempty"`
	Reference  string `json:"clientReference"`
}

type screeningResponse struct {
	SearchID  string `json:"searchId"`
	TotalHits int    `json:"totalHits"`
	Records   []struct {
		Category string  `json:"category"`
		Score    float64 `json:"score"`
	} `json:"records"`
}

func (p *LexisNexis) Check(ctx context.Context, s models.Subject) (map[string]any, error) {
	name := strings.TrimSpace(s.LegalName)
	if err := requireField(p.ID(), "legal name", name); err != nil {
		return nil, err
	}
	var resp screeningResponse
	req := screeningRequest{
		EntityType: "business",
		Name:       name,
		Country:    strings.ToUpper(strings.TrimSpace(s.Country)),
		Reference:  s.CaseID,
	}
	if err := p.client.post(ctx, "/bridger/v1/search", req, &resp); err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(resp.Records))
	seen := make(map[string]struct{})
	topScore := 0.0
	for _, r := range resp.Records {
		if _, ok := seen[r.Category]; !ok && r.Category != "" {
			seen[r.Category] = struct{}{}
			categories = append(categories, r.Category)
		}
		topScore = max(topScore, r.Score)
	}
	return map[string]any{
		"searchId":      resp.SearchID,
		"hitCount":      resp.TotalHits,
		"hitCategories": strings.Join(categories, ","),
		"topScore":      topScore,
	}, nil
}
