package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"kycengine/internal/verification/models"
)

// Sandbox returns a deterministic offline stand-in for provider p, used in
// development when no endpoint is configured. Registration numbers ending in
// "404" are unknown to every sandbox; legal names containing "sanction"
// produce screening hits.
func Sandbox(p models.Provider) Provider {
	return Func{Name: p, Fn: func(ctx context.Context, s models.Subject) (map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, NewProviderError(ErrorCancelled, p, "sandbox request cancelled", err)
		}
		if strings.HasSuffix(strings.TrimSpace(s.RegistrationNumber), "404") {
			return nil, NewProviderError(ErrorNotFound, p, "sandbox has no record", nil)
		}
		sum := sha256.Sum256([]byte(s.CacheKey()))
		ref := strings.ToUpper(hex.EncodeToString(sum[:4]))

		switch p {
		case models.ProviderCompaniesHouse:
			return map[string]any{
				"companyName":   s.LegalName,
				"companyNumber": s.RegistrationNumber,
				"companyStatus": "active",
				"nameMatches":   true,
			}, nil
		case models.ProviderFCA:
			return map[string]any{"firmName": s.LegalName, "firmReference": ref, "firmStatus": "Authorised"}, nil
		case models.ProviderDNB:
			return map[string]any{"duns": ref, "matchedName": s.LegalName, "matchConfidence": 9}, nil
		case models.ProviderLexisNexis:
			hits := 0
			if strings.Contains(strings.ToLower(s.LegalName), "sanction") {
				hits = 1
			}
			return map[string]any{"searchId": ref, "hitCount": hits}, nil
		default:
			return nil, NewProviderError(ErrorInternal, p, "sandbox does not know this provider", nil)
		}
	}}
}
