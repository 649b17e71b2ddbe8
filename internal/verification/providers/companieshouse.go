package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"kycengine/internal/verification/models"
)

// CompaniesHouse checks the UK company registry by company number.
type CompaniesHouse struct {
	client *jsonClient
}

func NewCompaniesHouse(ep Endpoint) *CompaniesHouse {
	return &CompaniesHouse{client: newJSONClient(models.ProviderCompaniesHouse, ep, func(req *http.Request) {
		// the registry API takes the key as the basic-auth user name
		req.SetBasicAuth(ep.APIKey, "")
	})}
}

func (p *CompaniesHouse) ID() models.Provider { return models.ProviderCompaniesHouse }

type companyProfile struct {
	CompanyName      string   `json:"company_name"`
	CompanyNumber    string   `json:"company_number"`
	CompanyStatus    string   `json:"company_status"`
	Type             string   `json:"type"`
	DateOfCreation   string   `json:"date_of_creation"`
	SICCodes         []string `json:"sic_codes"`
	RegisteredOffice struct {
		AddressLine1 string `json:"address_line_1"`
		Locality     string `json:"locality"`
		PostalCode   string `json:"postal_code"`
	} `json:"registered_office_address"`
}

func (p *CompaniesHouse) Check(ctx context.Context, s models.Subject) (map[string]any, error) {
	number := strings.ToUpper(strings.TrimSpace(s.RegistrationNumber))
	if err := requireField(p.ID(), "registration number", number); err != nil {
		return nil, err
	}
	var profile companyProfile
	if err := p.client.get(ctx, "/company/"+url.PathEscape(number), nil, &profile); err != nil {
		return nil, err
	}
	if profile.CompanyNumber == "" {
		return nil, NewProviderError(ErrorBadData, p.ID(), "response has no company number", nil)
	}
	return map[string]any{
		"companyName":        profile.CompanyName,
		"companyNumber":      profile.CompanyNumber,
		"companyStatus":      profile.CompanyStatus,
		"companyType":        profile.Type,
		"incorporatedOn":     profile.DateOfCreation,
		"sicCodes":           strings.Join(profile.SICCodes, ","),
		"registeredPostcode": profile.RegisteredOffice.PostalCode,
		"nameMatches":        sameName(profile.CompanyName, s.LegalName),
	}, nil
}

// sameName compares entity names ignoring case, punctuation and common
// legal suffix spellings.
func sameName(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

var legalSuffixes = strings.NewReplacer(" limited", " ltd", " public limited company", " plc", ".", "", ",", "")

func normalizeName(v string) string {
	v = strings.ToLower(strings.Join(strings.Fields(v), " "))
	return legalSuffixes.Replace(v)
}
