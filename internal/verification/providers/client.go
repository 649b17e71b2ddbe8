package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kycengine/internal/verification/models"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// Endpoint is the connection configuration for one provider API.
type Endpoint struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// jsonClient is a minimal HTTP JSON client that normalizes transport and
// status failures into ProviderErrors.
type jsonClient struct {
	provider   models.Provider
	baseURL    string
	httpClient *http.Client
	authorize  func(req *http.Request)
}

func newJSONClient(provider models.Provider, ep Endpoint, authorize func(req *http.Request)) *jsonClient {
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &jsonClient{
		provider:   provider,
		baseURL:    strings.TrimRight(ep.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		authorize:  authorize,
	}
}

func (c *jsonClient) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, c.provider, "creating request", err)
	}
	return c.do(req, result)
}

func (c *jsonClient) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return NewProviderError(ErrorInternal, c.provider, "marshaling request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return NewProviderError(ErrorInternal, c.provider, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *jsonClient) do(req *http.Request, result any) error {
	req.Header.Set("Accept", "application/json")
	if c.authorize != nil {
		c.authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(req.Context(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.transportError(req.Context(), err)
	}

	if resp.StatusCode >= 400 {
		return c.statusError(resp.StatusCode, body)
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return NewProviderError(ErrorBadData, c.provider, "unmarshaling response", err)
		}
	}
	return nil
}

func (c *jsonClient) transportError(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return NewProviderError(ErrorCancelled, c.provider, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NewProviderError(ErrorTimeout, c.provider, "request timed out", err)
	default:
		return NewProviderError(ErrorProviderOutage, c.provider, "executing request", err)
	}
}

func (c *jsonClient) statusError(status int, body []byte) error {
	msg := fmt.Sprintf("API error %d: %s", status, truncate(body, 200))
	switch {
	case status == http.StatusNotFound:
		return NewProviderError(ErrorNotFound, c.provider, msg, nil)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, c.provider, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, c.provider, msg, nil)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return NewProviderError(ErrorTimeout, c.provider, msg, nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, c.provider, msg, nil)
	default:
		return NewProviderError(ErrorBadData, c.provider, msg, nil)
	}
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func requireField(provider models.Provider, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewProviderError(ErrorInsufficientInput, provider, name+" is required", nil)
	}
	return nil
}
