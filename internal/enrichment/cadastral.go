// internal/enrichment/cadastral.go
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	httpclient "inmo-workers/internal/common/http"
)

// CadastralClient resolves a free-form address to a cadastral reference via
// the external cadastral API. Calls carry a seconds-scale timeout and are
// only ever made from the detached pool, never on the lead write path.
type CadastralClient struct {
	baseURL string
	client  *httpclient.Client
	timeout time.Duration
}

type cadastralResponse struct {
	CadastralReference string `json:"cadastralReference"`
}

func NewCadastralClient(baseURL string, timeout time.Duration) *CadastralClient {
	return &CadastralClient{
		baseURL: baseURL,
		client:  httpclient.NewClient(timeout),
		timeout: timeout,
	}
}

// Resolve looks up the cadastral reference for an address.
func (c *CadastralClient) Resolve(ctx context.Context, address, municipality, province string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("address", address)
	q.Set("municipality", municipality)
	q.Set("province", province)

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build cadastral request: %w", err)
	}

	resp, err := c.client.DoWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cadastral request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cadastral service returned %d", resp.StatusCode)
	}

	var body cadastralResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode cadastral response: %w", err)
	}
	if body.CadastralReference == "" {
		return "", fmt.Errorf("cadastral service returned empty reference")
	}

	return body.CadastralReference, nil
}
