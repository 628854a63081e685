package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/trueseal/internal/observability/logger"
)

// HTTPClient consulta un endpoint REST de attestation:
// POST {base}/v1/verify {"secret_hash": "..."} -> {"verified": bool}
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Verify(ctx context.Context, secretHash string) Status {
	body, _ := json.Marshal(map[string]string{"secret_hash": secretHash})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return StatusUnavailable
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.From(ctx).Debug("verifier unreachable", logger.Err(err))
		return StatusUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusUnavailable
	}

	var out struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return StatusUnavailable
	}
	if out.Verified {
		return StatusVerified
	}
	return StatusDenied
}
