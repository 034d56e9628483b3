package continuity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ProbeResult describes one connectivity check.
type ProbeResult struct {
	Connected bool
	Detail    string
}

// Prober checks whether the remote store answers on its root endpoint.
type Prober struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewProber(client *http.Client, baseURL, apiKey string) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Check issues a GET to the root with the api key. Only a 2xx answer counts as connected.
func (p *Prober) Check(ctx context.Context) ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return ProbeResult{Detail: err.Error()}
	}
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProbeResult{Detail: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))}
	}
	return ProbeResult{Connected: true, Detail: "connection successful"}
}
