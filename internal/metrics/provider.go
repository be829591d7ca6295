package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderMetrics is the raw per-period figures returned by a live provider.
type ProviderMetrics struct {
	Today           PeriodMetrics `json:"today"`
	Yesterday       PeriodMetrics `json:"yesterday"`
	SameDayLastWeek PeriodMetrics `json:"same_day_last_week"`
	Week            PeriodMetrics `json:"week"`
	Month           PeriodMetrics `json:"month"`
}

// Provider is a live metrics source for one channel. Implementations may fail;
// the reconciler catches every failure and falls through to the next tier.
type Provider interface {
	GetMetrics(ctx context.Context) (ProviderMetrics, error)
}

// HTTPProvider fetches metrics from a vendor bridge over HTTP. The request is
// bounded by the client timeout so a slow vendor cannot stall reconciliation.
type HTTPProvider struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPProvider creates an HTTP metrics provider. A zero timeout defaults
// to 5 seconds.
func NewHTTPProvider(baseURL, token string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) GetMetrics(ctx context.Context) (ProviderMetrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/metrics", nil)
	if err != nil {
		return ProviderMetrics{}, err
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderMetrics{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return ProviderMetrics{}, fmt.Errorf("primary provider status: %d", resp.StatusCode)
	}
	var m ProviderMetrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return ProviderMetrics{}, fmt.Errorf("primary provider decode: %w", err)
	}
	return m, nil
}
