package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"logsight-backend/config"
	"logsight-backend/internal/metrics"
)

// Client resolves one enrichment key to its Enrichment. Lookup never returns
// an error: failures degrade to the Unknown sentinels and are cached like
// successes, so a key that failed once is not retried within the cache
// lifetime.
type Client interface {
	Lookup(ctx context.Context, ip string) Enrichment
}

type client struct {
	httpClient *http.Client
	baseURL    string
	cache      *gocache.Cache
	group      singleflight.Group
	metrics    *metrics.Metrics
}

func NewClient(cfg *config.Config, m *metrics.Metrics) Client {
	ttl := cfg.Lookup.CacheTTL
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.Lookup.Timeout,
		},
		baseURL: cfg.Lookup.BaseURL,
		cache:   gocache.New(ttl, cleanup),
		metrics: m,
	}
}

func (c *client) Lookup(ctx context.Context, ip string) Enrichment {
	if cached, ok := c.cache.Get(ip); ok {
		c.metrics.LookupCacheHits.Inc()
		return cached.(Enrichment)
	}

	// Concurrent requesters for the same key share one outbound call; the
	// re-check inside covers the window between the miss above and joining
	// the flight.
	result, _, _ := c.group.Do(ip, func() (interface{}, error) {
		if cached, ok := c.cache.Get(ip); ok {
			c.metrics.LookupCacheHits.Inc()
			return cached.(Enrichment), nil
		}
		enrichment := c.fetch(ctx, ip)
		c.cache.Set(ip, enrichment, gocache.DefaultExpiration)
		return enrichment, nil
	})
	return result.(Enrichment)
}

// apiResponse mirrors the ip-api JSON contract. Query echoes the looked-up
// address and is dropped before merging.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
	Query   string `json:"query"`
}

func (c *client) fetch(ctx context.Context, ip string) Enrichment {
	c.metrics.LookupsIssued.Inc()
	startTime := time.Now()

	url := fmt.Sprintf("%s/json/%s?fields=status,message,country,city,isp,query", c.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Err(err).Str("ip", ip).Msg("Failed to create lookup request")
		return c.networkFailure(ip, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.networkFailure(ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.networkFailure(ip, fmt.Errorf("lookup service returned status %d", resp.StatusCode))
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.networkFailure(ip, fmt.Errorf("malformed lookup response: %w", err))
	}

	if payload.Status != "success" {
		reason := payload.Message
		if reason == "" {
			reason = "lookup failed"
		}
		c.metrics.IncLookupFailures("api")
		log.Warn().Str("ip", ip).Str("reason", reason).Msg("Lookup service rejected query")
		return Enrichment{
			Country: Unknown,
			City:    Unknown,
			Status:  StatusAPIError,
			Reason:  reason,
		}
	}

	log.Debug().Str("ip", ip).Dur("duration", time.Since(startTime)).Msg("Lookup succeeded")
	return Enrichment{
		Country: orNotAvailable(payload.Country),
		City:    orNotAvailable(payload.City),
		ISP:     orNotAvailable(payload.ISP),
		Status:  StatusSuccess,
	}
}

func (c *client) networkFailure(ip string, err error) Enrichment {
	c.metrics.IncLookupFailures("network")
	log.Warn().Err(err).Str("ip", ip).Msg("Lookup transport failure")
	return Enrichment{
		Country: Unknown,
		City:    Unknown,
		Status:  StatusNetworkError,
	}
}

func orNotAvailable(value string) string {
	if value == "" {
		return NotAvailable
	}
	return value
}
