// Package ipapi is a client for the ip-api.com JSON geolocation webservice.
package ipapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
)

const fields = "status,message,countryCode,query"

// Client implements ipaddress.IPDiscoverer and ipaddress.CountryLookup.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a webservice client that sends at most perMinute
// requests per minute.
func NewClient(baseURL string, timeout time.Duration, perMinute int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if perMinute <= 0 {
		perMinute = 40
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 2),
		metrics:    metrics,
		logger:     logger,
	}
}

// ExternalIP returns the address the webservice sees the request from.
func (c *Client) ExternalIP(ctx context.Context) (netip.Addr, error) {
	resp, err := c.do(ctx, "")
	if err != nil {
		return netip.Addr{}, err
	}
	ip, err := netip.ParseAddr(resp.Query)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("ipapi: bad query address %q: %w", resp.Query, domain.ErrUnreachable)
	}
	return ip, nil
}

// LookupCountry returns the ISO code of the country ip is registered in.
func (c *Client) LookupCountry(ctx context.Context, ip netip.Addr) (string, error) {
	resp, err := c.do(ctx, ip.String())
	if err != nil {
		return "", err
	}
	return resp.CountryCode, nil
}

func (c *Client) do(ctx context.Context, ip string) (response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return response{}, fmt.Errorf("ipapi: rate limit: %w", err)
	}

	u := c.baseURL + "/json/"
	if ip != "" {
		u += url.PathEscape(ip)
	}
	u += "?" + url.Values{"fields": {fields}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIDuration.WithLabelValues("ipapi").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues("ipapi", "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response{}, fmt.Errorf("ipapi request: %w", ctxErr)
		}
		return response{}, fmt.Errorf("ipapi request: %w: %w", err, domain.ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.APIRequests.WithLabelValues("ipapi", "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return response{}, fmt.Errorf("ipapi: status %d: %s: %w", resp.StatusCode, body, domain.ErrUnreachable)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.APIRequests.WithLabelValues("ipapi", "error").Inc()
		return response{}, fmt.Errorf("ipapi: decode response: %w: %w", err, domain.ErrUnreachable)
	}
	if out.Status != "success" {
		c.metrics.APIRequests.WithLabelValues("ipapi", "empty").Inc()
		c.logger.Debug("ipapi lookup failed", "ip", ip, "message", out.Message)
		return response{}, fmt.Errorf("ipapi: %s: %w", out.Message, domain.ErrNoData)
	}

	c.metrics.APIRequests.WithLabelValues("ipapi", "success").Inc()
	return out, nil
}

// ip-api response shape.

type response struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
	Query       string `json:"query"`
}
