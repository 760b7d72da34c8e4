package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/where/internal/domain"
	"github.com/couchcryptid/where/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.ReverseGeocoder using the Mapbox Geocoding API,
// restricted to country features.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// ReverseGeocode returns the country containing c. Coordinates in open
// water yield an empty result.
func (c *Client) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	u := fmt.Sprintf("%s/%.6f,%.6f.json", c.baseURL, coord.Lon, coord.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("access_token", c.token)
	q.Set("types", "country")
	q.Set("limit", "1")
	req.URL.RawQuery = q.Encode()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APIDuration.WithLabelValues("mapbox").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues("mapbox", "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.GeocodingResult{}, fmt.Errorf("reverse geocode request: %w", ctxErr)
		}
		return domain.GeocodingResult{}, fmt.Errorf("reverse geocode request: %w: %w", err, domain.ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.APIRequests.WithLabelValues("mapbox", "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s: %w", resp.StatusCode, body, domain.ErrUnreachable)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		c.metrics.APIRequests.WithLabelValues("mapbox", "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w: %w", err, domain.ErrUnreachable)
	}

	for _, f := range mapboxResp.Features {
		code := f.regionCode()
		if code == "" {
			continue
		}
		c.metrics.APIRequests.WithLabelValues("mapbox", "success").Inc()
		return domain.GeocodingResult{
			RegionCode: code,
			PlaceName:  f.Text,
			Confidence: f.Relevance,
		}, nil
	}

	c.metrics.APIRequests.WithLabelValues("mapbox", "empty").Inc()
	c.logger.Debug("mapbox returned no country", "lat", coord.Lat, "lon", coord.Lon)
	return domain.GeocodingResult{}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"` // "country.8762"
	Text       string     `json:"text"`
	PlaceName  string     `json:"place_name"`
	Relevance  float64    `json:"relevance"`
	Properties properties `json:"properties"`
}

type properties struct {
	ShortCode string `json:"short_code"` // "de", or "us-tx" for regions
}

// regionCode returns the upper-case country code of a country feature.
func (f feature) regionCode() string {
	if !strings.HasPrefix(f.ID, "country.") {
		return ""
	}
	code, _, _ := strings.Cut(f.Properties.ShortCode, "-")
	return strings.ToUpper(code)
}
