package geocoding

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// DefaultEndpoint is the public OpenStreetMap Nominatim instance.
const DefaultEndpoint = "https://nominatim.openstreetmap.org"

// NominatimConfig configures the forward-geocoding client.
type NominatimConfig struct {
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NominatimClient resolves free-text locations via the Nominatim search API.
// 失敗はすべて Unresolved として返し、呼び出し側の保存処理を止めない。
type NominatimClient struct {
	endpoint   string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *log.Logger
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatimClient creates a client. Zero values fall back to sane defaults.
func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "wanderlust-api"
	}
	return &NominatimClient{
		endpoint:   endpoint,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve returns the first match's coordinate, or Unresolved.
func (c *NominatimClient) Resolve(ctx context.Context, location string) domain.GeocodeResult {
	query := strings.TrimSpace(location)
	if query == "" {
		return domain.Unresolved()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	endpoint := c.endpoint + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Printf("geocode %q: build request: %v", query, err)
		return domain.Unresolved()
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("geocode %q: request failed: %v", query, err)
		return domain.Unresolved()
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		c.logger.Printf("geocode %q: status=%d body=%s", query, res.StatusCode, strings.TrimSpace(string(message)))
		return domain.Unresolved()
	}

	var results []searchResult
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&results); err != nil {
		c.logger.Printf("geocode %q: decode response: %v", query, err)
		return domain.Unresolved()
	}
	if len(results) == 0 {
		c.logger.Printf("geocode %q: no match", query)
		return domain.Unresolved()
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lat), 64)
	if err != nil {
		c.logger.Printf("geocode %q: parse lat %q: %v", query, results[0].Lat, err)
		return domain.Unresolved()
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lon), 64)
	if err != nil {
		c.logger.Printf("geocode %q: parse lon %q: %v", query, results[0].Lon, err)
		return domain.Unresolved()
	}
	return domain.Resolved(domain.Coordinate{Longitude: lon, Latitude: lat})
}
