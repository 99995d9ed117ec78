package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/busline/busline/pkg/util"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "http://localhost:8081"
	defaultTimeout = 30 * time.Second

	healthPath = "/health"
	stopsPath  = "/v1/stops"
	routesPath = "/v1/routes"
	busesPath  = "/v1/buses"
	gpsPath    = "/v1/gps"
)

// Client talks to the transit operator feed
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

func NewClientFromEnvironment() *Client {
	env := util.GetEnvironmentVariables()

	baseURL := defaultBaseURL
	if env["BUSLINE_UPSTREAM_BASE_URL"] != "" {
		baseURL = env["BUSLINE_UPSTREAM_BASE_URL"]
	}

	return NewClient(baseURL, env["BUSLINE_UPSTREAM_API_KEY"], util.GetEnvironmentDuration("BUSLINE_UPSTREAM_TIMEOUT", defaultTimeout))
}

func NewClient(baseURL string, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Payload is a decoded upstream response together with the raw body kept for auditing
type Payload[T any] struct {
	Records []T
	Raw     []byte
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream %s returned %s", path, resp.Status)
	}

	return body, nil
}

func fetch[T any](ctx context.Context, c *Client, path string) (*Payload[T], error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var records []T
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("records", len(records)).Msg("Fetched upstream records")

	return &Payload[T]{
		Records: records,
		Raw:     body,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, healthPath)
	return err
}

func (c *Client) FetchStops(ctx context.Context) (*Payload[StopRecord], error) {
	return fetch[StopRecord](ctx, c, stopsPath)
}

func (c *Client) FetchRoutes(ctx context.Context) (*Payload[RouteRecord], error) {
	return fetch[RouteRecord](ctx, c, routesPath)
}

func (c *Client) FetchBuses(ctx context.Context) (*Payload[BusRecord], error) {
	return fetch[BusRecord](ctx, c, busesPath)
}

func (c *Client) FetchGPS(ctx context.Context) (*Payload[GPSRecord], error) {
	return fetch[GPSRecord](ctx, c, gpsPath)
}
