// Package squarespace provides the Squarespace commerce API client with
// exhaustive pagination of collection endpoints.
package squarespace

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SherbornYachtClub/orderbot-sync/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for commerce API operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "squarespace_requests_total",
		Help: "Total Squarespace API requests by status",
	}, []string{"status"})

	apiRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "squarespace_request_duration_seconds",
		Help:    "Squarespace API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "squarespace_pages_fetched_total",
		Help: "Total collection pages fetched across all runs",
	})
)

const (
	// OrdersEndpoint is the fixed orders-collection endpoint.
	OrdersEndpoint = "https://api.squarespace.com/1.0/commerce/orders"

	// ordersResultKey is the response body field holding the order array.
	ordersResultKey = "result"

	// userAgent is the fixed client identifier sent with every request.
	userAgent = "MembershipBot"
)

// Client is the commerce API client.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey is the bearer token for the commerce API (REQUIRED).
	APIKey string

	// Endpoint overrides the orders-collection endpoint (tests only).
	Endpoint string

	// HTTPClient overrides the underlying HTTP client (tests only).
	HTTPClient *http.Client
}

// New creates a new commerce API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = OrdersEndpoint
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return &Client{
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		logger:     logging.NewLogger("squarespace-client"),
	}, nil
}
