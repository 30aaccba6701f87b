package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	coingeckoURL   = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	requestTimeout = 5 * time.Second
	cacheTTL       = 1 * time.Minute
)

// Client fetches the SOL/USD rate. The rate is display sugar only, so every
// failure path returns 0 and the caller renders amounts without USD.
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
	url        string

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
}

func NewClient(logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		url:        coingeckoURL,
	}
}

// SetURL overrides the price endpoint.
func (c *Client) SetURL(url string) {
	c.url = url
}

// SOLToUSD returns the current SOL price in USD, or 0 when unavailable.
func (c *Client) SOLToUSD(ctx context.Context) float64 {
	c.mu.Lock()
	if c.cached > 0 && time.Since(c.fetchedAt) < cacheTTL {
		price := c.cached
		c.mu.Unlock()
		return price
	}
	c.mu.Unlock()

	price, err := c.fetch(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("SOL price lookup failed")
		return 0
	}

	c.mu.Lock()
	c.cached = price
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return price
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.Solana.USD, nil
}
