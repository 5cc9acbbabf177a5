// Package restysummary implements ports.SummaryClient over a resty HTTP
// client, with base URL, timeout, and retry-on-5xx wired at construction
// time.
package restysummary

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chainfeed/ingestd/internal/ports"
)

// Client adapts an external summary API to ports.SummaryClient.
type Client struct {
	http *resty.Client
}

var _ ports.SummaryClient = (*Client)(nil)

// New builds a client against baseURL with retry-on-5xx enabled.
func New(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &Client{http: httpClient}
}

type summaryResponse struct {
	Change24H float64 `json:"change24h"`
	Price24H  float64 `json:"price24h"`
	High24H   float64 `json:"high24h"`
	Low24H    float64 `json:"low24h"`
	Volume24H float64 `json:"volume24h"`
	Price     float64 `json:"price"`
	SolPrice  float64 `json:"solPrice"`
	MarketBuy *bool   `json:"marketBuy"`
}

func (c *Client) GetSummary(ctx context.Context, slug string) (ports.Summary, error) {
	var result summaryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("slug", slug).
		SetResult(&result).
		Get("/v2/summary/{slug}")
	if err != nil {
		return ports.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return ports.Summary{}, fmt.Errorf("get summary: status %d: %s", resp.StatusCode(), resp.String())
	}

	return ports.Summary{
		Change24H: result.Change24H,
		Price24H:  result.Price24H,
		High24H:   result.High24H,
		Low24H:    result.Low24H,
		Volume24H: result.Volume24H,
		Price:     result.Price,
		SolPrice:  result.SolPrice,
		MarketBuy: result.MarketBuy,
	}, nil
}
