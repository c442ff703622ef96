// Package price provides the client for the category-to-price regression
// service.
package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ErrNotSupported indicates the regression service has no price model for
// the category.
var ErrNotSupported = errors.New("category not supported by price model")

// ErrUnavailable indicates the regression service is not reachable or has
// no model loaded.
var ErrUnavailable = errors.New("price service unavailable")

// ClientOpts configures a price service client.
type ClientOpts struct {
	BaseURL string
}

// Client talks to the price regression service over HTTP.
type Client struct {
	httpClient *resty.Client
}

type priceRequest struct {
	Category string `json:"category"`
}

type priceResponse struct {
	Category string `json:"category"`
	Price    int    `json:"price"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// NewClient creates a price service client.
func NewClient(opts ClientOpts) *Client {
	c := &Client{}
	c.httpClient = resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json")
	return c
}

// PredictPrice returns the estimated price for a canonical category.
// Categories the model does not know map to ErrNotSupported; a service
// without a loaded model maps to ErrUnavailable.
func (c *Client) PredictPrice(ctx context.Context, category string) (int, error) {
	result := &priceResponse{}

	res, err := c.httpClient.NewRequest().
		SetContext(ctx).
		SetBody(priceRequest{Category: category}).
		SetResult(result).
		Post("/v1/price")
	if err != nil {
		return 0, fmt.Errorf("price request failed: %w", err)
	}
	switch {
	case res.StatusCode() == http.StatusUnprocessableEntity || res.StatusCode() == http.StatusNotFound:
		return 0, ErrNotSupported
	case res.StatusCode() == http.StatusServiceUnavailable:
		return 0, ErrUnavailable
	case res.IsError():
		return 0, fmt.Errorf("price request failed: %s (status: %d)", res.Request.URL, res.StatusCode())
	}
	return result.Price, nil
}

// Categories returns the categories the regression service accepts. Called
// once at startup to verify the canonical schema matches the local mapping
// table.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	result := &categoriesResponse{}

	res, err := c.httpClient.NewRequest().
		SetContext(ctx).
		SetResult(result).
		Get("/v1/categories")
	if err != nil {
		return nil, fmt.Errorf("categories request failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("categories request failed: %s (status: %d)", res.Request.URL, res.StatusCode())
	}
	return result.Categories, nil
}
