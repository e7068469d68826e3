// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package backend is the client for the storefront REST API (products and
// orders) consumed by the pipeline nodes.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zaraara/concierge/services/assistant/datatypes"
)

// DefaultTimeout is the per-call timeout for ordinary backend calls.
const DefaultTimeout = 5 * time.Second

// categoryCacheTTL bounds staleness of the category fallback listings. The
// catalog changes rarely relative to chat traffic.
const categoryCacheTTL = 5 * time.Minute

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the storefront backend.
//
// # Thread Safety
//
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	catCache   *gocache.Cache
}

// NewClient creates a backend client.
//
// Inputs:
//
//	baseURL - The backend's base URL, without trailing slash.
//	httpClient - The HTTP client to use. If nil, a client with
//	             DefaultTimeout is created.
//
// Outputs:
//
//	*Client - The configured client.
func NewClient(baseURL string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		catCache:   gocache.New(categoryCacheTTL, 2*categoryCacheTTL),
	}
}

// SearchProducts queries GET /products with the filter's fields as query
// parameters. List-valued filter fields repeat the key, scalars are
// stringified. The caller is responsible for stripping local-only keys
// (on_sale) beforehand.
func (c *Client) SearchProducts(ctx context.Context, filter datatypes.Filter) ([]datatypes.Product, error) {
	params := url.Values{}
	for k, v := range filter {
		switch vv := v.(type) {
		case []string:
			for _, item := range vv {
				params.Add(k, item)
			}
		case []any:
			for _, item := range vv {
				params.Add(k, fmt.Sprintf("%v", item))
			}
		default:
			params.Add(k, fmt.Sprintf("%v", v))
		}
	}

	var envelope struct {
		Items []datatypes.Product `json:"items"`
	}
	if err := c.getJSON(ctx, "/products?"+params.Encode(), "", &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// ProductsByCategory queries GET /products?category=<c>, caching results
// briefly since it backs the no-results fallback path.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]datatypes.Product, error) {
	if cached, ok := c.catCache.Get(category); ok {
		return cached.([]datatypes.Product), nil
	}
	items, err := c.SearchProducts(ctx, datatypes.Filter{"category": category})
	if err != nil {
		return nil, err
	}
	c.catCache.Set(category, items, gocache.DefaultExpiration)
	return items, nil
}

// OrderByNumber queries GET /orders/{orderNumber} with bearer auth.
// A backend response without an order yields (nil, nil).
func (c *Client) OrderByNumber(ctx context.Context, orderNumber, authToken string) (*datatypes.Order, error) {
	var envelope struct {
		Order *datatypes.Order `json:"order"`
	}
	path := "/orders/" + url.PathEscape(orderNumber)
	if err := c.getJSON(ctx, path, authToken, &envelope); err != nil {
		return nil, err
	}
	return envelope.Order, nil
}

// OrdersForUser queries GET /me/orders with bearer auth.
func (c *Client) OrdersForUser(ctx context.Context, authToken string) ([]datatypes.Order, error) {
	var envelope struct {
		Orders []datatypes.Order `json:"orders"`
	}
	if err := c.getJSON(ctx, "/me/orders", authToken, &envelope); err != nil {
		return nil, err
	}
	return envelope.Orders, nil
}

// DownloadImage fetches raw image bytes from an absolute URL (product
// images live on a CDN, not under the backend base URL).
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading image body: %w", err)
	}
	return data, nil
}

// getJSON performs a GET against the backend and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, path, authToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Debug("backend returned non-2xx", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("backend returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding backend response: %w", err)
	}
	return nil
}
