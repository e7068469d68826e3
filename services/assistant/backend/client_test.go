// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// Tests for the storefront backend client

package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaraara/concierge/services/assistant/datatypes"
)

func TestSearchProducts_EncodesFilterValues(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"items": [{"id": "p1", "name": "Suit", "price": 9000}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	items, err := client.SearchProducts(context.Background(), datatypes.Filter{
		"q":        "suit",
		"maxPrice": float64(9000),
		"colors":   []any{"navy", "black"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)

	parsed, err := url.ParseQuery(gotQuery)
	require.NoError(t, err)
	assert.Equal(t, "suit", parsed.Get("q"))
	assert.Equal(t, "9000", parsed.Get("maxPrice"))
	assert.Equal(t, []string{"navy", "black"}, parsed["colors"])
}

func TestSearchProducts_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.SearchProducts(context.Background(), datatypes.Filter{"q": "suit"})
	assert.ErrorContains(t, err, "500")
}

func TestProductsByCategory_CachesListing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "women", r.URL.Query().Get("category"))
		w.Write([]byte(`{"items": [{"id": "p1"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	for i := 0; i < 3; i++ {
		items, err := client.ProductsByCategory(context.Background(), "women")
		require.NoError(t, err)
		require.Len(t, items, 1)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestOrderByNumber_SendsBearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/ORD-7", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"order": {"orderNumber": "ORD-7", "status": "shipped"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	order, err := client.OrderByNumber(context.Background(), "ORD-7", "tok")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "shipped", order.Status)
}

func TestOrderByNumber_AbsentOrderIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	order, err := client.OrderByNumber(context.Background(), "NOPE", "tok")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestOrdersForUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/orders", r.URL.Path)
		w.Write([]byte(`{"orders": [{"orderNumber": "a"}, {"orderNumber": "b"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	orders, err := client.OrdersForUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestDownloadImage(t *testing.T) {
	payload := []byte{0x89, 0x50}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient("http://unused", nil)
	data, err := client.DownloadImage(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}
