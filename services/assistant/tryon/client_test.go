// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// Tests for the try-on generation client

package tryon

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps tests quick: millisecond cadence, tight budget.
func fastConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		GracePeriod:  time.Millisecond,
		PollInterval: time.Millisecond,
		PollBudget:   200 * time.Millisecond,
	}
}

func TestSubmit_SendsMultipartAndAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/tryon", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("person_images")
		require.NoError(t, err)
		_, _, err = r.FormFile("garment_images")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jobId": "j1", "statusUrl": "/api/v1/tryon/j1/status"}`))
	}))
	defer srv.Close()

	client := NewClient(fastConfig(srv.URL))
	job, err := client.Submit(context.Background(), []byte{1}, []byte{2})
	require.NoError(t, err)
	assert.Equal(t, "j1", job.JobID)
	assert.Equal(t, "/api/v1/tryon/j1/status", job.StatusURL)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestSubmit_MissingStatusURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"jobId": "j1"}`))
	}))
	defer srv.Close()

	client := NewClient(fastConfig(srv.URL))
	_, err := client.Submit(context.Background(), []byte{1}, []byte{2})
	assert.ErrorContains(t, err, "no status URL")
}

func TestSubmit_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(fastConfig(srv.URL))
	_, err := client.Submit(context.Background(), []byte{1}, []byte{2})
	assert.ErrorContains(t, err, "502")
}

func TestPoll_ProcessingThenCompletedInlineImage(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status/j1", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if polls.Add(1) < 3 {
			w.Write([]byte(`{"status": "processing"}`))
			return
		}
		w.Write([]byte(`{"status": "completed", "imageBase64": "AAAA"}`))
	}))
	defer srv.Close()

	client := NewClient(fastConfig(srv.URL))
	img, err := client.Poll(context.Background(), &Job{JobID: "j1", StatusURL: "/status/j1"})
	require.NoError(t, err)
	assert.Equal(t, "AAAA", img)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestPoll_CompletedWithResultURLDownloadsAndEncodes(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/status/j1", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "completed", "imageUrl": "` + srv.URL + `/result.png"}`))
	})
	mux.HandleFunc("/result.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(raw)
	})

	client := NewClient(fastConfig(srv.URL))
	img, err := client.Poll(context.Background(), &Job{JobID: "j1", StatusURL: "/status/j1"})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), img)
}

func TestPoll_FailedJobCarriesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "invalid_input", "error": "garment image unreadable"}`))
	}))
	defer srv.Close()

	client := NewClient(fastConfig(srv.URL))
	_, err := client.Poll(context.Background(), &Job{JobID: "j1", StatusURL: "/status/j1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "garment image unreadable")
}

func TestPoll_BudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "processing"}`))
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.PollBudget = 20 * time.Millisecond
	client := NewClient(cfg)

	start := time.Now()
	_, err := client.Poll(context.Background(), &Job{JobID: "j1", StatusURL: "/status/j1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPoll_CompletedWithoutImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "completed"}`))
	}))
	defer srv.Close()

	client := NewClient(fastConfig(srv.URL))
	_, err := client.Poll(context.Background(), &Job{JobID: "j1", StatusURL: "/status/j1"})
	assert.ErrorContains(t, err, "neither an image nor a URL")
}

func TestPoll_CancelledDuringGracePeriod(t *testing.T) {
	cfg := fastConfig("http://unused")
	cfg.GracePeriod = time.Hour
	client := NewClient(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Poll(ctx, &Job{JobID: "j1", StatusURL: "/status/j1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://svc/"})
	assert.Equal(t, "http://svc", c.baseURL)
	assert.Equal(t, DefaultGracePeriod, c.gracePeriod)
	assert.Equal(t, DefaultPollInterval, c.pollInterval)
	assert.Equal(t, DefaultPollBudget, c.pollBudget)
	assert.NotNil(t, c.httpClient)
}
