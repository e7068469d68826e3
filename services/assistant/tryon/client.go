// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tryon is the client for the external virtual try-on generation
// service: multipart job submission plus timer-driven status polling.
package tryon

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Polling cadence and budget. The generation service needs warm-up time
// before the first status is meaningful, then reports progress on the order
// of tens of seconds.
const (
	DefaultGracePeriod  = 30 * time.Second
	DefaultPollInterval = 30 * time.Second
	DefaultPollBudget   = 120 * time.Second
)

// Job statuses reported by the generation service.
const (
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
	StatusInvalidInput = "invalid_input"
)

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	// BaseURL of the generation service, without trailing slash.
	BaseURL string

	// APIKey is sent as a bearer token on every call.
	APIKey string

	// GracePeriod is the wait before the first status check. Zero means
	// DefaultGracePeriod.
	GracePeriod time.Duration

	// PollInterval is the wait between status checks. Zero means
	// DefaultPollInterval.
	PollInterval time.Duration

	// PollBudget is the total time allowed for polling after the grace
	// period. Zero means DefaultPollBudget. When the budget is exhausted
	// the job is reported as timed out rather than polled forever.
	PollBudget time.Duration

	// HTTPClient to use. If nil, a plain http.Client is created; job
	// submission and polling get their deadlines from contexts, not from
	// a client-wide timeout.
	HTTPClient HTTPClient
}

// Job identifies a submitted generation job.
type Job struct {
	JobID     string `json:"jobId"`
	StatusURL string `json:"statusUrl"`
}

// statusResponse is the body of GET {statusUrl}.
type statusResponse struct {
	Status      string `json:"status"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Client talks to the try-on generation service.
//
// # Thread Safety
//
// Safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	gracePeriod  time.Duration
	pollInterval time.Duration
	pollBudget   time.Duration
	httpClient   HTTPClient
}

// NewClient creates a try-on client from cfg, applying defaults for unset
// cadence fields.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		gracePeriod:  cfg.GracePeriod,
		pollInterval: cfg.PollInterval,
		pollBudget:   cfg.PollBudget,
		httpClient:   cfg.HTTPClient,
	}
	if c.gracePeriod == 0 {
		c.gracePeriod = DefaultGracePeriod
	}
	if c.pollInterval == 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.pollBudget == 0 {
		c.pollBudget = DefaultPollBudget
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// Submit posts the person and garment images as a multipart job.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	personImage - The user's uploaded photo bytes.
//	garmentImage - The product image bytes.
//
// Outputs:
//
//	*Job - The job id and its status-polling URL.
//	error - Non-nil on transport failure, non-2xx, or a malformed body.
func (c *Client) Submit(ctx context.Context, personImage, garmentImage []byte) (*Job, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	person, err := writer.CreateFormFile("person_images", "person.png")
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := person.Write(personImage); err != nil {
		return nil, fmt.Errorf("writing person image: %w", err)
	}
	garment, err := writer.CreateFormFile("garment_images", "garment.png")
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := garment.Write(garmentImage); err != nil {
		return nil, fmt.Errorf("writing garment image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/tryon", &body)
	if err != nil {
		return nil, fmt.Errorf("building submit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting try-on job: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("try-on submission returned status %d", resp.StatusCode)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decoding submission response: %w", err)
	}
	if job.StatusURL == "" {
		return nil, fmt.Errorf("try-on submission returned no status URL")
	}
	slog.Info("try-on job submitted", "job_id", job.JobID)
	return &job, nil
}

// Poll waits out the grace period, then checks the job's status on the
// configured interval until it completes, fails, or exhausts the poll
// budget.
//
// The waits are timer-driven selects, so cancellation of ctx abandons the
// job immediately instead of sleeping it out.
//
// Outputs:
//
//	string - The generated image, base64 encoded. A completed job that
//	         only reports a result URL is downloaded and encoded here.
//	error - Non-nil for a failed job, a budget timeout, cancellation, or
//	        any transport fault.
func (c *Client) Poll(ctx context.Context, job *Job) (string, error) {
	if err := wait(ctx, c.gracePeriod); err != nil {
		return "", err
	}

	deadline := time.Now().Add(c.pollBudget)
	for {
		status, err := c.checkStatus(ctx, job)
		if err != nil {
			return "", err
		}

		switch status.Status {
		case StatusCompleted:
			return c.extractImage(ctx, status)
		case StatusFailed, StatusInvalidInput:
			return "", fmt.Errorf("try-on job failed: %s", status.Error)
		}

		if time.Now().After(deadline) {
			slog.Warn("try-on poll budget exhausted",
				"job_id", job.JobID, "last_status", status.Status)
			return "", fmt.Errorf("try-on job timed out after %s", c.pollBudget)
		}
		slog.Debug("try-on job still running",
			"job_id", job.JobID, "status", status.Status)
		if err := wait(ctx, c.pollInterval); err != nil {
			return "", err
		}
	}
}

// checkStatus performs one status request.
func (c *Client) checkStatus(ctx context.Context, job *Job) (*statusResponse, error) {
	statusURL := job.StatusURL
	if strings.HasPrefix(statusURL, "/") {
		statusURL = c.baseURL + statusURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling try-on status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("try-on status returned status %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decoding status response: %w", err)
	}
	return &status, nil
}

// extractImage returns the completed job's image: inline base64 when
// present, otherwise the result URL downloaded and encoded.
func (c *Client) extractImage(ctx context.Context, status *statusResponse) (string, error) {
	if status.ImageBase64 != "" {
		return status.ImageBase64, nil
	}
	if status.ImageURL == "" {
		return "", fmt.Errorf("try-on job returned neither an image nor a URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, status.ImageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building result request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading result image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("result download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading result image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
