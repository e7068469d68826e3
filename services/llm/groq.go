// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// DefaultCallTimeout bounds a single completion call. The upstream service
// enforces no timeout of its own; leaving calls unbounded would pin a
// request on a stuck completion.
const DefaultCallTimeout = 60 * time.Second

// GroqConfig configures a GroqClient.
type GroqConfig struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides GroqBaseURL. Tests point this at a local server.
	BaseURL string

	// Model is the default completion model when a call does not override
	// it.
	Model string

	// CallTimeout bounds a single completion call. Zero means
	// DefaultCallTimeout.
	CallTimeout time.Duration

	// RequestsPerSecond throttles completion calls across all pipelines.
	// Zero disables throttling.
	RequestsPerSecond float64
}

// GroqClient talks to Groq's OpenAI-compatible completion API.
//
// # Thread Safety
//
// Safe for concurrent use; the rate limiter coordinates callers.
type GroqClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGroqClient creates a Groq completion client.
//
// Inputs:
//
//	cfg - Client configuration. APIKey must be set.
//
// Outputs:
//
//	*GroqClient - The configured client.
//	error - Non-nil if the API key is missing.
func NewGroqClient(cfg GroqConfig) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key not set")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama-3.1-8b-instant"
		slog.Warn("groq default model not set, using llama-3.1-8b-instant")
	}
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	slog.Info("initializing Groq client", "model", model, "base_url", baseURL)
	return &GroqClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: timeout,
		limiter: limiter,
	}, nil
}

// Generate implements the Client interface.
func (g *GroqClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.model
	if params.Model != "" {
		model = params.Model
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	slog.Debug("generating completion", "model", model)
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("groq API call failed", "model", model, "error", err)
		return "", fmt.Errorf("groq API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("groq returned no choices")
		return "", fmt.Errorf("groq returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
