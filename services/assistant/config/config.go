// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the assistant's runtime configuration from the
// environment. All tunables live on one explicit struct; nothing else in
// the service reads os.Getenv.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the assistant service.
//
// # Fields
//
//   - Port: HTTP listen port.
//   - GroqAPIKey: key for the Groq completion API. Required.
//   - BackendURL: base URL of the storefront REST API. Required.
//   - TryOnAPIKey: key for the try-on generation service. Required.
//   - TryOnBaseURL: base URL of the try-on generation service.
//   - CORSOrigin: allowed browser origin; empty disables CORS headers.
//   - MemoryPath: directory for the conversation history store; empty
//     selects the in-memory store.
//   - OTELEndpoint: OTLP gRPC collector address; empty disables tracing
//     export.
//   - LLMRequestsPerSecond: client-side rate cap on completion calls.
type Config struct {
	Port                 string `validate:"required,numeric"`
	GroqAPIKey           string `validate:"required"`
	BackendURL           string `validate:"required,url"`
	TryOnAPIKey          string `validate:"required"`
	TryOnBaseURL         string `validate:"required,url"`
	CORSOrigin           string
	MemoryPath           string
	OTELEndpoint         string
	LLMRequestsPerSecond float64 `validate:"gt=0"`

	TryOnPollInterval time.Duration `validate:"gt=0"`
	TryOnPollBudget   time.Duration `validate:"gt=0"`
}

// Load reads a .env file if one is present, then the process environment,
// and validates the result. A missing .env is not an error; a missing
// required variable is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	cfg := &Config{
		Port:                 envOr("CONCIERGE_PORT", "5000"),
		GroqAPIKey:           os.Getenv("GROQ_API_KEY"),
		BackendURL:           os.Getenv("BACKEND_URL"),
		TryOnAPIKey:          os.Getenv("TRY_ON_API_KEY"),
		TryOnBaseURL:         envOr("TRY_ON_BASE_URL", "https://tryon-api.com"),
		CORSOrigin:           os.Getenv("CORS_ORIGIN"),
		MemoryPath:           os.Getenv("CONCIERGE_MEMORY_PATH"),
		OTELEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LLMRequestsPerSecond: 2,
		TryOnPollInterval:    30 * time.Second,
		TryOnPollBudget:      120 * time.Second,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
