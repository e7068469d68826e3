// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the language-model client used by the assistant's
// pipeline nodes.
package llm

import "context"

// GenerationParams are per-call overrides for a completion request.
type GenerationParams struct {
	// Model overrides the client's default model for this call. The
	// extraction nodes use a strict-JSON model; the response nodes use a
	// lighter conversational one.
	Model string `json:"model,omitempty"`

	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Client defines the standard interface for any LLM backend.
//
// All JSON-strictness is a client-side request-and-hope protocol: the
// service returns free text and callers parse it fallibly.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
