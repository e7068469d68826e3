// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the assistant service.
//
// This file contains the request/response types for the chat endpoint and
// the reply envelope shared by every pipeline. For catalog and order record
// types, see records.go.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Reply Types
// =============================================================================

// Reply type tags. Every user-visible piece of a response carries exactly
// one of these.
const (
	ReplyTypeProducts = "products"
	ReplyTypeOrders   = "orders"
	ReplyTypeTryOn    = "tryon"
	ReplyTypeError    = "error"
	ReplyTypeText     = "text"
)

// Reply is one user-visible piece of the assistant's response.
//
// # Description
//
// A Reply is produced by exactly one pipeline (products, orders, or try-on)
// and appended to the final response list by the synthesizer. The frontend
// renders Data itself; Message is a short human sentence introducing it.
//
// # Fields
//
//   - Type: One of the ReplyType* constants.
//   - Data: Pipeline payload ([]ProductCard, []OrderSummary, or nil).
//   - Message: Short human-readable sentence.
//   - ResultImage: Try-on only. A data URL wrapping the generated image.
type Reply struct {
	Type        string  `json:"type"`
	Data        any     `json:"data,omitempty"`
	Message     string  `json:"message"`
	ResultImage *string `json:"resultImage,omitempty"`
}

// Filter is one backend query constraint extracted from a user message.
// Keys are backend field names; values are scalars or string lists.
type Filter map[string]any

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageBytes is the maximum size of a single chat message.
	// Checks byte length, not rune count, to bound memory per request.
	MaxMessageBytes = 8 * 1024 // 8KB

	// MaxProductNameBytes bounds the try-on product name field.
	MaxProductNameBytes = 256

	// DefaultUserID is the conversation key shared by anonymous users,
	// matching the web client's behavior.
	DefaultUserID = "default_user"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for assistant datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxMessageBytes on string fields tagged
// `maxbytes`. Byte length is used deliberately: multi-byte runes count
// toward the limit.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageBytes
}

// =============================================================================
// Chat Request/Response Types
// =============================================================================

// ChatRequest is the body of POST /api/chat.
//
// # Fields
//
//   - Message: Required. The raw user message.
//   - AuthToken: Optional. Bearer token forwarded to the storefront backend
//     for order lookups. An empty token routes the order pipeline to its
//     login-required branch instead of the network.
//   - UserID: Optional. Conversation correlation key. Defaults to
//     "default_user" when absent, matching the web client's behavior.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,maxbytes"`
	AuthToken string `json:"authToken"`
	UserID    string `json:"user_id"`
}

// Validate validates the ChatRequest fields.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// EnsureDefaults populates default values for optional fields.
func (r *ChatRequest) EnsureDefaults() {
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
}

// ChatResponse is the body returned by POST /api/chat.
//
// Responses preserves pipeline order: product reply (if any) before order
// reply (if any), or a single synthetic error reply when no pipeline
// produced output.
type ChatResponse struct {
	Responses []Reply `json:"responses"`
	Error     string  `json:"error,omitempty"`
}

// ClearRequest is the body of POST /api/chat/clear.
type ClearRequest struct {
	UserID string `json:"user_id"`
}

// EnsureDefaults populates default values for optional fields.
func (r *ClearRequest) EnsureDefaults() {
	if r.UserID == "" {
		r.UserID = DefaultUserID
	}
}
