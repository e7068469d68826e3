// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the assistant's HTTP endpoints.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/assistant/memory"
	"github.com/zaraara/concierge/services/assistant/observability"
)

var handlerTracer = otel.Tracer("concierge.handlers")

// chatFallbackMessage is what the client sees when the pipeline itself
// fails. The response body still carries the machine-readable error.
const chatFallbackMessage = "I'm having trouble processing your request right now. Please try again."

// HandleChat runs a chat message through the graph and returns the reply
// list.
//
// # Description
//
// The request is validated (message required, size-capped), defaults are
// applied (anonymous users share "default_user"), and a fresh chat-flagged
// session state is built for the engine. On success the turn is recorded in
// the conversation store best-effort; a store failure is logged, never
// surfaced. On pipeline failure the client gets HTTP 500 with a single
// text reply so the frontend always has something to render.
func HandleChat(engine *graph.Engine, store *memory.Store, metrics *observability.AssistantMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()
		start := time.Now()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			slog.Error("failed to parse chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		initial := &graph.State{
			UserID:        req.UserID,
			Message:       req.Message,
			AuthToken:     req.AuthToken,
			ChatRequested: true,
		}

		final, err := engine.Run(ctx, initial)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("chat pipeline failed", "userID", req.UserID, "error", err)
			metrics.ObserveRequest("chat", "error", time.Since(start).Seconds())
			c.JSON(http.StatusInternalServerError, datatypes.ChatResponse{
				Responses: []datatypes.Reply{{
					Type:    datatypes.ReplyTypeText,
					Message: chatFallbackMessage,
				}},
				Error: err.Error(),
			})
			return
		}

		if err := store.AppendTurn(req.UserID, memory.Turn{
			At:      time.Now(),
			Message: req.Message,
			Replies: final.Response,
		}); err != nil {
			slog.Warn("could not record conversation turn", "userID", req.UserID, "error", err)
		}

		metrics.ObserveRequest("chat", "success", time.Since(start).Seconds())
		metrics.ObserveReplies(replyTypes(final.Response))
		c.JSON(http.StatusOK, datatypes.ChatResponse{Responses: final.Response})
	}
}

// HandleChatHistory returns the stored turns for a user, oldest first.
func HandleChatHistory(store *memory.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.DefaultQuery("user_id", datatypes.DefaultUserID)
		turns, err := store.History(userID)
		if err != nil {
			slog.Error("could not load conversation history", "userID", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": turns})
	}
}

// HandleClearChat deletes a user's conversation history.
func HandleClearChat(store *memory.Store, metrics *observability.AssistantMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ClearRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()

		if err := store.Clear(req.UserID); err != nil {
			slog.Error("could not clear conversation history", "userID", req.UserID, "error", err)
			metrics.ObserveRequest("clear", "error", 0)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		metrics.ObserveRequest("clear", "success", 0)
		c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared successfully"})
	}
}

func replyTypes(replies []datatypes.Reply) []string {
	types := make([]string, 0, len(replies))
	for _, r := range replies {
		types = append(types, r.Type)
	}
	return types
}
