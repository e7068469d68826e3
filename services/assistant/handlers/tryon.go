// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/assistant/observability"
)

// maxUploadBytes caps the uploaded person image. Try-on inputs are photos,
// not scans; 10MB is generous.
const maxUploadBytes = 10 << 20

// HandleTryOn runs a virtual try-on request through the graph.
//
// # Description
//
// The request is multipart form data: an "image" file part (the person
// photo) and a "productName" form field. Both are required; missing parts
// are client errors. The graph runs with only the try-on branch flagged, so
// the chat pipelines never execute for this surface. The response body is
// the raw reply list, matching what the chat surface nests under
// "responses".
//
// Pipeline-level try-on failures (product not found, generation errors)
// are not HTTP errors: they arrive as an error-typed reply with status 200.
// Only transport and graph failures produce HTTP 500.
func HandleTryOn(engine *graph.Engine, metrics *observability.AssistantMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleTryOn")
		defer span.End()
		start := time.Now()

		file, _, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
			return
		}
		defer file.Close()

		productName := strings.TrimSpace(c.PostForm("productName"))
		if productName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product name is required"})
			return
		}
		if len(productName) > datatypes.MaxProductNameBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product name is too long"})
			return
		}

		imageBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			span.RecordError(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded image"})
			return
		}
		if len(imageBytes) > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded image is too large"})
			return
		}

		initial := &graph.State{
			TryOnRequested: true,
			ProductName:    productName,
			UploadedImage:  imageBytes,
		}

		final, err := engine.Run(ctx, initial)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("try-on pipeline failed", "product", productName, "error", err)
			metrics.ObserveRequest("tryon", "error", time.Since(start).Seconds())
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Try-on failed",
				"details": err.Error(),
			})
			return
		}

		metrics.ObserveRequest("tryon", "success", time.Since(start).Seconds())
		metrics.ObserveReplies(replyTypes(final.Response))
		c.JSON(http.StatusOK, final.Response)
	}
}
