// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/assistant/handlers"
	"github.com/zaraara/concierge/services/assistant/memory"
	"github.com/zaraara/concierge/services/assistant/observability"
)

// SetupRoutes mounts the assistant API surface on the router. The /api
// prefix matches what the storefront frontend calls; /health and /metrics
// sit outside it for infrastructure.
func SetupRoutes(router *gin.Engine, engine *graph.Engine, store *memory.Store,
	metrics *observability.AssistantMetrics) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.POST("/chat", handlers.HandleChat(engine, store, metrics))
		api.GET("/chat/history", handlers.HandleChatHistory(store))
		api.POST("/chat/clear", handlers.HandleClearChat(store, metrics))
		api.POST("/tryon", handlers.HandleTryOn(engine, metrics))
	}
}
