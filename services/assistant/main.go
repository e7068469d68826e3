// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zaraara/concierge/services/assistant/backend"
	"github.com/zaraara/concierge/services/assistant/config"
	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/assistant/memory"
	"github.com/zaraara/concierge/services/assistant/middleware"
	"github.com/zaraara/concierge/services/assistant/nodes"
	"github.com/zaraara/concierge/services/assistant/observability"
	"github.com/zaraara/concierge/services/assistant/routes"
	"github.com/zaraara/concierge/services/assistant/tryon"
	"github.com/zaraara/concierge/services/llm"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("concierge-assistant")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	if cfg.OTELEndpoint != "" {
		cleanup, err := initTracer(cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, trace export disabled")
	}

	llmClient, err := llm.NewGroqClient(llm.GroqConfig{
		APIKey:            cfg.GroqAPIKey,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("failed to initialize LLM client: %v", err)
	}

	backendClient := backend.NewClient(cfg.BackendURL, nil)

	tryonClient := tryon.NewClient(tryon.Config{
		BaseURL:      cfg.TryOnBaseURL,
		APIKey:       cfg.TryOnAPIKey,
		PollInterval: cfg.TryOnPollInterval,
		PollBudget:   cfg.TryOnPollBudget,
	})

	memCfg := memory.InMemoryConfig()
	if cfg.MemoryPath != "" {
		memCfg = memory.DefaultConfig(cfg.MemoryPath)
	} else {
		slog.Info("CONCIERGE_MEMORY_PATH not set, conversation history is in-memory only")
	}
	store, err := memory.Open(memCfg)
	if err != nil {
		log.Fatalf("failed to open the conversation store: %v", err)
	}
	defer store.Close()

	deps := &nodes.Deps{
		LLM:     llmClient,
		Backend: backendClient,
		TryOn:   tryonClient,
	}
	g, err := nodes.NewChatGraph(deps)
	if err != nil {
		log.Fatalf("failed to build the assistant graph: %v", err)
	}
	engine, err := graph.NewEngine(g, logger)
	if err != nil {
		log.Fatalf("failed to create the graph engine: %v", err)
	}

	metrics := observability.NewAssistantMetrics()

	router := gin.Default()
	router.Use(otelgin.Middleware("concierge-assistant"))
	router.Use(middleware.CORS(cfg.CORSOrigin))

	routes.SetupRoutes(router, engine, store, metrics)

	slog.Info("starting the assistant server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
