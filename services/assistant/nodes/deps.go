// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package nodes implements the assistant's pipeline nodes: intent
// classification, the product and order sub-pipelines, the response
// synthesizer, and the try-on orchestrator, plus the graph wiring that
// connects them.
package nodes

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/assistant/tryon"
	"github.com/zaraara/concierge/services/llm"
)

var nodesTracer = otel.Tracer("concierge.nodes")

// Completion models and temperatures. Extraction and classification use the
// large strict-JSON model with low temperature; user-facing copy uses the
// faster conversational model.
const (
	ExtractionModel = "openai/gpt-oss-120b"
	ResponseModel   = "llama-3.1-8b-instant"
)

var (
	extractionTemp float32 = 0.3
	responseTemp   float32 = 0.4
)

// Backend is the storefront API surface the nodes consume.
type Backend interface {
	SearchProducts(ctx context.Context, filter datatypes.Filter) ([]datatypes.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]datatypes.Product, error)
	OrderByNumber(ctx context.Context, orderNumber, authToken string) (*datatypes.Order, error)
	OrdersForUser(ctx context.Context, authToken string) ([]datatypes.Order, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}

// TryOnService is the generation-job surface the try-on node consumes.
type TryOnService interface {
	Submit(ctx context.Context, personImage, garmentImage []byte) (*tryon.Job, error)
	Poll(ctx context.Context, job *tryon.Job) (string, error)
}

// Deps bundles the external collaborators injected into every node.
type Deps struct {
	LLM     llm.Client
	Backend Backend
	TryOn   TryOnService
}

// NewChatGraph wires the full assistant graph: an entry router into the
// chat branch and/or the try-on branch, the intent router into the product
// and order sub-pipelines, and all branches joining at the synthesizer or
// terminating at their own response node.
func NewChatGraph(deps *Deps) (*graph.Graph, error) {
	g := graph.New()

	add := func(id graph.NodeID, fn graph.NodeFunc) error { return g.AddNode(id, fn) }
	steps := []error{
		add(graph.NodeEntry, entryNode),
		add(graph.NodeClassifyIntent, deps.classifyIntent),
		add(graph.NodeExtractProductFilters, deps.extractProductFilters),
		add(graph.NodeFetchProducts, deps.fetchProducts),
		add(graph.NodeProductResponse, deps.generateProductResponse),
		add(graph.NodeExtractOrderFilters, deps.extractOrderFilters),
		add(graph.NodeFetchOrders, deps.fetchOrders),
		add(graph.NodeOrderResponse, deps.generateOrderResponse),
		add(graph.NodeSynthesize, synthesizeResponse),
		add(graph.NodeTryOn, deps.runTryOn),
		add(graph.NodeTryOnResponse, tryOnResponse),

		g.SetEntry(graph.NodeEntry),
		g.AddConditionalEdges(graph.NodeEntry, entryRouter,
			[]graph.NodeID{graph.NodeClassifyIntent, graph.NodeTryOn, graph.NodeSynthesize},
			graph.NodeSynthesize),
		g.AddConditionalEdges(graph.NodeClassifyIntent, intentRouter,
			[]graph.NodeID{graph.NodeExtractProductFilters, graph.NodeExtractOrderFilters, graph.NodeSynthesize},
			graph.NodeSynthesize),

		g.AddEdge(graph.NodeExtractProductFilters, graph.NodeFetchProducts),
		g.AddEdge(graph.NodeFetchProducts, graph.NodeProductResponse),
		g.AddEdge(graph.NodeProductResponse, graph.NodeSynthesize),

		g.AddEdge(graph.NodeExtractOrderFilters, graph.NodeFetchOrders),
		g.AddEdge(graph.NodeFetchOrders, graph.NodeOrderResponse),
		g.AddEdge(graph.NodeOrderResponse, graph.NodeSynthesize),

		g.AddEdge(graph.NodeSynthesize, graph.NodeEnd),
		g.AddEdge(graph.NodeTryOn, graph.NodeTryOnResponse),
		g.AddEdge(graph.NodeTryOnResponse, graph.NodeEnd),
	}
	for _, err := range steps {
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// entryNode is a pass-through; the entry router does the real work.
func entryNode(_ context.Context, st *graph.State) (*graph.State, error) {
	return st, nil
}

// entryRouter dispatches to the chat branch, the try-on branch, or both.
// Returning nothing lets the engine fall back to the synthesizer so the
// request always gets a response.
func entryRouter(st *graph.State) graph.Decision {
	var targets []graph.NodeID
	if st.ChatRequested {
		targets = append(targets, graph.NodeClassifyIntent)
	}
	if st.TryOnRequested {
		targets = append(targets, graph.NodeTryOn)
	}
	return graph.Parallel(targets...)
}

// intentRouter fans out to the sub-pipelines the classifier selected.
func intentRouter(st *graph.State) graph.Decision {
	var targets []graph.NodeID
	if st.ProductIntent {
		targets = append(targets, graph.NodeExtractProductFilters)
	}
	if st.OrderIntent {
		targets = append(targets, graph.NodeExtractOrderFilters)
	}
	return graph.Parallel(targets...)
}
