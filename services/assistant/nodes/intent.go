// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nodes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/llm"
)

// Keyword tiers checked before spending a model call. Substring containment
// against the lowercased message, same as the storefront's search behavior.
var productKeywords = []string{
	"product", "buy", "price", "cost", "item", "category",
	"men", "women", "kids", "accessories", "fragrance", "perfume",
	"shirt", "kurta", "kurti", "dress", "suit", "shalwar",
	"handbag", "shawl", "dupatta", "luxury", "casual",
	"red", "blue", "green", "black", "white", "gold", "purple", "navy", "pink", "maroon",
	"small", "medium", "large", "xl", "xs", "xxl", "one size",
	"cotton", "silk", "wool", "leather", "cotton blend", "premium silk", "oxford cotton",
	"recommend", "available", "cloth", "cloths", "clothing",
}

var orderKeywords = []string{
	"order", "my orders", "status", "track", "tracking", "delivery", "shipped",
	"delivered", "cancel", "order number", "invoice", "receipt", "shipment",
	"pending", "failed", "return", "exchange", "refund",
}

// classifyIntent decides which chat sub-pipelines the message should run.
//
// # Description
//
// Keyword containment is tried first; the model is consulted only when no
// keyword matches. The model's free-text answer is reduced to substring
// checks for "product" and "order", so both intents can be set at once.
// A failed model call leaves both intents false and the intent router falls
// through to the synthesizer, which produces the generic error reply. The
// classifier itself never fails the graph.
func (d *Deps) classifyIntent(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.classifyIntent")
	defer span.End()

	msg := strings.ToLower(st.Message)
	st.ProductIntent = containsAny(msg, productKeywords)
	st.OrderIntent = containsAny(msg, orderKeywords)

	if st.ProductIntent || st.OrderIntent {
		slog.DebugContext(ctx, "intent resolved by keywords",
			"product", st.ProductIntent, "order", st.OrderIntent)
		return st, nil
	}

	prompt := fmt.Sprintf(`You are a helpful assistant that identifies user intents.

Classify this message as product or order intent or both. A product intent
means the user is asking for product information; an order intent means the
user is asking about their order details: %q

Answer with the matching intent names only.`, st.Message)

	out, err := d.LLM.Generate(ctx, prompt, llm.GenerationParams{
		Model:       ExtractionModel,
		Temperature: &extractionTemp,
	})
	if err != nil {
		slog.WarnContext(ctx, "intent classification call failed", "error", err)
		return st, nil
	}

	answer := strings.ToLower(out)
	st.ProductIntent = strings.Contains(answer, "product")
	st.OrderIntent = strings.Contains(answer, "order")
	slog.DebugContext(ctx, "intent resolved by model",
		"product", st.ProductIntent, "order", st.OrderIntent)
	return st, nil
}

func containsAny(msg string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}
