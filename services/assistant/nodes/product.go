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

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/llm"
)

const maxProductCards = 8

const productFilterPrompt = `You are an AI that extracts shopping filters for a database query.

The database has these product fields:
- q (name of the product i.e. shirt, suit, dress, kurta, kurti)
- category (one of: women, men, kids, accessories, fragrances)
- price (integer)
- sale (true/false)
- colors (color options)
- sizes (size options)
- fabric (cloth material)

Your job:
Convert the user message into FILTERS for these fields.

STRICT RULES:
1. Return ONLY valid JSON.
2. Do NOT invent new fields.
3. If information is missing, use null.
4. category MUST be one of:
   ["women","men","kids","accessories","fragrances"]
5. maxPrice should be extracted from phrases like:
   "under 3000", "less than 5000", "max 2000"
6. on_sale = true only if user mentions sale, discount, offer.

User message: %q`

// extractProductFilters turns the message into structured search filters.
//
// Malformed model output is logged and degrades to an empty filter list;
// the fetch stage then finds nothing and the response stage produces the
// category fallback. The category captured from the raw completion is kept
// even when every filter is dropped.
func (d *Deps) extractProductFilters(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.extractProductFilters")
	defer span.End()

	out, err := d.LLM.Generate(ctx, fmt.Sprintf(productFilterPrompt, st.Message), llm.GenerationParams{
		Model:       ExtractionModel,
		Temperature: &extractionTemp,
	})
	if err != nil {
		slog.WarnContext(ctx, "product filter extraction call failed", "error", err)
		return st, nil
	}

	filters, category, err := parseFilters(out)
	if err != nil {
		slog.WarnContext(ctx, "product filter completion unparseable", "error", err)
		return st, nil
	}
	if category != "" {
		st.Category = category
	}
	st.ProductFilters = append(st.ProductFilters, filters...)
	slog.DebugContext(ctx, "product filters extracted",
		"count", len(filters), "category", st.Category)
	return st, nil
}

// fetchProducts runs every extracted filter against the storefront search.
//
// The on_sale key is a post-filter, not a query parameter: it is removed
// from the filter before the request and applied to the result set here.
// A failed request skips that one filter, results from the others are kept.
func (d *Deps) fetchProducts(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.fetchProducts")
	defer span.End()

	var all []datatypes.Product
	for _, f := range st.ProductFilters {
		query := datatypes.Filter{}
		var saleOnly bool
		for k, v := range f {
			if k == "on_sale" {
				saleOnly = truthy(v)
				continue
			}
			query[k] = v
		}

		items, err := d.Backend.SearchProducts(ctx, query)
		if err != nil {
			slog.WarnContext(ctx, "product search failed", "filter", query, "error", err)
			continue
		}
		if saleOnly {
			kept := items[:0]
			for _, p := range items {
				if p.Sale {
					kept = append(kept, p)
				}
			}
			items = kept
		}
		all = append(all, items...)
	}

	st.Products = append(st.Products, all...)
	slog.DebugContext(ctx, "products fetched", "count", len(all))
	return st, nil
}

// generateProductResponse builds the product reply.
//
// # Description
//
// With results, up to maxProductCards products are projected onto the card
// shape and the model writes a short intro that does not list them (the
// frontend renders the cards). With no results but a known category, the
// category listing backs an alternative-suggestions reply; type is
// "products" when alternatives exist and "error" when the category is empty
// too. With neither results nor category no reply is written at all and the
// synthesizer's fallback takes over.
func (d *Deps) generateProductResponse(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.generateProductResponse")
	defer span.End()

	if len(st.Products) == 0 {
		return d.productFallbackResponse(ctx, st)
	}

	products := st.Products
	if len(products) > maxProductCards {
		products = products[:maxProductCards]
	}
	cards := make([]datatypes.ProductCard, 0, len(products))
	var lines []string
	for _, p := range products {
		card := datatypes.NewProductCard(p)
		cards = append(cards, card)
		lines = append(lines, fmt.Sprintf("- %s (Rs %.0f) | Colors: %s | Sizes: %s",
			card.Name, card.Price,
			strings.Join(card.Colors, ", "), strings.Join(card.Sizes, ", ")))
	}

	prompt := fmt.Sprintf(`You are a helpful shopping assistant.

User asked: %q

You have the following products available:
%s

Write a short, friendly message introducing these products. Mention any
filters like price, occasion, or color if relevant.
Do NOT list the products here (frontend will render them).
Also tell the user that they can click on the products listed below to view details.
Keep it under 40 words.`, st.Message, strings.Join(lines, "\n"))

	intro, err := d.LLM.Generate(ctx, prompt, llm.GenerationParams{
		Model:       ResponseModel,
		Temperature: &responseTemp,
	})
	if err != nil {
		slog.WarnContext(ctx, "product intro generation failed", "error", err)
		intro = "Here are some products that match what you asked for. Click any of them below to view details."
	}

	st.ProductReply = &datatypes.Reply{
		Type:    datatypes.ReplyTypeProducts,
		Data:    cards,
		Message: strings.TrimSpace(intro),
	}
	return st, nil
}

// productFallbackResponse handles the no-results path using the category
// listing as alternative suggestions.
func (d *Deps) productFallbackResponse(ctx context.Context, st *graph.State) (*graph.State, error) {
	if st.Category == "" {
		return st, nil
	}

	var alternatives []datatypes.Product
	alts, err := d.Backend.ProductsByCategory(ctx, st.Category)
	if err != nil {
		slog.WarnContext(ctx, "category listing failed", "category", st.Category, "error", err)
	} else {
		alternatives = alts
	}

	altContext := "None"
	if len(alternatives) > 0 {
		names := make([]string, 0, len(alternatives))
		for _, p := range alternatives {
			names = append(names, fmt.Sprintf("%s (Rs %.0f)", p.Name, p.Price))
		}
		altContext = strings.Join(names, "; ")
	}

	prompt := fmt.Sprintf(`You are a helpful shopping assistant.

User: %q

We don't have the exact product the user requested.
- Suggested products in the same category: %s
- If products are not available suggest other categories, one of: ["women","men","kids","accessories","fragrances"]
Write a friendly, short message to the user explaining this.`, st.Message, altContext)

	reply, err := d.LLM.Generate(ctx, prompt, llm.GenerationParams{
		Model:       ResponseModel,
		Temperature: &responseTemp,
	})
	if err != nil {
		slog.WarnContext(ctx, "product fallback generation failed", "error", err)
		reply = "We couldn't find the exact product you asked for. Try browsing one of our categories: women, men, kids, accessories or fragrances."
	}

	if len(alternatives) > 0 {
		cards := make([]datatypes.ProductCard, 0, len(alternatives))
		for _, p := range alternatives {
			cards = append(cards, datatypes.NewProductCard(p))
		}
		st.ProductReply = &datatypes.Reply{
			Type:    datatypes.ReplyTypeProducts,
			Data:    cards,
			Message: strings.TrimSpace(reply),
		}
	} else {
		st.ProductReply = &datatypes.Reply{
			Type:    datatypes.ReplyTypeError,
			Data:    []datatypes.ProductCard{},
			Message: strings.TrimSpace(reply),
		}
	}
	return st, nil
}
