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
	"strconv"
	"strings"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
	"github.com/zaraara/concierge/services/llm"
)

const orderFilterPrompt = `You are an AI assistant specialized in order queries.

You have two types of queries:
1. Specific order: the user provides an order number.
2. All orders: the user asks to see all of their orders.

Fields you can return:
- orderNumber (string)  # only if user asks about a specific order
- all_orders (boolean)  # true if user asks for all orders
- fields (list of strings)  # optional: user requested info (status, shippingAddress, items, total, createdAt)

STRICT RULES:
- Return ONLY valid JSON.
- Use null for values you cannot determine.
- Do not invent orders or order numbers.
- If user asks for a specific detail, include it in fields.

User message: %q`

// extractOrderFilters parses the message into order query filters. Same
// degradation contract as the product side: a failed call or malformed
// completion yields no filters, never a failed node.
func (d *Deps) extractOrderFilters(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.extractOrderFilters")
	defer span.End()

	out, err := d.LLM.Generate(ctx, fmt.Sprintf(orderFilterPrompt, st.Message), llm.GenerationParams{
		Model:       ExtractionModel,
		Temperature: &extractionTemp,
	})
	if err != nil {
		slog.WarnContext(ctx, "order filter extraction call failed", "error", err)
		return st, nil
	}

	filters, _, err := parseFilters(out)
	if err != nil {
		slog.WarnContext(ctx, "order filter completion unparseable", "error", err)
		return st, nil
	}
	st.OrderFilters = append(st.OrderFilters, filters...)
	slog.DebugContext(ctx, "order filters extracted", "count", len(filters))
	return st, nil
}

// fetchOrders resolves the order filters against the storefront.
//
// Without an auth token the node sets LoginRequired and fetches nothing.
// Each filter resolves to either a single-order lookup (orderNumber) or the
// user's full order list (all_orders); filters with neither key are logged
// and skipped, as are filters whose request fails.
func (d *Deps) fetchOrders(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.fetchOrders")
	defer span.End()

	if st.AuthToken == "" {
		st.LoginRequired = true
		return st, nil
	}
	st.LoginRequired = false

	var all []datatypes.Order
	for _, f := range st.OrderFilters {
		switch {
		case f["orderNumber"] != nil:
			n := orderNumberString(f["orderNumber"])
			order, err := d.Backend.OrderByNumber(ctx, n, st.AuthToken)
			if err != nil {
				slog.WarnContext(ctx, "order lookup failed", "orderNumber", n, "error", err)
				continue
			}
			if order != nil {
				all = append(all, *order)
			}
		case truthy(f["all_orders"]):
			orders, err := d.Backend.OrdersForUser(ctx, st.AuthToken)
			if err != nil {
				slog.WarnContext(ctx, "order list failed", "error", err)
				continue
			}
			all = append(all, orders...)
		default:
			slog.DebugContext(ctx, "order filter has no actionable key", "filter", f)
		}
	}

	st.Orders = append(st.Orders, all...)
	return st, nil
}

// orderNumberString normalizes the extracted order number, which the model
// returns either quoted or as a bare JSON number.
func orderNumberString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// generateOrderResponse builds the order reply.
//
// The login gate and the empty result set use fixed copy; only the
// found-orders intro spends a model call, and that intro degrades to a
// static sentence when the call fails.
func (d *Deps) generateOrderResponse(ctx context.Context, st *graph.State) (*graph.State, error) {
	ctx, span := nodesTracer.Start(ctx, "nodes.generateOrderResponse")
	defer span.End()

	if st.LoginRequired {
		st.OrderReply = &datatypes.Reply{
			Type:    datatypes.ReplyTypeError,
			Data:    []datatypes.OrderSummary{},
			Message: "You need to login first to view your orders.",
		}
		return st, nil
	}

	if len(st.Orders) == 0 {
		st.OrderReply = &datatypes.Reply{
			Type:    datatypes.ReplyTypeOrders,
			Data:    []datatypes.OrderSummary{},
			Message: "I couldn't find any orders in your account.",
		}
		return st, nil
	}

	summaries := make([]datatypes.OrderSummary, 0, len(st.Orders))
	for _, o := range st.Orders {
		summaries = append(summaries, datatypes.NewOrderSummary(o))
	}

	prompt := fmt.Sprintf(`User asked: %q

You have %d orders.

Write a short friendly sentence introducing the order list.
Do NOT list order details.
Keep under 20 words.`, st.Message, len(summaries))

	intro, err := d.LLM.Generate(ctx, prompt, llm.GenerationParams{
		Model:       ResponseModel,
		Temperature: &responseTemp,
	})
	if err != nil {
		slog.WarnContext(ctx, "order intro generation failed", "error", err)
		intro = fmt.Sprintf("Here are the %d orders I found in your account.", len(summaries))
	}

	st.OrderReply = &datatypes.Reply{
		Type:    datatypes.ReplyTypeOrders,
		Data:    summaries,
		Message: strings.TrimSpace(intro),
	}
	return st, nil
}
