// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nodes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zaraara/concierge/services/assistant/datatypes"
)

// parseFilters decodes a model completion into a cleaned filter list.
//
// # Description
//
// The completion may be a single JSON object or an array of objects, and may
// be wrapped in a Markdown code fence with an optional language tag. After
// decoding, dropValue keys are removed from every object and objects left
// empty are discarded.
//
// The returned category is the value of the first non-empty "category" key
// seen across the raw objects, captured before cleaning so the product
// pipeline can fall back to a category listing even when every filter is
// dropped.
//
// # Outputs
//   - []datatypes.Filter: cleaned filters, possibly empty.
//   - string: the captured category, or "".
//   - error: non-nil if the completion is not valid JSON.
func parseFilters(raw string) ([]datatypes.Filter, string, error) {
	content := stripFence(strings.TrimSpace(raw))

	var objects []map[string]any
	if err := json.Unmarshal([]byte(content), &objects); err != nil {
		var single map[string]any
		if err := json.Unmarshal([]byte(content), &single); err != nil {
			return nil, "", fmt.Errorf("filter completion is not valid JSON: %w", err)
		}
		objects = []map[string]any{single}
	}

	var category string
	filters := make([]datatypes.Filter, 0, len(objects))
	for _, obj := range objects {
		if category == "" {
			if c, ok := obj["category"].(string); ok && c != "" && c != "null" {
				category = c
			}
		}
		clean := datatypes.Filter{}
		for k, v := range obj {
			if dropValue(v) {
				continue
			}
			clean[k] = v
		}
		if len(clean) > 0 {
			filters = append(filters, clean)
		}
	}
	return filters, category, nil
}

// dropValue reports whether a filter value carries no information.
func dropValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && (s == "" || s == "null")
}

// stripFence removes a surrounding Markdown code fence, including an
// optional language tag on the opening line.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		first := strings.TrimSpace(s[:i])
		// A bare word before the newline is a language tag, not content.
		if !strings.ContainsAny(first, "{[") {
			s = s[i+1:]
		}
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// truthy reports whether a decoded JSON value asks for the flag to be on.
// Models return booleans, but quoted "true" shows up often enough to honor.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
