// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package nodes

import (
	"context"

	"github.com/zaraara/concierge/services/assistant/datatypes"
	"github.com/zaraara/concierge/services/assistant/graph"
)

// synthesizeResponse assembles the final response list from the sub-pipeline
// replies, product reply first. A reply is included only when its pipeline
// was actually selected, so a stale reply from an earlier turn can never
// leak in. When nothing produced a reply the client still gets an answer:
// the generic technical-difficulties error.
func synthesizeResponse(_ context.Context, st *graph.State) (*graph.State, error) {
	var responses []datatypes.Reply
	if st.ProductIntent && st.ProductReply != nil {
		responses = append(responses, *st.ProductReply)
	}
	if st.OrderIntent && st.OrderReply != nil {
		responses = append(responses, *st.OrderReply)
	}
	if len(responses) == 0 {
		responses = append(responses, datatypes.Reply{
			Type:    datatypes.ReplyTypeError,
			Message: "We are experiencing technical difficulties please try again.",
		})
	}
	st.Response = responses
	return st, nil
}
