// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"reflect"

	"github.com/zaraara/concierge/services/assistant/datatypes"
)

// State is the session record threaded through one graph execution.
//
// # Description
//
// One State is created per incoming request and discarded once the response
// is produced. Every documented attribute is an explicit field with a zero
// default; there is no dynamic key space, so a typo is a compile error.
//
// # Merge Rules
//
// When parallel branches both touch a field, mergeFrom combines them using
// the per-field table below. The table is total: every field appears once.
//
//	scalar (flags, strings)      last write wins
//	list-valued (filters, records) concatenate in branch-completion order
//	reply objects                 structural merge (mergeReply)
//
// # Thread Safety
//
// State is not safe for concurrent use. Parallel branches each operate on
// their own Clone; the engine merges them afterwards.
type State struct {
	// Identity / input.
	UserID    string
	Message   string
	AuthToken string

	// Routing flags.
	ChatRequested  bool
	TryOnRequested bool
	ProductIntent  bool
	OrderIntent    bool

	// Product pipeline.
	ProductFilters []datatypes.Filter
	Products       []datatypes.Product
	ProductReply   *datatypes.Reply
	Category       string

	// Order pipeline.
	OrderFilters  []datatypes.Filter
	Orders        []datatypes.Order
	LoginRequired bool
	OrderReply    *datatypes.Reply

	// Try-on pipeline.
	ProductName    string
	UploadedImage  []byte
	GeneratedImage string
	TryOnError     string

	// Output.
	Response []datatypes.Reply
}

// Clone returns a copy safe for a parallel branch to mutate.
//
// Slice headers are duplicated so branch appends cannot alias each other.
// UploadedImage is shared: nodes treat the image bytes as read-only.
func (s *State) Clone() *State {
	c := *s
	c.ProductFilters = append([]datatypes.Filter(nil), s.ProductFilters...)
	c.Products = append([]datatypes.Product(nil), s.Products...)
	c.OrderFilters = append([]datatypes.Filter(nil), s.OrderFilters...)
	c.Orders = append([]datatypes.Order(nil), s.Orders...)
	c.Response = append([]datatypes.Reply(nil), s.Response...)
	if s.ProductReply != nil {
		pr := *s.ProductReply
		c.ProductReply = &pr
	}
	if s.OrderReply != nil {
		or := *s.OrderReply
		c.OrderReply = &or
	}
	return &c
}

// mergeFrom folds one branch's output into s, using base as the shared
// pre-branch baseline.
//
// Scalars are taken from the branch only where the branch diverged from the
// baseline, so a branch that never touched a field cannot clobber another
// branch's write. Lists concatenate only the elements the branch appended
// beyond the baseline prefix, which makes branch order irrelevant as a
// multiset. Reply objects use mergeReply.
func (s *State) mergeFrom(base, branch *State) {
	// Scalars: last write wins.
	if branch.UserID != base.UserID {
		s.UserID = branch.UserID
	}
	if branch.Message != base.Message {
		s.Message = branch.Message
	}
	if branch.AuthToken != base.AuthToken {
		s.AuthToken = branch.AuthToken
	}
	if branch.ChatRequested != base.ChatRequested {
		s.ChatRequested = branch.ChatRequested
	}
	if branch.TryOnRequested != base.TryOnRequested {
		s.TryOnRequested = branch.TryOnRequested
	}
	if branch.ProductIntent != base.ProductIntent {
		s.ProductIntent = branch.ProductIntent
	}
	if branch.OrderIntent != base.OrderIntent {
		s.OrderIntent = branch.OrderIntent
	}
	if branch.Category != base.Category {
		s.Category = branch.Category
	}
	if branch.LoginRequired != base.LoginRequired {
		s.LoginRequired = branch.LoginRequired
	}
	if branch.ProductName != base.ProductName {
		s.ProductName = branch.ProductName
	}
	if branch.GeneratedImage != base.GeneratedImage {
		s.GeneratedImage = branch.GeneratedImage
	}
	if branch.TryOnError != base.TryOnError {
		s.TryOnError = branch.TryOnError
	}

	// Lists: append the branch's additions.
	if n := len(base.ProductFilters); len(branch.ProductFilters) > n {
		s.ProductFilters = append(s.ProductFilters, branch.ProductFilters[n:]...)
	}
	if n := len(base.Products); len(branch.Products) > n {
		s.Products = append(s.Products, branch.Products[n:]...)
	}
	if n := len(base.OrderFilters); len(branch.OrderFilters) > n {
		s.OrderFilters = append(s.OrderFilters, branch.OrderFilters[n:]...)
	}
	if n := len(base.Orders); len(branch.Orders) > n {
		s.Orders = append(s.Orders, branch.Orders[n:]...)
	}

	// Reply objects: structural merge.
	if branch.ProductReply != base.ProductReply && branch.ProductReply != nil {
		s.ProductReply = mergeReply(s.ProductReply, branch.ProductReply)
	}
	if branch.OrderReply != base.OrderReply && branch.OrderReply != nil {
		s.OrderReply = mergeReply(s.OrderReply, branch.OrderReply)
	}

	// Response is written whole by terminal nodes: overwrite.
	if len(branch.Response) > 0 && !sameSlice(branch.Response, base.Response) {
		s.Response = branch.Response
	}
}

// sameSlice reports whether two slices share the same backing view.
func sameSlice(a, b []datatypes.Reply) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}

// mergeReply combines two reply objects.
//
// An empty prior takes the new value outright. Otherwise keys shallow-merge:
// list-valued Data concatenates, everything else is overwritten by the most
// recent writer. A sub-pipeline runs once per request in normal operation,
// so this path only matters for re-entrant writes, which must stay safe.
func mergeReply(prior, next *datatypes.Reply) *datatypes.Reply {
	if prior == nil {
		return next
	}
	if next == nil {
		return prior
	}
	merged := *prior
	if next.Type != "" {
		merged.Type = next.Type
	}
	if next.Message != "" {
		merged.Message = next.Message
	}
	if next.ResultImage != nil {
		merged.ResultImage = next.ResultImage
	}
	merged.Data = mergeData(prior.Data, next.Data)
	return &merged
}

// mergeData concatenates slice payloads of the same element type and falls
// back to overwrite for everything else.
func mergeData(prior, next any) any {
	if next == nil {
		return prior
	}
	if prior == nil {
		return next
	}
	pv, nv := reflect.ValueOf(prior), reflect.ValueOf(next)
	if pv.Kind() == reflect.Slice && nv.Kind() == reflect.Slice && pv.Type() == nv.Type() {
		out := reflect.MakeSlice(pv.Type(), 0, pv.Len()+nv.Len())
		out = reflect.AppendSlice(out, pv)
		out = reflect.AppendSlice(out, nv)
		return out.Interface()
	}
	return next
}
