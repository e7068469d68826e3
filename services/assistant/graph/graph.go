// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph implements the assistant's state-graph orchestration engine:
// named nodes over a typed State, static edges, conditional routers with a
// closed target set, and concurrent fan-out with join-before-node merge
// semantics.
package graph

import (
	"context"
	"fmt"
)

// NodeID identifies a node in the graph. The set of identifiers is closed:
// routers choose among declared constants, never free-form strings.
type NodeID string

// Node identifiers for the assistant graph. NodeEnd is the terminal marker;
// it is not a real node and cannot be registered.
const (
	NodeEntry                 NodeID = "ENTRY"
	NodeClassifyIntent        NodeID = "CLASSIFY_INTENT"
	NodeExtractProductFilters NodeID = "EXTRACT_PRODUCT_FILTERS"
	NodeFetchProducts         NodeID = "FETCH_PRODUCTS"
	NodeProductResponse       NodeID = "PRODUCT_RESPONSE"
	NodeExtractOrderFilters   NodeID = "EXTRACT_ORDER_FILTERS"
	NodeFetchOrders           NodeID = "FETCH_ORDERS"
	NodeOrderResponse         NodeID = "ORDER_RESPONSE"
	NodeSynthesize            NodeID = "SYNTHESIZE"
	NodeTryOn                 NodeID = "TRYON"
	NodeTryOnResponse         NodeID = "TRYON_RESPONSE"
	NodeEnd                   NodeID = "END"
)

// NodeFunc is a unit of work: it takes the session state and returns the
// (possibly replaced) state. Pipeline nodes catch their own failures and
// record error-shaped replies; a returned error is reserved for faults the
// node could not absorb.
type NodeFunc func(ctx context.Context, st *State) (*State, error)

// RouterFunc chooses the next node(s) after its node completes.
type RouterFunc func(st *State) Decision

// Decision is a router's routing choice: a single successor, a parallel
// fan-out, or termination.
type Decision struct {
	targets  []NodeID
	terminal bool
}

// Single routes to one node.
func Single(n NodeID) Decision {
	return Decision{targets: []NodeID{n}}
}

// Parallel fans out to several nodes whose branches run concurrently and
// join before their first common successor.
func Parallel(ns ...NodeID) Decision {
	return Decision{targets: ns}
}

// Terminal ends graph execution.
func Terminal() Decision {
	return Decision{terminal: true}
}

// router pairs a RouterFunc with its declared target set and the fallback
// the engine substitutes when the router yields nothing.
type router struct {
	fn       RouterFunc
	allowed  map[NodeID]bool
	fallback NodeID
}

// Graph is a directed graph of nodes with static and conditional edges.
//
// # Thread Safety
//
// Graph is not safe for concurrent mutation. Build it once at startup, then
// share it freely: execution never modifies the graph.
type Graph struct {
	nodes   map[NodeID]NodeFunc
	static  map[NodeID]NodeID
	routers map[NodeID]router
	entry   NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[NodeID]NodeFunc),
		static:  make(map[NodeID]NodeID),
		routers: make(map[NodeID]router),
	}
}

// AddNode registers a node. Registering NodeEnd or a duplicate is an error.
func (g *Graph) AddNode(id NodeID, fn NodeFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilNode, id)
	}
	if id == NodeEnd {
		return fmt.Errorf("%w: %s is the terminal marker", ErrDuplicateNode, id)
	}
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	g.nodes[id] = fn
	return nil
}

// AddEdge adds the single static outgoing edge of from. The target may be
// NodeEnd.
func (g *Graph) AddEdge(from, to NodeID) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if to != NodeEnd {
		if _, exists := g.nodes[to]; !exists {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
		}
	}
	g.static[from] = to
	return nil
}

// AddConditionalEdges attaches a router to from.
//
// The router may only name nodes from allowed. fallback is the
// engine-declared default used when the router returns no targets; routing
// must never silently terminate without writing a response, so fallback is
// required and must itself be in allowed.
func (g *Graph) AddConditionalEdges(from NodeID, fn RouterFunc, allowed []NodeID, fallback NodeID) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if fn == nil {
		return fmt.Errorf("%w: router for %s", ErrNilNode, from)
	}
	if len(allowed) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyAllowedSet, from)
	}
	set := make(map[NodeID]bool, len(allowed))
	for _, t := range allowed {
		if _, exists := g.nodes[t]; !exists && t != NodeEnd {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, t)
		}
		set[t] = true
	}
	if !set[fallback] {
		return fmt.Errorf("%w: fallback %s for %s", ErrTargetNotAllowed, fallback, from)
	}
	g.routers[from] = router{fn: fn, allowed: set, fallback: fallback}
	return nil
}

// SetEntry declares the entry node.
func (g *Graph) SetEntry(id NodeID) error {
	if _, exists := g.nodes[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.entry = id
	return nil
}

// Validate checks the graph for structural correctness: an entry must be
// set, every node needs an outgoing edge or router, and every node must be
// reachable from the entry.
func (g *Graph) Validate() error {
	if g.entry == "" {
		return ErrNoEntry
	}
	for id := range g.nodes {
		_, hasEdge := g.static[id]
		_, hasRouter := g.routers[id]
		if !hasEdge && !hasRouter {
			return fmt.Errorf("%w: %s", ErrNoRoute, id)
		}
	}
	reachable := g.reachableFrom(g.entry)
	for id := range g.nodes {
		if !reachable[id] {
			return fmt.Errorf("%w: %s unreachable from entry", ErrNodeNotFound, id)
		}
	}
	return nil
}

// successors returns every node from can hand control to: its static edge
// plus its router's allowed set and fallback.
func (g *Graph) successors(from NodeID) []NodeID {
	var succ []NodeID
	if to, ok := g.static[from]; ok {
		succ = append(succ, to)
	}
	if r, ok := g.routers[from]; ok {
		for t := range r.allowed {
			succ = append(succ, t)
		}
	}
	return succ
}

// reachableFrom returns the set of nodes reachable from start over
// successors, including start itself.
func (g *Graph) reachableFrom(start NodeID) map[NodeID]bool {
	seen := map[NodeID]bool{start: true}
	frontier := []NodeID{start}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, next := range g.successors(cur) {
			if !seen[next] {
				seen[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return seen
}

// joinOf computes the node where branches started at targets converge: the
// common reachable node that can itself reach every other common node. When
// the branches share nothing but termination, the join is NodeEnd.
func (g *Graph) joinOf(targets []NodeID) NodeID {
	if len(targets) == 0 {
		return NodeEnd
	}
	common := g.reachableFrom(targets[0])
	for _, t := range targets[1:] {
		next := g.reachableFrom(t)
		for id := range common {
			if !next[id] {
				delete(common, id)
			}
		}
	}
	// Branch start nodes themselves are not join candidates.
	for _, t := range targets {
		delete(common, t)
	}
	for candidate := range common {
		if candidate == NodeEnd {
			continue
		}
		covers := true
		reach := g.reachableFrom(candidate)
		for other := range common {
			if other != candidate && !reach[other] {
				covers = false
				break
			}
		}
		if covers {
			return candidate
		}
	}
	return NodeEnd
}
