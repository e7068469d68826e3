// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	tracer = otel.Tracer("concierge.graph")
	meter  = otel.Meter("concierge.graph")
)

// Engine executes a Graph with branch parallelism and observability.
//
// # Description
//
// Engine walks the graph from its entry node. A node with a static edge
// hands control to that target; a node with a router hands control to the
// router's decision. A parallel decision runs each branch subgraph
// concurrently up to the branches' join node, then merges the branch states
// against the pre-branch baseline and continues at the join.
//
// A failed branch is logged and excluded from the merge; it never prevents
// the surviving branches' output from reaching the join. Execution only
// fails outright when every branch of a fan-out fails or a sequential node
// returns an error it could not absorb.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Each Run owns its State; the graph is
// read-only.
type Engine struct {
	graph  *Graph
	logger *slog.Logger

	// Metrics (initialized lazily).
	metricsOnce     sync.Once
	nodeLatency     metric.Float64Histogram
	nodeSuccesses   metric.Int64Counter
	nodeFailures    metric.Int64Counter
	pipelineLatency metric.Float64Histogram
}

// NewEngine creates an engine for the given graph.
//
// Inputs:
//
//	g - The graph to execute. Must not be nil and must validate.
//	logger - Logger for execution logs. If nil, uses slog.Default().
//
// Outputs:
//
//	*Engine - The configured engine.
//	error - Non-nil if the graph is nil or structurally invalid.
func NewEngine(g *Graph, logger *slog.Logger) (*Engine, error) {
	if g == nil {
		return nil, ErrNodeNotFound
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{graph: g, logger: logger}, nil
}

// initMetrics lazily initializes metrics. Metric creation failures degrade
// observability but never execution.
func (e *Engine) initMetrics() {
	e.metricsOnce.Do(func() {
		var errs []string
		var err error
		e.nodeLatency, err = meter.Float64Histogram("graph_node_duration_seconds",
			metric.WithDescription("Time spent executing each graph node"),
			metric.WithUnit("s"),
		)
		if err != nil {
			errs = append(errs, "node_latency: "+err.Error())
		}
		e.nodeSuccesses, err = meter.Int64Counter("graph_node_success_total",
			metric.WithDescription("Number of successful node executions"),
		)
		if err != nil {
			errs = append(errs, "node_successes: "+err.Error())
		}
		e.nodeFailures, err = meter.Int64Counter("graph_node_failure_total",
			metric.WithDescription("Number of failed node executions"),
		)
		if err != nil {
			errs = append(errs, "node_failures: "+err.Error())
		}
		e.pipelineLatency, err = meter.Float64Histogram("graph_pipeline_duration_seconds",
			metric.WithDescription("Total pipeline execution time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			errs = append(errs, "pipeline_latency: "+err.Error())
		}
		if len(errs) > 0 {
			e.logger.Error("failed to initialize some graph metrics (observability degraded)",
				slog.Int("failed_count", len(errs)),
				slog.Any("errors", errs),
			)
		}
	})
}

// Run executes the graph from the entry node to the terminal marker.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	initial - The request's initial state. Must not be nil.
//
// Outputs:
//
//	*State - The final state. Its Response field holds the ordered reply
//	         sequence for the caller.
//	error - Non-nil on an unabsorbed node failure or cancellation.
func (e *Engine) Run(ctx context.Context, initial *State) (*State, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	e.initMetrics()

	sessionID := uuid.NewString()[:12]
	ctx, span := tracer.Start(ctx, "graph.Pipeline",
		trace.WithAttributes(
			attribute.String("graph.session_id", sessionID),
			attribute.Int("graph.node_count", len(e.graph.nodes)),
		),
	)
	defer span.End()

	start := time.Now()
	e.logger.Info("pipeline started",
		slog.String("session_id", sessionID),
		slog.String("entry", string(e.graph.entry)),
	)

	final, err := e.runSegment(ctx, e.graph.entry, NodeEnd, initial, sessionID)

	duration := time.Since(start)
	if e.pipelineLatency != nil {
		e.pipelineLatency.Record(ctx, duration.Seconds())
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("pipeline failed",
			slog.String("session_id", sessionID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return final, err
	}

	span.SetStatus(codes.Ok, "")
	e.logger.Info("pipeline completed",
		slog.String("session_id", sessionID),
		slog.Duration("duration", duration),
		slog.Int("replies", len(final.Response)),
	)
	return final, nil
}

// runSegment walks nodes from `from` until it reaches `stop` or the
// terminal marker, dispatching parallel fan-outs as it goes. It returns the
// state as of the stop boundary; the stop node itself is not executed.
func (e *Engine) runSegment(ctx context.Context, from, stop NodeID, st *State, sessionID string) (*State, error) {
	cur := from
	for cur != NodeEnd && cur != stop {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		default:
		}

		next, err := e.executeNode(ctx, cur, st, sessionID)
		if err != nil {
			return st, err
		}
		st = next

		targets, terminal, err := e.route(cur, st, sessionID)
		if err != nil {
			return st, err
		}
		if terminal {
			return st, nil
		}
		if len(targets) == 1 {
			cur = targets[0]
			continue
		}

		join := e.graph.joinOf(targets)
		st, err = e.runBranches(ctx, targets, join, st, sessionID)
		if err != nil {
			return st, err
		}
		cur = join
	}
	return st, nil
}

// route resolves the successor(s) of a completed node. A router that
// returns no targets falls back to its engine-declared default; a target
// outside the allowed set is a programming error and aborts the run.
func (e *Engine) route(cur NodeID, st *State, sessionID string) ([]NodeID, bool, error) {
	if r, ok := e.graph.routers[cur]; ok {
		d := r.fn(st)
		if d.terminal {
			return nil, true, nil
		}
		targets := d.targets
		if len(targets) == 0 {
			e.logger.Warn("router returned no targets, using fallback",
				slog.String("node", string(cur)),
				slog.String("fallback", string(r.fallback)),
				slog.String("session_id", sessionID),
			)
			targets = []NodeID{r.fallback}
		}
		for _, t := range targets {
			if !r.allowed[t] {
				return nil, false, NewNodeError(cur, ErrTargetNotAllowed)
			}
		}
		return targets, false, nil
	}
	if to, ok := e.graph.static[cur]; ok {
		if to == NodeEnd {
			return nil, true, nil
		}
		return []NodeID{to}, false, nil
	}
	return nil, false, NewNodeError(cur, ErrNoRoute)
}

// branchResult carries one finished branch for merging. Results are
// collected in completion order, which is the order list-valued fields
// concatenate in.
type branchResult struct {
	target NodeID
	state  *State
}

// runBranches executes the branch subgraphs concurrently and merges their
// outputs onto the pre-branch baseline. Failed branches are logged and
// skipped; only a total wipeout aborts the run.
func (e *Engine) runBranches(ctx context.Context, targets []NodeID, join NodeID, baseline *State, sessionID string) (*State, error) {
	var (
		mu        sync.Mutex
		completed []branchResult
		firstErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			out, err := e.runSegment(gctx, target, join, baseline.Clone(), sessionID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = NewNodeError(target, err)
				}
				e.logger.Error("branch failed",
					slog.String("branch", string(target)),
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
				// Branch isolation: never cancel the siblings.
				return nil
			}
			completed = append(completed, branchResult{target: target, state: out})
			return nil
		})
	}
	_ = g.Wait()

	if len(completed) == 0 {
		if firstErr != nil {
			return baseline, firstErr
		}
		return baseline, ErrAllBranchesFailed
	}

	merged := baseline.Clone()
	for _, r := range completed {
		merged.mergeFrom(baseline, r.state)
	}
	return merged, nil
}

// executeNode runs a single node with tracing, metrics, and logging.
func (e *Engine) executeNode(ctx context.Context, id NodeID, st *State, sessionID string) (*State, error) {
	fn, ok := e.graph.nodes[id]
	if !ok {
		return st, NewNodeError(id, ErrNodeNotFound)
	}

	ctx, span := tracer.Start(ctx, string(id),
		trace.WithAttributes(
			attribute.String("graph.node", string(id)),
			attribute.String("graph.session_id", sessionID),
		),
	)
	defer span.End()

	e.logger.Debug("node starting",
		slog.String("node", string(id)),
		slog.String("session_id", sessionID),
	)

	start := time.Now()
	out, err := fn(ctx, st)
	duration := time.Since(start)

	if e.nodeLatency != nil {
		e.nodeLatency.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.String("node", string(id))),
		)
	}

	if err != nil {
		if e.nodeFailures != nil {
			e.nodeFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("node", string(id))),
			)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("node failed",
			slog.String("node", string(id)),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return st, NewNodeError(id, err)
	}

	if e.nodeSuccesses != nil {
		e.nodeSuccesses.Add(ctx, 1,
			metric.WithAttributes(attribute.String("node", string(id))),
		)
	}
	span.SetStatus(codes.Ok, "")
	e.logger.Debug("node completed",
		slog.String("node", string(id)),
		slog.Duration("duration", duration),
	)

	if out == nil {
		out = st
	}
	return out, nil
}
