// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// Tests for graph construction and validation

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passThrough(_ context.Context, st *State) (*State, error) { return st, nil }

func TestAddNode_RejectsDuplicates(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NodeEntry, passThrough))
	err := g.AddNode(NodeEntry, passThrough)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestAddNode_RejectsTerminalMarker(t *testing.T) {
	g := New()
	err := g.AddNode(NodeEnd, passThrough)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestAddNode_RejectsNilFunc(t *testing.T) {
	g := New()
	err := g.AddNode(NodeEntry, nil)
	assert.ErrorIs(t, err, ErrNilNode)
}

func TestAddEdge_UnknownNodes(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NodeEntry, passThrough))

	assert.ErrorIs(t, g.AddEdge(NodeSynthesize, NodeEntry), ErrNodeNotFound)
	assert.ErrorIs(t, g.AddEdge(NodeEntry, NodeSynthesize), ErrNodeNotFound)
	assert.NoError(t, g.AddEdge(NodeEntry, NodeEnd))
}

func TestAddConditionalEdges_FallbackMustBeAllowed(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NodeEntry, passThrough))
	require.NoError(t, g.AddNode(NodeSynthesize, passThrough))
	require.NoError(t, g.AddNode(NodeTryOn, passThrough))

	err := g.AddConditionalEdges(NodeEntry, func(*State) Decision { return Single(NodeSynthesize) },
		[]NodeID{NodeSynthesize}, NodeTryOn)
	assert.ErrorIs(t, err, ErrTargetNotAllowed)
}

func TestValidate_RequiresEntry(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NodeEntry, passThrough))
	require.NoError(t, g.AddEdge(NodeEntry, NodeEnd))
	assert.ErrorIs(t, g.Validate(), ErrNoEntry)
}

func TestValidate_RequiresOutgoingRoute(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NodeEntry, passThrough))
	require.NoError(t, g.SetEntry(NodeEntry))
	assert.ErrorIs(t, g.Validate(), ErrNoRoute)
}

func TestValidate_RequiresReachability(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(NodeEntry, passThrough))
	require.NoError(t, g.AddNode(NodeSynthesize, passThrough))
	require.NoError(t, g.AddEdge(NodeEntry, NodeEnd))
	require.NoError(t, g.AddEdge(NodeSynthesize, NodeEnd))
	require.NoError(t, g.SetEntry(NodeEntry))

	assert.ErrorIs(t, g.Validate(), ErrNodeNotFound)
}

// buildDiamond wires ENTRY fanning out to the two extract nodes, both of
// which feed SYNTHESIZE. The join of the fan-out must be SYNTHESIZE.
func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, id := range []NodeID{
		NodeEntry, NodeExtractProductFilters, NodeExtractOrderFilters, NodeSynthesize,
	} {
		require.NoError(t, g.AddNode(id, passThrough))
	}
	require.NoError(t, g.SetEntry(NodeEntry))
	require.NoError(t, g.AddConditionalEdges(NodeEntry,
		func(*State) Decision { return Parallel(NodeExtractProductFilters, NodeExtractOrderFilters) },
		[]NodeID{NodeExtractProductFilters, NodeExtractOrderFilters, NodeSynthesize},
		NodeSynthesize))
	require.NoError(t, g.AddEdge(NodeExtractProductFilters, NodeSynthesize))
	require.NoError(t, g.AddEdge(NodeExtractOrderFilters, NodeSynthesize))
	require.NoError(t, g.AddEdge(NodeSynthesize, NodeEnd))
	return g
}

func TestJoinOf_DiamondConvergesAtSynthesizer(t *testing.T) {
	g := buildDiamond(t)
	join := g.joinOf([]NodeID{NodeExtractProductFilters, NodeExtractOrderFilters})
	assert.Equal(t, NodeSynthesize, join)
}

func TestJoinOf_DisjointBranchesJoinAtEnd(t *testing.T) {
	g := New()
	for _, id := range []NodeID{NodeEntry, NodeClassifyIntent, NodeTryOn} {
		require.NoError(t, g.AddNode(id, passThrough))
	}
	require.NoError(t, g.SetEntry(NodeEntry))
	require.NoError(t, g.AddConditionalEdges(NodeEntry,
		func(*State) Decision { return Parallel(NodeClassifyIntent, NodeTryOn) },
		[]NodeID{NodeClassifyIntent, NodeTryOn}, NodeClassifyIntent))
	require.NoError(t, g.AddEdge(NodeClassifyIntent, NodeEnd))
	require.NoError(t, g.AddEdge(NodeTryOn, NodeEnd))

	join := g.joinOf([]NodeID{NodeClassifyIntent, NodeTryOn})
	assert.Equal(t, NodeEnd, join)
}
