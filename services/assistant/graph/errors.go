// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"errors"
	"fmt"
)

// Graph construction and execution errors.
var (
	ErrNilContext        = errors.New("context must not be nil")
	ErrNilNode           = errors.New("node function must not be nil")
	ErrDuplicateNode     = errors.New("node already registered")
	ErrNodeNotFound      = errors.New("node not found")
	ErrNoEntry           = errors.New("entry node not set")
	ErrNoRoute           = errors.New("node has no outgoing edge or router")
	ErrEmptyAllowedSet   = errors.New("router allowed set must not be empty")
	ErrTargetNotAllowed  = errors.New("router returned a target outside its allowed set")
	ErrAllBranchesFailed = errors.New("every parallel branch failed")
)

// NodeError wraps an error with the node it occurred in.
type NodeError struct {
	Node NodeID
	Err  error
}

// NewNodeError creates a NodeError for the given node.
func NewNodeError(node NodeID, err error) *NodeError {
	return &NodeError{Node: node, Err: err}
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
