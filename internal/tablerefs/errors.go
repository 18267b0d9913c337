package tablerefs

import (
	"errors"
	"fmt"
)

// TraversalErrorCode categorizes traversal errors.
type TraversalErrorCode string

const (
	// ErrCodeMalformedTree indicates a cycle, a nil node pointer, or a
	// tree deeper than the collector allows.
	ErrCodeMalformedTree TraversalErrorCode = "MALFORMED_TREE"
)

// TraversalError reports a tree that cannot be walked to completion.
type TraversalError struct {
	// Code identifies the error category.
	Code TraversalErrorCode

	// Message is a human-readable description.
	Message string

	// Depth is the recursion depth at which the problem was detected.
	Depth int

	// NodeType is the Go type of the offending node.
	NodeType string
}

// Error implements the error interface.
func (e *TraversalError) Error() string {
	return fmt.Sprintf("%s: %s (depth=%d, node=%s)", e.Code, e.Message, e.Depth, e.NodeType)
}

// IsMalformedTree returns true if err is, or wraps, a malformed tree error.
func IsMalformedTree(err error) bool {
	var te *TraversalError
	if errors.As(err, &te) {
		return te.Code == ErrCodeMalformedTree
	}
	return false
}

func newCycleError(depth int, n any) *TraversalError {
	return &TraversalError{
		Code:     ErrCodeMalformedTree,
		Message:  "node reached again from its own subtree",
		Depth:    depth,
		NodeType: fmt.Sprintf("%T", n),
	}
}

func newDepthError(depth, maxDepth int, n any) *TraversalError {
	return &TraversalError{
		Code:     ErrCodeMalformedTree,
		Message:  fmt.Sprintf("tree exceeds max depth %d", maxDepth),
		Depth:    depth,
		NodeType: fmt.Sprintf("%T", n),
	}
}

func newNilNodeError(depth int, n any) *TraversalError {
	return &TraversalError{
		Code:     ErrCodeMalformedTree,
		Message:  "nil node pointer",
		Depth:    depth,
		NodeType: fmt.Sprintf("%T", n),
	}
}
