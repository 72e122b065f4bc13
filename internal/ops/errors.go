package ops

import (
	"errors"
	"fmt"

	"github.com/roach88/outliner/internal/ir"
)

// ValidationError reports a rejected operation. The graph is unchanged.
type ValidationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the node the operation was applied to, when known.
	Node ir.NodeID

	// Ref is the offending reference (target, parent or template id).
	Ref string
}

// ErrorCode categorizes validation errors.
type ErrorCode string

const (
	// ErrCodeCycleDetected indicates the edit would make a node its own ancestor.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeNodeNotFound indicates a referenced node does not exist.
	ErrCodeNodeNotFound ErrorCode = "NODE_NOT_FOUND"

	// ErrCodeTemplateNotFound indicates the template resolver has no such template.
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"

	// ErrCodeInvalidPosition indicates an unknown or inapplicable placement.
	ErrCodeInvalidPosition ErrorCode = "INVALID_POSITION"

	// ErrCodeNoSuchInstance indicates the node exists but not under the given parent.
	ErrCodeNoSuchInstance ErrorCode = "NO_SUCH_INSTANCE"

	// ErrCodeDuplicateEdge indicates the node already hangs under the destination.
	ErrCodeDuplicateEdge ErrorCode = "DUPLICATE_EDGE"

	// ErrCodeDuplicateID indicates a requested or imported id is already in use.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeEmptySelection indicates a batch operation received no nodes.
	ErrCodeEmptySelection ErrorCode = "EMPTY_SELECTION"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Node != "" && e.Ref != "":
		return fmt.Sprintf("%s: %s (node=%s, ref=%s)", e.Code, e.Message, e.Node, e.Ref)
	case e.Node != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsValidationError returns true if err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HasCode reports whether err is a *ValidationError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

// IsCycleError returns true if the error is a cycle rejection.
func IsCycleError(err error) bool {
	return HasCode(err, ErrCodeCycleDetected)
}

func errNodeNotFound(id ir.NodeID) *ValidationError {
	return &ValidationError{Code: ErrCodeNodeNotFound, Message: "node not found", Node: id}
}

func errNoSuchInstance(inst ir.Instance) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeNoSuchInstance,
		Message: "node has no edge to the given parent",
		Node:    inst.Node,
		Ref:     string(inst.Parent),
	}
}

func errCycle(id, target ir.NodeID) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeCycleDetected,
		Message: "destination is the node itself or one of its descendants",
		Node:    id,
		Ref:     string(target),
	}
}

func errTemplateNotFound(id ir.NodeID, templateID string) *ValidationError {
	return &ValidationError{Code: ErrCodeTemplateNotFound, Message: "template not found", Node: id, Ref: templateID}
}

func errDuplicateEdge(id, parent ir.NodeID) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeDuplicateEdge,
		Message: "node is already a child of the destination",
		Node:    id,
		Ref:     string(parent),
	}
}

func errInvalidPosition(id ir.NodeID, msg string) *ValidationError {
	return &ValidationError{Code: ErrCodeInvalidPosition, Message: msg, Node: id}
}

func errEmptySelection(op string) *ValidationError {
	return &ValidationError{Code: ErrCodeEmptySelection, Message: op + " needs at least one node"}
}
