// Package apperr defines the error kinds returned by the subscription engine.
// Every error carries a Kind and a human readable message so callers can
// render it without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	EmptyBasket          Kind = "EmptyBasket"
	MissingClientField   Kind = "MissingClientField"
	QuantityOutOfLattice Kind = "QuantityOutOfLattice"
	UnknownClientType    Kind = "UnknownClientType"
	InvalidInput         Kind = "InvalidInput"

	InvalidTransition     Kind = "InvalidTransition"
	SubscriptionNotActive Kind = "SubscriptionNotActive"
	NotYetDue             Kind = "NotYetDue"

	NotFound    Kind = "NotFound"
	Persistence Kind = "PersistenceError"
)

// ValidationError is raised before anything is written.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// StateError means the operation does not fit the current lifecycle state.
// No mutation has happened when it is returned.
type StateError struct {
	Kind    Kind
	Message string
}

func (e *StateError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Entity, e.ID) }

// PersistenceError wraps a storage failure. Op names the step that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func Validation(kind Kind, format string, args ...any) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func State(kind Kind, format string, args ...any) error {
	return &StateError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// Store wraps err as a PersistenceError unless it is nil or already typed.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// KindOf returns the kind carried by err, or "" for untyped errors.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	var se *StateError
	if errors.As(err, &se) {
		return se.Kind
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return NotFound
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return Persistence
	}
	return ""
}

// Message returns the caller-facing text of a typed error.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var se *StateError
	if errors.As(err, &se) {
		return se.Message
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return "storage failure during " + pe.Op
	}
	return err.Error()
}
