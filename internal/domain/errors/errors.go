// Package errors defines the engine's error taxonomy. Managers return these
// typed errors for expected business outcomes so callers can branch with
// errors.As instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// Error types, surfaced to HTTP handlers for status mapping.
const (
	ErrTypeNotFound          = "NOT_FOUND"
	ErrTypeInvalidTransition = "INVALID_TRANSITION"
	ErrTypePolicyViolation   = "POLICY_VIOLATION"
	ErrTypeExternal          = "EXTERNAL_DEPENDENCY_FAILURE"
)

// NotFoundError indicates a missing organization, payment, submission or
// requirement.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource and id.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidTransitionError indicates an attempt to re-apply or skip a state
// transition, e.g. settling a payment that is no longer pending.
type InvalidTransitionError struct {
	Entity  string
	From    string
	Attempt string
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %q via %q: %s", e.Entity, e.From, e.Attempt, e.Reason)
}

// NewInvalidTransitionError creates an InvalidTransitionError.
func NewInvalidTransitionError(entity, from, attempt, reason string) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, From: from, Attempt: attempt, Reason: reason}
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}

// PolicyViolationError indicates a request that business policy rejects,
// such as a refund outside the statutory window without an admin override.
type PolicyViolationError struct {
	Policy  string
	Message string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Policy, e.Message)
}

// NewPolicyViolationError creates a PolicyViolationError.
func NewPolicyViolationError(policy, message string) *PolicyViolationError {
	return &PolicyViolationError{Policy: policy, Message: message}
}

// IsPolicyViolation reports whether err is a PolicyViolationError.
func IsPolicyViolation(err error) bool {
	var pv *PolicyViolationError
	return errors.As(err, &pv)
}

// ExternalError wraps a failure from an external collaborator (payment
// gateway). Retryable distinguishes transient faults (timeouts, 429, 5xx)
// from permanent rejections.
type ExternalError struct {
	Service   string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ExternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("external service %s: %s: %v", e.Service, e.Message, e.Cause)
	}
	return fmt.Sprintf("external service %s: %s", e.Service, e.Message)
}

func (e *ExternalError) Unwrap() error {
	return e.Cause
}

// NewExternalError creates an ExternalError.
func NewExternalError(service, message string, retryable bool, cause error) *ExternalError {
	return &ExternalError{Service: service, Message: message, Retryable: retryable, Cause: cause}
}

// IsRetryable reports whether err is an ExternalError marked retryable.
func IsRetryable(err error) bool {
	var ex *ExternalError
	return errors.As(err, &ex) && ex.Retryable
}
