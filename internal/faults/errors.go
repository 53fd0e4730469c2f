package faults

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a fault into one of the fixed categories of spec.md
// §4.11. Each Kind has exactly one Policy (see policy.go).
type Kind string

const (
	InvalidInput          Kind = "invalid_input"
	AuthFault             Kind = "auth_fault"
	TransientIO           Kind = "transient_io"
	QuotaExceeded         Kind = "quota_exceeded"
	ModelOutputInvalid    Kind = "model_output_invalid"
	QualityBelowThreshold Kind = "quality_below_threshold"
	StructuralInvariant   Kind = "structural_invariant"
	DiskExhausted         Kind = "disk_exhausted"
	Cancelled             Kind = "cancelled"
)

// Record is the durable error record attached to JobState.last_error
// (spec.md §3 "Error Record"). Only the most recent record is retained.
type Record struct {
	Kind      Kind
	Message   string
	Component string
	At        time.Time
	Context   map[string]string
}

func (r Record) Error() string {
	return fmt.Sprintf("%s: %s: %s", r.Component, r.Kind, r.Message)
}

// Fault is the error type components return; it carries a Kind so the
// scheduler can consult the policy table without string-sniffing.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Cause }

// New builds a Fault of the given kind.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Wrap builds a Fault of the given kind around a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Fault {
	return &Fault{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Fault; otherwise it classifies unknown errors as TransientIO, the
// conservative default that still allows bounded retry rather than
// failing the job outright on an unclassified error.
func KindOf(err error) Kind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return TransientIO
}

// ToRecord converts an error into a durable Record for JobState.last_error.
func ToRecord(component string, at time.Time, err error) Record {
	kind := KindOf(err)
	context := map[string]string{}
	var fault *Fault
	if errors.As(err, &fault) && fault.Cause != nil {
		context["cause"] = fault.Cause.Error()
	}
	message := ""
	if err != nil {
		message = err.Error()
	}
	return Record{
		Kind:      kind,
		Message:   message,
		Component: component,
		At:        at,
		Context:   context,
	}
}
