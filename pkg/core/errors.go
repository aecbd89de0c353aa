package core

import (
	"errors"
	"fmt"
	"strings"
)

// Collaborator errors.
var (
	ErrUnreachable    = errors.New("location unreachable")
	ErrTimeout        = errors.New("fetch timed out")
	ErrMalformedInput = errors.New("malformed input")
)

// Resolution stage errors.
var (
	ErrUnreachableContext     = errors.New("unreachable context")
	ErrCyclicContextReference = errors.New("cyclic context reference")
	ErrMalformedContext       = errors.New("malformed context")
)

// Normalization stage errors.
var (
	ErrUnmappableTerm = errors.New("unmappable term")
	ErrMalformedNode  = errors.New("malformed node")
)

// ErrProjection is matched by every *ProjectionError.
var ErrProjection = errors.New("projection failed")

// ContextError reports a failure while resolving a context.
// Kind is one of ErrUnreachableContext, ErrCyclicContextReference or ErrMalformedContext.
type ContextError struct {
	Kind     error
	Location string   // remote location involved, empty for inline contexts
	Chain    []string // in-flight references when a cycle was detected
	Reason   string
	Err      error
}

func (e *ContextError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Location != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Location)
	}
	if len(e.Chain) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(e.Chain, " -> "))
		sb.WriteString(")")
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ContextError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// MalformedContext builds a ContextError of kind ErrMalformedContext.
func MalformedContext(location, format string, args ...any) *ContextError {
	return &ContextError{Kind: ErrMalformedContext, Location: location, Reason: fmt.Sprintf(format, args...)}
}

// TermError reports a document key that no vocabulary entry can qualify.
type TermError struct {
	Term string
	Path string // JSON pointer of the object holding the term
}

func (e *TermError) Error() string {
	return fmt.Sprintf("%s %q at %s", ErrUnmappableTerm, e.Term, pathOrRoot(e.Path))
}

func (e *TermError) Unwrap() error { return ErrUnmappableTerm }

// NodeError reports a document node whose shape cannot be normalized.
type NodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *NodeError) Error() string {
	msg := fmt.Sprintf("%s at %s: %s", ErrMalformedNode, pathOrRoot(e.Path), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedNode}
	}
	return []error{ErrMalformedNode, e.Err}
}

// Projection failure reasons.
const (
	ReasonMissing = "missing attribute"
	ReasonShape   = "unexpected shape"
	ReasonInvalid = "invalid value"
	ReasonType    = "missing type tag"
	ReasonNested  = "nested projection failed"
)

// ProjectionError reports why a normalized node could not be turned into a typed value.
// Meaning is the fully-qualified attribute (or type tag) responsible.
type ProjectionError struct {
	Type    string // Go type being constructed
	Meaning string
	Reason  string
	Err     error
}

func (e *ProjectionError) Error() string {
	msg := fmt.Sprintf("project %s: %s: %s", e.Type, e.Meaning, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProjectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProjection}
	}
	return []error{ErrProjection, e.Err}
}

// Innermost follows nested projection failures down to the attribute that caused them.
func (e *ProjectionError) Innermost() *ProjectionError {
	current := e
	for {
		var next *ProjectionError
		if current.Err == nil || !errors.As(current.Err, &next) {
			return current
		}
		current = next
	}
}

// Stage identifies the step of a load at which a failure occurred.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageVerify    Stage = "verify"
	StageParse     Stage = "parse"
	StageResolve   Stage = "resolve"
	StageNormalize Stage = "normalize"
	StageProject   Stage = "project"
)

// LoadError wraps the first failure of a load together with its stage.
type LoadError struct {
	Stage    Stage
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Location, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// StageOf extracts the failing stage from a load error chain.
func StageOf(err error) (Stage, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Stage, true
	}
	return "", false
}

func pathOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
