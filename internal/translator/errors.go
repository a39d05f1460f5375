package translator

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Severity classifies a collected error. Warnings are surfaced to the user
// but do not block resolution or lowering.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// SchemaError is a structural violation of the stack grammar: an unknown key,
// a wrong type, or a missing required field. Path is a JSON-pointer-like
// locator into the source document.
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Message)
}

// ReferenceError is a dangling name: an undeclared volume, secret, config or
// app dependency, or an invalid merge such as a mount path collision.
type ReferenceError struct {
	Path     string
	Message  string
	Severity Severity
}

func (e *ReferenceError) Error() string {
	if e.Severity == SeverityWarning {
		return fmt.Sprintf("warning at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("reference error at %s: %s", e.Path, e.Message)
}

// ConsistencyError reports conflicting declarations of the same named
// resource. Lowering aborts on the first one: ambiguous output is worse than
// no output.
type ConsistencyError struct {
	Kind    string
	Name    string
	Message string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("conflicting %s %q: %s", e.Kind, e.Name, e.Message)
}

// ErrorList accumulates validation and resolution errors so the user fixes a
// document once, not in dribbles.
type ErrorList struct {
	errs []error
}

// Schema records a SchemaError at the given path.
func (l *ErrorList) Schema(path, format string, args ...interface{}) {
	l.errs = append(l.errs, &SchemaError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Reference records a ReferenceError at the given path.
func (l *ErrorList) Reference(path, format string, args ...interface{}) {
	l.errs = append(l.errs, &ReferenceError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Warn records a warning-class ReferenceError at the given path.
func (l *ErrorList) Warn(path, format string, args ...interface{}) {
	l.errs = append(l.errs, &ReferenceError{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// Add appends an arbitrary error.
func (l *ErrorList) Add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

// Errors returns all collected entries in insertion order.
func (l *ErrorList) Errors() []error { return l.errs }

// HasErrors reports whether any non-warning entry was collected.
func (l *ErrorList) HasErrors() bool {
	for _, err := range l.errs {
		if re, ok := err.(*ReferenceError); ok && re.Severity == SeverityWarning {
			continue
		}
		return true
	}
	return false
}

// Warnings returns only the warning-class entries.
func (l *ErrorList) Warnings() []error {
	var warns []error
	for _, err := range l.errs {
		if re, ok := err.(*ReferenceError); ok && re.Severity == SeverityWarning {
			warns = append(warns, re)
		}
	}
	return warns
}

// Err combines the non-warning entries into a single error, or nil.
func (l *ErrorList) Err() error {
	var combined error
	for _, err := range l.errs {
		if re, ok := err.(*ReferenceError); ok && re.Severity == SeverityWarning {
			continue
		}
		combined = multierr.Append(combined, err)
	}
	return combined
}

func (l *ErrorList) Error() string {
	msgs := make([]string, 0, len(l.errs))
	for _, err := range l.errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// docpath joins document path segments into a JSON-pointer-like locator.
func docpath(segments ...string) string {
	return "/" + strings.Join(segments, "/")
}
