package contract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrContractViolation is the sentinel wrapped by every ValidationError.
var ErrContractViolation = errors.New("contract violation")

// Violation is one failed constraint at a document path.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Violations accumulates failures while a rule tree walks a document.
type Violations []Violation

// Add records a violation at path.
func (vs *Violations) Add(path, format string, args ...any) {
	*vs = append(*vs, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

// ValidationError reports every violation found in a document.
type ValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: invalid %s (%d violations): %s",
		ErrContractViolation, e.Schema, len(e.Violations), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrContractViolation
}

// Has reports whether a violation was recorded at path.
func (e *ValidationError) Has(path string) bool {
	for _, v := range e.Violations {
		if v.Path == path {
			return true
		}
	}
	return false
}
