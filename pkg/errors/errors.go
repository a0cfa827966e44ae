// Package errors classifies featline failures. Every error carries a type
// that separates malformed input (syntax, numeric, label) from failures of
// the surrounding machinery (config, file, data, internal), plus optional
// details such as the line ordinal or input path.
package errors

import (
	"errors"
	"runtime"

	stringpool "github.com/ajitpratap0/featline/pkg/strings"
)

// ErrorType is the category of an Error.
type ErrorType string

const (
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeSyntax is a grammar violation in an input line
	ErrorTypeSyntax ErrorType = "syntax"
	// ErrorTypeNumeric is a ':'-introduced value that is not a usable float
	ErrorTypeNumeric ErrorType = "numeric"
	// ErrorTypeLabel is a label the label parser rejected
	ErrorTypeLabel  ErrorType = "label"
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData covers pipeline and stream level failures
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile covers local files and object stores
	ErrorTypeFile ErrorType = "file"
)

// Error is a typed error with an optional cause and details.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is one frame of the stack captured at creation.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail sets key on e and returns e for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, 2)
	}
	e.Details[key] = value
	return e
}

// Detail looks key up on the first Error in err's chain that has it.
func Detail(err error, key string) (interface{}, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if v, ok := e.Details[key]; ok {
				return v, true
			}
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

// New creates an error of the given type.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(3),
	}
}

// Wrap attaches a type and message to err. A wrapped *Error keeps its
// original stack. Wrap(nil, ...) is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	w := &Error{Type: errType, Message: message, Cause: err}
	var inner *Error
	if errors.As(err, &inner) {
		w.Stack = inner.Stack
	} else {
		w.Stack = captureStack(3)
	}
	return w
}

// IsMalformed reports whether err describes a malformed input line rather
// than a failure of the surrounding machinery.
// Every Error in the chain is checked, so a parse failure wrapped by the
// pipeline still counts.
func IsMalformed(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			switch e.Type {
			case ErrorTypeSyntax, ErrorTypeNumeric, ErrorTypeLabel:
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsType reports whether the first Error in err's chain has type errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errType
}

// Is forwards to the standard library so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As forwards to the standard library errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

const maxFrames = 32

// captureStack records up to maxFrames callers, skipping skip frames
// (runtime.Callers and captureStack included).
func captureStack(skip int) []StackFrame {
	var pcs [maxFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]StackFrame, 0, n)
	for {
		f, more := frames.Next()
		stack = append(stack, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return stack
}
