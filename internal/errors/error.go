package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryScroll   Category = "scroll"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryManifest Category = "manifest"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a config or manifest file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ScrollkitError is a structured error with location, suggestion and
// documentation link.
type ScrollkitError struct {
	// Code is a unique error identifier (e.g., "M202").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position the error refers to.
	Location *Location

	// Context contains the surrounding file lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ScrollkitError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Location != nil {
		msg = e.Location.String() + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ScrollkitError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position and reads the surrounding lines.
func (e *ScrollkitError) WithLocation(file string, line, column int) *ScrollkitError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ScrollkitError) WithSuggestion(s string) *ScrollkitError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *ScrollkitError) WithDetail(d string) *ScrollkitError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *ScrollkitError) Wrap(err error) *ScrollkitError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around targetLine from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}
	return lines
}

// New creates a ScrollkitError from a registered error code.
func New(code string) *ScrollkitError {
	template, ok := registry[code]
	if !ok {
		return &ScrollkitError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ScrollkitError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded ScrollkitError with a formatted message.
func Newf(category Category, format string, args ...any) *ScrollkitError {
	return &ScrollkitError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in the error registered under code. A
// ScrollkitError is returned unchanged.
func FromError(err error, code string) *ScrollkitError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*ScrollkitError); ok {
		return se
	}
	return New(code).Wrap(err)
}
