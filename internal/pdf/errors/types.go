package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// PDFError is a typed error raised while editing the graphics of a PDF document
type PDFError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	FilePath    string    `json:"file_path,omitempty"`
	PageNumber  int       `json:"page_number,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`

	Err error `json:"-"`
}

// ErrorType categorises PDFErrors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeInvalidDocument
	ErrorTypeMalformedContent
	ErrorTypeMalformedPage
	ErrorTypeInvalidPosition
	ErrorTypeIndexOutOfRange
	ErrorTypeElementNotFound
	ErrorTypeResourceNotFound
	ErrorTypeInvalidArgument
	ErrorTypeStoreFailure
	ErrorTypeUncommittedChanges
	ErrorTypeSecurityRestriction
	ErrorTypeUnknownSession
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *PDFError) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeInvalidDocument:
		return "INVALID_DOCUMENT"
	case ErrorTypeMalformedContent:
		return "MALFORMED_CONTENT"
	case ErrorTypeMalformedPage:
		return "MALFORMED_PAGE"
	case ErrorTypeInvalidPosition:
		return "INVALID_POSITION"
	case ErrorTypeIndexOutOfRange:
		return "INDEX_OUT_OF_RANGE"
	case ErrorTypeElementNotFound:
		return "ELEMENT_NOT_FOUND"
	case ErrorTypeResourceNotFound:
		return "RESOURCE_NOT_FOUND"
	case ErrorTypeInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrorTypeStoreFailure:
		return "STORE_FAILURE"
	case ErrorTypeUncommittedChanges:
		return "UNCOMMITTED_CHANGES"
	case ErrorTypeSecurityRestriction:
		return "SECURITY_RESTRICTION"
	case ErrorTypeUnknownSession:
		return "UNKNOWN_SESSION"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeInvalidDocument, ErrorTypeStoreFailure:
		return SeverityCritical
	case ErrorTypeMalformedContent, ErrorTypeMalformedPage:
		return SeverityError
	case ErrorTypeInvalidPosition, ErrorTypeIndexOutOfRange, ErrorTypeElementNotFound:
		return SeverityWarning
	case ErrorTypeResourceNotFound, ErrorTypeInvalidArgument, ErrorTypeUncommittedChanges:
		return SeverityWarning
	case ErrorTypeSecurityRestriction, ErrorTypeUnknownSession:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether the caller can retry or adjust the request
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeInvalidDocument, ErrorTypeMalformedContent, ErrorTypeMalformedPage:
		return false
	case ErrorTypeUnknown:
		return false
	default:
		return true
	}
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// NewPDFErrorWithContext creates a new PDFError with additional context
func NewPDFErrorWithContext(errorType ErrorType, message, context string) *PDFError {
	e := NewPDFError(errorType, message)
	e.Context = context
	return e
}

// WrapError wraps err as a PDFError of the given type
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	e := NewPDFError(errorType, message)
	e.Err = err
	return e
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing PDFError
func (e *PDFError) WithFile(filePath string) *PDFError {
	e.FilePath = filePath
	return e
}

// WithPage adds page number information to an existing PDFError
func (e *PDFError) WithPage(pageNumber int) *PDFError {
	e.PageNumber = pageNumber
	return e
}

// WithSession adds the session ID to an existing PDFError
func (e *PDFError) WithSession(id string) *PDFError {
	e.SessionID = id
	return e
}

// GetSeverity returns the severity of this specific error
func (e *PDFError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsCritical returns true if this error is critical
func (e *PDFError) IsCritical() bool {
	return e.GetSeverity() == SeverityCritical
}

// TypeOf returns the type of the first PDFError in err's chain
func TypeOf(err error) ErrorType {
	var pdfErr *PDFError
	if stderrors.As(err, &pdfErr) {
		return pdfErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err's chain holds a PDFError of type t
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
