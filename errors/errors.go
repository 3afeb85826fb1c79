package errors

import (
	// Go internal packages
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error defines a standard application error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Wrapped underlying error.
	WrappedErr error `json:"wrapped_err,omitempty"`
}

// Error returns the string representation of the error message.
func (e *Error) Error() string {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(struct {
		Kind    Kind   `json:"kind"`
		Message string `json:"message"`
		Cause   string `json:"cause,omitempty"`
	}{e.Kind, e.Message, causeText(e.WrappedErr)})
	return buf.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.WrappedErr
}

// ErrorKind returns the kind of the error.
func (e *Error) ErrorKind() Kind {
	return e.Kind
}

// NewError returns standard go error with given string
func NewError(e string) error {
	return errors.New(e)
}

// Kind defines the kind or class of an error.
type Kind uint8

// Transport agnostic error "kinds"
const (
	Other              Kind = iota // Unclassified error
	Internal                       // Internal error
	Conflict                       // Conflict when an entity already exists
	Invalid                        // Invalid input, validation error etc
	NotFound                       // Entity does not exist
	Unauthorized                   // Unauthorized access
	Forbidden                      // Forbidden access
	FailedPrecondition             // Required configuration is missing
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "unclassified error"
	case Internal:
		return "internal error"
	case Conflict:
		return "conflict"
	case Invalid:
		return "invalid input"
	case NotFound:
		return "entity not found"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case FailedPrecondition:
		return "failed precondition"
	default:
		return "unknown error kind"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// HTTPStatus maps a kind to the status code handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case Invalid:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case FailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case error:
			e.WrappedErr = arg
		case string:
			e.Message = arg
		}
	}
	return e
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return Other
	}
	var kinded interface{ ErrorKind() Kind }
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	return Other
}

// MessageOf returns a human readable message for err, preferring the
// Message of an application Error. A partial commit keeps its counts.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var pce *PartialCommitError
	if errors.As(err, &pce) {
		return fmt.Sprintf("import stopped after %d committed, %d failed: %s", pce.Committed, pce.Failed, MessageOf(pce.Cause))
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// IsNotFound reports whether err is classified as NotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == NotFound
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(msg string) error {
	return E(Internal, msg)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string) error {
	return E(NotFound, msg)
}

// NewInvalidParamsError creates a new invalid parameters error
func NewInvalidParamsError(msg string) error {
	return E(Invalid, msg)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(msg string) error {
	return E(Unauthorized, msg)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return E(Forbidden, msg)
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return E(Conflict, msg)
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

var (
	As = errors.As
	Is = errors.Is
)
