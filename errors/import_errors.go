package errors

import (
	"fmt"
)

// ParseError reports an uploaded placement list that could not be read as a
// spreadsheet. Nothing has been written when it is returned.
type ParseError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("cannot parse %q: %s", e.Filename, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) ErrorKind() Kind {
	return Invalid
}

// NoAdmissionYearError reports a school without an admission configuration.
// The import cannot number students without it, so nothing is written.
type NoAdmissionYearError struct {
	SchoolID string
}

func (e *NoAdmissionYearError) Error() string {
	return fmt.Sprintf("no admission year configured for school %q", e.SchoolID)
}

func (e *NoAdmissionYearError) ErrorKind() Kind {
	return FailedPrecondition
}

// PartialCommitError reports a batch that stopped on a failed write.
// Committed records stay in place; Failed counts the record that failed plus
// every record that was not attempted.
type PartialCommitError struct {
	Committed int
	Failed    int
	Cause     error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("import stopped after %d committed, %d failed: %v", e.Committed, e.Failed, e.Cause)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Cause
}

func (e *PartialCommitError) ErrorKind() Kind {
	return Internal
}
