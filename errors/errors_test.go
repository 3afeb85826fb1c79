package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Other},
		{"plain", stderrors.New("boom"), Other},
		{"app error", E(NotFound, "missing"), NotFound},
		{"wrapped app error", fmt.Errorf("lookup: %w", E(Conflict, "dup")), Conflict},
		{"parse error", &ParseError{Filename: "a.pdf", Reason: "unsupported file type"}, Invalid},
		{"no admission year", fmt.Errorf("allocate: %w", &NoAdmissionYearError{SchoolID: "s1"}), FailedPrecondition},
		{"partial commit", &PartialCommitError{Committed: 1, Failed: 2, Cause: stderrors.New("db down")}, Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Invalid.HTTPStatus())
	assert.Equal(t, http.StatusPreconditionFailed, FailedPrecondition.HTTPStatus())
	assert.Equal(t, http.StatusConflict, Conflict.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Other.HTTPStatus())
}

func TestPartialCommitErrorUnwrap(t *testing.T) {
	cause := stderrors.New("write failed")
	err := fmt.Errorf("batch: %w", &PartialCommitError{Committed: 1, Failed: 2, Cause: cause})

	var pce *PartialCommitError
	assert.True(t, As(err, &pce))
	assert.Equal(t, 1, pce.Committed)
	assert.Equal(t, 2, pce.Failed)
	assert.True(t, Is(err, cause))
	assert.Contains(t, err.Error(), "1 committed, 2 failed")
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "student not found", MessageOf(E(NotFound, "student not found")))
	assert.Equal(t, "boom", MessageOf(stderrors.New("boom")))
	assert.Equal(t, "", MessageOf(nil))

	partial := &PartialCommitError{Committed: 1, Failed: 2, Cause: E(Invalid, "row for admission number 2 has no index number")}
	assert.Equal(t, "import stopped after 1 committed, 2 failed: row for admission number 2 has no index number", MessageOf(partial))
}
