package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "online-admission/errors"
	"online-admission/models"
	"online-admission/utils"
)

func validProfile() models.StudentProfile {
	return models.StudentProfile{
		SchoolID:        "s1",
		IndexNumber:     "GH001",
		Email:           "ama@example.com",
		GuardianName:    "Kofi Mensah",
		GuardianContact: "0244123456",
		Address:         "12 Castle Road, Cape Coast",
		House:           "Lyall",
	}
}

func TestLookup(t *testing.T) {
	captureOutbox(t, false)
	f := newFixture(t)
	svc := NewStudentService(f.store, f.storage, f.clock)
	ctx := context.Background()

	p, err := svc.Lookup(ctx, "s1", "GH001")
	require.NoError(t, err)
	assert.Equal(t, "General Science", p.ProgramName)
	assert.Equal(t, "Mfantsipim School", p.SchoolName)
	assert.Equal(t, "2026", p.Year)
	assert.Equal(t, 150.5, p.PlacementFee)

	_, err = svc.Lookup(ctx, "s1", "GH999")
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))

	_, err = svc.Lookup(ctx, "s1", "")
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))
}

func TestCompleteOnboardingRequiresPayment(t *testing.T) {
	out := captureOutbox(t, false)
	f := newFixture(t)
	svc := NewStudentService(f.store, f.storage, f.clock)

	_, err := svc.CompleteOnboarding(context.Background(), validProfile())
	assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))
	assert.Empty(t, out.Emails())

	student, err := f.store.GetStudent(context.Background(), "s1", "GH001")
	require.NoError(t, err)
	assert.False(t, student.Completed)
}

func TestCompleteOnboardingValidatesProfile(t *testing.T) {
	captureOutbox(t, false)
	f := newFixture(t)
	f.markPaid(t)
	svc := NewStudentService(f.store, f.storage, f.clock)

	profile := validProfile()
	profile.Email = "not-an-email"
	profile.GuardianContact = "12"

	_, err := svc.CompleteOnboarding(context.Background(), profile)
	require.Error(t, err)
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))
	fields := utils.FieldErrors(err)
	assert.Equal(t, "email", fields["Email"])
	assert.Equal(t, "min", fields["GuardianContact"])
}

func TestCompleteOnboardingSendsLetter(t *testing.T) {
	out := captureOutbox(t, false)
	f := newFixture(t)
	f.markPaid(t)
	svc := NewStudentService(f.store, f.storage, f.clock)

	student, err := svc.CompleteOnboarding(context.Background(), validProfile())
	require.NoError(t, err)
	assert.True(t, student.Completed)
	assert.Equal(t, "ama@example.com", student.Email)
	assert.Equal(t, "Lyall", student.House)

	emails := out.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "ama@example.com", emails[0].To)
	assert.Contains(t, emails[0].Subject, "Mfantsipim School")
	assert.Contains(t, emails[0].Body, "General Science")
	assert.Equal(t, "admission-letter-GH001.pdf", emails[0].AttachmentName)
	assert.True(t, bytes.HasPrefix(emails[0].Attachment, []byte("%PDF")))
}

func TestAdmissionLetterRequiresCompletion(t *testing.T) {
	captureOutbox(t, false)
	f := newFixture(t)
	f.markPaid(t)
	svc := NewStudentService(f.store, f.storage, f.clock)
	ctx := context.Background()

	_, err := svc.AdmissionLetter(ctx, "s1", "GH001")
	assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))

	_, err = svc.CompleteOnboarding(ctx, validProfile())
	require.NoError(t, err)

	letter, err := svc.AdmissionLetter(ctx, "s1", "GH001")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(letter, []byte("%PDF")))
}

func TestDocumentDownload(t *testing.T) {
	captureOutbox(t, false)
	f := newFixture(t)
	students := NewStudentService(f.store, f.storage, f.clock)
	schools := NewSchoolService(f.store, f.storage, nil, f.clock)
	ctx := context.Background()

	_, err := students.Document(ctx, "s1", "GH001", utils.DocumentProspectus)
	assert.Equal(t, apperrors.Forbidden, apperrors.KindOf(err))

	f.markPaid(t)
	_, err = students.Document(ctx, "s1", "GH001", utils.DocumentProspectus)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))

	_, err = students.Document(ctx, "s1", "GH001", "timetable")
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))

	_, err = schools.UploadDocument(ctx, "s1", utils.DocumentProspectus, strings.NewReader("%PDF prospectus"), "application/pdf")
	require.NoError(t, err)

	rc, err := students.Document(ctx, "s1", "GH001", utils.DocumentProspectus)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF prospectus", string(body))
}
