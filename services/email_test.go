package services

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"online-admission/models"
	"online-admission/services/kafka"
	"online-admission/services/placement"
)

func TestSendEmailQueuesWhenKafkaEnabled(t *testing.T) {
	out := captureOutbox(t, true)

	err := SendEmail(Email{To: "a@b.c", Subject: "Hi", Body: "<p>x</p>", AttachmentName: "l.pdf", Attachment: []byte("%PDF")})
	require.NoError(t, err)

	assert.Empty(t, out.Emails())
	events := out.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "admissions.emails", events[0].Topic)
	assert.Equal(t, "email-a@b.c", events[0].Key)
	assert.Equal(t, kafka.EventEmailSend, events[0].Value["event"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF")), events[0].Value["attachment"])
}

func TestSendEmailDirectWhenKafkaDisabled(t *testing.T) {
	out := captureOutbox(t, false)

	require.NoError(t, SendEmail(Email{To: "a@b.c", Subject: "Hi"}))
	assert.Empty(t, out.Events())
	require.Len(t, out.Emails(), 1)
}

func TestHandleEmailEventDecodesAttachment(t *testing.T) {
	out := captureOutbox(t, true)

	err := HandleEmailEvent(context.Background(), map[string]interface{}{
		"event":           kafka.EventEmailSend,
		"recipient":       "a@b.c",
		"subject":         "Letter",
		"body":            "<p>attached</p>",
		"attachment_name": "letter.pdf",
		"attachment":      base64.StdEncoding.EncodeToString([]byte("%PDF-1.3")),
	})
	require.NoError(t, err)

	emails := out.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "Letter", emails[0].Subject)
	assert.Equal(t, []byte("%PDF-1.3"), emails[0].Attachment)

	err = HandleEmailEvent(context.Background(), map[string]interface{}{"event": kafka.EventEmailSend})
	assert.Error(t, err)

	err = HandleEmailEvent(context.Background(), map[string]interface{}{"recipient": "a@b.c", "attachment": "%%%"})
	assert.Error(t, err)
}

func TestImportSummaryEmail(t *testing.T) {
	e := ImportSummaryEmail("head@school.edu", "St. <Mary>'s", placement.Summary{
		Count: 2, FirstAdmissionNumber: 51, LastAdmissionNumber: 52, Duplicates: 1,
		Timestamp: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "head@school.edu", e.To)
	assert.Contains(t, e.Body, "51 to 52")
	assert.Contains(t, e.Body, "St. &lt;Mary&gt;&#39;s")

	empty := ImportSummaryEmail("head@school.edu", "S", placement.Summary{})
	assert.Contains(t, empty.Body, "<strong>Admission numbers:</strong> none")
}

func TestImportNotifierSkipsEmailForNonAddressActor(t *testing.T) {
	out := captureOutbox(t, false)
	n := NewImportNotifier(nil)

	require.NoError(t, n.Imported(context.Background(), placement.Summary{SchoolID: "s1", Actor: "admin-7", Count: 3}))
	require.Len(t, out.Events(), 1)
	assert.Empty(t, out.Emails())

	require.NoError(t, n.Imported(context.Background(), placement.Summary{SchoolID: "s1", Actor: "Head <head@s1.edu>", Count: 3}))
	emails := out.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "head@s1.edu", emails[0].To)
	assert.Contains(t, emails[0].Subject, "s1")
}

func TestBuildMessageAttachesBytes(t *testing.T) {
	m := buildMessage("from@x.y", AdmissionConfirmationEmail(
		&models.School{Name: "S"},
		&models.Student{IndexNumber: "GH1", Email: "s@x.y", FirstName: "A"},
		"", []byte("%PDF")))
	assert.Equal(t, []string{"s@x.y"}, m.GetHeader("To"))
	assert.Equal(t, []string{"from@x.y"}, m.GetHeader("From"))
}
