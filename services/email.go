package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"time"

	"online-admission/config"
	"online-admission/logger"
	"online-admission/models"
	"online-admission/services/kafka"
	"online-admission/services/placement"
)

// Email is one outgoing message.
type Email struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

var (
	publishEvent = kafka.Publish
	kafkaEnabled = kafka.Enabled
	sendDirect   = SendEmailDirect
)

// SendEmail queues email as an email.send event for the mail consumer. When
// Kafka is disabled the email is sent directly.
func SendEmail(email Email) error {
	if !kafkaEnabled() {
		return sendDirect(email)
	}

	logger.Info("Publishing email event to Kafka. Recipient: %s, Subject: %s", email.To, email.Subject)
	payload := map[string]interface{}{
		"event":     kafka.EventEmailSend,
		"recipient": email.To,
		"subject":   email.Subject,
		"body":      email.Body,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(email.Attachment) > 0 {
		payload["attachment_name"] = email.AttachmentName
		payload["attachment"] = base64.StdEncoding.EncodeToString(email.Attachment)
	}

	if err := publishEvent(config.AppConfig.KafkaTopicEmails, "email-"+email.To, payload); err != nil {
		logger.Error("Failed to publish email event to Kafka: %v", err)
		return fmt.Errorf("failed to queue email: %w", err)
	}
	return nil
}

// HandleEmailEvent sends the email carried by an email.send event.
func HandleEmailEvent(_ context.Context, event map[string]interface{}) error {
	email, err := emailFromEvent(event)
	if err != nil {
		return err
	}
	return sendDirect(email)
}

func emailFromEvent(event map[string]interface{}) (Email, error) {
	str := func(k string) string {
		s, _ := event[k].(string)
		return s
	}
	email := Email{
		To:             str("recipient"),
		Subject:        str("subject"),
		Body:           str("body"),
		AttachmentName: str("attachment_name"),
	}
	if email.To == "" {
		return Email{}, fmt.Errorf("email event has no recipient")
	}
	if raw := str("attachment"); raw != "" {
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return Email{}, fmt.Errorf("decode attachment: %w", err)
		}
		email.Attachment = data
	}
	return email, nil
}

// RegisterEmailProcessor routes email.send events to HandleEmailEvent.
func RegisterEmailProcessor() {
	kafka.RegisterProcessor(kafka.EventEmailSend, HandleEmailEvent)
}

const emailStyle = `
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1565C0; color: white; padding: 20px; text-align: center; border-radius: 5px; }
        .content { background-color: #f9f9f9; padding: 20px; margin-top: 20px; border-radius: 5px; }
        .info { background-color: #e3f2fd; padding: 15px; margin: 15px 0; border-left: 4px solid #1565C0; }
    </style>`

// ImportSummaryEmail tells the uploading admin what an import did.
func ImportSummaryEmail(to, schoolName string, s placement.Summary) Email {
	numbers := "none"
	if s.Count > 0 {
		numbers = fmt.Sprintf("%d to %d", s.FirstAdmissionNumber, s.LastAdmissionNumber)
	}
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>%s
</head>
<body>
    <div class="container">
        <div class="header"><h2>Placement list imported</h2></div>
        <div class="content">
            <p>The placement list for <strong>%s</strong> was imported on %s.</p>
            <div class="info">
                <p><strong>Students admitted:</strong> %d</p>
                <p><strong>Admission numbers:</strong> %s</p>
                <p><strong>Already admitted (skipped):</strong> %d</p>
                <p><strong>Without a matching program:</strong> %d</p>
            </div>
            <p>Admissions Office</p>
        </div>
    </div>
</body>
</html>
	`, emailStyle, html.EscapeString(schoolName), s.Timestamp.Format("02 Jan 2006 15:04 MST"),
		s.Count, numbers, s.Duplicates, s.Unmapped)

	return Email{
		To:      to,
		Subject: fmt.Sprintf("%s: %d students imported", schoolName, s.Count),
		Body:    body,
	}
}

// AdmissionConfirmationEmail confirms onboarding and carries the admission
// letter.
func AdmissionConfirmationEmail(school *models.School, student *models.Student, programName string, letter []byte) Email {
	if programName == "" {
		programName = "To be assigned"
	}
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>%s
</head>
<body>
    <div class="container">
        <div class="header"><h2>Admission Confirmed</h2></div>
        <div class="content">
            <p>Dear <strong>%s</strong>,</p>
            <p>Your admission to <strong>%s</strong> is confirmed. Your admission letter is attached.</p>
            <div class="info">
                <p><strong>Admission Number:</strong> %d</p>
                <p><strong>Program:</strong> %s</p>
                <p><strong>Residential Status:</strong> %s</p>
            </div>
            <p>Best regards,<br/>Admissions Office</p>
        </div>
    </div>
</body>
</html>
	`, emailStyle, html.EscapeString(student.FullName()), html.EscapeString(school.Name),
		student.AdmissionNumber, html.EscapeString(programName), html.EscapeString(student.Status))

	return Email{
		To:             student.Email,
		Subject:        fmt.Sprintf("Admission confirmed - %s", school.Name),
		Body:           body,
		AttachmentName: fmt.Sprintf("admission-letter-%s.pdf", student.IndexNumber),
		Attachment:     letter,
	}
}
