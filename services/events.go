package services

import (
	"context"
	"net/mail"
	"time"

	"online-admission/config"
	"online-admission/logger"
	"online-admission/models"
	"online-admission/services/kafka"
	"online-admission/services/placement"
)

// SchoolReader looks up school details for notifications.
type SchoolReader interface {
	GetSchool(ctx context.Context, schoolID string) (*models.School, error)
}

// ImportNotifier publishes placement.imported events and emails the
// uploading admin a summary when the actor is an email address.
type ImportNotifier struct {
	schools SchoolReader
}

func NewImportNotifier(schools SchoolReader) *ImportNotifier {
	return &ImportNotifier{schools: schools}
}

var _ placement.Notifier = (*ImportNotifier)(nil)

func (n *ImportNotifier) Imported(ctx context.Context, s placement.Summary) error {
	evt := map[string]interface{}{
		"event":                  kafka.EventPlacementImported,
		"log_id":                 s.LogID,
		"school_id":              s.SchoolID,
		"actor":                  s.Actor,
		"count":                  s.Count,
		"duplicates":             s.Duplicates,
		"unmapped":               s.Unmapped,
		"first_admission_number": s.FirstAdmissionNumber,
		"last_admission_number":  s.LastAdmissionNumber,
		"ts":                     s.Timestamp.UTC().Format(time.RFC3339),
	}
	if err := publishEvent(config.AppConfig.KafkaTopicImports, s.SchoolID, evt); err != nil {
		return err
	}

	addr, err := mail.ParseAddress(s.Actor)
	if err != nil {
		return nil
	}
	schoolName := s.SchoolID
	if n.schools != nil {
		if school, err := n.schools.GetSchool(ctx, s.SchoolID); err == nil {
			schoolName = school.Name
		} else {
			logger.Warn("Could not load school %s for import summary: %v", s.SchoolID, err)
		}
	}
	return SendEmail(ImportSummaryEmail(addr.Address, schoolName, s))
}
