package services

import (
	"context"
	"io"
	"time"

	"online-admission/config"
	apperrors "online-admission/errors"
	"online-admission/logger"
	"online-admission/models"
	"online-admission/repository"
	"online-admission/services/kafka"
	"online-admission/services/placement"
	"online-admission/services/storage"
	"online-admission/utils"
)

// Placement is what a student sees when looking up their index number.
type Placement struct {
	Student      *models.Student `json:"student"`
	ProgramName  string          `json:"program_name,omitempty"`
	SchoolName   string          `json:"school_name"`
	Year         string          `json:"year,omitempty"`
	PlacementFee float64         `json:"placement_fee"`
	Currency     string          `json:"currency,omitempty"`
}

// StudentService is the student facing portal.
type StudentService struct {
	store   repository.Store
	storage storage.Storage
	clock   placement.Clock
}

func NewStudentService(store repository.Store, st storage.Storage, clock placement.Clock) *StudentService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StudentService{store: store, storage: st, clock: clock}
}

// Lookup finds the placement of indexNumber at schoolID.
func (s *StudentService) Lookup(ctx context.Context, schoolID, indexNumber string) (*Placement, error) {
	if indexNumber == "" {
		return nil, apperrors.E(apperrors.Invalid, "index number is required")
	}
	student, err := s.store.GetStudent(ctx, schoolID, indexNumber)
	if err != nil {
		return nil, err
	}
	school, err := s.store.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	p := &Placement{Student: student, SchoolName: school.Name}
	p.ProgramName, err = s.programName(ctx, student)
	if err != nil {
		return nil, err
	}
	if admission, err := s.store.GetAdmissionConfig(ctx, schoolID); err == nil {
		p.Year = admission.Year
		p.PlacementFee = admission.PlacementFee
		p.Currency = admission.Currency
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return p, nil
}

func (s *StudentService) programName(ctx context.Context, student *models.Student) (string, error) {
	if student.ProgramRef == nil {
		return "", nil
	}
	programs, err := s.store.ListPrograms(ctx, student.SchoolID)
	if err != nil {
		return "", err
	}
	return placement.ProgramNamesOf(programs)[*student.ProgramRef], nil
}

// CompleteOnboarding stores the student's profile, marks them completed and
// emails the admission letter. The placement fee must be paid first.
func (s *StudentService) CompleteOnboarding(ctx context.Context, profile models.StudentProfile) (*models.Student, error) {
	if err := utils.ValidateStruct(profile); err != nil {
		return nil, err
	}
	student, err := s.store.GetStudent(ctx, profile.SchoolID, profile.IndexNumber)
	if err != nil {
		return nil, err
	}
	if !student.HasPaid {
		return nil, apperrors.E(apperrors.Forbidden, "placement fee has not been paid")
	}

	updated, err := s.store.UpdateStudentProfile(ctx, profile)
	if err != nil {
		return nil, err
	}
	logger.Info("Student %s/%s completed onboarding", updated.SchoolID, updated.IndexNumber)

	evt := map[string]interface{}{
		"event":        kafka.EventStudentOnboarded,
		"school_id":    updated.SchoolID,
		"index_number": updated.IndexNumber,
		"ts":           s.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := publishEvent(config.AppConfig.KafkaTopicImports, updated.SchoolID, evt); err != nil {
		logger.Warn("Failed to publish onboarding event for %s: %v", updated.IndexNumber, err)
	}

	s.sendConfirmation(ctx, updated)
	return updated, nil
}

func (s *StudentService) sendConfirmation(ctx context.Context, student *models.Student) {
	school, admission, programName, err := s.letterData(ctx, student)
	if err != nil {
		logger.Warn("Skipping confirmation email for %s: %v", student.IndexNumber, err)
		return
	}
	letter, err := GenerateAdmissionLetter(school, admission, student, programName, s.clock.Now())
	if err != nil {
		logger.Warn("Skipping confirmation email for %s: %v", student.IndexNumber, err)
		return
	}
	if err := SendEmail(AdmissionConfirmationEmail(school, student, programName, letter)); err != nil {
		logger.Warn("Failed to send confirmation email to %s: %v", student.Email, err)
	}
}

func (s *StudentService) letterData(ctx context.Context, student *models.Student) (*models.School, *models.AdmissionConfig, string, error) {
	school, err := s.store.GetSchool(ctx, student.SchoolID)
	if err != nil {
		return nil, nil, "", err
	}
	admission, err := s.store.GetAdmissionConfig(ctx, student.SchoolID)
	if err != nil {
		return nil, nil, "", err
	}
	programName, err := s.programName(ctx, student)
	if err != nil {
		return nil, nil, "", err
	}
	return school, admission, programName, nil
}

// AdmissionLetter renders the admission letter of a student who completed
// onboarding.
func (s *StudentService) AdmissionLetter(ctx context.Context, schoolID, indexNumber string) ([]byte, error) {
	student, err := s.store.GetStudent(ctx, schoolID, indexNumber)
	if err != nil {
		return nil, err
	}
	if !student.Completed {
		return nil, apperrors.E(apperrors.Forbidden, "onboarding has not been completed")
	}
	school, admission, programName, err := s.letterData(ctx, student)
	if err != nil {
		return nil, err
	}
	return GenerateAdmissionLetter(school, admission, student, programName, s.clock.Now())
}

// Document opens a distributed school document for a student who paid.
func (s *StudentService) Document(ctx context.Context, schoolID, indexNumber, kind string) (io.ReadCloser, error) {
	if !IsDocumentKind(kind) {
		return nil, apperrors.E(apperrors.Invalid, "unknown document kind "+kind)
	}
	student, err := s.store.GetStudent(ctx, schoolID, indexNumber)
	if err != nil {
		return nil, err
	}
	if !student.HasPaid {
		return nil, apperrors.E(apperrors.Forbidden, "placement fee has not been paid")
	}
	admission, err := s.store.GetAdmissionConfig(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	key := admission.ProspectusKey
	if kind == utils.DocumentUndertaking {
		key = admission.UndertakingKey
	}
	if key == "" {
		return nil, apperrors.E(apperrors.NotFound, "the school has not uploaded its "+kind)
	}
	return s.storage.Get(ctx, key)
}

// IsDocumentKind reports whether kind names a distributable document.
func IsDocumentKind(kind string) bool {
	return kind == utils.DocumentProspectus || kind == utils.DocumentUndertaking
}
