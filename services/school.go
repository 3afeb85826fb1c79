package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	apperrors "online-admission/errors"
	"online-admission/logger"
	"online-admission/models"
	"online-admission/repository"
	"online-admission/services/placement"
	"online-admission/services/storage"
	"online-admission/utils"
)

// SchoolService is the admin console.
type SchoolService struct {
	store    repository.Store
	storage  storage.Storage
	importer *placement.Importer
	clock    placement.Clock
}

func NewSchoolService(store repository.Store, st storage.Storage, importer *placement.Importer, clock placement.Clock) *SchoolService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SchoolService{store: store, storage: st, importer: importer, clock: clock}
}

func (s *SchoolService) CreateSchool(ctx context.Context, school *models.School) error {
	school.SchoolID = strings.TrimSpace(school.SchoolID)
	school.Name = strings.TrimSpace(school.Name)
	if err := utils.ValidateStruct(school); err != nil {
		return err
	}
	school.CreatedAt = s.clock.Now()
	if err := s.store.CreateSchool(ctx, school); err != nil {
		return err
	}
	logger.Info("School created: %s", school.SchoolID)
	return nil
}

func (s *SchoolService) GetSchool(ctx context.Context, schoolID string) (*models.School, error) {
	return s.store.GetSchool(ctx, schoolID)
}

// SaveAdmission sets the school's admission cycle. Document keys already
// uploaded are kept.
func (s *SchoolService) SaveAdmission(ctx context.Context, cfg *models.AdmissionConfig) error {
	cfg.Year = strings.TrimSpace(cfg.Year)
	if err := utils.ValidateStruct(cfg); err != nil {
		return err
	}
	if _, err := s.store.GetSchool(ctx, cfg.SchoolID); err != nil {
		return err
	}
	if cfg.Currency == "" {
		cfg.Currency = utils.DefaultCurrency
	}

	current, err := s.store.GetAdmissionConfig(ctx, cfg.SchoolID)
	switch {
	case err == nil:
		if cfg.ProspectusKey == "" {
			cfg.ProspectusKey = current.ProspectusKey
		}
		if cfg.UndertakingKey == "" {
			cfg.UndertakingKey = current.UndertakingKey
		}
	case !apperrors.IsNotFound(err):
		return err
	}
	return s.store.SaveAdmissionConfig(ctx, cfg)
}

func (s *SchoolService) GetAdmission(ctx context.Context, schoolID string) (*models.AdmissionConfig, error) {
	return s.store.GetAdmissionConfig(ctx, schoolID)
}

func (s *SchoolService) CreateProgram(ctx context.Context, program *models.Program) error {
	program.ProgramID = strings.TrimSpace(program.ProgramID)
	program.Name = strings.TrimSpace(program.Name)
	program.EnrolledCount = 0
	if err := utils.ValidateStruct(program); err != nil {
		return err
	}
	if _, err := s.store.GetSchool(ctx, program.SchoolID); err != nil {
		return err
	}
	return s.store.CreateProgram(ctx, program)
}

func (s *SchoolService) ListPrograms(ctx context.Context, schoolID string) ([]models.Program, error) {
	return s.store.ListPrograms(ctx, schoolID)
}

// ImportPlacement runs one uploaded placement list through the importer.
func (s *SchoolService) ImportPlacement(ctx context.Context, req placement.Request) (*placement.Result, error) {
	if _, err := s.store.GetSchool(ctx, req.SchoolID); err != nil {
		return &placement.Result{State: placement.StateFailed}, err
	}
	return s.importer.Run(ctx, req)
}

func (s *SchoolService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	return s.store.ListStudents(ctx, filter)
}

// ExportStudents writes the filtered roster as xlsx.
func (s *SchoolService) ExportStudents(ctx context.Context, filter models.StudentFilter) (*bytes.Buffer, error) {
	filter.Limit, filter.Offset = 0, 0
	students, err := s.store.ListStudents(ctx, filter)
	if err != nil {
		return nil, err
	}
	programs, err := s.store.ListPrograms(ctx, filter.SchoolID)
	if err != nil {
		return nil, err
	}
	return ExportStudents(students, programs)
}

func (s *SchoolService) ListLogs(ctx context.Context, schoolID string, limit int) ([]models.AuditLog, error) {
	return s.store.ListLogs(ctx, schoolID, limit)
}

// UploadDocument stores a prospectus or undertaking and records its key on
// the admission config, which must already exist.
func (s *SchoolService) UploadDocument(ctx context.Context, schoolID, kind string, r io.Reader, contentType string) (*models.AdmissionConfig, error) {
	if !IsDocumentKind(kind) {
		return nil, apperrors.E(apperrors.Invalid, "unknown document kind "+kind)
	}
	admission, err := s.store.GetAdmissionConfig(ctx, schoolID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.E(apperrors.FailedPrecondition, "set the admission year before uploading documents")
		}
		return nil, err
	}

	key := storage.DocumentKey(schoolID, kind)
	if err := s.storage.Put(ctx, key, r, contentType); err != nil {
		return nil, err
	}
	if kind == utils.DocumentProspectus {
		admission.ProspectusKey = key
	} else {
		admission.UndertakingKey = key
	}
	if err := s.store.SaveAdmissionConfig(ctx, admission); err != nil {
		return nil, err
	}
	logger.Info("Uploaded %s for %s at %s", kind, schoolID, s.clock.Now().Format(time.RFC3339))
	return admission, nil
}
