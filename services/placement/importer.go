package placement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "online-admission/errors"
	"online-admission/logger"
	"online-admission/models"
)

// Importer runs placement batches against a Repository.
type Importer struct {
	repo     Repository
	locker   Locker
	clock    Clock
	notifier Notifier
	log      *logger.Logger
}

type Option func(*Importer)

func WithLocker(l Locker) Option { return func(im *Importer) { im.locker = l } }

func WithClock(c Clock) Option { return func(im *Importer) { im.clock = c } }

func WithNotifier(n Notifier) Option { return func(im *Importer) { im.notifier = n } }

func WithLogger(l *logger.Logger) Option { return func(im *Importer) { im.log = l } }

func NewImporter(repo Repository, opts ...Option) *Importer {
	im := &Importer{
		repo:   repo,
		locker: NewKeyedMutex(),
		clock:  ClockFunc(time.Now),
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Run imports one placement list. The returned Result is never nil and
// reports the state the batch ended in, also when an error is returned.
func (im *Importer) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{State: StateIdle}
	if req.SchoolID == "" {
		res.State = StateFailed
		return res, apperrors.E(apperrors.Invalid, "school id is required")
	}
	if req.Actor == "" {
		res.State = StateFailed
		return res, apperrors.E(apperrors.Unauthorized, "actor identity is required")
	}
	log := im.log.WithFields(map[string]interface{}{"school_id": req.SchoolID, "actor": req.Actor, "file": req.Filename})

	err := im.run(ctx, req, res, log)
	if err != nil {
		res.FailedAt = res.State
		res.State = StateFailed
		log.Error("placement import failed during %s: %v", res.FailedAt, err)
		return res, err
	}
	res.State = StateDone
	log.Info("placement import done: parsed=%d duplicates=%d committed=%d unmapped=%d",
		res.Parsed, res.Duplicates, res.Committed, res.Unmapped)

	im.notify(ctx, req, res, log)
	return res, nil
}

func (im *Importer) run(ctx context.Context, req Request, res *Result, log *logger.Logger) error {
	res.State = StateParsing
	rows, err := Open(req.Filename, req.ContentType, req.Body)
	if err != nil {
		return err
	}
	raw, err := ReadAll(rows)
	if err != nil {
		return err
	}
	res.Parsed = len(raw)

	res.State = StateMapping
	programs, err := im.repo.ListPrograms(ctx, req.SchoolID)
	if err != nil {
		return fmt.Errorf("list programs: %w", err)
	}
	mapper := NewMapper(ProgramNamesOf(programs))
	drafts := make([]models.Student, 0, len(raw))
	for _, row := range raw {
		d := mapper.Map(row)
		d.SchoolID = req.SchoolID
		if d.ProgramRef == nil {
			res.Unmapped++
		}
		drafts = append(drafts, d)
	}
	if res.Unmapped > 0 {
		log.Warn("%d rows reference no known program", res.Unmapped)
	}

	unlock, err := im.locker.Lock(ctx, req.SchoolID)
	if err != nil {
		return fmt.Errorf("lock school: %w", err)
	}
	defer unlock()

	res.State = StateFiltering
	existing, err := im.repo.ExistingIndexNumbers(ctx, req.SchoolID, IndexNumbers(drafts))
	if err != nil {
		return fmt.Errorf("load existing index numbers: %w", err)
	}
	fresh := FilterDuplicates(drafts, existing)
	res.Duplicates = len(drafts) - len(fresh)

	res.State = StateAllocating
	admission, err := im.repo.GetAdmissionConfig(ctx, req.SchoolID)
	if apperrors.IsNotFound(err) {
		return &apperrors.NoAdmissionYearError{SchoolID: req.SchoolID}
	}
	if err != nil {
		return fmt.Errorf("load admission config: %w", err)
	}
	if admission.Year == "" {
		return &apperrors.NoAdmissionYearError{SchoolID: req.SchoolID}
	}
	currentMax, err := im.repo.MaxAdmissionNumber(ctx, req.SchoolID)
	if err != nil {
		return fmt.Errorf("load admission numbers: %w", err)
	}
	numbered := Allocate(fresh, currentMax, admission.Year)

	res.State = StateCommitting
	if err := im.commit(ctx, numbered, res); err != nil {
		return err
	}

	entry := &models.AuditLog{
		ID:             uuid.NewString(),
		SchoolID:       req.SchoolID,
		Action:         models.ActionPlacementImport,
		Count:          res.Committed,
		Actor:          req.Actor,
		NetworkAddress: req.Client.NetworkAddress,
		Platform:       req.Client.Platform,
		Timestamp:      im.clock.Now(),
	}
	if err := im.repo.AppendLog(ctx, entry); err != nil {
		return apperrors.E(apperrors.Internal, "students were committed but the activity log could not be written", err)
	}
	res.Log = entry
	return nil
}

// commit writes numbered drafts in order and stops at the first failure.
func (im *Importer) commit(ctx context.Context, numbered []models.Student, res *Result) error {
	now := im.clock.Now()
	res.Students = make([]models.Student, 0, len(numbered))
	for i := range numbered {
		s := numbered[i]
		s.Completed = false
		s.HasPaid = false
		s.CreatedAt = now
		s.UpdatedAt = now

		err := ctx.Err()
		if err == nil && s.IndexNumber == "" {
			err = apperrors.E(apperrors.Invalid, fmt.Sprintf("row for admission number %d has no index number", s.AdmissionNumber))
		}
		if err == nil {
			err = im.repo.CommitStudent(ctx, &s)
		}
		if err != nil {
			res.Failed = len(numbered) - i
			return &apperrors.PartialCommitError{Committed: res.Committed, Failed: res.Failed, Cause: err}
		}

		res.Committed++
		res.Students = append(res.Students, s)
		if res.FirstAdmissionNumber == 0 {
			res.FirstAdmissionNumber = s.AdmissionNumber
		}
		res.LastAdmissionNumber = s.AdmissionNumber
	}
	return nil
}

func (im *Importer) notify(ctx context.Context, req Request, res *Result, log *logger.Logger) {
	if im.notifier == nil || res.Log == nil {
		return
	}
	summary := Summary{
		LogID:                res.Log.ID,
		SchoolID:             req.SchoolID,
		Actor:                req.Actor,
		Count:                res.Committed,
		Duplicates:           res.Duplicates,
		Unmapped:             res.Unmapped,
		FirstAdmissionNumber: res.FirstAdmissionNumber,
		LastAdmissionNumber:  res.LastAdmissionNumber,
		Timestamp:            res.Log.Timestamp,
	}
	if err := im.notifier.Imported(ctx, summary); err != nil {
		log.Warn("failed to publish import summary: %v", err)
	}
}
