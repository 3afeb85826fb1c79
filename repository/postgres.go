package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	apperrors "online-admission/errors"
	"online-admission/models"
	"online-admission/utils"
)

// Postgres is a Store backed by database/sql and lib/pq.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const studentColumns = `school_id, index_number, admission_number, year, first_name, last_name, gender,
	status, program_id, aggregate, jhs_attended, date_of_birth, sms_contact, completed, has_paid,
	email, guardian_name, guardian_contact, residential_address, house, created_at, updated_at`

// translate maps driver errors onto application error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.E(apperrors.NotFound, what+" not found")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return apperrors.E(apperrors.Conflict, what+" already exists", err)
		case "23503":
			return apperrors.E(apperrors.NotFound, "referenced record for "+what+" not found", err)
		}
	}
	return err
}

func (p *Postgres) CreateSchool(ctx context.Context, s *models.School) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO schools (school_id, name, short_name, location, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.SchoolID, s.Name, s.ShortName, s.Location, s.Email, s.Phone, s.CreatedAt)
	return translate(err, "school")
}

func (p *Postgres) GetSchool(ctx context.Context, schoolID string) (*models.School, error) {
	var s models.School
	var shortName, location, email, phone sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT school_id, name, short_name, location, email, phone, created_at
		FROM schools WHERE school_id = $1`, schoolID).
		Scan(&s.SchoolID, &s.Name, &shortName, &location, &email, &phone, &s.CreatedAt)
	if err != nil {
		return nil, translate(err, "school")
	}
	s.ShortName, s.Location, s.Email, s.Phone = shortName.String, location.String, email.String, phone.String
	return &s, nil
}

func (p *Postgres) SaveAdmissionConfig(ctx context.Context, c *models.AdmissionConfig) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO admissions (school_id, year, placement_fee, currency, open, prospectus_key, undertaking_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (school_id) DO UPDATE SET
			year = EXCLUDED.year,
			placement_fee = EXCLUDED.placement_fee,
			currency = EXCLUDED.currency,
			open = EXCLUDED.open,
			prospectus_key = EXCLUDED.prospectus_key,
			undertaking_key = EXCLUDED.undertaking_key`,
		c.SchoolID, c.Year, c.PlacementFee, c.Currency, c.Open, c.ProspectusKey, c.UndertakingKey)
	return translate(err, "admission")
}

func (p *Postgres) GetAdmissionConfig(ctx context.Context, schoolID string) (*models.AdmissionConfig, error) {
	var c models.AdmissionConfig
	var currency, prospectus, undertaking sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT school_id, year, placement_fee, currency, open, prospectus_key, undertaking_key
		FROM admissions WHERE school_id = $1`, schoolID).
		Scan(&c.SchoolID, &c.Year, &c.PlacementFee, &currency, &c.Open, &prospectus, &undertaking)
	if err != nil {
		return nil, translate(err, "admission")
	}
	c.Currency, c.ProspectusKey, c.UndertakingKey = currency.String, prospectus.String, undertaking.String
	return &c, nil
}

func (p *Postgres) CreateProgram(ctx context.Context, prog *models.Program) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO programs (school_id, program_id, name, short_name, enrolled_count)
		VALUES ($1, $2, $3, $4, 0)`,
		prog.SchoolID, prog.ProgramID, prog.Name, prog.ShortName)
	return translate(err, "program")
}

func (p *Postgres) ListPrograms(ctx context.Context, schoolID string) ([]models.Program, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT school_id, program_id, name, COALESCE(short_name, ''), enrolled_count
		FROM programs WHERE school_id = $1 ORDER BY program_id`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	programs := []models.Program{}
	for rows.Next() {
		var prog models.Program
		if err := rows.Scan(&prog.SchoolID, &prog.ProgramID, &prog.Name, &prog.ShortName, &prog.EnrolledCount); err != nil {
			return nil, err
		}
		programs = append(programs, prog)
	}
	return programs, rows.Err()
}

func (p *Postgres) ExistingIndexNumbers(ctx context.Context, schoolID string, candidates []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(candidates) == 0 {
		return existing, nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT index_number FROM students WHERE school_id = $1 AND index_number = ANY($2)`,
		schoolID, pq.Array(candidates))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var idx string
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		existing[idx] = struct{}{}
	}
	return existing, rows.Err()
}

func (p *Postgres) MaxAdmissionNumber(ctx context.Context, schoolID string) (int, error) {
	var highest int
	err := p.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(admission_number), 0) FROM students WHERE school_id = $1`, schoolID).Scan(&highest)
	return highest, err
}

// CommitStudent inserts the student and bumps the program's enrolled count
// in one transaction.
func (p *Postgres) CommitStudent(ctx context.Context, s *models.Student) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		s.SchoolID, s.IndexNumber, s.AdmissionNumber, s.Year, s.FirstName, s.LastName, s.Gender,
		s.Status, s.ProgramRef, s.Aggregate, s.JHSAttended, s.DateOfBirth, s.SMSContact, s.Completed, s.HasPaid,
		s.Email, s.GuardianName, s.GuardianContact, s.Address, s.House, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return translate(err, "student "+s.IndexNumber)
	}

	if s.ProgramRef != nil {
		result, err := tx.ExecContext(ctx,
			`UPDATE programs SET enrolled_count = enrolled_count + 1 WHERE school_id = $1 AND program_id = $2`,
			s.SchoolID, *s.ProgramRef)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return apperrors.E(apperrors.NotFound, fmt.Sprintf("program %s not found", *s.ProgramRef))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit student %s: %w", s.IndexNumber, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStudent(row rowScanner) (*models.Student, error) {
	var s models.Student
	var year, first, last, gender, status, jhs, dob, sms sql.NullString
	var email, guardian, guardianContact, address, house sql.NullString
	var program sql.NullString
	var aggregate sql.NullFloat64
	err := row.Scan(&s.SchoolID, &s.IndexNumber, &s.AdmissionNumber, &year, &first, &last, &gender,
		&status, &program, &aggregate, &jhs, &dob, &sms, &s.Completed, &s.HasPaid,
		&email, &guardian, &guardianContact, &address, &house, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Year, s.FirstName, s.LastName, s.Gender = year.String, first.String, last.String, gender.String
	s.Status, s.JHSAttended, s.DateOfBirth, s.SMSContact = status.String, jhs.String, dob.String, sms.String
	s.Email, s.GuardianName, s.GuardianContact = email.String, guardian.String, guardianContact.String
	s.Address, s.House = address.String, house.String
	if program.Valid {
		s.ProgramRef = utils.StringPtr(program.String)
	}
	if aggregate.Valid {
		v := aggregate.Float64
		s.Aggregate = &v
	}
	return &s, nil
}

func (p *Postgres) GetStudent(ctx context.Context, schoolID, indexNumber string) (*models.Student, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE school_id = $1 AND index_number = $2`,
		schoolID, indexNumber)
	s, err := scanStudent(row)
	if err != nil {
		return nil, translate(err, "student")
	}
	return s, nil
}

func (p *Postgres) ListStudents(ctx context.Context, f models.StudentFilter) ([]models.Student, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{f.SchoolID}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProgramID != "" {
		add("program_id = $%d", f.ProgramID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Completed != nil {
		add("completed = $%d", *f.Completed)
	}
	if f.HasPaid != nil {
		add("has_paid = $%d", *f.HasPaid)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(index_number ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY admission_number`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

func (p *Postgres) UpdateStudentProfile(ctx context.Context, pr models.StudentProfile) (*models.Student, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE students SET email = $3, guardian_name = $4, guardian_contact = $5,
			residential_address = $6, house = $7, completed = TRUE, updated_at = NOW()
		WHERE school_id = $1 AND index_number = $2
		RETURNING `+studentColumns,
		pr.SchoolID, pr.IndexNumber, pr.Email, pr.GuardianName, pr.GuardianContact, pr.Address, pr.House)
	s, err := scanStudent(row)
	if err != nil {
		return nil, translate(err, "student")
	}
	return s, nil
}

func (p *Postgres) SavePayment(ctx context.Context, pay *models.Payment) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO payments (id, school_id, index_number, order_id, payment_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pay.ID, pay.SchoolID, pay.IndexNumber, pay.OrderID, pay.PaymentID, pay.Amount, pay.Currency,
		pay.Status, pay.CreatedAt, pay.UpdatedAt)
	return translate(err, "payment")
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var pay models.Payment
	var paymentID, currency sql.NullString
	err := row.Scan(&pay.ID, &pay.SchoolID, &pay.IndexNumber, &pay.OrderID, &paymentID, &pay.Amount,
		&currency, &pay.Status, &pay.CreatedAt, &pay.UpdatedAt)
	if err != nil {
		return nil, err
	}
	pay.PaymentID, pay.Currency = paymentID.String, currency.String
	return &pay, nil
}

const paymentColumns = `id, school_id, index_number, order_id, payment_id, amount, currency, status, created_at, updated_at`

func (p *Postgres) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	pay, err := scanPayment(p.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, translate(err, "payment")
	}
	return pay, nil
}

func (p *Postgres) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	result, err := p.db.ExecContext(ctx,
		`UPDATE payments SET status = $2, updated_at = NOW() WHERE order_id = $1`, orderID, status)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperrors.E(apperrors.NotFound, "payment not found")
	}
	return err
}

func (p *Postgres) CompletePayment(ctx context.Context, orderID, paymentID string) (*models.Payment, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pay, err := scanPayment(tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, translate(err, "payment")
	}
	if pay.Status != utils.PaymentPaid {
		pay, err = scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET status = $2, payment_id = $3, updated_at = NOW()
			WHERE order_id = $1 RETURNING `+paymentColumns,
			orderID, utils.PaymentPaid, paymentID))
		if err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET has_paid = TRUE, updated_at = NOW() WHERE school_id = $1 AND index_number = $2`,
		pay.SchoolID, pay.IndexNumber); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment %s: %w", orderID, err)
	}
	return pay, nil
}

func (p *Postgres) AppendLog(ctx context.Context, e *models.AuditLog) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, school_id, action, count, actor, network_address, platform, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.SchoolID, e.Action, e.Count, e.Actor, e.NetworkAddress, e.Platform, e.Timestamp)
	return translate(err, "activity log")
}

func (p *Postgres) ListLogs(ctx context.Context, schoolID string, limit int) ([]models.AuditLog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, school_id, action, count, COALESCE(actor, ''), COALESCE(network_address, ''),
			COALESCE(platform, ''), timestamp
		FROM activity_logs WHERE school_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		schoolID, logLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.SchoolID, &e.Action, &e.Count, &e.Actor, &e.NetworkAddress, &e.Platform, &e.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
