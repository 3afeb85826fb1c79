package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "online-admission/errors"
	"online-admission/models"
	"online-admission/utils"
)

// Memory is a Store kept in process memory.
type Memory struct {
	mu         sync.RWMutex
	schools    map[string]models.School
	admissions map[string]models.AdmissionConfig
	programs   map[string]map[string]*models.Program
	students   map[string]map[string]*models.Student
	payments   map[string]*models.Payment
	logs       []models.AuditLog

	commitCalls int
	failCommit  int
	failErr     error
	failLog     error
}

func NewMemory() *Memory {
	return &Memory{
		schools:    make(map[string]models.School),
		admissions: make(map[string]models.AdmissionConfig),
		programs:   make(map[string]map[string]*models.Program),
		students:   make(map[string]map[string]*models.Student),
		payments:   make(map[string]*models.Payment),
	}
}

// FailCommitOn makes the nth following CommitStudent call return err.
func (m *Memory) FailCommitOn(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitCalls = 0
	m.failCommit = n
	m.failErr = err
}

// FailAppendLog makes every AppendLog call return err until reset with nil.
func (m *Memory) FailAppendLog(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLog = err
}

func (m *Memory) CreateSchool(_ context.Context, school *models.School) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schools[school.SchoolID]; ok {
		return apperrors.E(apperrors.Conflict, fmt.Sprintf("school %s already exists", school.SchoolID))
	}
	if school.CreatedAt.IsZero() {
		school.CreatedAt = time.Now()
	}
	m.schools[school.SchoolID] = *school
	return nil
}

func (m *Memory) GetSchool(_ context.Context, schoolID string) (*models.School, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schools[schoolID]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "school not found")
	}
	return &s, nil
}

func (m *Memory) SaveAdmissionConfig(_ context.Context, cfg *models.AdmissionConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admissions[cfg.SchoolID] = *cfg
	return nil
}

func (m *Memory) GetAdmissionConfig(_ context.Context, schoolID string) (*models.AdmissionConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.admissions[schoolID]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "admission not configured")
	}
	return &cfg, nil
}

func (m *Memory) CreateProgram(_ context.Context, program *models.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.programs[program.SchoolID]
	if !ok {
		table = make(map[string]*models.Program)
		m.programs[program.SchoolID] = table
	}
	if _, ok := table[program.ProgramID]; ok {
		return apperrors.E(apperrors.Conflict, fmt.Sprintf("program %s already exists", program.ProgramID))
	}
	p := *program
	table[p.ProgramID] = &p
	return nil
}

func (m *Memory) ListPrograms(_ context.Context, schoolID string) ([]models.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Program, 0, len(m.programs[schoolID]))
	for _, p := range m.programs[schoolID] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProgramID < out[j].ProgramID })
	return out, nil
}

func (m *Memory) ExistingIndexNumbers(_ context.Context, schoolID string, candidates []string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	existing := make(map[string]struct{})
	table := m.students[schoolID]
	for _, c := range candidates {
		if _, ok := table[c]; ok {
			existing[c] = struct{}{}
		}
	}
	return existing, nil
}

func (m *Memory) MaxAdmissionNumber(_ context.Context, schoolID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	highest := 0
	for _, s := range m.students[schoolID] {
		if s.AdmissionNumber > highest {
			highest = s.AdmissionNumber
		}
	}
	return highest, nil
}

// CommitStudent applies the insert and the program increment under one lock.
func (m *Memory) CommitStudent(_ context.Context, s *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commitCalls++
	if m.failCommit > 0 && m.commitCalls == m.failCommit {
		return m.failErr
	}

	table, ok := m.students[s.SchoolID]
	if !ok {
		table = make(map[string]*models.Student)
		m.students[s.SchoolID] = table
	}
	if _, dup := table[s.IndexNumber]; dup {
		return apperrors.E(apperrors.Conflict, fmt.Sprintf("student %s already exists", s.IndexNumber))
	}
	for _, other := range table {
		if other.AdmissionNumber == s.AdmissionNumber {
			return apperrors.E(apperrors.Conflict, fmt.Sprintf("admission number %d already taken", s.AdmissionNumber))
		}
	}

	var program *models.Program
	if s.ProgramRef != nil {
		program, ok = m.programs[s.SchoolID][*s.ProgramRef]
		if !ok {
			return apperrors.E(apperrors.NotFound, fmt.Sprintf("program %s not found", *s.ProgramRef))
		}
	}

	stored := *s
	table[stored.IndexNumber] = &stored
	if program != nil {
		program.EnrolledCount++
	}
	return nil
}

func (m *Memory) GetStudent(_ context.Context, schoolID, indexNumber string) (*models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[schoolID][indexNumber]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "student not found")
	}
	out := *s
	return &out, nil
}

func (m *Memory) ListStudents(_ context.Context, f models.StudentFilter) ([]models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var out []models.Student
	for _, s := range m.students[f.SchoolID] {
		if f.ProgramID != "" && s.Program() != f.ProgramID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Completed != nil && s.Completed != *f.Completed {
			continue
		}
		if f.HasPaid != nil && s.HasPaid != *f.HasPaid {
			continue
		}
		if search != "" && !matchesSearch(s, search) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdmissionNumber < out[j].AdmissionNumber })

	if f.Offset >= len(out) {
		return []models.Student{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesSearch(s *models.Student, q string) bool {
	return strings.Contains(strings.ToLower(s.IndexNumber), q) ||
		strings.Contains(strings.ToLower(s.FirstName), q) ||
		strings.Contains(strings.ToLower(s.LastName), q)
}

func (m *Memory) UpdateStudentProfile(_ context.Context, p models.StudentProfile) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[p.SchoolID][p.IndexNumber]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "student not found")
	}
	s.Email = p.Email
	s.GuardianName = p.GuardianName
	s.GuardianContact = p.GuardianContact
	s.Address = p.Address
	s.House = p.House
	s.Completed = true
	s.UpdatedAt = time.Now()
	out := *s
	return &out, nil
}

func (m *Memory) SavePayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.OrderID]; ok {
		return apperrors.E(apperrors.Conflict, "payment order already recorded")
	}
	stored := *p
	m.payments[p.OrderID] = &stored
	return nil
}

func (m *Memory) GetPaymentByOrder(_ context.Context, orderID string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "payment not found")
	}
	out := *p
	return &out, nil
}

func (m *Memory) UpdatePaymentStatus(_ context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return apperrors.E(apperrors.NotFound, "payment not found")
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) CompletePayment(_ context.Context, orderID, paymentID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "payment not found")
	}
	s, ok := m.students[p.SchoolID][p.IndexNumber]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "student not found")
	}
	if p.Status != utils.PaymentPaid {
		p.Status = utils.PaymentPaid
		p.PaymentID = paymentID
		p.UpdatedAt = time.Now()
	}
	s.HasPaid = true
	out := *p
	return &out, nil
}

func (m *Memory) AppendLog(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLog != nil {
		return m.failLog
	}
	m.logs = append(m.logs, *entry)
	return nil
}

// ListLogs returns the newest entries first.
func (m *Memory) ListLogs(_ context.Context, schoolID string, limit int) ([]models.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit = logLimit(limit)
	out := make([]models.AuditLog, 0)
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].SchoolID == schoolID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
