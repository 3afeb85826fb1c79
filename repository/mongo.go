package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"online-admission/db"
	apperrors "online-admission/errors"
	"online-admission/models"
	"online-admission/utils"
)

// Mongo is a Store backed by a MongoDB database. With transactions enabled
// (replica set deployments) student creation and the program increment run
// in one session transaction.
type Mongo struct {
	client       *mongo.Client
	schools      *mongo.Collection
	admissions   *mongo.Collection
	programs     *mongo.Collection
	students     *mongo.Collection
	logs         *mongo.Collection
	payments     *mongo.Collection
	transactions bool
}

func NewMongo(client *mongo.Client, database *mongo.Database, transactions bool) *Mongo {
	return &Mongo{
		client:       client,
		schools:      database.Collection(db.CollSchools),
		admissions:   database.Collection(db.CollAdmissions),
		programs:     database.Collection(db.CollPrograms),
		students:     database.Collection(db.CollStudents),
		logs:         database.Collection(db.CollLogs),
		payments:     database.Collection(db.CollPayments),
		transactions: transactions,
	}
}

func translateMongo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.E(apperrors.NotFound, what+" not found")
	case mongo.IsDuplicateKeyError(err):
		return apperrors.E(apperrors.Conflict, what+" already exists", err)
	}
	return err
}

func (m *Mongo) CreateSchool(ctx context.Context, s *models.School) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := m.schools.InsertOne(ctx, s)
	return translateMongo(err, "school")
}

func (m *Mongo) GetSchool(ctx context.Context, schoolID string) (*models.School, error) {
	var s models.School
	if err := m.schools.FindOne(ctx, bson.M{"school_id": schoolID}).Decode(&s); err != nil {
		return nil, translateMongo(err, "school")
	}
	return &s, nil
}

func (m *Mongo) SaveAdmissionConfig(ctx context.Context, c *models.AdmissionConfig) error {
	_, err := m.admissions.ReplaceOne(ctx, bson.M{"school_id": c.SchoolID}, c, options.Replace().SetUpsert(true))
	return translateMongo(err, "admission")
}

func (m *Mongo) GetAdmissionConfig(ctx context.Context, schoolID string) (*models.AdmissionConfig, error) {
	var c models.AdmissionConfig
	if err := m.admissions.FindOne(ctx, bson.M{"school_id": schoolID}).Decode(&c); err != nil {
		return nil, translateMongo(err, "admission")
	}
	return &c, nil
}

func (m *Mongo) CreateProgram(ctx context.Context, p *models.Program) error {
	doc := *p
	doc.EnrolledCount = 0
	_, err := m.programs.InsertOne(ctx, doc)
	return translateMongo(err, "program")
}

func (m *Mongo) ListPrograms(ctx context.Context, schoolID string) ([]models.Program, error) {
	cursor, err := m.programs.Find(ctx, bson.M{"school_id": schoolID}, options.Find().SetSort(bson.D{{Key: "program_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	programs := []models.Program{}
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

func (m *Mongo) ExistingIndexNumbers(ctx context.Context, schoolID string, candidates []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(candidates) == 0 {
		return existing, nil
	}
	cursor, err := m.students.Find(ctx,
		bson.M{"school_id": schoolID, "index_number": bson.M{"$in": candidates}},
		options.Find().SetProjection(bson.M{"index_number": 1, "_id": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var doc struct {
			IndexNumber string `bson:"index_number"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		existing[doc.IndexNumber] = struct{}{}
	}
	return existing, cursor.Err()
}

func (m *Mongo) MaxAdmissionNumber(ctx context.Context, schoolID string) (int, error) {
	var doc struct {
		AdmissionNumber int `bson:"admission_number"`
	}
	err := m.students.FindOne(ctx, bson.M{"school_id": schoolID},
		options.FindOne().SetSort(bson.D{{Key: "admission_number", Value: -1}}).SetProjection(bson.M{"admission_number": 1})).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.AdmissionNumber, nil
}

func (m *Mongo) CommitStudent(ctx context.Context, s *models.Student) error {
	if !m.transactions {
		return m.commitStudent(ctx, s)
	}
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, m.commitStudent(sc, s)
	})
	return err
}

func (m *Mongo) commitStudent(ctx context.Context, s *models.Student) error {
	if _, err := m.students.InsertOne(ctx, s); err != nil {
		return translateMongo(err, "student "+s.IndexNumber)
	}
	if s.ProgramRef == nil {
		return nil
	}
	result, err := m.programs.UpdateOne(ctx,
		bson.M{"school_id": s.SchoolID, "program_id": *s.ProgramRef},
		bson.M{"$inc": bson.M{"enrolled_count": 1}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.E(apperrors.NotFound, fmt.Sprintf("program %s not found", *s.ProgramRef))
	}
	return nil
}

func (m *Mongo) GetStudent(ctx context.Context, schoolID, indexNumber string) (*models.Student, error) {
	var s models.Student
	err := m.students.FindOne(ctx, bson.M{"school_id": schoolID, "index_number": indexNumber}).Decode(&s)
	if err != nil {
		return nil, translateMongo(err, "student")
	}
	return &s, nil
}

func (m *Mongo) ListStudents(ctx context.Context, f models.StudentFilter) ([]models.Student, error) {
	filter := bson.M{"school_id": f.SchoolID}
	if f.ProgramID != "" {
		filter["program_id"] = f.ProgramID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Completed != nil {
		filter["completed"] = *f.Completed
	}
	if f.HasPaid != nil {
		filter["has_paid"] = *f.HasPaid
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"index_number": pattern},
			bson.M{"first_name": pattern},
			bson.M{"last_name": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "admission_number", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	cursor, err := m.students.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	students := []models.Student{}
	if err := cursor.All(ctx, &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (m *Mongo) UpdateStudentProfile(ctx context.Context, p models.StudentProfile) (*models.Student, error) {
	var s models.Student
	err := m.students.FindOneAndUpdate(ctx,
		bson.M{"school_id": p.SchoolID, "index_number": p.IndexNumber},
		bson.M{"$set": bson.M{
			"email":               p.Email,
			"guardian_name":       p.GuardianName,
			"guardian_contact":    p.GuardianContact,
			"residential_address": p.Address,
			"house":               p.House,
			"completed":           true,
			"updated_at":          time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&s)
	if err != nil {
		return nil, translateMongo(err, "student")
	}
	return &s, nil
}

func (m *Mongo) SavePayment(ctx context.Context, p *models.Payment) error {
	_, err := m.payments.InsertOne(ctx, p)
	return translateMongo(err, "payment")
}

func (m *Mongo) GetPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := m.payments.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&p); err != nil {
		return nil, translateMongo(err, "payment")
	}
	return &p, nil
}

func (m *Mongo) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	result, err := m.payments.UpdateOne(ctx, bson.M{"order_id": orderID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.E(apperrors.NotFound, "payment not found")
	}
	return nil
}

func (m *Mongo) CompletePayment(ctx context.Context, orderID, paymentID string) (*models.Payment, error) {
	var p models.Payment
	err := m.payments.FindOneAndUpdate(ctx,
		bson.M{"order_id": orderID, "status": bson.M{"$ne": utils.PaymentPaid}},
		bson.M{"$set": bson.M{"status": utils.PaymentPaid, "payment_id": paymentID, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// already paid or unknown order
		existing, gerr := m.GetPaymentByOrder(ctx, orderID)
		if gerr != nil {
			return nil, gerr
		}
		p = *existing
		err = nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := m.students.UpdateOne(ctx,
		bson.M{"school_id": p.SchoolID, "index_number": p.IndexNumber},
		bson.M{"$set": bson.M{"has_paid": true, "updated_at": time.Now()}}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *Mongo) AppendLog(ctx context.Context, e *models.AuditLog) error {
	_, err := m.logs.InsertOne(ctx, e)
	return translateMongo(err, "activity log")
}

func (m *Mongo) ListLogs(ctx context.Context, schoolID string, limit int) ([]models.AuditLog, error) {
	cursor, err := m.logs.Find(ctx, bson.M{"school_id": schoolID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(logLimit(limit))))
	if err != nil {
		return nil, err
	}
	logs := []models.AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
