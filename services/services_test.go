package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"online-admission/config"
	"online-admission/models"
	"online-admission/repository"
	"online-admission/services/placement"
	"online-admission/services/storage"
	"online-admission/utils"
)

type published struct {
	Topic string
	Key   string
	Value map[string]interface{}
}

// outbox captures published events and sent emails.
type outbox struct {
	mu     sync.Mutex
	events []published
	emails []Email
}

func (o *outbox) Events() []published {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]published(nil), o.events...)
}

func (o *outbox) Emails() []Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Email(nil), o.emails...)
}

func captureOutbox(t *testing.T, kafkaOn bool) *outbox {
	t.Helper()
	o := &outbox{}
	prevPublish, prevEnabled, prevSend := publishEvent, kafkaEnabled, sendDirect
	prevCfg := config.AppConfig

	config.AppConfig.KafkaTopicImports = "admissions.placements"
	config.AppConfig.KafkaTopicEmails = "admissions.emails"
	config.AppConfig.KafkaTopicPayment = "admissions.payments"
	publishEvent = func(topic, key string, value interface{}) error {
		o.mu.Lock()
		defer o.mu.Unlock()
		v, _ := value.(map[string]interface{})
		o.events = append(o.events, published{Topic: topic, Key: key, Value: v})
		return nil
	}
	kafkaEnabled = func() bool { return kafkaOn }
	sendDirect = func(e Email) error {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.emails = append(o.emails, e)
		return nil
	}
	t.Cleanup(func() {
		publishEvent, kafkaEnabled, sendDirect = prevPublish, prevEnabled, prevSend
		config.AppConfig = prevCfg
	})
	return o
}

var fixedNow = time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store   *repository.Memory
	storage *storage.Local
	clock   placement.Clock
}

// newFixture seeds school s1 with an admission cycle, a program and one
// placed student GH001.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	f := &fixture{
		store:   repository.NewMemory(),
		storage: st,
		clock:   placement.ClockFunc(func() time.Time { return fixedNow }),
	}

	require.NoError(t, f.store.CreateSchool(ctx, &models.School{SchoolID: "s1", Name: "Mfantsipim School", Location: "Cape Coast"}))
	require.NoError(t, f.store.SaveAdmissionConfig(ctx, &models.AdmissionConfig{
		SchoolID: "s1", Year: "2026", PlacementFee: 150.5, Currency: utils.DefaultCurrency, Open: true,
	}))
	require.NoError(t, f.store.CreateProgram(ctx, &models.Program{SchoolID: "s1", ProgramID: "SCI", Name: "General Science"}))
	require.NoError(t, f.store.CommitStudent(ctx, &models.Student{
		SchoolID: "s1", IndexNumber: "GH001", AdmissionNumber: 1, Year: "2026",
		FirstName: "Ama", LastName: "Mensah", Gender: "Female", Status: utils.StatusBoarding,
		ProgramRef: utils.StringPtr("SCI"),
	}))
	return f
}

// markPaid completes a payment for GH001 directly in the store.
func (f *fixture) markPaid(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SavePayment(ctx, &models.Payment{
		ID: "p0", SchoolID: "s1", IndexNumber: "GH001", OrderID: "order_seed", Status: utils.PaymentPending,
	}))
	_, err := f.store.CompletePayment(ctx, "order_seed", "pay_seed")
	require.NoError(t, err)
}
