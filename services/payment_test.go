package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"online-admission/config"
	apperrors "online-admission/errors"
	"online-admission/services/kafka"
	"online-admission/utils"
)

type fakeOrders struct {
	calls []map[string]interface{}
	err   error
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, data)
	return map[string]interface{}{"id": fmt.Sprintf("order_%d", len(f.calls))}, nil
}

func sign(payload, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func newPaymentService(f *fixture, orders OrderCreator) *PaymentService {
	cfg := config.Config{RazorpayKeyID: "rzp_test", RazorpayKeySecret: "secret", RazorpayWebhookSecret: "whsec"}
	return NewPaymentService(f.store, cfg).WithOrderCreator(orders)
}

func TestInitiatePaymentCreatesPendingOrder(t *testing.T) {
	captureOutbox(t, true)
	f := newFixture(t)
	orders := &fakeOrders{}
	svc := newPaymentService(f, orders)
	ctx := context.Background()

	order, err := svc.InitiatePayment(ctx, "s1", "GH001")
	require.NoError(t, err)

	assert.Equal(t, "order_1", order.OrderID)
	assert.Equal(t, "rzp_test", order.KeyID)
	assert.Equal(t, 150.5, order.Amount)
	assert.Equal(t, utils.DefaultCurrency, order.Currency)
	require.Len(t, orders.calls, 1)
	assert.Equal(t, int64(15050), orders.calls[0]["amount"])
	assert.Equal(t, "rcpt_s1_GH001", orders.calls[0]["receipt"])

	payment, err := f.store.GetPaymentByOrder(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, utils.PaymentPending, payment.Status)
	assert.Equal(t, "GH001", payment.IndexNumber)
}

func TestInitiatePaymentRejections(t *testing.T) {
	captureOutbox(t, true)
	ctx := context.Background()

	t.Run("already paid", func(t *testing.T) {
		f := newFixture(t)
		f.markPaid(t)
		_, err := newPaymentService(f, &fakeOrders{}).InitiatePayment(ctx, "s1", "GH001")
		assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
	})

	t.Run("unknown student", func(t *testing.T) {
		f := newFixture(t)
		_, err := newPaymentService(f, &fakeOrders{}).InitiatePayment(ctx, "s1", "NOPE")
		assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
	})

	t.Run("no fee", func(t *testing.T) {
		f := newFixture(t)
		cfg, _ := f.store.GetAdmissionConfig(ctx, "s1")
		cfg.PlacementFee = 0
		require.NoError(t, f.store.SaveAdmissionConfig(ctx, cfg))
		_, err := newPaymentService(f, &fakeOrders{}).InitiatePayment(ctx, "s1", "GH001")
		assert.Equal(t, apperrors.FailedPrecondition, apperrors.KindOf(err))
	})

	t.Run("gateway not configured", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewPaymentService(f.store, config.Config{}).InitiatePayment(ctx, "s1", "GH001")
		assert.Equal(t, apperrors.FailedPrecondition, apperrors.KindOf(err))
	})

	t.Run("gateway error", func(t *testing.T) {
		f := newFixture(t)
		_, err := newPaymentService(f, &fakeOrders{err: errors.New("timeout")}).InitiatePayment(ctx, "s1", "GH001")
		assert.Equal(t, apperrors.Internal, apperrors.KindOf(err))
	})
}

func TestVerifyPaymentMarksStudentPaid(t *testing.T) {
	out := captureOutbox(t, true)
	f := newFixture(t)
	svc := newPaymentService(f, &fakeOrders{})
	ctx := context.Background()

	order, err := svc.InitiatePayment(ctx, "s1", "GH001")
	require.NoError(t, err)

	sig := sign(order.OrderID+"|pay_1", "secret")
	payment, err := svc.VerifyPayment(ctx, order.OrderID, "pay_1", sig)
	require.NoError(t, err)
	assert.Equal(t, utils.PaymentPaid, payment.Status)
	assert.Equal(t, "pay_1", payment.PaymentID)

	student, err := f.store.GetStudent(ctx, "s1", "GH001")
	require.NoError(t, err)
	assert.True(t, student.HasPaid)

	// verifying again is harmless
	_, err = svc.VerifyPayment(ctx, order.OrderID, "pay_1", sig)
	require.NoError(t, err)

	events := out.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "admissions.payments", events[0].Topic)
	assert.Equal(t, kafka.EventPaymentCompleted, events[0].Value["event"])
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	captureOutbox(t, true)
	f := newFixture(t)
	svc := newPaymentService(f, &fakeOrders{})
	ctx := context.Background()

	order, err := svc.InitiatePayment(ctx, "s1", "GH001")
	require.NoError(t, err)

	_, err = svc.VerifyPayment(ctx, order.OrderID, "pay_1", sign(order.OrderID+"|pay_1", "wrong"))
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))

	payment, err := f.store.GetPaymentByOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, utils.PaymentFailed, payment.Status)

	student, err := f.store.GetStudent(ctx, "s1", "GH001")
	require.NoError(t, err)
	assert.False(t, student.HasPaid)

	_, err = svc.VerifyPayment(ctx, "", "pay_1", "x")
	assert.Equal(t, apperrors.Invalid, apperrors.KindOf(err))
}

func TestHandleWebhook(t *testing.T) {
	captureOutbox(t, true)
	ctx := context.Background()

	captured := func(orderID string) []byte {
		return []byte(fmt.Sprintf(`{"id":"evt_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":%q,"amount":15050}}}}`, orderID))
	}

	t.Run("captured completes payment", func(t *testing.T) {
		f := newFixture(t)
		svc := newPaymentService(f, &fakeOrders{})
		order, err := svc.InitiatePayment(ctx, "s1", "GH001")
		require.NoError(t, err)

		body := captured(order.OrderID)
		res, err := svc.HandleWebhook(ctx, body, sign(string(body), "whsec"))
		require.NoError(t, err)
		assert.Equal(t, "processed", res.Status)
		assert.Equal(t, "pay_9", res.PaymentID)

		student, err := f.store.GetStudent(ctx, "s1", "GH001")
		require.NoError(t, err)
		assert.True(t, student.HasPaid)
	})

	t.Run("redelivery leaves payment paid", func(t *testing.T) {
		f := newFixture(t)
		svc := newPaymentService(f, &fakeOrders{})
		order, err := svc.InitiatePayment(ctx, "s1", "GH001")
		require.NoError(t, err)

		body := captured(order.OrderID)
		for i := 0; i < 2; i++ {
			_, err := svc.HandleWebhook(ctx, body, sign(string(body), "whsec"))
			require.NoError(t, err)
		}
		late := []byte(fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":%q}}}}`, order.OrderID))
		_, err = svc.HandleWebhook(ctx, late, sign(string(late), "whsec"))
		require.NoError(t, err)

		payment, err := f.store.GetPaymentByOrder(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, utils.PaymentPaid, payment.Status)
		assert.Equal(t, "pay_9", payment.PaymentID)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newFixture(t)
		body := captured("order_1")
		_, err := newPaymentService(f, &fakeOrders{}).HandleWebhook(ctx, body, "deadbeef")
		assert.Equal(t, apperrors.Unauthorized, apperrors.KindOf(err))
	})

	t.Run("failed payment", func(t *testing.T) {
		f := newFixture(t)
		svc := newPaymentService(f, &fakeOrders{})
		order, err := svc.InitiatePayment(ctx, "s1", "GH001")
		require.NoError(t, err)

		body := []byte(fmt.Sprintf(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":%q}}}}`, order.OrderID))
		_, err = svc.HandleWebhook(ctx, body, sign(string(body), "whsec"))
		require.NoError(t, err)

		payment, err := f.store.GetPaymentByOrder(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Equal(t, utils.PaymentFailed, payment.Status)
	})

	t.Run("other events acknowledged", func(t *testing.T) {
		f := newFixture(t)
		body := []byte(`{"event":"refund.created","payload":{}}`)
		res, err := newPaymentService(f, &fakeOrders{}).HandleWebhook(ctx, body, sign(string(body), "whsec"))
		require.NoError(t, err)
		assert.Equal(t, "acknowledged", res.Status)
	})
}

func TestVerifySignature(t *testing.T) {
	assert.True(t, VerifySignature("o|p", sign("o|p", "k"), "k"))
	assert.False(t, VerifySignature("o|p", sign("o|p", "k"), ""))
	assert.False(t, VerifySignature("o|p", "", "k"))
	assert.False(t, VerifySignature("o|q", sign("o|p", "k"), "k"))
}
