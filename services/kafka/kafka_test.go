package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"online-admission/config"
	apperrors "online-admission/errors"
)

func useMemoryDLQ(t *testing.T) *MemoryDLQ {
	t.Helper()
	config.AppConfig = config.Config{}
	store := NewMemoryDLQ()
	SetDLQStore(store)
	t.Cleanup(func() { SetDLQStore(NewMemoryDLQ()) })
	return store
}

func TestHandleMessageDispatchesByEvent(t *testing.T) {
	store := useMemoryDLQ(t)

	var got map[string]interface{}
	RegisterProcessor("test.dispatch", func(_ context.Context, event map[string]interface{}) error {
		got = event
		return nil
	})

	ok := HandleMessage(context.Background(), kafka.Message{
		Topic: "admissions.emails",
		Value: []byte(`{"event":"test.dispatch","recipient":"a@b.c"}`),
	})

	assert.True(t, ok)
	assert.Equal(t, "a@b.c", got["recipient"])
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestHandleMessageSendsFailuresToDLQ(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"invalid json", `{not json`, "failed to unmarshal JSON"},
		{"missing event", `{"recipient":"x"}`, "valid event type"},
		{"unknown event", `{"event":"test.nobody"}`, "unknown event type"},
		{"handler error", `{"event":"test.failing"}`, "handler error for test.failing"},
	}

	RegisterProcessor("test.failing", func(context.Context, map[string]interface{}) error {
		return errors.New("smtp down")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := useMemoryDLQ(t)

			ok := HandleMessage(context.Background(), kafka.Message{
				Topic: "admissions.emails",
				Key:   []byte("k1"),
				Value: []byte(tt.value),
			})
			assert.False(t, ok)

			msgs, err := store.Unresolved(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, "admissions.emails", msgs[0].Topic)
			assert.Equal(t, "k1", msgs[0].Key)
			assert.Equal(t, tt.value, msgs[0].Value)
			assert.Contains(t, msgs[0].ErrorMessage, tt.wantErr)
		})
	}
}

func TestRetryDLQMessageResolvesOnSuccess(t *testing.T) {
	useMemoryDLQ(t)
	ctx := context.Background()

	fail := true
	RegisterProcessor("test.flaky", func(context.Context, map[string]interface{}) error {
		if fail {
			return errors.New("temporary")
		}
		return nil
	})

	require.False(t, HandleMessage(ctx, kafka.Message{Topic: "t", Value: []byte(`{"event":"test.flaky"}`)}))
	msgs, err := GetDLQMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	id := msgs[0].MessageID

	ok, err := RetryDLQMessage(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	fail = false
	ok, err = RetryDLQMessage(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := currentDLQStore().Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)
	assert.Equal(t, 2, stored.RetryCount)
	assert.NotNil(t, stored.LastRetryAt)

	stats, err := GetDLQStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DLQStats{Total: 1, Resolved: 1}, stats)
}

func TestResolveDLQMessage(t *testing.T) {
	useMemoryDLQ(t)
	ctx := context.Background()

	require.NoError(t, StoreDLQMessage(ctx, "t", "k", []byte(`{}`), "boom"))
	msgs, err := GetDLQMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, ResolveDLQMessage(ctx, msgs[0].MessageID, "handled manually"))
	msgs, err = GetDLQMessages(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	err = ResolveDLQMessage(ctx, "missing", "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemoryDLQUnresolvedOldestFirst(t *testing.T) {
	store := NewMemoryDLQ()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, DLQMessage{MessageID: "b", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Save(ctx, DLQMessage{MessageID: "a", CreatedAt: base}))
	require.NoError(t, store.Save(ctx, DLQMessage{MessageID: "c", CreatedAt: base.Add(2 * time.Minute)}))

	msgs, err := store.Unresolved(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].MessageID)
	assert.Equal(t, "b", msgs[1].MessageID)
}

func TestAutoRetrySkipsExhaustedMessages(t *testing.T) {
	store := useMemoryDLQ(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	RegisterProcessor("test.recovered", func(context.Context, map[string]interface{}) error { return nil })
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Save(ctx, DLQMessage{
			MessageID:  fmt.Sprintf("spent-%d", i),
			Value:      `{"event":"test.recovered"}`,
			RetryCount: defaultMaxRetries,
			MaxRetries: defaultMaxRetries,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Save(ctx, DLQMessage{
		MessageID:  "fresh",
		Value:      `{"event":"test.recovered"}`,
		MaxRetries: defaultMaxRetries,
		CreatedAt:  base.Add(time.Hour),
	}))

	retryable, err := store.Retryable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, "fresh", retryable[0].MessageID)

	retryUnresolvedDLQMessages(ctx)

	fresh, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, fresh.Resolved)
	assert.Equal(t, 1, fresh.RetryCount)

	spent, err := store.Get(ctx, "spent-0")
	require.NoError(t, err)
	assert.False(t, spent.Resolved)
	assert.Equal(t, defaultMaxRetries, spent.RetryCount)
}

func TestPublishDisabledIsNoop(t *testing.T) {
	useMemoryDLQ(t)
	assert.False(t, Enabled())
	assert.NoError(t, Publish("admissions.placements", "s1", map[string]string{"event": EventPlacementImported}))
	assert.False(t, IsConnected())
}
