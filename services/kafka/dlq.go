package kafka

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"online-admission/config"
	apperrors "online-admission/errors"
	"online-admission/logger"
)

const defaultMaxRetries = 5

// DLQMessage is a message that could not be published or processed.
type DLQMessage struct {
	MessageID    string     `json:"message_id"`
	Topic        string     `json:"topic"`
	Key          string     `json:"key"`
	Value        string     `json:"value"`
	ErrorMessage string     `json:"error_message"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	Resolved     bool       `json:"resolved"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastRetryAt  *time.Time `json:"last_retry_at,omitempty"`
}

type DLQStats struct {
	Total      int `json:"total_dlq_messages"`
	Unresolved int `json:"unresolved_messages"`
	Resolved   int `json:"resolved_messages"`
}

// DLQStore persists dead letters for inspection and retry.
type DLQStore interface {
	Save(ctx context.Context, m DLQMessage) error
	// Unresolved returns up to limit unresolved messages, oldest first.
	Unresolved(ctx context.Context, limit int) ([]DLQMessage, error)
	// Retryable is Unresolved restricted to messages under their retry budget.
	Retryable(ctx context.Context, limit int) ([]DLQMessage, error)
	Get(ctx context.Context, messageID string) (*DLQMessage, error)
	// RecordRetry bumps the retry count and resolves the message on success.
	RecordRetry(ctx context.Context, messageID string, succeeded bool) error
	Resolve(ctx context.Context, messageID, notes string) error
	Stats(ctx context.Context) (DLQStats, error)
}

var (
	dlqProducer    *kafka.Writer
	dlqMutex       sync.Mutex
	dlqStore       DLQStore = NewMemoryDLQ()
	dlqRetryTicker *time.Ticker
	stopDLQRetry   chan struct{}
)

// SetDLQStore replaces the dead letter store.
func SetDLQStore(s DLQStore) {
	dlqMutex.Lock()
	defer dlqMutex.Unlock()
	dlqStore = s
}

func currentDLQStore() DLQStore {
	dlqMutex.Lock()
	defer dlqMutex.Unlock()
	return dlqStore
}

// InitDLQProducer initializes a Kafka writer for the DLQ topic
func InitDLQProducer() {
	dlqMutex.Lock()
	defer dlqMutex.Unlock()
	initDLQProducerLocked()
}

func initDLQProducerLocked() {
	brokers := config.AppConfig.KafkaBrokerList()
	if len(brokers) == 0 || config.AppConfig.KafkaDLQTopic == "" {
		return
	}
	dlqProducer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        config.AppConfig.KafkaDLQTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	logger.Info("Kafka DLQ producer initialized. Brokers=%v, DLQ Topic=%s", brokers, config.AppConfig.KafkaDLQTopic)
}

// SendToDLQ publishes a failed message to the DLQ topic and stores it for
// retry.
func SendToDLQ(ctx context.Context, topic, key string, value []byte, errorMsg string) error {
	dlqMutex.Lock()
	if dlqProducer == nil && Enabled() {
		initDLQProducerLocked()
	}
	writer := dlqProducer
	dlqMutex.Unlock()

	if writer != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"original_topic": topic,
			"original_key":   key,
			"original_value": string(value),
			"error_message":  errorMsg,
			"timestamp":      time.Now().Unix(),
		})
		if err == nil {
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = writer.WriteMessages(wctx, kafka.Message{Key: []byte(key), Value: payload})
			cancel()
		}
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unknown topic") {
				logger.Warn("DLQ topic missing on broker; disabling DLQ producer: %v", err)
				dlqMutex.Lock()
				dlqProducer = nil
				dlqMutex.Unlock()
			} else {
				logger.Warn("DLQ publish failed, storing only: %v", err)
			}
		}
	}

	return StoreDLQMessage(ctx, topic, key, value, errorMsg)
}

// StoreDLQMessage records a failed message in the DLQ store.
func StoreDLQMessage(ctx context.Context, topic, key string, value []byte, errorMsg string) error {
	msg := DLQMessage{
		MessageID:    uuid.NewString(),
		Topic:        topic,
		Key:          key,
		Value:        string(value),
		ErrorMessage: errorMsg,
		MaxRetries:   defaultMaxRetries,
		CreatedAt:    time.Now(),
	}
	if err := currentDLQStore().Save(ctx, msg); err != nil {
		logger.Error("Error storing DLQ message: %v", err)
		return err
	}
	logger.Info("DLQ message stored. Topic: %s, Key: %s", topic, key)
	return nil
}

// GetDLQMessages retrieves unresolved DLQ messages
func GetDLQMessages(ctx context.Context, limit int) ([]DLQMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return currentDLQStore().Unresolved(ctx, limit)
}

// RetryDLQMessage reprocesses a stored message through the registered
// processors.
func RetryDLQMessage(ctx context.Context, messageID string) (bool, error) {
	store := currentDLQStore()
	msg, err := store.Get(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.Resolved {
		return true, nil
	}

	perr := process(ctx, kafka.Message{Topic: msg.Topic, Key: []byte(msg.Key), Value: []byte(msg.Value)})
	if perr != nil {
		logger.Warn("DLQ retry of %s failed: %v", messageID, perr)
	}
	if err := store.RecordRetry(ctx, messageID, perr == nil); err != nil {
		return false, err
	}
	return perr == nil, nil
}

// ResolveDLQMessage marks a DLQ message as resolved
func ResolveDLQMessage(ctx context.Context, messageID, notes string) error {
	return currentDLQStore().Resolve(ctx, messageID, notes)
}

func GetDLQStats(ctx context.Context) (DLQStats, error) {
	return currentDLQStore().Stats(ctx)
}

// StartDLQAutoRetry retries unresolved messages every interval.
func StartDLQAutoRetry(interval time.Duration) {
	dlqMutex.Lock()
	defer dlqMutex.Unlock()
	if dlqRetryTicker != nil {
		return
	}
	dlqRetryTicker = time.NewTicker(interval)
	stopDLQRetry = make(chan struct{})
	ticker, stop := dlqRetryTicker, stopDLQRetry

	go func() {
		for {
			select {
			case <-ticker.C:
				retryUnresolvedDLQMessages(context.Background())
			case <-stop:
				return
			}
		}
	}()
	logger.Info("DLQ auto-retry scheduler started (every %v)", interval)
}

func retryUnresolvedDLQMessages(ctx context.Context) {
	messages, err := currentDLQStore().Retryable(ctx, 10)
	if err != nil {
		logger.Error("Error loading DLQ messages for retry: %v", err)
		return
	}
	resolved := 0
	attempted := 0
	for _, m := range messages {
		attempted++
		ok, err := RetryDLQMessage(ctx, m.MessageID)
		if err != nil {
			logger.Error("Error retrying DLQ message %s: %v", m.MessageID, err)
			continue
		}
		if ok {
			resolved++
		}
	}
	if attempted > 0 {
		logger.Info("DLQ auto-retry completed: processed %d messages, %d resolved", attempted, resolved)
	}
}

// StopDLQAutoRetry stops the automatic DLQ retry mechanism
func StopDLQAutoRetry() {
	dlqMutex.Lock()
	defer dlqMutex.Unlock()
	if dlqRetryTicker == nil {
		return
	}
	dlqRetryTicker.Stop()
	close(stopDLQRetry)
	dlqRetryTicker = nil
	if dlqProducer != nil {
		dlqProducer.Close()
		dlqProducer = nil
	}
}

// MemoryDLQ keeps dead letters in process memory.
type MemoryDLQ struct {
	mu       sync.Mutex
	messages map[string]*DLQMessage
}

func NewMemoryDLQ() *MemoryDLQ {
	return &MemoryDLQ{messages: make(map[string]*DLQMessage)}
}

func (d *MemoryDLQ) Save(_ context.Context, m DLQMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages[m.MessageID] = &m
	return nil
}

func (d *MemoryDLQ) Unresolved(_ context.Context, limit int) ([]DLQMessage, error) {
	return d.pending(limit, false), nil
}

func (d *MemoryDLQ) Retryable(_ context.Context, limit int) ([]DLQMessage, error) {
	return d.pending(limit, true), nil
}

func (d *MemoryDLQ) pending(limit int, retryableOnly bool) []DLQMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []DLQMessage
	for _, m := range d.messages {
		if m.Resolved || (retryableOnly && m.RetryCount >= m.MaxRetries) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (d *MemoryDLQ) Get(_ context.Context, id string) (*DLQMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.messages[id]
	if !ok {
		return nil, apperrors.E(apperrors.NotFound, "dlq message not found")
	}
	out := *m
	return &out, nil
}

func (d *MemoryDLQ) RecordRetry(_ context.Context, id string, succeeded bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.messages[id]
	if !ok {
		return apperrors.E(apperrors.NotFound, "dlq message not found")
	}
	now := time.Now()
	m.RetryCount++
	m.LastRetryAt = &now
	if succeeded {
		m.Resolved = true
		m.Notes = "Retried successfully"
	}
	return nil
}

func (d *MemoryDLQ) Resolve(_ context.Context, id, notes string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.messages[id]
	if !ok {
		return apperrors.E(apperrors.NotFound, "dlq message not found")
	}
	m.Resolved = true
	m.Notes = notes
	return nil
}

func (d *MemoryDLQ) Stats(_ context.Context) (DLQStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s DLQStats
	for _, m := range d.messages {
		s.Total++
		if m.Resolved {
			s.Resolved++
		} else {
			s.Unresolved++
		}
	}
	return s, nil
}

// PostgresDLQ stores dead letters in the dlq_messages table.
type PostgresDLQ struct {
	db *sql.DB
}

func NewPostgresDLQ(db *sql.DB) *PostgresDLQ {
	return &PostgresDLQ{db: db}
}

func (d *PostgresDLQ) Save(ctx context.Context, m DLQMessage) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO dlq_messages (message_id, topic, key, value, error_message, max_retries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING`,
		m.MessageID, m.Topic, m.Key, m.Value, m.ErrorMessage, m.MaxRetries, m.CreatedAt)
	return err
}

const dlqColumns = `message_id, topic, key, value, error_message, retry_count, max_retries, resolved,
	COALESCE(notes, ''), created_at, last_retry_at`

func scanDLQ(row interface{ Scan(...interface{}) error }) (*DLQMessage, error) {
	var m DLQMessage
	var lastRetry sql.NullTime
	if err := row.Scan(&m.MessageID, &m.Topic, &m.Key, &m.Value, &m.ErrorMessage, &m.RetryCount,
		&m.MaxRetries, &m.Resolved, &m.Notes, &m.CreatedAt, &lastRetry); err != nil {
		return nil, err
	}
	if lastRetry.Valid {
		m.LastRetryAt = &lastRetry.Time
	}
	return &m, nil
}

func (d *PostgresDLQ) Unresolved(ctx context.Context, limit int) ([]DLQMessage, error) {
	return d.query(ctx, `SELECT `+dlqColumns+` FROM dlq_messages
		WHERE resolved = FALSE ORDER BY created_at ASC LIMIT $1`, limit)
}

func (d *PostgresDLQ) Retryable(ctx context.Context, limit int) ([]DLQMessage, error) {
	return d.query(ctx, `SELECT `+dlqColumns+` FROM dlq_messages
		WHERE resolved = FALSE AND retry_count < max_retries ORDER BY created_at ASC LIMIT $1`, limit)
}

func (d *PostgresDLQ) query(ctx context.Context, query string, args ...interface{}) ([]DLQMessage, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DLQMessage
	for rows.Next() {
		m, err := scanDLQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (d *PostgresDLQ) Get(ctx context.Context, id string) (*DLQMessage, error) {
	m, err := scanDLQ(d.db.QueryRowContext(ctx, `SELECT `+dlqColumns+` FROM dlq_messages WHERE message_id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "dlq message not found")
	}
	return m, err
}

func (d *PostgresDLQ) RecordRetry(ctx context.Context, id string, succeeded bool) error {
	query := `UPDATE dlq_messages SET retry_count = retry_count + 1, last_retry_at = NOW() WHERE message_id = $1`
	if succeeded {
		query = `UPDATE dlq_messages SET retry_count = retry_count + 1, last_retry_at = NOW(), resolved = TRUE,
			resolved_at = NOW(), notes = 'Retried successfully' WHERE message_id = $1`
	}
	_, err := d.db.ExecContext(ctx, query, id)
	return err
}

func (d *PostgresDLQ) Resolve(ctx context.Context, id, notes string) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE dlq_messages SET resolved = TRUE, resolved_at = NOW(), notes = $2 WHERE message_id = $1`, id, notes)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.E(apperrors.NotFound, "dlq message not found")
	}
	return nil
}

func (d *PostgresDLQ) Stats(ctx context.Context) (DLQStats, error) {
	var s DLQStats
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE resolved = FALSE),
			COUNT(*) FILTER (WHERE resolved = TRUE)
		FROM dlq_messages`).Scan(&s.Total, &s.Unresolved, &s.Resolved)
	return s, err
}
