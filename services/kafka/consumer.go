package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"online-admission/config"
	"online-admission/logger"
)

// Processor handles one decoded event.
type Processor func(ctx context.Context, event map[string]interface{}) error

var (
	consumer        *kafka.Reader
	consumerMutex   sync.Mutex
	consumerRunning bool
	stopConsumer    chan struct{}
	consumerDone    chan struct{}
	processors      = map[string]Processor{}
)

// InitConsumer creates a consumer group reader for topic.
func InitConsumer(topic string) error {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()

	brokers := config.AppConfig.KafkaBrokerList()
	if len(brokers) == 0 {
		logger.Info("Kafka consumer is disabled (KAFKA_BROKERS is empty)")
		return nil
	}
	if topic == "" {
		return fmt.Errorf("consumer topic is required")
	}

	consumer = kafka.NewReader(kafka.ReaderConfig{
		Brokers:          brokers,
		Topic:            topic,
		GroupID:          config.AppConfig.KafkaGroupID,
		StartOffset:      kafka.LastOffset,
		CommitInterval:   time.Second,
		MaxBytes:         10e6,
		SessionTimeout:   20 * time.Second,
		ReadBackoffMin:   100 * time.Millisecond,
		ReadBackoffMax:   1 * time.Second,
		QueueCapacity:    100,
		RebalanceTimeout: 60 * time.Second,
	})

	logger.Info("Kafka consumer initialized. Brokers=%v, Topic=%s, ConsumerGroup=%s", brokers, topic, config.AppConfig.KafkaGroupID)
	return nil
}

// RegisterProcessor routes events named event to fn.
func RegisterProcessor(event string, fn Processor) {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()
	processors[event] = fn
	logger.Info("Kafka processor registered for %s", event)
}

func processorFor(event string) (Processor, bool) {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()
	fn, ok := processors[event]
	return fn, ok
}

// StartConsumer starts consuming messages in a separate goroutine until
// StopConsumer is called.
func StartConsumer() {
	consumerMutex.Lock()
	if consumer == nil {
		consumerMutex.Unlock()
		logger.Warn("Consumer not initialized, cannot start")
		return
	}
	if consumerRunning {
		consumerMutex.Unlock()
		logger.Warn("Consumer already running")
		return
	}
	consumerRunning = true
	stopConsumer = make(chan struct{})
	consumerDone = make(chan struct{})
	reader, stop, done := consumer, stopConsumer, consumerDone
	consumerMutex.Unlock()

	go consumeMessages(reader, stop, done)
	logger.Info("Kafka consumer started")
}

func consumeMessages(reader *kafka.Reader, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		consumerMutex.Lock()
		consumerRunning = false
		consumerMutex.Unlock()
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
			case errors.Is(err, io.EOF):
				// reader closed
				return
			case strings.Contains(err.Error(), "Group Coordinator Not Available"):
				time.Sleep(500 * time.Millisecond)
			default:
				logger.Warn("Kafka read failed: %v", err)
				time.Sleep(1 * time.Second)
			}
			continue
		}

		HandleMessage(context.Background(), msg)
	}
}

// HandleMessage processes msg and sends it to the DLQ when it cannot be
// handled. It reports whether processing succeeded.
func HandleMessage(ctx context.Context, msg kafka.Message) bool {
	if err := process(ctx, msg); err != nil {
		logger.Error("Error handling message on %s: %v", msg.Topic, err)
		_ = SendToDLQ(ctx, msg.Topic, string(msg.Key), msg.Value, err.Error())
		return false
	}
	return true
}

// process decodes msg and dispatches it on its "event" field.
func process(ctx context.Context, msg kafka.Message) error {
	var event map[string]interface{}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	name, ok := event["event"].(string)
	if !ok || name == "" {
		return errors.New("message does not contain valid event type")
	}

	fn, ok := processorFor(name)
	if !ok {
		return fmt.Errorf("unknown event type: %s", name)
	}
	if err := fn(ctx, event); err != nil {
		return fmt.Errorf("handler error for %s: %w", name, err)
	}
	return nil
}

// StopConsumer stops the consumer and waits for the read loop to exit.
func StopConsumer() error {
	consumerMutex.Lock()
	if !consumerRunning || consumer == nil {
		consumerMutex.Unlock()
		return nil
	}
	close(stopConsumer)
	reader, done := consumer, consumerDone
	consumer = nil
	consumerMutex.Unlock()

	err := reader.Close()
	<-done
	if err != nil {
		logger.Error("Error closing consumer: %v", err)
		return err
	}
	logger.Info("Kafka consumer stopped")
	return nil
}

// IsConsumerRunning returns true if the consumer is actively running
func IsConsumerRunning() bool {
	consumerMutex.Lock()
	defer consumerMutex.Unlock()
	return consumerRunning && consumer != nil
}
