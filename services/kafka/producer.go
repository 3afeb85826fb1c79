package kafka

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"online-admission/config"
	"online-admission/logger"
)

// Event names carried in the "event" field of every message.
const (
	EventPlacementImported = "placement.imported"
	EventEmailSend         = "email.send"
	EventStudentOnboarded  = "student.onboarded"
	EventPaymentCompleted  = "payment.completed"
)

var (
	producer      *kafka.Writer
	producerMutex sync.Mutex
	isConnected   bool
)

// Enabled reports whether brokers are configured.
func Enabled() bool {
	return len(config.AppConfig.KafkaBrokerList()) > 0
}

// InitProducer initializes a Kafka writer using brokers from the config
func InitProducer() {
	producerMutex.Lock()
	defer producerMutex.Unlock()
	initProducerLocked()
}

func initProducerLocked() {
	brokers := config.AppConfig.KafkaBrokerList()
	if len(brokers) == 0 {
		logger.Info("Kafka is disabled (KAFKA_BROKERS is empty)")
		return
	}

	ensureTopicsExist(brokers)

	producer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		Async:        false,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}

	logger.Info("Kafka producer initialized. Brokers=%v", brokers)
	isConnected = true
}

// requiredTopics lists the configured topics without duplicates.
func requiredTopics() []string {
	var topics []string
	seen := map[string]bool{}
	for _, t := range []string{
		config.AppConfig.KafkaTopicImports,
		config.AppConfig.KafkaTopicEmails,
		config.AppConfig.KafkaTopicPayment,
		config.AppConfig.KafkaDLQTopic,
	} {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}
	return topics
}

// ensureTopicsExist creates Kafka topics in the background, retrying with
// exponential backoff while the brokers come up.
func ensureTopicsExist(brokers []string) {
	topics := requiredTopics()
	go func() {
		const maxRetries = 5
		for attempt := 0; attempt < maxRetries; attempt++ {
			time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * time.Second)

			conn, err := kafka.Dial("tcp", brokers[0])
			if err != nil {
				if attempt == maxRetries-1 {
					logger.Warn("Could not connect to Kafka broker for topic creation after %d attempts: %v", maxRetries, err)
				}
				continue
			}

			ok := 0
			for _, topic := range topics {
				err := conn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
				if err == nil || strings.Contains(err.Error(), "already exists") {
					ok++
				}
			}
			conn.Close()

			if ok == len(topics) {
				return
			}
		}
	}()
}

// Publish marshals value to JSON and publishes to the given topic with key.
// It retries three times with exponential backoff, then hands the payload to
// the DLQ. When Kafka is disabled it returns nil.
func Publish(topic, key string, value interface{}) error {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if producer == nil && Enabled() {
		initProducerLocked()
	}
	if producer == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error("Error marshaling Kafka message: %v", err)
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := producer.WriteMessages(ctx, msg)
		cancel()

		if err == nil {
			isConnected = true
			return nil
		}

		lastErr = err
		isConnected = false
		logger.Warn("Kafka publish attempt %d/3 to %s failed: %v", attempt+1, topic, err)

		if attempt < 2 {
			time.Sleep(time.Duration(math.Pow(2, float64(attempt))) * time.Second)
		}
		// recreate the writer to drop stale broker metadata
		if attempt == 1 {
			producer.Close()
			initProducerLocked()
			if producer == nil {
				break
			}
		}
	}

	logger.Info("Sending failed message to DLQ. Topic: %s, Key: %s", topic, key)
	if dlqErr := StoreDLQMessage(context.Background(), topic, key, payload, lastErr.Error()); dlqErr != nil {
		logger.Error("Failed to store message in DLQ: %v", dlqErr)
	}
	return lastErr
}

// IsConnected returns true if Kafka producer is connected and ready
func IsConnected() bool {
	producerMutex.Lock()
	defer producerMutex.Unlock()
	return isConnected && producer != nil
}

// Close gracefully closes the Kafka producer
func Close() error {
	producerMutex.Lock()
	defer producerMutex.Unlock()

	if producer != nil {
		err := producer.Close()
		producer = nil
		isConnected = false
		return err
	}
	return nil
}
