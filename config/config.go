package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	StoreDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string

	// Kafka
	KafkaBrokers      string
	KafkaTopicImports string
	KafkaTopicEmails  string
	KafkaTopicPayment string
	KafkaDLQTopic     string
	KafkaGroupID      string

	StorageDriver string
	StorageDir    string
	OSSEndpoint   string
	OSSAccessKey  string
	OSSSecretKey  string
	OSSBucket     string

	TimeAPIURL     string
	LogLevel       string
	LogPretty      bool
	AllowedOrigins []string
	MaxUploadMB    int64
	SchoolLockMode string
}

var AppConfig Config

func LoadConfig() {
	// Try loading .env from different locations
	envLocations := []string{
		".env",              // project root
		"config/.env",       // config subdirectory
		"../config/.env",    // one level up
		"../../config/.env", // two levels up
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = Config{
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		StoreDriver: getEnvWithDefault("STORE_DRIVER", "postgres"),

		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvWithDefault("DB_NAME", "admissions"),

		MongoURI:          getEnvWithDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnvWithDefault("MONGO_DATABASE", "admissions"),
		MongoTransactions: getBoolEnv("MONGO_TRANSACTIONS", false),

		RazorpayKeyID:         os.Getenv("RazorpayKeyID"),
		RazorpayKeySecret:     os.Getenv("RazorpayKeySecret"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),

		SMTPHost:  getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getEnvWithDefault("SMTP_PORT", "587"),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		EmailFrom: os.Getenv("EMAIL_FROM"),

		// Kafka settings (comma-separated brokers, empty disables publishing)
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		KafkaTopicImports: getEnvWithDefault("KAFKA_TOPIC_IMPORTS", "admissions.placements"),
		KafkaTopicEmails:  getEnvWithDefault("KAFKA_TOPIC_EMAILS", "admissions.emails"),
		KafkaTopicPayment: getEnvWithDefault("KAFKA_TOPIC_PAYMENTS", "admissions.payments"),
		KafkaDLQTopic:     getEnvWithDefault("KAFKA_DLQ_TOPIC", "admissions.dlq"),
		KafkaGroupID:      getEnvWithDefault("KAFKA_GROUP_ID", "admissions-mailer"),

		StorageDriver: getEnvWithDefault("STORAGE_DRIVER", "local"),
		StorageDir:    getEnvWithDefault("STORAGE_DIR", "uploads"),
		OSSEndpoint:   os.Getenv("ALI_OSS_ENDPOINT"),
		OSSAccessKey:  os.Getenv("ALI_OSS_ACCESS_KEY"),
		OSSSecretKey:  os.Getenv("ALI_OSS_SECRET_KEY"),
		OSSBucket:     os.Getenv("ALI_OSS_BUCKET"),

		TimeAPIURL:     os.Getenv("TIME_API_URL"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),
		LogPretty:      getBoolEnv("LOG_PRETTY", false),
		AllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),
		MaxUploadMB:    getIntEnv("MAX_UPLOAD_MB", 10),
		SchoolLockMode: getEnvWithDefault("SCHOOL_LOCK", "local"),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getIntEnv(key string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// KafkaBrokerList returns the configured brokers, nil when Kafka is disabled.
func (c Config) KafkaBrokerList() []string {
	return splitList(c.KafkaBrokers)
}

func GetDBConnString() string {
	return "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=disable"
}
