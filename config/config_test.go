package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("MONGO_TRANSACTIONS", "")

	LoadConfig()

	assert.Equal(t, "postgres", AppConfig.StoreDriver)
	assert.Equal(t, ":8080", AppConfig.HTTPAddr)
	assert.False(t, AppConfig.MongoTransactions)
	assert.Nil(t, AppConfig.KafkaBrokerList())
	assert.Equal(t, int64(10), AppConfig.MaxUploadMB)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "secret")

	LoadConfig()

	assert.Equal(t, "memory", AppConfig.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, AppConfig.KafkaBrokerList())
	assert.True(t, AppConfig.MongoTransactions)
	assert.Contains(t, GetDBConnString(), "host=db")
	assert.Contains(t, GetDBConnString(), "password=secret")
}
