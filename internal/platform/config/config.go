package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from environment
// variables so main stays lean; unset optional backends (postgres, redis,
// kafka) leave the service on its in-memory implementations.
type Server struct {
	Addr            string
	PostgresDSN     string
	RedisURL        string
	KafkaBrokers    []string
	KafkaAuditTopic string
	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CREDITWATCH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("CREDITWATCH_KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "creditwatch.audit"
	}

	var brokers []string
	if raw := os.Getenv("CREDITWATCH_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:            addr,
		PostgresDSN:     os.Getenv("CREDITWATCH_POSTGRES_DSN"),
		RedisURL:        os.Getenv("CREDITWATCH_REDIS_URL"),
		KafkaBrokers:    brokers,
		KafkaAuditTopic: topic,
		ShutdownTimeout: 10 * time.Second,
	}
}
