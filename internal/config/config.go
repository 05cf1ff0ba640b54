// Package config loads the process configuration from environment
// variables, with local-development defaults matching the docker-compose
// setup.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the chat service.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// ServerID identifies this process in the shared presence directory.
	ServerID string

	// Redis presence directory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// NATS JetStream broker.
	NATSURL         string
	NATSStream      string
	MessageSubject  string
	ConnectAttempts int
	ConnectDelay    time.Duration

	// Postgres message store. Empty means the in-memory store.
	PostgresDSN string

	// JWTPublicKeyPath points to the PEM public key used to verify bearer
	// tokens. Empty disables the auth middleware (development only).
	JWTPublicKeyPath string

	// EngineBaseURL is the upstream user/engine API.
	EngineBaseURL string
}

// New loads configuration from environment variables.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return &Config{
		Addr:             getEnv("ADDR", ":3000"),
		ServerID:         getEnv("SERVER_ID", defaultServerID()),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		NATSURL:          getEnv("NATS_URL", "nats://localhost:4222"),
		NATSStream:       getEnv("NATS_STREAM", "JAMIFY_CHAT"),
		MessageSubject:   getEnv("NATS_MESSAGE_SUBJECT", "jamify.chat.send-message"),
		ConnectAttempts:  getEnvInt("BROKER_CONNECT_ATTEMPTS", 5),
		ConnectDelay:     getEnvDuration("BROKER_CONNECT_DELAY", 2*time.Second),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		JWTPublicKeyPath: os.Getenv("JWT_PUBLIC_KEY_PATH"),
		EngineBaseURL:    getEnv("ENGINE_BASE_URL", "http://localhost:8080"),
	}
}

// defaultServerID derives a per-process identity when none is configured.
func defaultServerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "chat"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, v, err)
		return fallback
	}
	return d
}
