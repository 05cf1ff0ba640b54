package main

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/broker"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/config"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/gateway"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/logging"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/presence"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/relay"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/room"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/server"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/store"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/users"
)

// main wires one long-lived instance of every core service and passes them
// by reference to their consumers. There is no global registry; the process
// must not accept client connections until the broker is connected.
func main() {
	cfg := config.New()
	logging.New()
	ctx := context.Background()

	// Shared presence directory.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	directory := presence.NewRedisDirectory(redisClient)

	// Message store. Falls back to the in-memory store when no DSN is
	// configured (development only).
	var messages store.MessageStore
	var pool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			slog.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		messages = pg
	} else {
		slog.Warn("POSTGRES_DSN not set, using in-memory message store")
		messages = store.NewMemoryStore()
	}

	// Durable broker. Exhausting the connect retries is fatal: without a
	// working broker there is no cross-process delivery.
	b := broker.NewJetStreamBroker(broker.Config{
		URL:             cfg.NATSURL,
		Stream:          cfg.NATSStream,
		Subjects:        []string{"jamify.>"},
		ConsumerPrefix:  cfg.ServerID,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectDelay:    cfg.ConnectDelay,
	})
	if err := b.Connect(ctx); err != nil {
		slog.Error("broker connect failed, aborting startup", "error", err)
		os.Exit(1)
	}

	gw := gateway.New(cfg.ServerID, directory)
	gatewayCtx, stopGateway := context.WithCancel(ctx)
	go gw.Run(gatewayCtx)

	relaySvc := relay.NewService(b, messages, directory, gw, cfg.MessageSubject)
	if err := relaySvc.Start(ctx); err != nil {
		slog.Error("relay consumer failed to start", "error", err)
		os.Exit(1)
	}

	rooms := room.NewService(directory)
	userSvc := users.NewService(cfg.EngineBaseURL)

	s := server.New(cfg, relaySvc, gw, rooms, messages, userSvc, loadAuthKey(cfg))
	s.Start(
		func(context.Context) { stopGateway() },
		func(context.Context) {
			if err := b.Disconnect(); err != nil {
				slog.Error("broker disconnect failed", "error", err)
			}
		},
		func(context.Context) {
			if pool != nil {
				pool.Close()
			}
			if err := redisClient.Close(); err != nil {
				slog.Error("redis close failed", "error", err)
			}
		},
	)
}

// loadAuthKey reads the PEM public key used to verify bearer tokens. A
// missing path disables auth; this is only acceptable in development.
func loadAuthKey(cfg *config.Config) *rsa.PublicKey {
	if cfg.JWTPublicKeyPath == "" {
		slog.Warn("JWT_PUBLIC_KEY_PATH not set, auth middleware disabled")
		return nil
	}
	pem, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		slog.Error("cannot read jwt public key", "path", cfg.JWTPublicKeyPath, "error", err)
		os.Exit(1)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		slog.Error("cannot parse jwt public key", "path", cfg.JWTPublicKeyPath, "error", err)
		os.Exit(1)
	}
	return key
}
