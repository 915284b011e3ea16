package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/Mehdi-code-93/fitrun/internal/accounts"
	"github.com/Mehdi-code-93/fitrun/internal/api"
	"github.com/Mehdi-code-93/fitrun/internal/auth"
	"github.com/Mehdi-code-93/fitrun/internal/backend/postgres"
	"github.com/Mehdi-code-93/fitrun/internal/config"
	"github.com/Mehdi-code-93/fitrun/internal/consumer"
	"github.com/Mehdi-code-93/fitrun/internal/feed"
	"github.com/Mehdi-code-93/fitrun/internal/outbox"
	httptransport "github.com/Mehdi-code-93/fitrun/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := postgres.ApplySchema(ctx, pool); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	repo := postgres.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.SessionTTL}
	accts := accounts.NewService(authCfg)

	hub := feed.NewHub()

	// The API process consumes its own change topic so SSE clients see
	// mutations regardless of which instance persisted them.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.ConsumerGroupID + "-stream",
		Topic:           postgres.TrainingTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		ReadLagInterval: -1,
	})
	proc := consumer.NewProcessor(reader, consumer.NewFeedHandler(hub, nil))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer reader.Close()
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("stream consumer stopped with error: %v", err)
		}
	}()

	handler := api.NewHandler(api.HandlerConfig{
		Auth:      accts,
		Profiles:  repo,
		Goals:     repo,
		Trainings: repo,
	})
	stream := api.NewStreamHandler(hub)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	stream.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	// Revoked tokens keep a valid signature until expiry; the resolver makes
	// sign-out effective on the next request.
	sessions := func(ctx context.Context, token string) (bool, error) {
		session, err := accts.CurrentSession(ctx, token)
		if err != nil {
			return false, err
		}
		return session != nil, nil
	}

	authMiddleware := auth.NewMiddleware(authCfg, func(r *http.Request) bool {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/auth/"):
			return true
		case r.URL.Path == "/healthz", r.URL.Path == "/metrics":
			return true
		case r.Method == http.MethodOptions:
			return true
		}
		return false
	}, sessions)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:     cfg.HTTPAddress,
		ReadTimeout: 5 * time.Second,
		// No write deadline: /v1/stream holds connections open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("fitrun api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
	wg.Wait()
}
