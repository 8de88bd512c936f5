package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danisworo/go-commerce-api/internal/auth"
	"github.com/danisworo/go-commerce-api/internal/catalog"
	"github.com/danisworo/go-commerce-api/internal/config"
	"github.com/danisworo/go-commerce-api/internal/httpx"
	kafkax "github.com/danisworo/go-commerce-api/internal/kafka"
	"github.com/danisworo/go-commerce-api/internal/orders"
	"github.com/danisworo/go-commerce-api/internal/postgres"
	"github.com/danisworo/go-commerce-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for the post-commit order.placed event
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	prod.Start(ctx)

	// Services
	orderStore := &orders.PGStore{DB: db}
	orderSvc := &orders.Service{
		Store:     orderStore,
		Publisher: &orders.KafkaPublisher{Producer: prod, Service: cfg.ServiceName},
	}
	catalogSvc := &catalog.Service{
		Store:    &catalog.Repo{DB: db},
		Cache:    &redisx.Cache{R: rdb},
		PageSize: cfg.PageSize,
	}
	authSvc := &auth.Service{
		Users:  &auth.Repo{DB: db},
		Tokens: &auth.RedisTokens{R: rdb, TTL: cfg.TokenTTL},
	}

	// Router
	router := httpx.NewRouter()
	ah := &httpx.AuthHandler{Svc: authSvc}
	ah.RegisterPublic(router)
	router.Group(func(r chi.Router) {
		r.Use(httpx.RequireAuth(authSvc))
		ah.RegisterProtected(r)
		(&httpx.CatalogHandler{Svc: catalogSvc}).Register(r)
		(&httpx.OrdersHandler{Svc: orderSvc, Store: orderStore, PageSize: cfg.PageSize}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	prod.WaitClosed()
}
