package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danisworo/go-commerce-api/internal/config"
	kafkax "github.com/danisworo/go-commerce-api/internal/kafka"
	"github.com/danisworo/go-commerce-api/internal/notify"
	"github.com/danisworo/go-commerce-api/internal/orders"
	"github.com/danisworo/go-commerce-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Dedup: &redisx.Dedup{R: rdb, Service: "notifier"},
		Log:   log.Logger,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderPlaced, cfg.NotifierWorkers)

	go func() {
		log.Info().
			Str("group", cfg.NotifierGroup).
			Str("topic", orders.TopicOrderPlaced).
			Int("workers", cfg.NotifierWorkers).
			Msg("notifier consumer started")
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
