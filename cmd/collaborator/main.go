package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ishaileshpant/fl-go/internal/collaboratorrun"
	"github.com/ishaileshpant/fl-go/internal/config"
)

func main() {
	id := flag.String("id", "collab1", "collaborator id")
	planPath := flag.String("config", "plan.yaml", "path to the deployment YAML config")
	flag.Parse()

	cfg, err := config.Load(*planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Filter)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "collaborator").Str("collaborator_id", *id).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log.Info().Str("aggregator", cfg.Aggregator.Address).Msg("collaborator ready")
	err = collaboratorrun.Run(ctx, cfg, *id, func(msg string) {
		log.Info().Msg(msg)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("collaborator exited with error")
	}
}
