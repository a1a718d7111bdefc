package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ishaileshpant/fl-go/internal/aggregatorrun"
	"github.com/ishaileshpant/fl-go/internal/config"
)

func main() {
	planPath := flag.String("config", "plan.yaml", "path to the deployment YAML config")
	flag.Parse()

	cfg, err := config.Load(*planPath)
	if err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Filter)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "aggregator").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := aggregatorrun.Run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("aggregator exited with error")
	}
}
