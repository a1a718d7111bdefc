package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ishaileshpant/fl-go/internal/aggregatorrun"
	"github.com/ishaileshpant/fl-go/internal/config"
	"github.com/ishaileshpant/fl-go/pkg/federation"
)

// HandleAggregatorCommand handles all aggregator-related commands
func HandleAggregatorCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("aggregator command requires a subcommand (start)")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "start":
		return handleAggregatorStart(subArgs)
	case "--help", "-h":
		printAggregatorUsage()
		return nil
	default:
		return fmt.Errorf("unknown aggregator subcommand: %s", subcommand)
	}
}

func handleAggregatorStart(args []string) error {
	// Parse flags
	planPath := "plan.yaml"

	for i, arg := range args {
		switch arg {
		case "--plan", "-p":
			if i+1 < len(args) {
				planPath = args[i+1]
			}
		}
	}

	// Check if plan exists
	if _, err := os.Stat(planPath); os.IsNotExist(err) {
		return fmt.Errorf("plan file not found: %s\nRun 'fx plan init' to create a workspace first", planPath)
	}

	fmt.Printf("📋 Loading federated learning plan: %s\n", planPath)
	cfg, err := config.Load(planPath)
	if err != nil {
		return fmt.Errorf("failed to load plan: %v", err)
	}
	plan := cfg.FLPlan

	// Set default mode if not specified
	if plan.Mode == "" {
		plan.Mode = federation.ModeSync
	}

	fmt.Printf("🚀 Starting aggregator...\n")
	fmt.Printf("📊 Configuration:\n")
	fmt.Printf("   Mode: %s\n", plan.Mode)
	fmt.Printf("   Address: %s\n", cfg.API.ServerAddress)
	fmt.Printf("   Data type: %s\n", cfg.Model.DataType)

	algorithmName := cfg.Process.Strategy
	if algorithmName == "" {
		algorithmName = "fedavg"
	}
	fmt.Printf("   Algorithm: %s\n", algorithmName)

	if len(plan.Algorithm.Hyperparameters) > 0 {
		fmt.Printf("   Algorithm hyperparameters:\n")
		for key, value := range plan.Algorithm.Hyperparameters {
			fmt.Printf("     %s: %v\n", key, value)
		}
	}

	fmt.Printf("   Training rounds: %d\n", cfg.Process.TrainingRounds)
	fmt.Printf("   Collaborators: %d\n", len(plan.Collaborators))
	fmt.Printf("   Masking enabled: %v\n", cfg.Masking.Enabled)

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

	fmt.Printf("\n🎯 Aggregator ready! Waiting for collaborators to connect...\n")
	fmt.Printf("💡 To start collaborators, run: fx collaborator start <name>\n\n")

	if err := aggregatorrun.Run(ctx, cfg, log); err != nil {
		return fmt.Errorf("aggregator failed: %v", err)
	}

	fmt.Printf("✅ Aggregator shut down cleanly\n")

	return nil
}

func printAggregatorUsage() {
	fmt.Println("Aggregator command - Start and manage aggregator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fx aggregator <subcommand> [options]")
	fmt.Println()
	fmt.Println("Available Subcommands:")
	fmt.Println("  start     Start the aggregator")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --plan, -p    Path to plan.yaml file (default: plan.yaml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  fx aggregator start                    # Start with plan.yaml")
	fmt.Println("  fx aggregator start --plan my_plan.yaml # Start with custom plan")
}
