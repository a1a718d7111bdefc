package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ishaileshpant/fl-go/internal/collaboratorrun"
	"github.com/ishaileshpant/fl-go/internal/config"
)

// HandleCollaboratorCommand handles all collaborator-related commands
func HandleCollaboratorCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("collaborator command requires a subcommand (start, etc.)")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "start":
		return handleCollaboratorStart(subArgs)
	case "--help", "-h":
		printCollaboratorUsage()
		return nil
	default:
		return fmt.Errorf("unknown collaborator subcommand: %s", subcommand)
	}
}

func handleCollaboratorStart(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("collaborator start requires a collaborator name")
	}

	collaboratorName := args[0]

	// Parse flags
	planPath := "plan.yaml"

	for i, arg := range args[1:] {
		switch arg {
		case "--plan", "-p":
			if i+2 < len(args) {
				planPath = args[i+2]
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

	// Find this collaborator in the plan
	var found bool
	for _, collab := range cfg.Collaborators {
		if collab.ID == collaboratorName {
			found = true
			break
		}
	}

	if !found {
		fmt.Printf("⚠️  Warning: Collaborator '%s' not found in plan. Available collaborators:\n", collaboratorName)
		for _, collab := range cfg.Collaborators {
			fmt.Printf("   - %s\n", collab.ID)
		}
		fmt.Printf("Continuing anyway...\n\n")
	}

	fmt.Printf("🤝 Starting collaborator: %s\n", collaboratorName)
	fmt.Printf("📊 Configuration:\n")
	fmt.Printf("   Aggregator: %s\n", cfg.Aggregator.Address)
	fmt.Printf("   Training Script: %s\n", cfg.Tasks.Train.Script)
	fmt.Printf("   Epochs: %v\n", cfg.Tasks.Train.Args["epochs"])
	fmt.Printf("   Batch Size: %v\n", cfg.Tasks.Train.Args["batch_size"])
	fmt.Printf("   Masking enabled: %v\n", cfg.Masking.Enabled)

	fmt.Printf("\n🔗 Connecting to aggregator...\n")
	fmt.Printf("🎯 Starting federated learning rounds...\n\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	err = collaboratorrun.Run(ctx, cfg, collaboratorName, func(msg string) {
		fmt.Printf("🔄 %s\n", msg)
	})
	if err != nil {
		return fmt.Errorf("collaborator failed: %v", err)
	}

	fmt.Printf("\n🎉 Collaborator '%s' shut down cleanly\n", collaboratorName)

	return nil
}

func printCollaboratorUsage() {
	fmt.Println("Collaborator command - Start and manage collaborator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fx collaborator <subcommand> [options]")
	fmt.Println()
	fmt.Println("Available Subcommands:")
	fmt.Println("  start     Start a collaborator")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --plan, -p    Path to plan.yaml file (default: plan.yaml)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  fx collaborator start collaborator1           # Start collaborator1")
	fmt.Println("  fx collaborator start collab1 --plan my.yaml  # Start with custom plan")
}
