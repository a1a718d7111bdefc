// Package collaboratorrun wires a pkg/collaborator.Engine to a live gRPC
// connection from a loaded config.Config, shared by cmd/collaborator and
// the fx CLI's "collaborator start" subcommand (mirrors
// internal/aggregatorrun's role on the server side).
package collaboratorrun

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/ishaileshpant/fl-go/internal/config"
	"github.com/ishaileshpant/fl-go/internal/crypto"
	"github.com/ishaileshpant/fl-go/internal/model"
	"github.com/ishaileshpant/fl-go/internal/transport/grpcapi"
	"github.com/ishaileshpant/fl-go/pkg/collaborator"
	"github.com/ishaileshpant/fl-go/pkg/federation"
	"github.com/ishaileshpant/fl-go/pkg/security"
)

// PollInterval is how often the host ticks Step while the engine is
// Awaiting or waiting on a backoff (spec §4.10 "driven by a host-provided
// ticker").
const PollInterval = 500 * time.Millisecond

// Notifier receives a line of narration for each engine phase transition,
// letting callers render it their own way (structured log vs CLI Printf).
type Notifier func(string)

// Run dials cfg.Aggregator.Address, builds a collaborator.Engine for id,
// and drives it until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, id string, notify Notifier) error {
	ordinal := uint32(1)
	for i, c := range cfg.Collaborators {
		if c.ID == id {
			ordinal = uint32(i + 1)
		}
	}

	tlsManager, err := security.NewTLSManager(security.TLSConfig(cfg.Security.TLS), "certs")
	if err != nil {
		return err
	}
	dialOpts, err := tlsManager.NewClientDialOptions()
	if err != nil {
		return err
	}

	address := cfg.Aggregator.Address
	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return fmt.Errorf("collaboratorrun: dial %s: %w", address, err)
	}
	defer conn.Close()
	client := grpcapi.NewClient(conn)

	keys, err := crypto.GenerateSigningKeyPair()
	if err != nil {
		return fmt.Errorf("collaboratorrun: generate signing key: %w", err)
	}

	var boxPub *[32]byte
	if cfg.Masking.Enabled {
		boxKeys, err := crypto.GenerateBoxKeyPair()
		if err != nil {
			return fmt.Errorf("collaboratorrun: generate box key: %w", err)
		}
		boxPub = boxKeys.Public
	}

	host := &notifyHost{notify: notify, task: cfg.Tasks.Train}

	eng, err := collaborator.New(collaborator.Config{
		ParticipantID:     ordinal,
		SignPriv:          keys.Private,
		CoordinatorBoxPub: boxPub,
	}, client, host)
	if err != nil {
		return err
	}

	eng.StartRound()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := eng.Step(ctx)
			if err != nil {
				notify(fmt.Sprintf("step failed: %v", err))
				continue
			}
			if !res.Complete {
				continue
			}
			switch res.Phase {
			case collaborator.PhaseUpdate:
				host.trainAndLoad(eng)
			case collaborator.PhaseAwaiting:
				notify("round accepted, returning to idle")
				eng.StartRound()
			case collaborator.PhaseNewRound:
				notify("round rejected or stale, retrying")
			}
		}
	}
}

type notifyHost struct {
	notify Notifier
	task   federation.TaskConfig
}

func (h *notifyHost) NotifyIdle() {}

func (h *notifyHost) NotifyNeedsModel(p collaborator.RoundParameters) {
	h.notify(fmt.Sprintf("new round %d, training local model", p.RoundID))
}

// trainAndLoad runs the configured training task and feeds its output back
// into the engine (teacher's exec.Command("python3", args...) pattern from
// pkg/collaborator/collaborator.go's RunTrainTask, adapted to the new
// Engine.LoadModel contract).
func (h *notifyHost) trainAndLoad(eng *collaborator.Engine) {
	weights, err := h.runTrainTask()
	if err != nil {
		h.notify(fmt.Sprintf("training task failed: %v", err))
		return
	}
	m := model.NewModel(weights)
	if err := eng.LoadModel(m, 1, 0, nil); err != nil {
		h.notify(fmt.Sprintf("load trained model: %v", err))
	}
}

func (h *notifyHost) runTrainTask() ([]*big.Rat, error) {
	if h.task.Script == "" {
		return []*big.Rat{}, nil
	}
	args := []string{h.task.Script}
	for k, v := range h.task.Args {
		args = append(args, fmt.Sprintf("--%s=%v", k, v))
	}
	out, err := exec.Command("python3", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("train task: %w", err)
	}
	var floats []float64
	if err := json.Unmarshal(out, &floats); err != nil {
		return nil, fmt.Errorf("train task: parse output: %w", err)
	}
	weights := make([]*big.Rat, len(floats))
	for i, f := range floats {
		r := new(big.Rat).SetFloat64(f)
		if r == nil {
			r = new(big.Rat)
		}
		weights[i] = r
	}
	return weights, nil
}
