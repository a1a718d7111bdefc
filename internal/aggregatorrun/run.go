// Package aggregatorrun wires an internal/engine.Engine to a live gRPC
// listener from a loaded config.Config. It exists so cmd/aggregator and the
// fx CLI's "aggregator start" subcommand share one assembly path instead of
// each hand-rolling the engine/pipeline/server wiring, the same way the
// teacher's pkg/cli/aggregator.go called into a single pkg/aggregator
// constructor rather than re-implementing the server inline.
package aggregatorrun

import (
	"context"
	"fmt"
	"net"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"

	"github.com/ishaileshpant/fl-go/internal/aggregator"
	"github.com/ishaileshpant/fl-go/internal/blobstore"
	"github.com/ishaileshpant/fl-go/internal/blobstore/s3blob"
	"github.com/ishaileshpant/fl-go/internal/config"
	"github.com/ishaileshpant/fl-go/internal/crypto"
	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/featurebuffer"
	"github.com/ishaileshpant/fl-go/internal/fetch"
	"github.com/ishaileshpant/fl-go/internal/jobsink"
	"github.com/ishaileshpant/fl-go/internal/message"
	"github.com/ishaileshpant/fl-go/internal/reqchannel"
	"github.com/ishaileshpant/fl-go/internal/transport/grpcapi"
	"github.com/ishaileshpant/fl-go/pkg/monitoring"
	"github.com/ishaileshpant/fl-go/pkg/security"
)

// cpuPoolSize bounds the signature-verify/decrypt offload pool (spec §5:
// "sized to the host's core count").
var cpuPoolSize = int64(runtime.NumCPU())

// Run builds the engine and gRPC server from cfg and blocks until ctx is
// cancelled, at which point it waits for the engine to reach a terminal
// state before returning.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	dataType, err := cfg.DataType()
	if err != nil {
		return err
	}
	strategy, err := cfg.Strategy()
	if err != nil {
		return err
	}
	params := cfg.AggregatorParams()

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	fabric := eventfabric.New()
	reqCh := reqchannel.New[engine.Request, engine.Response]()
	buffer := featurebuffer.New()

	sinks := buildSinks(cfg, strategy)

	eng, err := engine.New(engine.Config{
		DataType:       dataType,
		Strategy:       strategy,
		Params:         params,
		TrainingRounds: cfg.Process.TrainingRounds,
		BlobKey:        cfg.S3.GlobalModel,
		MaskingEnabled: cfg.Masking.Enabled,
	}, fabric, reqCh, buffer, store, log, sinks...)
	if err != nil {
		return err
	}

	reassembler := message.NewReassembler()
	eng.OnRoundBoundary = reassembler.EvictAll

	decrypter := crypto.MaskSeedDecrypter{Current: eng.CurrentBoxKeys}
	pipeline := &message.Pipeline{
		Fabric:         fabric,
		ReqChan:        reqCh,
		CPUPool:        semaphore.NewWeighted(cpuPoolSize),
		Reassembler:    reassembler,
		MaskingEnabled: cfg.Masking.Enabled,
		Decrypter:      decrypter,
	}
	fetchSvc := fetch.New(fabric, 64)

	monitoringService := monitoring.NewMemoryStorage(&monitoring.MonitoringConfig{Enabled: cfg.Monitoring.Enabled})
	if cfg.Monitoring.Enabled {
		hooks := monitoring.NewMonitoringHooks(monitoringService, true)
		federationID, err := hooks.OnFederationStart(ctx, &cfg.FLPlan, cfg.API.ServerAddress)
		if err != nil {
			log.Warn().Err(err).Msg("monitoring: federation registration failed, round hooks disabled")
		} else {
			eng.Hooks = &monitoring.RoundAdapter{Hooks: hooks, FederationID: federationID, Algorithm: string(strategy)}
		}
	}

	apiServer := monitoring.NewAPIServer(monitoringService, &monitoring.MonitoringConfig{Enabled: cfg.Monitoring.Enabled})
	apiServer.SetFetchService(fetchSvc)
	apiServer.SetAddr(cfg.API.RestAPI)

	tlsManager, err := security.NewTLSManager(security.TLSConfig(cfg.Security.TLS), "certs")
	if err != nil {
		return err
	}
	serverOpts, err := tlsManager.NewServerOptions()
	if err != nil {
		return err
	}

	grpcServer := grpc.NewServer(serverOpts...)
	grpcapi.RegisterServer(grpcServer, &grpcapi.Server{Pipeline: pipeline, Fetch: fetchSvc})

	lis, err := net.Listen("tcp", cfg.API.ServerAddress)
	if err != nil {
		return fmt.Errorf("aggregatorrun: listen %s: %w", cfg.API.ServerAddress, err)
	}

	terminate := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(terminate)
		grpcServer.GracefulStop()
	}()

	go func() {
		log.Info().Str("address", cfg.API.ServerAddress).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Warn().Err(err).Msg("gRPC server stopped")
		}
	}()

	go func() {
		log.Info().Str("address", cfg.API.RestAPI).Msg("monitoring REST API listening")
		if err := apiServer.Start(); err != nil {
			log.Warn().Err(err).Msg("monitoring REST API stopped")
		}
	}()

	return eng.Run(ctx, terminate)
}

func buildStore(cfg *config.Config) (blobstore.Store, error) {
	if cfg.S3.Bucket == "" {
		return blobstore.NewMemoryStore(), nil
	}
	return s3blob.New(context.Background(), s3blob.Config{
		AccessKey:       cfg.S3.AccessKey,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		Endpoint:        cfg.S3.Endpoint,
	})
}

func buildSinks(cfg *config.Config, strategy aggregator.Strategy) []engine.StatsSink {
	var sinks []engine.StatsSink
	if cfg.Job.Route != "" {
		sinks = append(sinks, jobsink.New(cfg.Job.Route, cfg.Job.JobID, cfg.Job.JobToken, nil))
	}
	if cfg.Monitoring.Enabled {
		storage, err := monitoring.NewStorage(monitoringStorageConfig(cfg))
		if err == nil {
			sinks = append(sinks, monitoring.NewStatsSink(storage, cfg.Job.JobID, string(strategy)))
		}
	}
	return sinks
}

// monitoringStorageConfig converts the deployer-writable
// federation.MonitoringConfig.Storage block (SPEC_FULL.md §5
// monitoring.storage.*) into monitoring.StorageConfig, defaulting to the
// in-memory backend when unset so existing plans without a storage: block
// keep working.
func monitoringStorageConfig(cfg *config.Config) monitoring.StorageConfig {
	s := cfg.Monitoring.Storage
	backend := s.Backend
	if backend == "" {
		backend = "memory"
	}
	return monitoring.StorageConfig{
		Backend: backend,
		Memory:  monitoring.MemoryConfig{MaxEntries: s.Memory.MaxEntries},
		PostgreSQL: monitoring.DatabaseConfig{
			Host:     s.PostgreSQL.Host,
			Port:     s.PostgreSQL.Port,
			User:     s.PostgreSQL.User,
			Password: s.PostgreSQL.Password,
			Database: s.PostgreSQL.Database,
			SSLMode:  s.PostgreSQL.SSLMode,
			MaxConns: s.PostgreSQL.MaxConns,
		},
		Redis: monitoring.RedisConfig{
			Address:  s.Redis.Address,
			Password: s.Redis.Password,
			Database: s.Redis.Database,
			PoolSize: s.Redis.PoolSize,
			TTL:      s.Redis.TTL,
		},
	}
}
