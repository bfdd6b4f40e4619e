// Voicegate is the speech and voice-session gateway for the learning
// platform. It synthesizes lesson speech through Amazon Polly, keeps voice
// tutoring sessions and their conversations in DynamoDB and, when narration
// is enabled, narrates each session's lesson into S3-hosted segments.
//
// Usage:
//
//	voicegate [flags]
//	voicegate --config /path/to/voicegate.yaml
//	voicegate --create-tables
//
// @title       voicegate API
// @version     1.0
// @description Speech synthesis and voice session API for the learning platform.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/panjf2000/ants/v2"

	"github.com/cognia-intellilearn/voicegate/internal/awsutil"
	"github.com/cognia-intellilearn/voicegate/internal/config"
	"github.com/cognia-intellilearn/voicegate/internal/dispatch"
	"github.com/cognia-intellilearn/voicegate/internal/health"
	"github.com/cognia-intellilearn/voicegate/internal/narration"
	"github.com/cognia-intellilearn/voicegate/internal/session"
	"github.com/cognia-intellilearn/voicegate/internal/speech"
	"github.com/cognia-intellilearn/voicegate/internal/storage"
	"github.com/cognia-intellilearn/voicegate/internal/transport"
	grpctransport "github.com/cognia-intellilearn/voicegate/internal/transport/grpc"
	httptransport "github.com/cognia-intellilearn/voicegate/internal/transport/http"
	"github.com/cognia-intellilearn/voicegate/internal/tts/polly"
)

// version is set at build time via ldflags.
var version = "dev"

// sessionStore persists sessions, conversations and narrated content.
type sessionStore interface {
	session.Store
	session.ContentStore
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/voicegate.yaml)")
	createTables := flag.Bool("create-tables", false, "create the DynamoDB tables if missing, then continue")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voicegate %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	logCloser := config.SetupLogging(cfg.Logging)
	defer logCloser.Close()
	slog.Info("voicegate starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *createTables); err != nil {
		slog.Error("voicegate failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
	slog.Info("voicegate stopped")
}

func run(ctx context.Context, cfg *config.Config, createTables bool) error {
	// Credentials come from the SDK default chain, never from config.
	sess, err := awsutil.NewSession(cfg.AWS)
	if err != nil {
		return fmt.Errorf("creating aws session: %w", err)
	}

	synth := polly.New(sess)
	defer synth.Close()
	slog.Info("using Polly synthesizer", "region", cfg.AWS.Region, "timeout", cfg.Polly.Timeout)

	// Initialize the session store.
	var store sessionStore
	switch cfg.Sessions.Backend {
	case config.BackendDynamo:
		dynamo := session.NewDynamoStore(sess, cfg.Sessions)
		if createTables {
			if err := dynamo.CreateTables(ctx); err != nil {
				return fmt.Errorf("creating tables: %w", err)
			}
		}
		store = dynamo
		slog.Info("using DynamoDB session store",
			"sessions_table", cfg.Sessions.SessionsTable,
			"conversations_table", cfg.Sessions.ConversationsTable,
			"content_table", cfg.Sessions.ContentTable)
	case config.BackendMemory:
		store = session.NewMemoryStore()
		slog.Warn("using in-memory session store; sessions are lost on restart")
	default:
		return fmt.Errorf("unknown session backend %q", cfg.Sessions.Backend)
	}

	// Build the speech gateway, publishing to S3 when a bucket is configured.
	opts := []speech.Option{
		speech.WithTimeout(cfg.Polly.Timeout),
		speech.WithDefaultStyle(cfg.Polly.DefaultStyle),
	}
	var publisher *storage.S3Publisher
	if cfg.Storage.Enabled() {
		publisher = storage.NewS3Publisher(sess, cfg.Storage, cfg.AWS.Region)
		opts = append(opts, speech.WithPublisher(publisher))
		slog.Info("audio publishing enabled", "bucket", cfg.Storage.Bucket, "prefix", cfg.Storage.Prefix)
	}

	// Narrate lessons on session create. Config validation guarantees a
	// publisher when narration is enabled.
	var sessionOpts []session.ServiceOption
	if cfg.Narration.Enabled {
		pool, err := ants.NewPool(cfg.Narration.Concurrency, ants.WithPanicHandler(func(p any) {
			slog.Error("panic in narration worker", "panic", p)
		}))
		if err != nil {
			return fmt.Errorf("creating narration pool: %w", err)
		}
		defer pool.Release()

		narrationOpts := []narration.Option{
			narration.WithPrefix(cfg.Narration.Prefix),
			narration.WithTimeout(cfg.Polly.Timeout),
		}
		if cfg.Narration.Bedrock.Enabled {
			narrationOpts = append(narrationOpts, narration.WithWriter(narration.NewBedrockWriter(sess, cfg.Narration.Bedrock)))
			slog.Info("lesson generation enabled", "model", cfg.Narration.Bedrock.ModelID)
		}
		narrator := narration.New(store, synth, publisher, pool, narrationOpts...)
		sessionOpts = append(sessionOpts, session.WithNarrator(narrator))
		slog.Info("lesson narration enabled", "prefix", cfg.Narration.Prefix, "concurrency", cfg.Narration.Concurrency)
	}

	backend := transport.Backend{
		Speech:   speech.New(synth, opts...),
		Sessions: dispatch.New(session.NewService(store, sessionOpts...)).Handle,
	}

	// Initialize enabled transports.
	var transports []transport.Transport
	var grpcTransport *grpctransport.Transport

	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, cfg.Transports.HTTP.MaxBodyBytes))
	}
	if cfg.Transports.GRPC.Enabled {
		grpcTransport = grpctransport.New(cfg.Transports.GRPC.Port)
		transports = append(transports, grpcTransport)
	}

	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled, enable at least one in config")
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, version)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, backend); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	if grpcTransport != nil {
		grpcTransport.SetServing(true)
	}
	slog.Info("voicegate ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort,
		"publish", cfg.Storage.Enabled(),
		"narration", cfg.Narration.Enabled)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)
	if grpcTransport != nil {
		grpcTransport.SetServing(false)
	}

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	return nil
}
