package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"portal-dm/auth"
	"portal-dm/internal"
	"portal-dm/moderation"
	"portal-dm/repositories"
	"portal-dm/runtime"
	"portal-dm/runtime/workers"
	"portal-dm/services"
	"portal-dm/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the daemon lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censorRune, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Databases (BadgerDB for messages, Bluge for search)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge index...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories, moderation, session gate
	messageRepository := repositories.NewMessageRepository(db, log)
	searchRepository := repositories.NewSearchRepository(blugeWriter, log)

	moderator, languages, err := moderation.NewDefaultModerator(censorRune)
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("Moderation loaded for languages [%v]", languages))

	// Default-allow: the portal has no messaging restrictions configured here.
	gate := auth.NewTokenGate(nil)

	// 4. Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, registry, messageRepository,
		config.ConnectionBufferSize, config.SinkTimeout, config.MetricInterval)
	orchestrator.AddChangeSinks(sink.NewIndexSink(searchRepository, log))

	service := services.NewMessagingService(log, gate, messageRepository,
		searchRepository, moderator, orchestrator)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Start the engine and the local inspection endpoint
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}
	internal.StartDebugServer(log, service, config.DebugPort, "/inspect")

	// 7. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// 8. Final Cleanup
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
