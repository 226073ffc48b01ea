package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mitm-lab/repositories"
	"mitm-lab/runtime"
	"mitm-lab/server"
	"mitm-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the daemon lifecycle, and
// centralizes error reporting so every defer (notably the database close)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Stores & Dispatcher
	dispatcher := server.NewDispatcher(
		services.NewAuthService(
			repositories.NewAccountRepository(db),
			repositories.NewSessionRepository(db),
		),
		services.NewMessageService(repositories.NewMessageRepository(db, log)),
		log,
	)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := server.New(address, dispatcher, log, config.ReadTimeout, config.MaxConnections)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised workers: listener + process health sampling
	sup := runtime.NewSupervisor(log, config.RestartInterval).
		Add(srv, runtime.NewHealthWorker(log, config.HealthInterval))

	log.Info("Starting server", "address", address)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
