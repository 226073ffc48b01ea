package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mitm-lab/injector"
	"mitm-lab/intercept"
	"mitm-lab/runtime"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Filter policy
	blocklist, err := intercept.NewBlocklist(intercept.ParseWords(config.blockedKeywords()))
	if err != nil {
		return fmt.Errorf("block-list build failed: %w", err)
	}
	rules, err := intercept.ParseRules(config.rewriteRules())
	if err != nil {
		return fmt.Errorf("rewrite rules: %w", err)
	}

	// 3. Relay in front of the real dispatcher
	listenAddr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	upstreamAddr := fmt.Sprintf("%s:%d", config.UpstreamHost, config.UpstreamPort)

	relay := intercept.NewRelay(
		listenAddr,
		upstreamAddr,
		intercept.NewInspector(blocklist, intercept.NewRewriter(rules)),
		intercept.NewObserver(log, config.Colours),
		log,
	)

	// 4. Injection console, wired past the relay straight to the upstream
	console := injector.NewConsole(upstreamAddr, os.Stdin, log, config.Colours)

	// 5. Context & supervised workers
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := runtime.NewSupervisor(log, config.RestartInterval).
		Add(relay, console, runtime.NewHealthWorker(log, config.HealthInterval))

	log.Info("Starting MITM proxy", "listen", listenAddr, "upstream", upstreamAddr,
		"blocked_keywords", config.blockedKeywords(), "rewrite_rules", config.rewriteRules())
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
