package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"example.com/quicharness/internal/config"
	"example.com/quicharness/internal/harness"
	"example.com/quicharness/internal/logger"
	"example.com/quicharness/internal/quic"
	"example.com/quicharness/internal/quic/fake"
	"example.com/quicharness/internal/testutil"
)

var configFilePath string

func main() {
	flag.StringVar(&configFilePath, "config", "", "Path to the configuration file (TOML, optional)")
	flag.Parse()

	var cfg *config.Config
	if configFilePath != "" {
		absConfigPath, err := filepath.Abs(configFilePath)
		if err != nil {
			log.Fatalf("Error getting absolute path for config file %s: %v", configFilePath, err)
		}
		cfg, err = config.Load(absConfigPath)
		if err != nil {
			log.Fatalf("Failed to load configuration from %s: %v", absConfigPath, err)
		}
	} else {
		cfg = config.NewDefault()
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := appLogger.Close(); err != nil {
			log.Printf("Error closing log output during shutdown: %v", err)
		}
	}()
	appLogger.Info("Logger initialized", nil)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Scenario failed", logger.LogFields{"error": err.Error()})
		os.Exit(1)
	}
	appLogger.Info("Scenario complete", nil)
}

// run drives a scripted client/server exchange over the in-memory
// driver: handshake, a peer-opened stream, a graceful close, and a key
// update, exercising the fixture end to end.
func run(cfg *config.Config, appLogger *logger.Logger) error {
	settings := harness.SettingsFromConfig(cfg.Harness)
	registration := fake.NewRegistration(appLogger)

	cert, err := testutil.GenerateSelfSignedCert("localhost")
	if err != nil {
		return fmt.Errorf("generating certificate: %w", err)
	}

	acceptStream := func(c *harness.Connection, stream quic.Stream, flags quic.StreamOpenFlags) {
		appLogger.Info("Peer stream arrived", logger.LogFields{"flags": uint32(flags)})
		stream.Close()
	}

	client := harness.NewClient(registration, acceptStream,
		harness.WithLogger(appLogger),
		harness.WithSettings(settings),
	)
	defer client.Close()
	clientHandle := registration.LastConn()

	serverHandle := registration.Accept()
	server := harness.NewServer(serverHandle, acceptStream,
		harness.WithLogger(appLogger),
		harness.WithSettings(settings),
	)
	defer server.Close()

	if status := server.SetSecurityConfig(quic.NewSecurityConfig(cert)); status.Failed() {
		return fmt.Errorf("setting security config: %v", status)
	}

	if status := client.Start(quic.AddressFamilyUnspec, "localhost", 4433); status.Failed() {
		return fmt.Errorf("starting client: %v", status)
	}

	group, ctx := errgroup.WithContext(context.Background())
	client.SetContext(ctx)

	group.Go(func() error {
		clientHandle.DeliverConnected(false)
		serverHandle.DeliverConnected(false)
		clientHandle.DeliverPeerStreamStarted(quic.StreamOpenUnidirectional)
		return nil
	})

	group.Go(func() error {
		if !client.WaitForConnectionComplete() {
			return fmt.Errorf("client handshake did not complete")
		}
		if !server.WaitForConnectionComplete() {
			return fmt.Errorf("server handshake did not complete")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	if status := client.ForceKeyUpdate(); status.Failed() {
		return fmt.Errorf("forcing key update: %v", status)
	}
	stats := client.GetStatistics()
	appLogger.Info("Connection statistics", logger.LogFields{
		"key_updates": stats.KeyUpdateCount,
	})

	client.Shutdown(quic.ShutdownNone, 0)
	if !client.WaitForShutdownComplete() {
		return fmt.Errorf("client shutdown did not complete")
	}
	serverHandle.DeliverPeerShutdown(0)
	serverHandle.DeliverShutdownComplete(true)
	if !server.WaitForShutdownComplete() {
		return fmt.Errorf("server shutdown did not complete")
	}
	return nil
}
