package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/metrics_collectors"
	"github.com/benmeehan/signage-hub/internal/player"
	"github.com/benmeehan/signage-hub/internal/state_managers"
	"github.com/benmeehan/signage-hub/pkg/file"
	"github.com/benmeehan/signage-hub/pkg/identity"
	"github.com/rs/zerolog"
)

func main() {
	identityPath := flag.String("identity", "identity.json", "file holding the device identity")
	hubURL := flag.String("hub", "", "websocket URL of the hub, overrides the identity file")
	deviceID := flag.String("device", "", "device identifier provisioned in the hub, saved to the identity file")
	version := flag.String("version", "1.0.0", "player version reported in status messages")
	statePath := flag.String("state", constants.DefaultPlayerStateFile, "file the player state is persisted to")
	diskPath := flag.String("disk", "/", "path whose filesystem usage is reported")
	statusInterval := flag.Duration("status-interval", constants.DefaultPlayerStatusInterval, "time between status reports")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	}

	fileClient := file.NewFileService()

	deviceInfo := identity.NewDeviceInfo(*identityPath, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load device information")
	}
	device, err := deviceInfo.Resolve(*deviceID, *hubURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve device identity")
	}
	if device.HubURL == "" {
		device.HubURL = "ws://localhost:8080/ws"
	}

	stateManager := state_managers.NewPlayerStateManager(*statePath, fileClient,
		log.With().Str("component", "state").Logger())
	collectors := metrics_collectors.NewDefaultRegistry(*diskPath, log.With().Str("component", "metrics").Logger())

	p := player.NewPlayer(device.HubURL, device.ID, *version, collectors, stateManager,
		log.With().Str("component", "player").Logger())
	p.StatusInterval = *statusInterval

	if err := p.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start player")
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := p.Stop(); err != nil {
		log.Error().Err(err).Msg("Player did not stop cleanly")
	}
}
