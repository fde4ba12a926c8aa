package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/signage-hub/internal/events"
	"github.com/benmeehan/signage-hub/internal/gateway"
	"github.com/benmeehan/signage-hub/internal/registry"
	"github.com/benmeehan/signage-hub/internal/service_registry"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/benmeehan/signage-hub/internal/utils"
	"github.com/benmeehan/signage-hub/pkg/db"
	"github.com/benmeehan/signage-hub/pkg/file"
	"github.com/benmeehan/signage-hub/pkg/memstore"
	"github.com/benmeehan/signage-hub/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the hub configuration file")
	seedPath := flag.String("seed", "", "optional YAML fixtures file loaded into the database at startup")
	flag.Parse()

	// Set up structured logging with JSON output
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil {
		log.Warn().Err(err).Str("level", config.Logging.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	if config.Logging.Debug {
		level = zerolog.DebugLevel
	}
	log = log.Level(level)

	database, err := db.New(config.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", config.Database.Path).Msg("Failed to open database")
	}
	defer database.Close()

	if *seedPath != "" {
		var fixtures db.Fixtures
		if err := fileClient.ReadYamlFile(*seedPath, &fixtures); err != nil {
			log.Fatal().Err(err).Str("path", *seedPath).Msg("Failed to read seed file")
		}
		if err := database.Seed(context.Background(), fixtures); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed database")
		}
		log.Info().
			Int("branches", len(fixtures.Branches)).
			Int("devices", len(fixtures.Devices)).
			Int("schedules", len(fixtures.Schedules)).
			Msg("Database seeded")
	}

	// Event channel: MQTT when enabled, otherwise the log
	var publisher stores.EventPublisher = events.NewLogPublisher(log.With().Str("component", "events").Logger())
	var mqttClient *mqtt.MqttService
	if config.MQTT.Enabled {
		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		log.Info().Msgf("Using MQTT Client ID: %s", clientID)

		mqttClient = mqtt.NewMqttService(fileClient, log.With().Str("component", "mqtt").Logger())
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		publisher = events.NewMQTTPublisher(mqttClient, config.MQTT.TopicPrefix, config.MQTT.QOS,
			config.MQTT.PublishTimeout, log.With().Str("component", "events").Logger())
	}

	metrics := memstore.New(config.Alerts.MetricRetention, config.Alerts.HistoryLimit)
	connections := registry.NewRegistry(log.With().Str("component", "registry").Logger())
	gw := gateway.NewGateway(gateway.Options{
		ReadLimit:         config.Server.ReadLimit,
		WriteTimeout:      config.Server.WriteTimeout,
		OutboundQueueSize: config.Server.OutboundQueueSize,
		InboundRate:       config.Server.InboundRate,
		InboundBurst:      config.Server.InboundBurst,
	}, connections, database, database, database, log.With().Str("component", "gateway").Logger())

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(service_registry.Dependencies{
		Registry:  connections,
		Gateway:   gw,
		Directory: database,
		Statuses:  database,
		Playback:  database,
		Schedules: database,
		Metrics:   metrics,
		Publisher: publisher,
	}, log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Str("listen_addr", config.Server.ListenAddr).Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services did not stop cleanly")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}
