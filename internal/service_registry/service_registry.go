package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/signage-hub/internal/api"
	"github.com/benmeehan/signage-hub/internal/gateway"
	"github.com/benmeehan/signage-hub/internal/registry"
	"github.com/benmeehan/signage-hub/internal/services"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/benmeehan/signage-hub/internal/utils"
	"github.com/rs/zerolog"
)

// Service is a long running component with an explicit lifecycle.
type Service interface {
	Start() error
	Stop() error
}

// Dependencies are the shared components services are built from.
type Dependencies struct {
	Registry  *registry.Registry
	Gateway   *gateway.Gateway
	Directory stores.DeviceDirectory
	Statuses  stores.StatusStore
	Playback  stores.PlaybackStore
	Schedules stores.ScheduleStore
	Metrics   stores.MetricsStore
	Publisher stores.EventPublisher
}

// ServiceRegistry manages the lifecycle of various services in the system.
type ServiceRegistry struct {
	services    map[string]Service // Stores registered services
	serviceKeys []string           // Maintains order of service registration
	deps        Dependencies
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
func NewServiceRegistry(deps Dependencies, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]Service),
		deps:     deps,
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns a registered service by name.
func (sr *ServiceRegistry) Service(name string) (Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
// The API server is always registered last so devices connect once the
// background tasks are running.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config) error {
	var health *services.HealthMonitor

	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (Service, error)
	}{
		{
			name:    "heartbeat",
			enabled: config.Services.Heartbeat.Enabled,
			constructor: func() (Service, error) {
				return services.NewHeartbeatSweeper(
					config.Services.Heartbeat.Interval,
					config.Services.Heartbeat.Timeout,
					sr.deps.Registry,
					sr.deps.Gateway,
					sr.Logger.With().Str("service", "heartbeat").Logger(),
				), nil
			},
		},
		{
			name:    "health",
			enabled: config.Services.Health.Enabled,
			constructor: func() (Service, error) {
				cfg := config.Services.Health
				monitor, err := services.NewHealthMonitor(
					services.HealthSettings{
						Interval:          cfg.Interval,
						OfflineThreshold:  cfg.OfflineThreshold,
						ReconnectAttempts: cfg.ReconnectAttempts,
						ReconnectWait:     cfg.ReconnectWait,
						RetryDelay:        cfg.RetryDelay,
						CPUThreshold:      cfg.CPUThreshold,
						MemoryThreshold:   cfg.MemoryThreshold,
						StorageThreshold:  cfg.StorageThreshold,
						MinPlayerVersion:  cfg.MinPlayerVersion,
						Workers:           cfg.Workers,
					},
					sr.deps.Directory,
					sr.deps.Statuses,
					sr.deps.Metrics,
					sr.deps.Publisher,
					sr.deps.Gateway,
					sr.Logger.With().Str("service", "health").Logger(),
				)
				if err != nil {
					return nil, err
				}
				health = monitor
				return monitor, nil
			},
		},
		{
			name:    "schedule",
			enabled: config.Services.Schedule.Enabled,
			constructor: func() (Service, error) {
				return services.NewScheduleTrigger(
					config.Services.Schedule.Interval,
					config.Services.Schedule.Timezone,
					sr.deps.Schedules,
					sr.deps.Playback,
					sr.deps.Directory,
					sr.deps.Publisher,
					sr.deps.Gateway,
					sr.Logger.With().Str("service", "schedule").Logger(),
				)
			},
		},
		{
			name:    "api",
			enabled: true,
			constructor: func() (Service, error) {
				var healthView api.HealthView
				if health != nil {
					healthView = health
				}
				return api.NewServer(
					config.Server.ListenAddr,
					config.Server.WebsocketPath,
					sr.deps.Gateway,
					sr.deps.Registry,
					healthView,
					sr.deps.Metrics,
					sr.Logger.With().Str("service", "api").Logger(),
				), nil
			},
		},
	}

	registeredServices := []string{}
	for _, svc := range servicesInOrder {
		if svc.enabled {
			serviceInstance, err := svc.constructor()
			if err != nil {
				sr.Logger.Error().Err(err).Msgf("Failed to create %s service", svc.name)
				return err
			}
			sr.RegisterService(svc.name, serviceInstance)
			registeredServices = append(registeredServices, svc.name)
		}
	}

	sr.Logger.Info().Msgf("Registered services in order: %v", registeredServices)
	return nil
}
