package service_registry

import (
	"errors"
	"testing"

	"github.com/benmeehan/signage-hub/internal/api"
	"github.com/benmeehan/signage-hub/internal/gateway"
	"github.com/benmeehan/signage-hub/internal/mocks"
	"github.com/benmeehan/signage-hub/internal/registry"
	"github.com/benmeehan/signage-hub/internal/services"
	"github.com/benmeehan/signage-hub/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService records lifecycle calls.
type MockService struct {
	mock.Mock
	name  string
	calls *[]string
}

func (m *MockService) Start() error {
	*m.calls = append(*m.calls, "start:"+m.name)
	return m.Called().Error(0)
}

func (m *MockService) Stop() error {
	*m.calls = append(*m.calls, "stop:"+m.name)
	return m.Called().Error(0)
}

func newMockService(name string, calls *[]string) *MockService {
	return &MockService{name: name, calls: calls}
}

func TestServiceRegistry_StartStopOrder(t *testing.T) {
	// Setup
	var calls []string
	sr := NewServiceRegistry(Dependencies{}, zerolog.Nop())
	first := newMockService("first", &calls)
	second := newMockService("second", &calls)
	for _, svc := range []*MockService{first, second} {
		svc.On("Start").Return(nil)
		svc.On("Stop").Return(nil)
	}
	sr.RegisterService("first", first)
	sr.RegisterService("second", second)
	sr.RegisterService("first", newMockService("duplicate", &calls))

	// Execute
	require.NoError(t, sr.StartServices())
	require.NoError(t, sr.StopServices())

	// Assert
	assert.Equal(t, []string{"start:first", "start:second", "stop:second", "stop:first"}, calls)
}

func TestServiceRegistry_StartFailureStopsStartedServices(t *testing.T) {
	// Setup
	var calls []string
	sr := NewServiceRegistry(Dependencies{}, zerolog.Nop())
	first := newMockService("first", &calls)
	first.On("Start").Return(nil)
	first.On("Stop").Return(nil)
	broken := newMockService("broken", &calls)
	broken.On("Start").Return(errors.New("port in use"))
	sr.RegisterService("first", first)
	sr.RegisterService("broken", broken)

	// Execute
	err := sr.StartServices()

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start broken")
	assert.Equal(t, []string{"start:first", "start:broken", "stop:first"}, calls)
}

func TestServiceRegistry_StopServicesJoinsErrors(t *testing.T) {
	// Setup
	var calls []string
	sr := NewServiceRegistry(Dependencies{}, zerolog.Nop())
	svc := newMockService("only", &calls)
	svc.On("Stop").Return(errors.New("not running"))
	sr.RegisterService("only", svc)

	// Execute
	err := sr.StopServices()

	// Assert
	assert.EqualError(t, err, "failed to stop only: not running")
}

func TestServiceRegistry_RegisterServices(t *testing.T) {
	// Setup
	reg := registry.NewRegistry(zerolog.Nop())
	directory := new(mocks.DeviceDirectory)
	statuses := new(mocks.StatusStore)
	playback := new(mocks.PlaybackStore)
	deps := Dependencies{
		Registry:  reg,
		Gateway:   gateway.NewGateway(gateway.Options{}, reg, directory, statuses, playback, zerolog.Nop()),
		Directory: directory,
		Statuses:  statuses,
		Playback:  playback,
		Schedules: new(mocks.ScheduleStore),
		Metrics:   new(mocks.MetricsStore),
		Publisher: new(mocks.EventPublisher),
	}
	sr := NewServiceRegistry(deps, zerolog.Nop())

	config := &utils.Config{}
	config.Services.Heartbeat.Enabled = true
	config.Services.Health.Enabled = true
	config.Services.Schedule.Enabled = false
	config.ApplyDefaults()

	// Execute
	err := sr.RegisterServices(config)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"heartbeat", "health", "api"}, sr.serviceKeys)

	heartbeat, ok := sr.Service("heartbeat")
	require.True(t, ok)
	assert.IsType(t, &services.HeartbeatSweeper{}, heartbeat)

	server, ok := sr.Service("api")
	require.True(t, ok)
	assert.IsType(t, &api.Server{}, server)

	_, ok = sr.Service("schedule")
	assert.False(t, ok)
}

func TestServiceRegistry_RegisterServicesRejectsInvalidVersion(t *testing.T) {
	// Setup
	sr := NewServiceRegistry(Dependencies{}, zerolog.Nop())
	config := &utils.Config{}
	config.Services.Health.Enabled = true
	config.Services.Health.MinPlayerVersion = "not-a-version"
	config.ApplyDefaults()

	// Execute
	err := sr.RegisterServices(config)

	// Assert
	require.Error(t, err)
	_, ok := sr.Service("api")
	assert.False(t, ok)
}
