package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/mocks"
	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func doneChannel() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestMQTTPublisher_Publish(t *testing.T) {
	// Setup
	client := new(mocks.MQTTClient)
	token := new(mocks.Token)
	publisher := NewMQTTPublisher(client, "signage/", 1, time.Second, zerolog.Nop())

	event := models.PlaylistChangeEvent{ScheduleID: "s1", BranchID: "b1", PlaylistID: "p2"}
	client.On("Publish", "signage/playlist/changed", byte(1), false, mock.MatchedBy(func(data []byte) bool {
		return assert.ObjectsAreEqual(`{"scheduleId":"s1","branchId":"b1","playlistId":"p2","devices":null,"timestamp":"0001-01-01T00:00:00Z"}`, string(data))
	})).Return(token)
	token.On("Done").Return(doneChannel())
	token.On("Error").Return(nil)

	// Execute
	err := publisher.Publish(context.Background(), constants.TopicPlaylistChanged, event)

	// Assert
	require.NoError(t, err)
	client.AssertExpectations(t)
	token.AssertExpectations(t)
}

func TestMQTTPublisher_BrokerError(t *testing.T) {
	client := new(mocks.MQTTClient)
	token := new(mocks.Token)
	publisher := NewMQTTPublisher(client, "", 0, time.Second, zerolog.Nop())

	client.On("Publish", constants.TopicAlerts, byte(0), false, mock.Anything).Return(token)
	token.On("Done").Return(doneChannel())
	token.On("Error").Return(errors.New("not authorized"))

	err := publisher.Publish(context.Background(), constants.TopicAlerts, models.Alert{ID: "a1"})
	assert.ErrorContains(t, err, "not authorized")
}

func TestMQTTPublisher_Timeout(t *testing.T) {
	client := new(mocks.MQTTClient)
	token := new(mocks.Token)
	publisher := NewMQTTPublisher(client, "signage", 0, 20*time.Millisecond, zerolog.Nop())

	client.On("Publish", "signage/alerts", byte(0), false, mock.Anything).Return(token)
	token.On("Done").Return((<-chan struct{})(make(chan struct{})))

	err := publisher.Publish(context.Background(), constants.TopicAlerts, models.Alert{})
	assert.ErrorIs(t, err, ErrPublishTimeout)
	token.AssertNotCalled(t, "Error")
}

func TestMQTTPublisher_ContextCancelled(t *testing.T) {
	client := new(mocks.MQTTClient)
	token := new(mocks.Token)
	publisher := NewMQTTPublisher(client, "signage", 0, time.Minute, zerolog.Nop())

	client.On("Publish", "signage/alerts", byte(0), false, mock.Anything).Return(token)
	token.On("Done").Return((<-chan struct{})(make(chan struct{})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.Publish(ctx, constants.TopicAlerts, models.Alert{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMQTTPublisher_UnserializablePayload(t *testing.T) {
	client := new(mocks.MQTTClient)
	publisher := NewMQTTPublisher(client, "signage", 0, time.Second, zerolog.Nop())

	err := publisher.Publish(context.Background(), constants.TopicAlerts, make(chan int))
	assert.Error(t, err)
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogPublisher_Publish(t *testing.T) {
	publisher := NewLogPublisher(zerolog.Nop())

	assert.NoError(t, publisher.Publish(context.Background(), constants.TopicAlerts, models.Alert{ID: "a1"}))
	assert.Error(t, publisher.Publish(context.Background(), constants.TopicAlerts, func() {}))
}
