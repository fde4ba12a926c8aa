// Package events publishes hub notifications to other processes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/pkg/mqtt"
	"github.com/rs/zerolog"
)

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("publish timed out")

// MQTTPublisher publishes JSON events under a topic prefix.
type MQTTPublisher struct {
	client  mqtt.MQTTClient
	prefix  string
	qos     byte
	timeout time.Duration
	logger  zerolog.Logger
}

// NewMQTTPublisher creates a publisher on an initialized client.
func NewMQTTPublisher(client mqtt.MQTTClient, prefix string, qos int, timeout time.Duration,
	logger zerolog.Logger) *MQTTPublisher {

	if timeout <= 0 {
		timeout = constants.DefaultPublishTimeout
	}

	return &MQTTPublisher{
		client:  client,
		prefix:  strings.TrimSuffix(prefix, "/"),
		qos:     byte(qos),
		timeout: timeout,
		logger:  logger,
	}
}

// Topic returns the broker topic an event topic is published on.
func (p *MQTTPublisher) Topic(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "/" + topic
}

// Publish marshals payload and waits for the broker acknowledgement, the
// context or the publish timeout, whichever comes first.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", topic, err)
	}

	full := p.Topic(topic)
	token := p.client.Publish(full, p.qos, false, data)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish %s event: %w", full, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrPublishTimeout, full)
	}

	p.logger.Debug().Str("topic", full).Msg("Event published successfully")
	return nil
}

// LogPublisher writes events to the log. It stands in for the broker when
// MQTT is disabled.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", topic, err)
	}
	p.logger.Info().Str("topic", topic).RawJSON("payload", data).Msg("Event")
	return nil
}
