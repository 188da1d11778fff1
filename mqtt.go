package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// publisher sends every reading to an MQTT topic.
type publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

func newPublisher(args *ProgramArgs, logger *slog.Logger) *publisher {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(args.MQTTBroker)
	opts.SetClientID(args.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", args.MQTTBroker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "err", err)
	})

	return &publisher{
		client: mqtt.NewClient(opts),
		topic:  args.MQTTTopic,
		logger: logger,
	}
}

// connect waits for the first connection, honoring ctx.
func (p *publisher) connect(ctx context.Context) error {
	token := p.client.Connect()
	for !token.WaitTimeout(200 * time.Millisecond) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (p *publisher) publish(r SensorReading) error {
	if !p.client.IsConnected() {
		return errors.New("mqtt client not connected")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	token := p.client.Publish(p.topic, 1, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}
	p.logger.Debug("published reading", "topic", p.topic)
	return nil
}

func (p *publisher) close() {
	p.client.Disconnect(250)
}
