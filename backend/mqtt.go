package backend

import (
	"context"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rotblauer/fieldcat/catdb/pending"
	"github.com/rotblauer/fieldcat/conceptual"
	"github.com/rotblauer/fieldcat/params"
)

// MQTTSender publishes records at QoS 1.
// The broker's PUBACK is the acknowledgment.
type MQTTSender struct {
	client MQTT.Client
	topic  string
}

func DialMQTT(cfg params.DeliveryConfig, deviceID conceptual.DeviceID) (*MQTTSender, error) {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(cfg.BackendURL)
	opts.SetClientID("fieldcat-" + deviceID.String())
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := MQTT.NewClient(opts)
	token := client.Connect()
	// With ConnectRetry the token completes only once connected; do not block on it.
	if token.WaitTimeout(cfg.Timeout) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &MQTTSender{client: client, topic: cfg.Subject}, nil
}

func (s *MQTTSender) Reachable(ctx context.Context) error {
	if !s.client.IsConnectionOpen() {
		return fmt.Errorf("%w: mqtt not connected", ErrUnreachable)
	}
	return nil
}

func (s *MQTTSender) Send(ctx context.Context, rec *pending.Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 1, false, data)
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

func (s *MQTTSender) Close() error {
	s.client.Disconnect(250)
	return nil
}
