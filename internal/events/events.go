// Package events publishes call lifecycle events over MQTT so downstream
// consumers (dashboards, CRM hooks) can follow pipeline progress live.
package events

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Publisher emits call progress events. A nil *Publisher is valid and
// publishes nothing, so callers never need to branch on configuration.
type Publisher struct {
	conn      mqtt.Client
	prefix    string
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

// Event is the wire format for progress messages.
type Event struct {
	CallID    int64     `json:"call_id"`
	State     string    `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Connect creates a publisher. Returns (nil, nil) when BrokerURL is empty.
func Connect(opts Options) (*Publisher, error) {
	if opts.BrokerURL == "" {
		return nil, nil
	}

	prefix := opts.TopicPrefix
	if prefix == "" {
		prefix = "callscribe"
	}

	p := &Publisher{
		prefix: prefix,
		log:    opts.Log.With().Str("component", "events").Logger(),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return p, nil
}

// PublishProgress emits the current pipeline state for a call on
// {prefix}/calls/{id}/progress. Publish failures are logged, not returned;
// events are best-effort and never block the pipeline.
func (p *Publisher) PublishProgress(callID int64, state, detail string) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(Event{
		CallID:    callID,
		State:     state,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	topic := fmt.Sprintf("%s/calls/%d/progress", p.prefix, callID)
	token := p.conn.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
		}
	}()
}

func (p *Publisher) onConnect(_ mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Str("prefix", p.prefix).Msg("mqtt connected")
}

func (p *Publisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (p *Publisher) IsConnected() bool {
	if p == nil {
		return false
	}
	return p.connected.Load()
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.log.Info().Msg("disconnecting mqtt publisher")
	p.conn.Disconnect(1000)
}
