// Package mqttclient publishes record status changes to an MQTT broker so
// external consumers can follow transcriptions without polling.
package mqttclient

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/Gelzieny/tube-link-scribe/internal/scribe"
)

// Client is a scribe.Notifier backed by an MQTT connection.
type Client struct {
	conn      mqtt.Client
	prefix    string
	connected atomic.Bool
	published atomic.Int64
	log       zerolog.Logger
}

var _ scribe.Notifier = (*Client)(nil)

type Options struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	Log         zerolog.Logger
}

func Connect(opts Options) (*Client, error) {
	c := &Client{
		prefix: strings.Trim(opts.TopicPrefix, "/"),
		log:    opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(clientOpts)
	token := c.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.connected.Store(true)
	c.log.Info().Str("prefix", c.prefix).Msg("mqtt connected")
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// Notify publishes e on <prefix>/transcriptions/<user>/<id> at QoS 0.
// Delivery is fire-and-forget; failures are logged.
func (c *Client) Notify(e scribe.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	topic := c.topicFor(e)
	token := c.conn.Publish(topic, 0, false, payload)
	c.published.Add(1)
	go func() {
		if !token.WaitTimeout(10*time.Second) || token.Error() == nil {
			return
		}
		c.log.Warn().Err(token.Error()).Str("topic", topic).Msg("mqtt publish failed")
	}()
}

func (c *Client) topicFor(e scribe.Event) string {
	parts := []string{"transcriptions", e.UserID, e.TranscriptionID}
	if c.prefix != "" {
		parts = append([]string{c.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

// Published returns how many events were handed to the broker connection.
func (c *Client) Published() int64 {
	return c.published.Load()
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) Close() {
	c.log.Info().Msg("disconnecting mqtt client")
	c.conn.Disconnect(1000)
}
