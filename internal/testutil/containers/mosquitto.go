//go:build integration

//nolint:misspell // Mosquitto is the official Eclipse project name
package containers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const anonymousMosquittoConf = "listener 1883\nallow_anonymous true\n"

// MosquittoContainer is a running MQTT broker accepting anonymous clients.
type MosquittoContainer struct {
	container testcontainers.Container
	brokerURL string
}

// NewMosquittoContainer starts eclipse-mosquitto and waits until a client
// can connect.
func NewMosquittoContainer(ctx context.Context) (*MosquittoContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto/config/test.conf"},
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(anonymousMosquittoConf),
			ContainerFilePath: "/mosquitto/config/test.conf",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Mosquitto container: %w", err)
	}

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = ctr.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := ctr.MappedPort(ctx, "1883")
	if err != nil {
		_ = ctr.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	mc := &MosquittoContainer{
		container: ctr,
		brokerURL: "tcp://" + net.JoinHostPort(host, strconv.Itoa(port.Int())),
	}
	err = RetryWithBackoff(ctx, 5, 200*time.Millisecond, 2*time.Second, func() error {
		c, err := mc.Connect("healthcheck")
		if err != nil {
			return err
		}
		c.Disconnect(100)
		return nil
	})
	if err != nil {
		_ = ctr.Terminate(context.Background())
		return nil, fmt.Errorf("broker not ready: %w", err)
	}
	return mc, nil
}

// BrokerURL returns the broker address, e.g. "tcp://localhost:32768".
func (c *MosquittoContainer) BrokerURL() string {
	return c.brokerURL
}

// Connect returns a connected client. The caller disconnects it.
func (c *MosquittoContainer) Connect(clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("connect timeout for client %s", clientID)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect client %s: %w", clientID, err)
	}
	return client, nil
}

// Message is a received publication.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Subscribe connects a fresh client subscribed to filter and forwards every
// publication to the returned channel. The returned func unsubscribes and
// disconnects.
func (c *MosquittoContainer) Subscribe(clientID, filter string) (<-chan Message, func(), error) {
	client, err := c.Connect(clientID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Message, 32)
	token := client.Subscribe(filter, 1, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case ch <- Message{Topic: msg.Topic(), Payload: msg.Payload(), Retained: msg.Retained()}:
		default:
		}
	})
	if !token.WaitTimeout(5 * time.Second) {
		client.Disconnect(100)
		return nil, nil, fmt.Errorf("subscribe timeout for %s", filter)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(100)
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", filter, err)
	}

	stop := func() {
		client.Unsubscribe(filter).WaitTimeout(time.Second)
		client.Disconnect(100)
	}
	return ch, stop, nil
}

// Terminate removes the container.
func (c *MosquittoContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
