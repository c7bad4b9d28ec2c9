package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/panel-power/internal/logic"
)

// DefaultBufferSize is how many messages are held while the broker is
// unreachable.
const DefaultBufferSize = 64

var errNotConnected = errors.New("not connected")

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed, in order, on reconnect.
type RealPublisher struct {
	client paho.Client
	log    logrus.FieldLogger
	send   func(bufferedMsg) error

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool
	everUp    bool
	replaying bool
	gen       int // bumped on every connect; a stale replay stops
}

// NewRealPublisher starts connecting to broker in the background and returns
// immediately. A retained SHUTDOWN/MQTT_DISCONNECT will is registered.
func NewRealPublisher(broker, clientID string, bufferSize int, log logrus.FieldLogger) *RealPublisher {
	p := newPublisher(bufferSize, log)
	p.send = p.sendPaho

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(bufferSize int, log logrus.FieldLogger) *RealPublisher {
	return &RealPublisher{
		log: log,
		buf: newRingBuffer(bufferSize),
	}
}

// Handlers run on the client's goroutine; replay off it so token waits
// cannot stall the connection.
func (p *RealPublisher) onConnect(paho.Client) {
	go p.replay(p.markConnected())
}

// markConnected flips to connected in replay mode and queues RECONNECTED
// behind whatever was buffered. It returns the new connection generation.
func (p *RealPublisher) markConnected() int {
	p.mu.Lock()
	reconnect := p.everUp
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		p.buf.push(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
	}
	p.connected = true
	p.everUp = true
	p.replaying = true
	p.gen++
	gen := p.gen
	dropped := p.buf.takeDropped()
	p.mu.Unlock()

	if reconnect {
		p.log.Info("mqtt: reconnected")
	} else {
		p.log.Info("mqtt: connected")
	}
	if dropped > 0 {
		p.log.Warnf("mqtt: %d buffered messages were dropped while offline", dropped)
	}
	return gen
}

// replay sends buffered messages oldest first. New messages keep queueing
// behind them until the buffer is empty. It stops early if the connection
// drops; what is left stays buffered for the next connect.
func (p *RealPublisher) replay(gen int) {
	for {
		p.mu.Lock()
		if gen != p.gen || !p.connected {
			p.mu.Unlock()
			return
		}
		m, ok := p.buf.pop()
		if !ok {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		if err := p.send(m); err != nil {
			p.log.Warnf("mqtt: replay to %s failed, message dropped: %v", m.topic, err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.replaying = false
	p.mu.Unlock()
	p.log.Warnf("mqtt: connection lost: %v", err)
}

func (p *RealPublisher) sendPaho(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

// publish sends m now, or buffers it while offline or while older messages
// are still being replayed. A send that fails on a live connection is not
// buffered: a timed-out publish may still arrive, and replaying it would
// duplicate it.
func (p *RealPublisher) publish(m bufferedMsg) error {
	p.mu.Lock()
	if !p.connected || p.replaying {
		if p.buf.push(m) {
			p.log.Debug("mqtt: buffer full, dropped oldest message")
		}
		connected := p.connected
		p.mu.Unlock()
		if !connected {
			return errNotConnected
		}
		return nil
	}
	p.mu.Unlock()

	return p.send(m)
}

// Publish sends a power or battery event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	if err := p.publish(bufferedMsg{topic: Topic, payload: payload, qos: 1}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	m := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.publish(m); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
