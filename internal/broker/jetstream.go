package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// Config carries the JetStream connection settings.
type Config struct {
	// URL of the NATS server.
	URL string
	// Stream is the durable stream holding chat traffic. Subjects lists the
	// subject space bound to it (e.g. "jamify.>").
	Stream   string
	Subjects []string
	// ConsumerPrefix names this process's consumers. Every process owns its
	// own consumer per destination so that each process sees every message;
	// fan-out across processes is the whole point of the relay.
	ConsumerPrefix string
	// ConnectAttempts and ConnectDelay bound the startup retry loop.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// JetStreamBroker implements Broker on a NATS JetStream stream.
type JetStreamBroker struct {
	cfg    Config
	logger *slog.Logger
	state  state

	mu        sync.Mutex
	nc        *nats.Conn
	js        jetstream.JetStream
	stream    jetstream.Stream
	consumers []jetstream.ConsumeContext
}

// NewJetStreamBroker builds a disconnected broker client. Call Connect
// before use.
func NewJetStreamBroker(cfg Config) *JetStreamBroker {
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 5
	}
	if cfg.ConnectDelay <= 0 {
		cfg.ConnectDelay = 2 * time.Second
	}
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = []string{"jamify.>"}
	}
	return &JetStreamBroker{
		cfg:    cfg,
		logger: slog.Default().With("component", "broker"),
	}
}

// Connect dials the NATS server with a bounded retry loop and binds the
// stream. The loop is sequential and blocks the caller; it is meant to run
// once, at startup. Exhausting the attempts returns an error the process
// must treat as fatal: without a working broker there is no cross-process
// delivery, which is the system's entire value.
func (b *JetStreamBroker) Connect(ctx context.Context) error {
	b.state.set(StateConnecting)

	var (
		nc  *nats.Conn
		err error
	)
	for attempt := 1; attempt <= b.cfg.ConnectAttempts; attempt++ {
		nc, err = nats.Connect(b.cfg.URL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, cause error) {
				b.state.set(StateDisconnected)
				b.logger.Warn("broker connection lost", "error", cause)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				b.state.set(StateConnected)
				b.logger.Info("broker connection restored")
			}),
		)
		if err == nil {
			break
		}
		b.logger.Warn("broker connect attempt failed",
			"attempt", attempt,
			"max_attempts", b.cfg.ConnectAttempts,
			"error", err)
		if attempt == b.cfg.ConnectAttempts {
			break
		}
		select {
		case <-time.After(b.cfg.ConnectDelay):
		case <-ctx.Done():
			b.state.set(StateDisconnected)
			return ctx.Err()
		}
	}
	if err != nil {
		b.state.set(StateDisconnected)
		return fmt.Errorf("broker connect after %d attempts: %w", b.cfg.ConnectAttempts, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		b.state.set(StateDisconnected)
		return fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     b.cfg.Stream,
		Subjects: b.cfg.Subjects,
	})
	if err != nil {
		nc.Close()
		b.state.set(StateDisconnected)
		return fmt.Errorf("bind stream %s: %w", b.cfg.Stream, err)
	}

	b.mu.Lock()
	b.nc = nc
	b.js = js
	b.stream = stream
	b.mu.Unlock()

	b.state.set(StateConnected)
	b.logger.Info("broker connected", "url", b.cfg.URL, "stream", b.cfg.Stream)
	return nil
}

// Publish sends msg to destination. Sequential publishes from one process
// preserve FIFO order into the destination; nothing is guaranteed across
// processes.
func (b *JetStreamBroker) Publish(ctx context.Context, destination string, msg domain.ChatMessage) error {
	if !b.state.connected() {
		return domain.ErrBrokerUnavailable
	}
	b.mu.Lock()
	js := b.js
	b.mu.Unlock()
	if js == nil {
		return domain.ErrBrokerUnavailable
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}

	m := &nats.Msg{Subject: destination, Data: body, Header: nats.Header{}}
	m.Header.Set(HeaderDestination, destination)
	m.Header.Set(HeaderContentType, ContentTypeJSON)

	if _, err := js.PublishMsg(ctx, m); err != nil {
		return fmt.Errorf("publish to %s: %w", destination, err)
	}
	return nil
}

// Subscribe opens a durable, explicitly acknowledged consumer on
// destination. Each delivered frame is acked or nacked exactly once; a
// nacked frame is redelivered under the broker's policy, not ours.
func (b *JetStreamBroker) Subscribe(ctx context.Context, destination string, handler Handler) error {
	if !b.state.connected() {
		return domain.ErrBrokerUnavailable
	}
	b.mu.Lock()
	stream := b.stream
	b.mu.Unlock()
	if stream == nil {
		return domain.ErrBrokerUnavailable
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerName(b.cfg.ConsumerPrefix, destination),
		FilterSubject: destination,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer for %s: %w", destination, err)
	}

	cc, err := consumer.Consume(func(m jetstream.Msg) {
		var msg domain.ChatMessage
		if err := json.Unmarshal(m.Data(), &msg); err != nil {
			b.logger.Error("dropping malformed frame",
				"destination", destination,
				"error", fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err))
			if err := m.Nak(); err != nil {
				b.logger.Error("nack failed", "destination", destination, "error", err)
			}
			return
		}
		if err := handler(ctx, msg); err != nil {
			b.logger.Error("handler rejected message",
				"destination", destination,
				"message_id", msg.ID,
				"error", err)
			if err := m.Nak(); err != nil {
				b.logger.Error("nack failed", "destination", destination, "error", err)
			}
			return
		}
		if err := m.Ack(); err != nil {
			b.logger.Error("ack failed", "destination", destination, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", destination, err)
	}

	b.mu.Lock()
	b.consumers = append(b.consumers, cc)
	b.mu.Unlock()
	return nil
}

// Disconnect stops the consumers and drains the connection. In-flight
// publishes are not cancelled; only future use of the channels is
// prevented.
func (b *JetStreamBroker) Disconnect() error {
	b.state.set(StateDisconnected)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cc := range b.consumers {
		cc.Stop()
	}
	b.consumers = nil

	if b.nc != nil {
		if err := b.nc.Drain(); err != nil {
			b.nc.Close()
			return fmt.Errorf("drain broker connection: %w", err)
		}
		b.nc = nil
	}
	return nil
}

// State reports the current connection state.
func (b *JetStreamBroker) State() State {
	return b.state.get()
}

// consumerName derives a JetStream-legal durable name from the process
// prefix and the destination subject. Dots are not allowed in durable
// names.
func consumerName(prefix, destination string) string {
	name := prefix + "-" + destination
	return strings.NewReplacer(".", "-", "*", "any", ">", "all").Replace(name)
}
