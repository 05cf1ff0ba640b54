package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// ChannelBroker implements Broker on watermill's in-memory GoChannel. It
// keeps the same acknowledgment discipline as the JetStream client and backs
// single-process development runs and the cross-process delivery tests,
// where several gateways share one bus.
type ChannelBroker struct {
	bus    *gochannel.GoChannel
	logger *slog.Logger
	state  state
}

// NewChannelBroker creates an in-memory broker. It still starts
// DISCONNECTED so the lifecycle matches the durable client.
func NewChannelBroker() *ChannelBroker {
	bus := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	return &ChannelBroker{
		bus:    bus,
		logger: slog.Default().With("component", "broker"),
	}
}

// Connect marks the in-memory bus available. It cannot fail.
func (b *ChannelBroker) Connect(_ context.Context) error {
	b.state.set(StateConnected)
	return nil
}

// Publish sends msg to destination with the standard headers carried as
// watermill metadata.
func (b *ChannelBroker) Publish(_ context.Context, destination string, msg domain.ChatMessage) error {
	if !b.state.connected() {
		return domain.ErrBrokerUnavailable
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}

	wm := message.NewMessage(watermill.NewUUID(), body)
	wm.Metadata.Set(HeaderDestination, destination)
	wm.Metadata.Set(HeaderContentType, ContentTypeJSON)

	if err := b.bus.Publish(destination, wm); err != nil {
		return fmt.Errorf("publish to %s: %w", destination, err)
	}
	return nil
}

// Subscribe consumes destination until ctx is cancelled. Every subscriber
// on the bus receives every frame, which mirrors the per-process consumers
// of the durable client.
func (b *ChannelBroker) Subscribe(ctx context.Context, destination string, handler Handler) error {
	if !b.state.connected() {
		return domain.ErrBrokerUnavailable
	}

	frames, err := b.bus.Subscribe(ctx, destination)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", destination, err)
	}

	go func() {
		for wm := range frames {
			b.processFrame(ctx, destination, wm, handler)
		}
		b.logger.Debug("subscription closed", "destination", destination)
	}()
	return nil
}

// processFrame applies the acknowledgment discipline to one delivered
// frame: decode failure nacks without invoking the handler, a handler error
// nacks, success acks. Exactly one of the two, never both, never neither.
func (b *ChannelBroker) processFrame(ctx context.Context, destination string, wm *message.Message, handler Handler) {
	var msg domain.ChatMessage
	if err := json.Unmarshal(wm.Payload, &msg); err != nil {
		b.logger.Error("dropping malformed frame",
			"destination", destination,
			"error", fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err))
		wm.Nack()
		return
	}
	if err := handler(ctx, msg); err != nil {
		b.logger.Error("handler rejected message",
			"destination", destination,
			"message_id", msg.ID,
			"error", err)
		wm.Nack()
		return
	}
	wm.Ack()
}

// Disconnect closes the bus. Publishes afterwards fail deterministically.
func (b *ChannelBroker) Disconnect() error {
	b.state.set(StateDisconnected)
	return b.bus.Close()
}

// State reports the current connection state.
func (b *ChannelBroker) State() State {
	return b.state.get()
}
