package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// ackProbe records acknowledgment calls made on a watermill message.
type ackProbe struct {
	*message.Message
	mu    sync.Mutex
	acks  int
	nacks int
}

func newAckProbe(payload []byte) *ackProbe {
	return &ackProbe{Message: message.NewMessage(watermill.NewUUID(), payload)}
}

func (p *ackProbe) counts() (acks, nacks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acks, p.nacks
}

func (p *ackProbe) observe() {
	go func() {
		select {
		case <-p.Acked():
			p.mu.Lock()
			p.acks++
			p.mu.Unlock()
		case <-p.Nacked():
			p.mu.Lock()
			p.nacks++
			p.mu.Unlock()
		}
	}()
}

func waitCounts(t *testing.T, p *ackProbe, wantAcks, wantNacks int) {
	t.Helper()
	require.Eventually(t, func() bool {
		acks, nacks := p.counts()
		return acks == wantAcks && nacks == wantNacks
	}, time.Second, 5*time.Millisecond)
}

func TestChannelBroker_ProcessFrameAcksOnSuccess(t *testing.T) {
	b := NewChannelBroker()
	require.NoError(t, b.Connect(context.Background()))

	body, err := json.Marshal(domain.ChatMessage{ID: "m1", SenderID: "alice", RoomID: "event_fest", Content: "hi"})
	require.NoError(t, err)

	probe := newAckProbe(body)
	probe.observe()

	var handled []domain.ChatMessage
	b.processFrame(context.Background(), "dest", probe.Message, func(_ context.Context, msg domain.ChatMessage) error {
		handled = append(handled, msg)
		return nil
	})

	waitCounts(t, probe, 1, 0)
	require.Len(t, handled, 1)
	assert.Equal(t, "m1", handled[0].ID)
}

func TestChannelBroker_ProcessFrameNacksMalformedWithoutHandler(t *testing.T) {
	b := NewChannelBroker()
	require.NoError(t, b.Connect(context.Background()))

	probe := newAckProbe([]byte("{not json"))
	probe.observe()

	handlerCalls := 0
	b.processFrame(context.Background(), "dest", probe.Message, func(context.Context, domain.ChatMessage) error {
		handlerCalls++
		return nil
	})

	waitCounts(t, probe, 0, 1)
	assert.Zero(t, handlerCalls, "a frame that fails to decode must never reach the handler")
}

func TestChannelBroker_ProcessFrameNacksOnHandlerError(t *testing.T) {
	b := NewChannelBroker()
	require.NoError(t, b.Connect(context.Background()))

	body, err := json.Marshal(domain.ChatMessage{ID: "m1", SenderID: "alice", RoomID: "r", Content: "hi"})
	require.NoError(t, err)

	probe := newAckProbe(body)
	probe.observe()

	b.processFrame(context.Background(), "dest", probe.Message, func(context.Context, domain.ChatMessage) error {
		return errors.New("downstream failure")
	})

	waitCounts(t, probe, 0, 1)
}

func TestChannelBroker_PublishSubscribeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewChannelBroker()
	require.NoError(t, b.Connect(ctx))
	assert.Equal(t, StateConnected, b.State())

	received := make(chan domain.ChatMessage, 1)
	require.NoError(t, b.Subscribe(ctx, "jamify.chat.send-message", func(_ context.Context, msg domain.ChatMessage) error {
		received <- msg
		return nil
	}))

	sent := domain.ChatMessage{ID: "m1", SenderID: "alice", RoomID: "event_fest", Content: "hello"}
	require.NoError(t, b.Publish(ctx, "jamify.chat.send-message", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Content, got.Content)
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestChannelBroker_FanOutToAllSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewChannelBroker()
	require.NoError(t, b.Connect(ctx))

	// Two subscribers on the same destination stand in for two processes.
	first := make(chan domain.ChatMessage, 1)
	second := make(chan domain.ChatMessage, 1)
	require.NoError(t, b.Subscribe(ctx, "dest", func(_ context.Context, msg domain.ChatMessage) error {
		first <- msg
		return nil
	}))
	require.NoError(t, b.Subscribe(ctx, "dest", func(_ context.Context, msg domain.ChatMessage) error {
		second <- msg
		return nil
	}))

	require.NoError(t, b.Publish(ctx, "dest", domain.ChatMessage{ID: "m1", SenderID: "a", RoomID: "r", Content: "x"}))

	for _, ch := range []chan domain.ChatMessage{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "m1", got.ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the message")
		}
	}
}

func TestChannelBroker_PublishWhileDisconnected(t *testing.T) {
	b := NewChannelBroker()

	err := b.Publish(context.Background(), "dest", domain.ChatMessage{ID: "m1"})
	assert.ErrorIs(t, err, domain.ErrBrokerUnavailable)

	require.NoError(t, b.Connect(context.Background()))
	require.NoError(t, b.Disconnect())
	assert.Equal(t, StateDisconnected, b.State())

	err = b.Publish(context.Background(), "dest", domain.ChatMessage{ID: "m2"})
	assert.ErrorIs(t, err, domain.ErrBrokerUnavailable)
}

func TestJetStreamBroker_FailsFastWhileDisconnected(t *testing.T) {
	b := NewJetStreamBroker(Config{URL: "nats://localhost:4222", Stream: "TEST"})

	// Never connected: both channels must refuse without touching the
	// network.
	err := b.Publish(context.Background(), "dest", domain.ChatMessage{ID: "m1"})
	assert.ErrorIs(t, err, domain.ErrBrokerUnavailable)

	err = b.Subscribe(context.Background(), "dest", func(context.Context, domain.ChatMessage) error { return nil })
	assert.ErrorIs(t, err, domain.ErrBrokerUnavailable)

	assert.Equal(t, StateDisconnected, b.State())
}

func TestConsumerName(t *testing.T) {
	assert.Equal(t, "srv-1-jamify-chat-send-message", consumerName("srv-1", "jamify.chat.send-message"))
	assert.Equal(t, "srv-1-jamify-all", consumerName("srv-1", "jamify.>"))
}
