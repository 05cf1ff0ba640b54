// Package broker contains the durable publish/subscribe client that moves
// chat messages between processes. Every process publishes to and consumes
// from the same destination; delivery is at-least-once and each delivered
// frame is acknowledged or negatively acknowledged exactly once.
package broker

import (
	"context"
	"sync/atomic"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// Wire headers attached to every published frame.
const (
	HeaderDestination = "destination"
	HeaderContentType = "content-type"
	ContentTypeJSON   = "application/json"
)

// State is the connection lifecycle of a broker client.
//
//	DISCONNECTED -> CONNECTING -> CONNECTED
//
// Any transport error while CONNECTED returns the client to DISCONNECTED.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// state is an atomic State holder shared by the broker implementations.
type state struct {
	v atomic.Int32
}

func (s *state) set(st State)    { s.v.Store(int32(st)) }
func (s *state) get() State      { return State(s.v.Load()) }
func (s *state) connected() bool { return s.get() == StateConnected }

// Handler processes one decoded message delivered by a subscription. A nil
// return acknowledges the frame; an error negatively acknowledges it and
// leaves redelivery to the broker's policy.
type Handler func(ctx context.Context, msg domain.ChatMessage) error

// Broker is the client contract for the durable message queue.
type Broker interface {
	// Connect establishes the producer and consumer channels with bounded
	// retries. Exhausting the retries is fatal to process initialization.
	Connect(ctx context.Context) error

	// Publish serializes msg to JSON and sends it to destination with the
	// destination and content-type headers. It fails fast with
	// domain.ErrBrokerUnavailable while disconnected; there is no local
	// queueing or outbox.
	Publish(ctx context.Context, destination string, msg domain.ChatMessage) error

	// Subscribe opens a consumer channel on destination in explicit
	// per-message acknowledgment mode. A body that fails to decode as JSON
	// is nacked without invoking handler.
	Subscribe(ctx context.Context, destination string, handler Handler) error

	// Disconnect closes both channels. Publish attempts after Disconnect
	// fail deterministically.
	Disconnect() error

	// State reports the current connection state.
	State() State
}
