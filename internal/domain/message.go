package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is the unit of delivery for the whole system. It is created by
// the relay service, persisted by the message store, carried over the broker
// as JSON, and finally handed unchanged to the gateway for local fan-out.
//
// At creation exactly one of RoomID or DestID is set; by the time a message
// is persisted or published it must carry a resolved RoomID.
type ChatMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	DestID    string    `json:"destId,omitempty"`
	RoomID    string    `json:"roomId,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// NewMessageID returns a globally unique message id. The format is
// msg_<epoch-millis>_<uuid>; once assigned the id never changes across relay
// hops.
func NewMessageID() string {
	return fmt.Sprintf("msg_%d_%s", time.Now().UnixMilli(), uuid.NewString())
}

// Connection represents one live transport session. A user may own many
// concurrent connections (multi-device). Timestamp is epoch milliseconds to
// match the directory's storage format.
type Connection struct {
	UserID    string `json:"userId,omitempty"`
	SocketID  string `json:"socketId"`
	ServerID  string `json:"serverId"`
	Timestamp int64  `json:"timestamp"`
}
