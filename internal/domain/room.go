package domain

// RoomType classifies the addressable conversation spaces.
type RoomType string

const (
	RoomTypePrivate RoomType = "private"
	RoomTypeEvent   RoomType = "event"
	RoomTypeJam     RoomType = "jam"
)

// Room is an addressable identifier, not a persisted aggregate. Its id is
// derived deterministically from the participant ids, so two independent
// callers arrive at the same room without a registry lookup.
type Room struct {
	ID           string   `json:"id"`
	Type         RoomType `json:"type"`
	Participants []string `json:"participants,omitempty"`
}
