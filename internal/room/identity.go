// Package room derives canonical room identifiers and manages room
// membership through the presence directory.
//
// Room ids are pure functions of the participant ids. Two independent
// callers, on different processes, derive the same id without any lookup
// round trip. The canonical formats are:
//
//	private_<idA>_<idB>  (participant ids sorted lexicographically)
//	event_<eventId>
//	jam_<jamId>
package room

import (
	"sort"
	"strings"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

const separator = "_"

// DerivePrivateRoomID returns the canonical id for the private room shared
// by two users. The participant ids are sorted before joining, so
// DerivePrivateRoomID(a, b) == DerivePrivateRoomID(b, a) for all a, b.
func DerivePrivateRoomID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return string(domain.RoomTypePrivate) + separator + strings.Join(ids, separator)
}

// DeriveEventRoomID returns the canonical id for an event room.
func DeriveEventRoomID(eventID string) string {
	return string(domain.RoomTypeEvent) + separator + eventID
}

// DeriveJamRoomID returns the canonical id for a jam room.
func DeriveJamRoomID(jamID string) string {
	return string(domain.RoomTypeJam) + separator + jamID
}

// NewPrivateRoom builds the Room value for two participants.
func NewPrivateRoom(userA, userB string) domain.Room {
	return domain.Room{
		ID:           DerivePrivateRoomID(userA, userB),
		Type:         domain.RoomTypePrivate,
		Participants: []string{userA, userB},
	}
}

// NewEventRoom builds the Room value for an event.
func NewEventRoom(eventID string) domain.Room {
	return domain.Room{ID: DeriveEventRoomID(eventID), Type: domain.RoomTypeEvent}
}

// NewJamRoom builds the Room value for a jam session.
func NewJamRoom(jamID string) domain.Room {
	return domain.Room{ID: DeriveJamRoomID(jamID), Type: domain.RoomTypeJam}
}
