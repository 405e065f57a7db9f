// Package domain contains entity types without logic, just meta-data.
package domain

type (
	// ConnID is the transport-assigned identity of one live connection.
	ConnID string
	// RoomID is a caller-supplied, case-sensitive room key.
	RoomID string
)

// DefaultActivity is the activity tag a member carries until it reports one.
const DefaultActivity = "idle"

// PresenceEntry is one row of a room's presence snapshot.
type PresenceEntry struct {
	ConnectionID ConnID `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	Activity     string `json:"activity"`
}
