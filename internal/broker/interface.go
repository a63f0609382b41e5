package broker

// EventKind says what changed in a room's log.
type EventKind string

const (
	EventAppend EventKind = "append"
	EventPurge  EventKind = "purge"
)

// Event is a room change notification. It carries no message payload:
// consumers re-read the log and build a full snapshot, so a lost or
// duplicated event can never corrupt what subscribers see.
type Event struct {
	RoomCode string    `json:"room_code"`
	Kind     EventKind `json:"kind"`
}

// RoomBroker distributes room change events between nodes.
type RoomBroker interface {
	Publish(event Event) error
	Subscribe() (<-chan Event, error)
	Close() error
}
