package broker

import (
	"errors"
	"sync"
)

// MemoryRoomBroker is an in-process RoomBroker for single-node deployments
// and tests. Same contract as the redis broker, no network.
type MemoryRoomBroker struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

func NewMemoryRoomBroker() *MemoryRoomBroker {
	return &MemoryRoomBroker{}
}

func (m *MemoryRoomBroker) Publish(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("broker: publish on closed broker")
	}

	for _, ch := range m.subs {
		// Drop rather than block: subscribers that fall behind will still
		// rebuild the full snapshot on their next wake.
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MemoryRoomBroker) Subscribe() (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("broker: subscribe on closed broker")
	}

	ch := make(chan Event, 100)
	m.subs = append(m.subs, ch)
	return ch, nil
}

func (m *MemoryRoomBroker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
	return nil
}
