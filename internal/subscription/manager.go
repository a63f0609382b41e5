package subscription

import (
	"context"
	"sync"

	"roomcast/internal/broker"
	"roomcast/internal/models"
	"roomcast/internal/repository"
	"roomcast/pkg/logger"
	"go.uber.org/zap"
)

// Manager gives every listener a live, ordered view of one room's log
// without polling. Each subscription receives the full current snapshot
// up front and again after every change to the room, never a diff.
//
// Whole snapshots cost more bandwidth than deltas but remove the entire
// class of client-side reconciliation bugs; rooms hold tens of messages,
// not millions.
type Manager struct {
	log *repository.MessageRepository

	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}

	closeOnce sync.Once
}

// NewManager starts a manager that wakes local subscriptions on every
// event the broker delivers, including events published by other nodes.
func NewManager(log *repository.MessageRepository, b broker.RoomBroker) (*Manager, error) {
	m := &Manager{
		log:   log,
		rooms: make(map[string]map[*Subscription]struct{}),
	}

	events, err := b.Subscribe()
	if err != nil {
		return nil, err
	}

	go m.consume(events)

	return m, nil
}

func (m *Manager) consume(events <-chan broker.Event) {
	for event := range events {
		m.Notify(event.RoomCode)
	}
}

// Notify wakes every subscription registered for the room. Wakes coalesce:
// a subscriber that is mid-delivery picks up at most one pending wake and
// rebuilds the snapshot from the log, so bursts collapse into one refresh.
func (m *Manager) Notify(roomCode string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sub := range m.rooms[roomCode] {
		sub.wake()
	}
}

// Subscribe registers a listener for one room. onUpdate is called from a
// dedicated goroutine, first with the current snapshot (possibly empty),
// then once per change. Snapshots for one subscription are delivered in
// monotonic order. onError fires at most once and terminates the
// subscription; re-establishing it is the caller's decision.
func (m *Manager) Subscribe(roomCode string, onUpdate func([]models.Message), onError func(error)) *Subscription {
	sub := &Subscription{
		manager:  m,
		roomCode: roomCode,
		onUpdate: onUpdate,
		onError:  onError,
		wakeCh:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	if m.rooms[roomCode] == nil {
		m.rooms[roomCode] = make(map[*Subscription]struct{})
	}
	m.rooms[roomCode][sub] = struct{}{}
	m.mu.Unlock()

	go sub.run()

	return sub
}

// SubscriberCount reports live subscriptions for a room.
func (m *Manager) SubscriberCount(roomCode string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[roomCode])
}

func (m *Manager) unregister(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subs, ok := m.rooms[sub.roomCode]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(m.rooms, sub.roomCode)
		}
	}
}

// Close cancels every live subscription. The broker is owned by the
// caller and closed separately; closing it ends the consumer goroutine.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.RLock()
		var all []*Subscription
		for _, subs := range m.rooms {
			for sub := range subs {
				all = append(all, sub)
			}
		}
		m.mu.RUnlock()

		for _, sub := range all {
			sub.Cancel()
		}
	})
}

// Subscription is a live, cancellable registration for one room's
// snapshot stream. Each subscription has its own delivery goroutine, so
// independent subscribers to the same room never share failure or pacing.
type Subscription struct {
	manager  *Manager
	roomCode string
	onUpdate func([]models.Message)
	onError  func(error)

	wakeCh chan struct{}
	done   chan struct{}

	cancelOnce sync.Once
	errOnce    sync.Once
}

// wake marks the room dirty without blocking the notifier.
func (s *Subscription) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	// Initial snapshot first, then one refresh per wake.
	if !s.deliver() {
		return
	}

	for {
		select {
		case <-s.done:
			return
		case <-s.wakeCh:
			if !s.deliver() {
				return
			}
		}
	}
}

// deliver reads a fresh snapshot and hands it to the listener. Returns
// false when the subscription should stop (cancelled or failed).
func (s *Subscription) deliver() bool {
	snapshot, err := s.manager.log.ReadAll(context.Background(), s.roomCode)
	if err != nil {
		logger.Log.Error("subscription: snapshot read failed",
			zap.String("room_code", s.roomCode),
			zap.Error(err),
		)
		s.fail(err)
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}

	if s.onUpdate != nil {
		s.onUpdate(snapshot)
	}
	return true
}

// fail terminates the subscription and reports the error exactly once.
// No onUpdate follows a fail.
func (s *Subscription) fail(err error) {
	s.errOnce.Do(func() {
		s.manager.unregister(s)
		if s.onError != nil {
			s.onError(err)
		}
	})
}

// Cancel stops delivery and releases the subscription's resources. Safe
// to call more than once and from any point in the listener's lifetime.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.done)
		s.manager.unregister(s)
	})
}
