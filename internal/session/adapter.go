package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"roomcast/internal/models"
	"roomcast/internal/service"
	"roomcast/internal/subscription"
	"roomcast/pkg/logger"
	"go.uber.org/zap"
)

// State is the adapter's view-lifecycle state. Failed is terminal for the
// current room view; only an explicit Enter starts a fresh attempt.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateReady      State = "ready"
	StateFailed     State = "failed"
)

var (
	ErrNoRoom       = errors.New("session: no room entered")
	ErrSendInFlight = errors.New("session: previous send still in flight")
	ErrRoomInactive = errors.New("session: room is not active")
)

// Adapter is the glue between one client view and the core: it holds
// exactly one live subscription for the room currently viewed, tracks a
// loading state for the UI, and issues sends on the participant's behalf.
type Adapter struct {
	rooms    *service.RoomService
	messages *service.MessageService
	subs     *subscription.Manager

	author       string
	role         models.Role
	readyTimeout time.Duration

	// onChange, when set, is invoked after every state or snapshot change
	// with copies that are safe to keep.
	onChange func(State, []models.Message)

	mu           sync.Mutex
	state        State
	roomCode     string
	snapshot     []models.Message
	sub          *subscription.Subscription
	readyTimer   *time.Timer
	generation   int
	sendInFlight bool
	lastErr      error
}

func NewAdapter(
	rooms *service.RoomService,
	messages *service.MessageService,
	subs *subscription.Manager,
	author string,
	role models.Role,
	readyTimeout time.Duration,
	onChange func(State, []models.Message),
) *Adapter {
	return &Adapter{
		rooms:        rooms,
		messages:     messages,
		subs:         subs,
		author:       author,
		role:         role,
		readyTimeout: readyTimeout,
		onChange:     onChange,
		state:        StateIdle,
	}
}

// Enter opens a view on the given room. Any previous subscription is
// cancelled before the new one is established; the adapter never holds
// two live subscriptions. The first snapshot (even an empty one) or the
// ready timer, whichever comes first, moves the view out of Connecting.
func (a *Adapter) Enter(roomCode string) {
	roomCode = service.NormalizeCode(roomCode)

	a.mu.Lock()
	a.teardownLocked()

	a.generation++
	gen := a.generation
	a.roomCode = roomCode
	a.state = StateConnecting
	a.snapshot = nil
	a.lastErr = nil

	a.sub = a.subs.Subscribe(roomCode,
		func(msgs []models.Message) { a.handleUpdate(gen, msgs) },
		func(err error) { a.handleError(gen, err) },
	)
	a.readyTimer = time.AfterFunc(a.readyTimeout, func() { a.handleReadyTimeout(gen) })
	a.mu.Unlock()

	a.notify()
}

// Leave cancels the subscription and returns to Idle. Safe when no room
// is entered.
func (a *Adapter) Leave() {
	a.mu.Lock()
	a.teardownLocked()
	a.roomCode = ""
	a.state = StateIdle
	a.snapshot = nil
	a.lastErr = nil
	a.mu.Unlock()

	a.notify()
}

// teardownLocked releases the current subscription and timer on every
// exit path: room change, explicit leave, failure.
func (a *Adapter) teardownLocked() {
	if a.sub != nil {
		a.sub.Cancel()
		a.sub = nil
	}
	if a.readyTimer != nil {
		a.readyTimer.Stop()
		a.readyTimer = nil
	}
}

// Send issues one message to the current room. Empty content and
// overlapping sends are rejected locally, before any store call; sends to
// an inactive room are refused here as adapter policy, not by the log.
// On failure the caller keeps its composed content and decides whether
// to retry.
func (a *Adapter) Send(ctx context.Context, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, service.ErrEmptyContent
	}

	a.mu.Lock()
	if a.roomCode == "" {
		a.mu.Unlock()
		return nil, ErrNoRoom
	}
	if a.sendInFlight {
		a.mu.Unlock()
		return nil, ErrSendInFlight
	}
	a.sendInFlight = true
	roomCode := a.roomCode
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.sendInFlight = false
		a.mu.Unlock()
	}()

	active, err := a.rooms.IsActive(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrRoomInactive
	}

	return a.messages.Send(ctx, roomCode, a.author, content, a.role)
}

// State returns the current view state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the error that moved the view to Failed, nil otherwise.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// RoomCode returns the room currently viewed, empty when idle.
func (a *Adapter) RoomCode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roomCode
}

// Messages returns a copy of the latest snapshot.
func (a *Adapter) Messages() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Message, len(a.snapshot))
	copy(out, a.snapshot)
	return out
}

func (a *Adapter) handleUpdate(gen int, msgs []models.Message) {
	a.mu.Lock()
	if gen != a.generation || a.state == StateFailed {
		// Stale callback from a subscription we already left behind.
		a.mu.Unlock()
		return
	}
	a.snapshot = msgs
	if a.state == StateConnecting {
		a.state = StateReady
		if a.readyTimer != nil {
			a.readyTimer.Stop()
			a.readyTimer = nil
		}
	}
	a.mu.Unlock()

	a.notify()
}

func (a *Adapter) handleError(gen int, err error) {
	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	// Degrade to an empty, stalled view. No automatic retry: the caller
	// re-enters the room explicitly if it wants to recover.
	a.teardownLocked()
	a.state = StateFailed
	a.snapshot = nil
	a.lastErr = err
	roomCode := a.roomCode
	a.mu.Unlock()

	logger.Log.Warn("session: room view failed",
		zap.String("room_code", roomCode),
		zap.String("author", a.author),
		zap.Error(err),
	)

	a.notify()
}

// handleReadyTimeout moves a quiet Connecting view to Ready. The first
// snapshot of an empty room can legitimately be slow; the distinction
// only drives a loading indicator.
func (a *Adapter) handleReadyTimeout(gen int) {
	a.mu.Lock()
	if gen != a.generation || a.state != StateConnecting {
		a.mu.Unlock()
		return
	}
	a.state = StateReady
	a.mu.Unlock()

	a.notify()
}

func (a *Adapter) notify() {
	if a.onChange == nil {
		return
	}
	a.mu.Lock()
	state := a.state
	snapshot := make([]models.Message, len(a.snapshot))
	copy(snapshot, a.snapshot)
	a.mu.Unlock()

	a.onChange(state, snapshot)
}
