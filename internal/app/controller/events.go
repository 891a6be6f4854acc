package controller

import (
	"fmt"
	"sync"

	"immich-wallpaper/internal/immich"
)

// State is a phase of the rotation scheduler.
type State int32

const (
	Idle State = iota
	Authenticating
	FetchingCatalog
	Active
	RetryWait
	Stopped
)

var stateNames = [...]string{
	Idle:            "idle",
	Authenticating:  "authenticating",
	FetchingCatalog: "fetching-catalog",
	Active:          "active",
	RetryWait:       "retry-wait",
	Stopped:         "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}

// Event is emitted by the scheduler. It is one of [StateChanged],
// [WallpaperChanged], [CatalogEmpty] or [CycleFailed].
type Event interface {
	event()
}

// StateChanged is emitted on every state transition. Err is the cause of a
// transition into RetryWait.
type StateChanged struct {
	From, To State
	Err      error
}

// WallpaperChanged is emitted after a wallpaper was applied. Metadata is nil
// when it could not be retrieved.
type WallpaperChanged struct {
	Path     string
	Asset    immich.AssetMetadata
	Metadata *immich.PhotoMetadata
}

// CatalogEmpty is emitted when the catalog holds no photos and the scheduler
// stalls until restarted.
type CatalogEmpty struct {
	AlbumID immich.AlbumID
}

// CycleFailed is emitted when a rotation cycle could not change the
// wallpaper.
type CycleFailed struct {
	Asset immich.AssetMetadata
	Err   error
}

func (StateChanged) event()     {}
func (WallpaperChanged) event() {}
func (CatalogEmpty) event()     {}
func (CycleFailed) event()      {}

// Observer receives scheduler events. Notify is never called concurrently
// for the same observer and events arrive in the order they were emitted.
// A slow observer only delays its own events.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to an [Observer].
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// eventQueue delivers events to one observer from its own goroutine, so
// emitting never blocks the scheduler.
type eventQueue struct {
	obs Observer

	mu     sync.Mutex
	events []Event
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newEventQueue(obs Observer) *eventQueue {
	q := &eventQueue{
		obs:  obs,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.events = append(q.events, e)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// close stops the queue once the pending events are delivered.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	defer close(q.done)
	for range q.wake {
		for {
			q.mu.Lock()
			if len(q.events) == 0 {
				closed := q.closed
				q.mu.Unlock()
				if closed {
					return
				}
				break
			}
			e := q.events[0]
			q.events = q.events[1:]
			q.mu.Unlock()
			q.obs.Notify(e)
		}
	}
}
