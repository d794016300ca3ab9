package parhull

import "github.com/akmonengine/parhull/mesh"

const (
	APEX_ACCEPTED EventType = iota
	APEX_DEFERRED
	ROUND_DONE
	HULL_DONE
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ApexAcceptedEvent - the apex won its reservations and was expanded this round
type ApexAcceptedEvent struct {
	Round   int
	Apex    int // input index
	Owner   mesh.Handle
	Visible int
	Horizon int
}

func (e ApexAcceptedEvent) Type() EventType { return APEX_ACCEPTED }

// ApexDeferredEvent - the apex lost a reservation and stays pending for a later round
type ApexDeferredEvent struct {
	Round int
	Apex  int
	Owner mesh.Handle
}

func (e ApexDeferredEvent) Type() EventType { return APEX_DEFERRED }

type RoundDoneEvent struct {
	Round      int
	Accepted   int
	Deferred   int
	Discarded  int
	LiveFacets int
}

func (e RoundDoneEvent) Type() EventType { return ROUND_DONE }

type HullDoneEvent struct {
	Rounds   int
	Vertices int
	Facets   int
}

func (e HullDoneEvent) Type() EventType { return HULL_DONE }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush, once per round barrier
	buffer []Event
}

func NewEvents() Events {
	return Events{
		listeners: make(map[EventType][]EventListener),
		buffer:    make([]Event, 0, 64),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		e.listeners = make(map[EventType][]EventListener)
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// emit buffers an event, only when someone listens to its type
func (e *Events) emit(event Event) {
	if len(e.listeners[event.Type()]) == 0 {
		return
	}
	e.buffer = append(e.buffer, event)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
