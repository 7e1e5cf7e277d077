package messaging

import (
	"sync"
	"time"
)

// EventKind classifies entries in a target's event log.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDocument EventKind = "document"
	EventError    EventKind = "error"
	EventReply    EventKind = "reply"
)

// Event is one message addressed to a delivery target. Document payloads
// are served separately and never serialized inline.
type Event struct {
	Seq       uint64    `json:"seq"`
	Target    string    `json:"target"`
	Kind      EventKind `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Size      int       `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

// targetLog is a bounded ring of events with monotonically increasing
// sequence numbers starting at 1.
type targetLog struct {
	events  []Event
	nextSeq uint64
}

type eventLogs struct {
	mu       sync.Mutex
	capacity int
	targets  map[string]*targetLog
	subs     map[string]map[chan Event]struct{}
	clock    func() time.Time
}

func newEventLogs(capacity int) *eventLogs {
	if capacity <= 0 {
		capacity = 200
	}
	return &eventLogs{
		capacity: capacity,
		targets:  make(map[string]*targetLog),
		subs:     make(map[string]map[chan Event]struct{}),
		clock:    time.Now,
	}
}

func (l *eventLogs) append(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.targets[ev.Target]
	if log == nil {
		log = &targetLog{nextSeq: 1}
		l.targets[ev.Target] = log
	}
	ev.Seq = log.nextSeq
	log.nextSeq++
	ev.CreatedAt = l.clock().UTC()
	log.events = append(log.events, ev)
	if overflow := len(log.events) - l.capacity; overflow > 0 {
		log.events = append([]Event(nil), log.events[overflow:]...)
	}

	for ch := range l.subs[ev.Target] {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

func (l *eventLogs) since(target string, seq uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.targets[target]
	if log == nil {
		return []Event{}
	}
	out := make([]Event, 0, len(log.events))
	for _, ev := range log.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLogs) get(target string, seq uint64) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.targets[target]
	if log == nil {
		return Event{}, false
	}
	for _, ev := range log.events {
		if ev.Seq == seq {
			return ev, true
		}
	}
	return Event{}, false
}

func (l *eventLogs) subscribe(target string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	l.mu.Lock()
	set := l.subs[target]
	if set == nil {
		set = make(map[chan Event]struct{})
		l.subs[target] = set
	}
	set[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[target], ch)
			if len(l.subs[target]) == 0 {
				delete(l.subs, target)
			}
			l.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
