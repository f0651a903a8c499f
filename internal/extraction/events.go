package extraction

import (
	"sync"
	"time"
)

// eventLog collects run events from concurrent workers.
type eventLog struct {
	mu     sync.Mutex
	now    func() time.Time
	events []Event
}

func (l *eventLog) add(level, stage, key, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{At: l.now().UTC(), Level: level, Stage: stage, Key: key, Message: message})
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}
