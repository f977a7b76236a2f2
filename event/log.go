// Copyright 2025 OpenBallot Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"context"
	"errors"
	"sync"
)

var ErrIteratorLogTip = errors.New(
	"log iterator is at log tip",
)

// LogEntry is an Event annotated with its position in the append-only log.
// Sequence numbers are dense and start at 1.
type LogEntry struct {
	Event
	Seq uint64
}

// Log is an append-only, ordered record of events. Entries are never removed
// or reordered. When a Log is created with an EventBus, each appended entry
// is also published on the bus (with the LogEntry as the event payload) so
// that live consumers observe entries in commit order.
type Log struct {
	bus     *EventBus
	entries []LogEntry
	notify  chan struct{}
	mu      sync.RWMutex
}

func NewLog(bus *EventBus) *Log {
	return &Log{
		bus:    bus,
		notify: make(chan struct{}),
	}
}

// Append adds an event to the log, assigning it the next sequence number,
// and publishes the resulting entry on the attached bus (if any). Append
// never fails and never blocks on bus subscribers; a consumer that falls
// behind is disconnected and can replay missed entries by sequence number.
func (l *Log) Append(evt Event) LogEntry {
	l.mu.Lock()
	entry := LogEntry{
		Event: evt,
		// Safe conversion, entry count cannot be negative
		Seq: uint64(len(l.entries)) + 1, // #nosec G115
	}
	l.entries = append(l.entries, entry)
	// Wake any blocked iterators
	notify := l.notify
	l.notify = make(chan struct{})
	l.mu.Unlock()
	close(notify)
	if l.bus != nil {
		l.bus.Publish(
			evt.Type,
			Event{
				Type:      evt.Type,
				Timestamp: evt.Timestamp,
				Data:      entry,
			},
		)
	}
	return entry
}

// NextSeq returns the sequence number that will be assigned to the next
// appended entry
func (l *Log) NextSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries)) + 1 // #nosec G115
}

// Entries returns up to limit entries starting at fromSeq. A fromSeq of zero
// is treated as one (the start of the log). A limit of zero means no limit.
func (l *Log) Entries(fromSeq uint64, limit int) []LogEntry {
	if fromSeq == 0 {
		fromSeq = 1
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if fromSeq > uint64(len(l.entries)) { // #nosec G115
		return nil
	}
	tmpEntries := l.entries[fromSeq-1:]
	if limit > 0 && len(tmpEntries) > limit {
		tmpEntries = tmpEntries[:limit]
	}
	ret := make([]LogEntry, len(tmpEntries))
	copy(ret, tmpEntries)
	return ret
}

// Iterator returns a LogIterator positioned at fromSeq. A fromSeq of zero
// starts at the beginning of the log. Iterating past the current tip returns
// ErrIteratorLogTip in non-blocking mode, or waits for the next append in
// blocking mode.
func (l *Log) Iterator(fromSeq uint64) *LogIterator {
	if fromSeq == 0 {
		fromSeq = 1
	}
	return &LogIterator{
		log:     l,
		nextSeq: fromSeq,
	}
}

type LogIterator struct {
	log     *Log
	nextSeq uint64
}

func (li *LogIterator) Next(
	ctx context.Context,
	blocking bool,
) (*LogEntry, error) {
	for {
		li.log.mu.RLock()
		if li.nextSeq <= uint64(len(li.log.entries)) { // #nosec G115
			entry := li.log.entries[li.nextSeq-1]
			li.log.mu.RUnlock()
			li.nextSeq++
			return &entry, nil
		}
		notify := li.log.notify
		li.log.mu.RUnlock()
		if !blocking {
			return nil, ErrIteratorLogTip
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-notify:
			// New entry appended, retry
		}
	}
}
