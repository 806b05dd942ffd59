// Send records and the recorders that mirror them.
package record

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"thingspeak-uploader/internal/protocol"
)

// Send describes one completed send, accepted or rejected by the API.
type Send struct {
	ID        string                `json:"id"`
	Channel   string                `json:"channel"`
	Values    protocol.Measurements `json:"values"`
	Count     int                   `json:"count"`
	OK        bool                  `json:"ok"`
	Elapsed   time.Duration         `json:"elapsed_ns"`
	NextDelay time.Duration         `json:"next_delay_ns"`
	Timestamp time.Time             `json:"ts"`
}

// NewID returns a fresh record ID.
func NewID() string { return uuid.New().String() }

// Recorder receives send records.
type Recorder interface {
	Record(Send) error
}

// Latest keeps the most recent record of every channel. Safe for concurrent use.
type Latest struct {
	mu   sync.Mutex
	last map[string]Send
}

// NewLatest creates an empty Latest.
func NewLatest() *Latest {
	return &Latest{last: make(map[string]Send)}
}

// Record implements Recorder.
func (l *Latest) Record(s Send) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[s.Channel] = s
	return nil
}

// Snapshot returns the stored records ordered by channel name.
func (l *Latest) Snapshot() []Send {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Send, 0, len(l.last))
	for _, s := range l.last {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// NextDelay is the delay carried by the newest record, or zero.
func (l *Latest) NextDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	var newest Send
	for _, s := range l.last {
		if s.Timestamp.After(newest.Timestamp) {
			newest = s
		}
	}
	return newest.NextDelay
}
