// Channel definitions and the read-only registry the client looks them up in.
package channel

import (
	"strconv"

	"github.com/juju/errors"
)

// ErrUnknownChannel is returned by Registry.Get for names that were never registered.
var ErrUnknownChannel = errors.New("unknown channel")

// ErrDuplicateChannel is returned by NewRegistry when two channels share a name.
var ErrDuplicateChannel = errors.New("duplicate channel")

// SlotPrefix is the wire prefix of positional field identifiers.
const SlotPrefix = "field"

// Channel is a named data destination bound to a write key and an ordered set of fields.
// It is immutable after New.
type Channel struct {
	name     string
	writeKey string
	fields   []string
	slots    map[string]string
}

// New creates a channel. Field i (0-based) is mapped to slot "field<i+1>".
func New(name, writeKey string, fields ...string) Channel {
	ch := Channel{
		name:     name,
		writeKey: writeKey,
		fields:   append([]string(nil), fields...),
		slots:    make(map[string]string, len(fields)),
	}
	for i, f := range fields {
		ch.slots[f] = SlotPrefix + strconv.Itoa(i+1)
	}
	return ch
}

func (c Channel) Name() string     { return c.name }
func (c Channel) WriteKey() string { return c.writeKey }

// Fields returns the field names in declaration order.
func (c Channel) Fields() []string {
	return append([]string(nil), c.fields...)
}

// Slot returns the wire slot identifier of field.
func (c Channel) Slot(field string) (string, bool) {
	s, ok := c.slots[field]
	return s, ok
}

// SlotIndex returns the 1-based position of field.
func (c Channel) SlotIndex(field string) (int, bool) {
	s, ok := c.slots[field]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s[len(SlotPrefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Registry maps channel names to channels. It is built once and never mutated.
type Registry struct {
	channels map[string]Channel
	order    []string
}

// NewRegistry builds a registry from chs, keeping their order for Names.
func NewRegistry(chs ...Channel) (*Registry, error) {
	r := &Registry{channels: make(map[string]Channel, len(chs))}
	for _, ch := range chs {
		if _, dup := r.channels[ch.name]; dup {
			return nil, errors.Annotatef(ErrDuplicateChannel, "channel %q", ch.name)
		}
		r.channels[ch.name] = ch
		r.order = append(r.order, ch.name)
	}
	return r, nil
}

// Get returns the channel registered under name.
func (r *Registry) Get(name string) (Channel, error) {
	ch, ok := r.channels[name]
	if !ok {
		return Channel{}, errors.Annotatef(ErrUnknownChannel, "channel %q", name)
	}
	return ch, nil
}

// Len is the number of registered channels.
func (r *Registry) Len() int { return len(r.channels) }

// Names returns channel names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
