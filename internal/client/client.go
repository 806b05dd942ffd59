// Package client sends measurement sets to the update API and tracks how long
// the caller has to wait before the next send.
//
// A Client is meant for one device and one goroutine: it never sleeps or
// schedules on its own, and its state is not guarded.
package client

import (
	"log/slog"
	"time"

	"thingspeak-uploader/internal/channel"
	"thingspeak-uploader/internal/logging"
	"thingspeak-uploader/internal/protocol"
	"thingspeak-uploader/internal/record"
	"thingspeak-uploader/internal/transport"
)

const (
	// FreeAPIFloor is the free tier minimum interval between updates of a channel.
	FreeAPIFloor = 16 * time.Second
	// DeviceInterval is the platform-wide posting interval charged per channel.
	DeviceInterval = 10512 * time.Millisecond
)

// Results reported to the Observer.
const (
	ResultOK             = "ok"
	ResultRejected       = "rejected"
	ResultTransportError = "transport_error"
)

// Observer is notified about every send that reached the transport.
type Observer interface {
	ObserveSend(channel, result string, elapsed, nextDelay time.Duration)
}

// Options configures optional collaborators. The zero value is usable.
type Options struct {
	// Host goes into the Host header. Defaults to transport.DefaultHost.
	Host     string
	Logger   *slog.Logger
	Observer Observer
	Recorder record.Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Client is the rate-limited entry point used by sensor loops.
type Client struct {
	registry  *channel.Registry
	transport transport.Transport
	codec     *protocol.Codec
	timeLimit time.Duration
	delay     time.Duration

	now      func() time.Time
	log      *slog.Logger
	observer Observer
	recorder record.Recorder
}

// TimeLimit returns max(FreeAPIFloor, DeviceInterval*channels).
func TimeLimit(channels int) time.Duration {
	limit := DeviceInterval * time.Duration(channels)
	if limit < FreeAPIFloor {
		return FreeAPIFloor
	}
	return limit
}

// New creates a client for the channels in reg, talking through tr.
func New(reg *channel.Registry, tr transport.Transport, opts Options) *Client {
	host := opts.Host
	if host == "" {
		host = transport.DefaultHost
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := logging.OrDiscard(opts.Logger)
	return &Client{
		registry:  reg,
		transport: tr,
		codec:     protocol.NewCodec(host, log),
		timeLimit: TimeLimit(reg.Len()),
		now:       now,
		log:       log,
		observer:  opts.Observer,
		recorder:  opts.Recorder,
	}
}

// FreeAPIDelay is how long the caller must wait before calling Send again.
func (c *Client) FreeAPIDelay() time.Duration { return c.delay }

// TimeLimit is the minimum spacing between sends for this client.
func (c *Client) TimeLimit() time.Duration { return c.timeLimit }

// Send uploads values to the named channel. It reports true when the API
// stored the update and false when the API rejected it, usually because of a
// wrong write key. Unknown channels and invalid measurement sets fail before
// any network I/O; transport failures are returned as is. On any error the
// current delay is left untouched.
func (c *Client) Send(channelName string, values protocol.Measurements) (bool, error) {
	start := c.now()

	ch, err := c.registry.Get(channelName)
	if err != nil {
		return false, err
	}
	req, err := c.codec.BuildRequest(ch, values)
	if err != nil {
		return false, err
	}

	resp, err := c.transport.Exchange(req)
	elapsed := c.now().Sub(start)
	if err != nil {
		c.log.Error("send failed", "channel", channelName, "err", err)
		c.observe(channelName, ResultTransportError, elapsed)
		return false, err
	}

	count := c.codec.ParseResponse(resp)
	ok := count != protocol.ErrorCount
	result := ResultRejected
	if ok {
		result = ResultOK
		c.delay = c.timeLimit - elapsed
		if c.delay < 0 {
			c.delay = 0
		}
		c.log.Info("sent", "channel", channelName, "values", values, "count", count,
			"took", elapsed.Round(10*time.Millisecond), "next_in", c.delay.Round(10*time.Millisecond))
	} else {
		c.delay = 0
		c.log.Warn("send rejected", "channel", channelName)
	}

	c.observe(channelName, result, elapsed)
	c.record(record.Send{
		ID:        record.NewID(),
		Channel:   channelName,
		Values:    values,
		Count:     count,
		OK:        ok,
		Elapsed:   elapsed,
		NextDelay: c.delay,
		Timestamp: start.UTC(),
	})
	return ok, nil
}

func (c *Client) observe(channelName, result string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveSend(channelName, result, elapsed, c.delay)
	}
}

func (c *Client) record(s record.Send) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(s); err != nil {
		c.log.Warn("record send", "channel", s.Channel, "err", err)
	}
}
