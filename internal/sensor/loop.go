// Package sensor drives a Reader against the client, one measurement set per
// rate-limit window.
package sensor

import (
	"context"
	"log/slog"
	"time"

	"github.com/juju/errors"

	"thingspeak-uploader/internal/logging"
	"thingspeak-uploader/internal/protocol"
	"thingspeak-uploader/internal/transport"
)

// Client is what the loop needs from client.Client.
type Client interface {
	Send(channel string, values protocol.Measurements) (bool, error)
	FreeAPIDelay() time.Duration
	TimeLimit() time.Duration
}

// Loop reads measurements and sends them to one channel until cancelled.
type Loop struct {
	Client  Client
	Reader  Reader
	Channel string
	// MaxReadFailures stops the loop after that many consecutive read errors. Zero means never.
	MaxReadFailures int

	sleep func(ctx context.Context, d time.Duration) error
}

// Run blocks until ctx is cancelled or a non-recoverable error occurs.
// Read failures are retried at once. Transport failures are logged and the
// next attempt waits a full rate-limit window. Input errors stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	sleep := l.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	readFailures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		values, err := l.Reader.Read()
		if err != nil {
			readFailures++
			log.Debug("sensor read failed", "err", err, "failures", readFailures)
			if l.MaxReadFailures > 0 && readFailures >= l.MaxReadFailures {
				return errors.Annotatef(err, "%d consecutive sensor read failures", readFailures)
			}
			continue
		}
		readFailures = 0

		wait, err := l.sendOnce(log, values)
		if err != nil {
			return err
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Loop) sendOnce(log *slog.Logger, values protocol.Measurements) (time.Duration, error) {
	ok, err := l.Client.Send(l.Channel, values)
	if err != nil {
		var te *transport.Error
		if errors.As(err, &te) {
			log.Warn("upload failed, retrying after rate-limit window", "channel", l.Channel, "err", err)
			return l.Client.TimeLimit(), nil
		}
		return 0, errors.Trace(err)
	}
	if !ok {
		log.Warn("upload rejected, check the write key", "channel", l.Channel)
	}
	return l.Client.FreeAPIDelay(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
