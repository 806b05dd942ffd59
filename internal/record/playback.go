package record

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/juju/errors"

	"thingspeak-uploader/internal/protocol"
)

// Sender is the part of the client replay needs.
type Sender interface {
	Send(channel string, values protocol.Measurements) (bool, error)
	FreeAPIDelay() time.Duration
}

// ReplayStats summarizes a replay run.
type ReplayStats struct {
	Sent     int
	Rejected int
}

// ReplayLog re-sends the values of every record read from r through s,
// waiting out the sender's delay between sends. Input and transport errors
// stop the replay.
func ReplayLog(ctx context.Context, r io.Reader, s Sender) (ReplayStats, error) {
	var stats ReplayStats
	dec := json.NewDecoder(r)
	first := true
	for {
		var rec Send
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return stats, nil
			}
			return stats, errors.Annotatef(err, "decode record %d", stats.Sent+stats.Rejected+1)
		}
		if !first {
			if err := sleepCtx(ctx, s.FreeAPIDelay()); err != nil {
				return stats, err
			}
		}
		first = false

		ok, err := s.Send(rec.Channel, rec.Values)
		if err != nil {
			return stats, errors.Annotatef(err, "replay record %s", rec.ID)
		}
		if ok {
			stats.Sent++
		} else {
			stats.Rejected++
		}
	}
}

// ReplayLogFile opens a file and replays its records.
func ReplayLogFile(ctx context.Context, path string, s Sender) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, s)
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
