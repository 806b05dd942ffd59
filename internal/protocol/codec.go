// Request building and response parsing for the update endpoint.
package protocol

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"thingspeak-uploader/internal/channel"
	"thingspeak-uploader/internal/logging"
)

// ErrorCount is what ParseResponse reports for a rejected or malformed reply.
const ErrorCount = -1

var (
	ErrEmptyMeasurementSet = errors.New("empty measurement set")
	ErrUnknownField        = errors.New("unknown field")
	ErrUnsupportedValue    = errors.New("unsupported value type")
)

// Measurements maps field names to scalar values: strings, integers or floats.
type Measurements map[string]any

const requestTemplate = "GET /update?api_key=%s&%s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n"

var (
	lineSep   = []byte("\r\n")
	headerEnd = []byte("\r\n\r\n")
)

// Codec turns measurements into update requests and replies into counts.
type Codec struct {
	host string
	log  *slog.Logger
}

// NewCodec creates a codec addressing host. A nil logger discards.
func NewCodec(host string, log *slog.Logger) *Codec {
	return &Codec{host: host, log: logging.OrDiscard(log)}
}

// Host is the value sent in the Host header.
func (c *Codec) Host() string { return c.host }

type pair struct {
	index int
	slot  string
	value string
}

// Query returns the slot=value pairs of values joined by '&', in slot order.
func Query(ch channel.Channel, values Measurements) (string, error) {
	if len(values) == 0 {
		return "", errors.Annotatef(ErrEmptyMeasurementSet, "channel %q", ch.Name())
	}
	pairs := make([]pair, 0, len(values))
	for field, v := range values {
		slot, ok := ch.Slot(field)
		if !ok {
			return "", errors.Annotatef(ErrUnknownField, "channel %q has no field %q", ch.Name(), field)
		}
		idx, _ := ch.SlotIndex(field)
		s, err := FormatValue(v)
		if err != nil {
			return "", errors.Annotatef(err, "field %q", field)
		}
		pairs = append(pairs, pair{index: idx, slot: slot, value: s})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].index < pairs[j].index })

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.slot)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String(), nil
}

// BuildRequest renders the full update request for ch.
func (c *Codec) BuildRequest(ch channel.Channel, values Measurements) ([]byte, error) {
	q, err := Query(ch, values)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(requestTemplate, url.QueryEscape(ch.WriteKey()), q, c.host)), nil
}

// FormatValue renders a scalar the way it appears in the query string.
func FormatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	}
	return "", errors.Annotatef(ErrUnsupportedValue, "%T", v)
}

// Status extracts the status code from the first line of resp.
func Status(resp []byte) (int, error) {
	line := resp
	if i := bytes.Index(resp, lineSep); i >= 0 {
		line = resp[:i]
	}
	parts := bytes.Fields(line)
	if len(parts) < 2 {
		return 0, errors.Errorf("malformed status line %q", line)
	}
	code, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return 0, errors.Annotatef(err, "malformed status line %q", line)
	}
	return code, nil
}

// Body returns the text after the last header/body separator. Without a
// separator the whole reply is returned.
func Body(resp []byte) []byte {
	if i := bytes.LastIndex(resp, headerEnd); i >= 0 {
		return resp[i+len(headerEnd):]
	}
	return resp
}

// ParseResponse returns the measurement count reported by a 200 reply, 0 when
// a 200 body is not a number, and ErrorCount for any other status or a reply
// without a readable status line.
func (c *Codec) ParseResponse(resp []byte) int {
	status, err := Status(resp)
	if err != nil {
		c.log.Warn("malformed reply", "reply", string(resp), "err", err)
		return ErrorCount
	}
	if status != 200 {
		c.log.Warn("http call failed", "status", status, "reply", string(resp))
		return ErrorCount
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(Body(resp))))
	if err != nil {
		return 0
	}
	return n
}
