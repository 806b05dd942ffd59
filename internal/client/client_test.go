package client

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingspeak-uploader/internal/channel"
	"thingspeak-uploader/internal/protocol"
	"thingspeak-uploader/internal/record"
	"thingspeak-uploader/internal/transport"
)

const (
	okReply       = "HTTP/1.1 200 OK\r\n\r\n42"
	rejectedReply = "HTTP/1.1 400 Bad Request\r\n\r\n"
)

type fakeTransport struct {
	reply string
	err   error
	took  time.Duration
	clock *fakeClock
	reqs  []string
}

func (f *fakeTransport) Exchange(req []byte) ([]byte, error) {
	f.reqs = append(f.reqs, string(req))
	if f.clock != nil {
		f.clock.advance(f.took)
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.reply), nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeObserver struct {
	results []string
	delays  []time.Duration
}

func (o *fakeObserver) ObserveSend(ch, result string, elapsed, next time.Duration) {
	o.results = append(o.results, result)
	o.delays = append(o.delays, next)
}

type collectRecorder struct {
	recs []record.Send
	err  error
}

func (c *collectRecorder) Record(s record.Send) error {
	c.recs = append(c.recs, s)
	return c.err
}

func labRegistry(t *testing.T, extra ...channel.Channel) *channel.Registry {
	t.Helper()
	chs := append([]channel.Channel{channel.New("Lab", "K1", "Temp", "Humidity")}, extra...)
	reg, err := channel.NewRegistry(chs...)
	require.NoError(t, err)
	return reg
}

func newTestClient(t *testing.T, tr *fakeTransport, opts Options) (*Client, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	tr.clock = clock
	opts.Now = clock.now
	return New(labRegistry(t), tr, opts), clock
}

func TestTimeLimit(t *testing.T) {
	assert.Equal(t, FreeAPIFloor, TimeLimit(0))
	assert.Equal(t, FreeAPIFloor, TimeLimit(1))
	assert.Equal(t, 21024*time.Millisecond, TimeLimit(2))
	assert.Equal(t, 105120*time.Millisecond, TimeLimit(10))
}

func TestSendLabSuccess(t *testing.T) {
	tr := &fakeTransport{reply: okReply, took: 400 * time.Millisecond}
	obs := &fakeObserver{}
	rec := &collectRecorder{}
	c, _ := newTestClient(t, tr, Options{Observer: obs, Recorder: rec})
	assert.Equal(t, time.Duration(0), c.FreeAPIDelay())

	ok, err := c.Send("Lab", protocol.Measurements{"Temp": 21.5, "Humidity": 40})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, tr.reqs, 1)
	assert.Contains(t, tr.reqs[0], "api_key=K1")
	assert.Contains(t, tr.reqs[0], "field1=21.5&field2=40")
	assert.Contains(t, tr.reqs[0], "Host: "+transport.DefaultHost+"\r\n")

	assert.Equal(t, FreeAPIFloor-400*time.Millisecond, c.FreeAPIDelay())
	assert.Greater(t, c.FreeAPIDelay(), time.Duration(0))
	assert.Equal(t, []string{ResultOK}, obs.results)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, 42, rec.recs[0].Count)
	assert.True(t, rec.recs[0].OK)
	assert.Equal(t, 400*time.Millisecond, rec.recs[0].Elapsed)
	assert.Equal(t, c.FreeAPIDelay(), rec.recs[0].NextDelay)
	assert.NotEmpty(t, rec.recs[0].ID)
}

func TestSendRejectedResetsDelay(t *testing.T) {
	tr := &fakeTransport{reply: okReply, took: time.Second}
	obs := &fakeObserver{}
	c, _ := newTestClient(t, tr, Options{Observer: obs})

	_, err := c.Send("Lab", protocol.Measurements{"Temp": 1})
	require.NoError(t, err)
	require.Greater(t, c.FreeAPIDelay(), time.Duration(0))

	tr.reply = rejectedReply
	ok, err := c.Send("Lab", protocol.Measurements{"Temp": 1})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), c.FreeAPIDelay())
	assert.Equal(t, []string{ResultOK, ResultRejected}, obs.results)
}

func TestSendSlowExchangeClampsToZero(t *testing.T) {
	tr := &fakeTransport{reply: okReply, took: 20 * time.Second}
	c, _ := newTestClient(t, tr, Options{})
	ok, err := c.Send("Lab", protocol.Measurements{"Humidity": 50})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), c.FreeAPIDelay())
}

func TestSendUnparsableBodyIsSuccess(t *testing.T) {
	tr := &fakeTransport{reply: "HTTP/1.1 200 OK\r\n\r\nnope"}
	rec := &collectRecorder{}
	c, _ := newTestClient(t, tr, Options{Recorder: rec})
	ok, err := c.Send("Lab", protocol.Measurements{"Temp": 3})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, rec.recs[0].Count)
	assert.Equal(t, FreeAPIFloor, c.FreeAPIDelay())
}

func TestSendMalformedReplyIsFailure(t *testing.T) {
	tr := &fakeTransport{reply: ""}
	c, _ := newTestClient(t, tr, Options{})
	ok, err := c.Send("Lab", protocol.Measurements{"Temp": 3})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendInputErrorsDoNoIO(t *testing.T) {
	tr := &fakeTransport{reply: okReply}
	obs := &fakeObserver{}
	c, _ := newTestClient(t, tr, Options{Observer: obs})

	_, err := c.Send("Attic", protocol.Measurements{"Temp": 1})
	assert.True(t, errors.Is(err, channel.ErrUnknownChannel))

	_, err = c.Send("Lab", protocol.Measurements{})
	assert.True(t, errors.Is(err, protocol.ErrEmptyMeasurementSet))

	_, err = c.Send("Lab", protocol.Measurements{"Temp": 1, "Wind": 2})
	assert.True(t, errors.Is(err, protocol.ErrUnknownField))

	assert.Empty(t, tr.reqs)
	assert.Empty(t, obs.results)
	assert.Equal(t, time.Duration(0), c.FreeAPIDelay())
}

func TestSendTransportErrorPropagates(t *testing.T) {
	terr := &transport.Error{Op: "dial", Addr: "1.2.3.4:443", Err: errors.New("connection refused")}
	tr := &fakeTransport{reply: okReply, took: time.Second}
	obs := &fakeObserver{}
	rec := &collectRecorder{}
	c, _ := newTestClient(t, tr, Options{Observer: obs, Recorder: rec})

	_, err := c.Send("Lab", protocol.Measurements{"Temp": 1})
	require.NoError(t, err)
	before := c.FreeAPIDelay()

	tr.err = terr
	ok, err := c.Send("Lab", protocol.Measurements{"Temp": 1})
	assert.False(t, ok)
	assert.Same(t, terr, err)
	assert.Equal(t, before, c.FreeAPIDelay())
	assert.Equal(t, []string{ResultOK, ResultTransportError}, obs.results)
	assert.Len(t, rec.recs, 1)
}

func TestRecorderFailureDoesNotFailSend(t *testing.T) {
	tr := &fakeTransport{reply: okReply}
	rec := &collectRecorder{err: errors.New("disk full")}
	c, _ := newTestClient(t, tr, Options{Recorder: rec})
	ok, err := c.Send("Lab", protocol.Measurements{"Temp": 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTimeLimitScalesWithChannels(t *testing.T) {
	reg := labRegistry(t, channel.New("b", "k", "x"), channel.New("c", "k", "x"))
	tr := &fakeTransport{reply: okReply}
	c := New(reg, tr, Options{Host: "example.test"})
	assert.Equal(t, 31536*time.Millisecond, c.TimeLimit())

	ok, err := c.Send("c", protocol.Measurements{"x": "7"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, strings.Contains(tr.reqs[0], "Host: example.test\r\n"))
	assert.LessOrEqual(t, c.FreeAPIDelay(), c.TimeLimit())
	assert.Greater(t, c.FreeAPIDelay(), time.Duration(0))
}
