// Raw-socket transports for one request/response exchange with the API host.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/juju/errors"

	"thingspeak-uploader/internal/logging"
)

const (
	DefaultHost = "api.thingspeak.com"
	PlainPort   = 80
	SecurePort  = 443
	// DNSCacheTTL bounds how long a resolved address is reused.
	DNSCacheTTL = time.Hour
	// ReadChunk is the receive buffer size of the plaintext variant.
	ReadChunk = 512
)

// Kinds accepted by New.
const (
	KindHTTP  = "http"
	KindHTTPS = "https"
)

// Transport performs a single exchange: it writes req on a fresh connection
// and returns everything the peer sent back before closing.
type Transport interface {
	Exchange(req []byte) ([]byte, error)
}

// Error reports a network failure during an exchange.
type Error struct {
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config is shared by both variants.
type Config struct {
	Host string
	// Port overrides the variant default when non-zero.
	Port int
	// Timeout applies to lookup, dial and the whole read/write phase. Zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
	// TLS is used by Secure only. ServerName defaults to Host.
	TLS *tls.Config
}

// New builds the transport named by kind.
func New(kind string, cfg Config) (Transport, error) {
	switch kind {
	case KindHTTP:
		return NewPlain(cfg), nil
	case KindHTTPS, "":
		return NewSecure(cfg), nil
	}
	return nil, errors.NotValidf("transport kind %q", kind)
}

// resolver caches the API host address until the TTL expires.
// It is owned by one transport and not safe for concurrent use.
type resolver struct {
	host   string
	port   string
	ttl    time.Duration
	now    func() time.Time
	lookup func(ctx context.Context, host string) ([]string, error)
	log    *slog.Logger

	addr  string
	until time.Time
}

func newResolver(host string, port int, log *slog.Logger) *resolver {
	return &resolver{
		host:   host,
		port:   strconv.Itoa(port),
		ttl:    DNSCacheTTL,
		now:    time.Now,
		lookup: net.DefaultResolver.LookupHost,
		log:    log,
	}
}

func (r *resolver) resolve(timeout time.Duration) (string, error) {
	now := r.now()
	if r.addr != "" && now.Before(r.until) {
		return r.addr, nil
	}
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	addrs, err := r.lookup(ctx, r.host)
	if err != nil {
		return "", &Error{Op: "lookup", Addr: r.host, Err: err}
	}
	if len(addrs) == 0 {
		return "", &Error{Op: "lookup", Addr: r.host, Err: errors.NotFoundf("address for %s", r.host)}
	}
	r.addr = net.JoinHostPort(addrs[0], r.port)
	r.until = now.Add(r.ttl)
	r.log.Info("api endpoint resolved", "host", r.host, "addr", r.addr)
	return r.addr, nil
}

// base holds the parts both variants share: resolution and connection setup.
type base struct {
	host    string
	timeout time.Duration
	res     *resolver
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	log     *slog.Logger
}

func newBase(cfg Config, defaultPort int) base {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	log := logging.OrDiscard(cfg.Logger)
	d := &net.Dialer{Timeout: cfg.Timeout}
	return base{
		host:    host,
		timeout: cfg.Timeout,
		res:     newResolver(host, port, log),
		dial:    d.DialContext,
		log:     log,
	}
}

// connect resolves the endpoint and opens a new TCP connection to it.
func (b *base) connect() (net.Conn, string, error) {
	addr, err := b.res.resolve(b.timeout)
	if err != nil {
		return nil, "", err
	}
	conn, err := b.dial(context.Background(), "tcp", addr)
	if err != nil {
		return nil, addr, &Error{Op: "dial", Addr: addr, Err: err}
	}
	if b.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(b.timeout)); err != nil {
			conn.Close()
			return nil, addr, &Error{Op: "deadline", Addr: addr, Err: err}
		}
	}
	return conn, addr, nil
}
