package transport

import (
	"crypto/tls"
	"io"
)

// Secure wraps each connection in TLS before the exchange.
type Secure struct {
	base
	tls *tls.Config
}

// NewSecure creates a TLS transport. Port defaults to 443.
func NewSecure(cfg Config) *Secure {
	s := &Secure{base: newBase(cfg, SecurePort)}
	if cfg.TLS != nil {
		s.tls = cfg.TLS.Clone()
	} else {
		s.tls = &tls.Config{}
	}
	if s.tls.ServerName == "" {
		s.tls.ServerName = s.host
	}
	return s
}

// Exchange implements Transport.
func (s *Secure) Exchange(req []byte) ([]byte, error) {
	raw, addr, err := s.connect()
	if err != nil {
		return nil, err
	}
	conn := tls.Client(raw, s.tls)
	defer conn.Close()

	if err := conn.Handshake(); err != nil {
		return nil, &Error{Op: "handshake", Addr: addr, Err: err}
	}
	if _, err := conn.Write(req); err != nil {
		return nil, &Error{Op: "write", Addr: addr, Err: err}
	}
	data, err := io.ReadAll(conn)
	// Peers that close without close_notify still delivered a full reply.
	if err == io.ErrUnexpectedEOF && len(data) > 0 {
		err = nil
	}
	if err != nil {
		return nil, &Error{Op: "read", Addr: addr, Err: err}
	}
	return data, nil
}
