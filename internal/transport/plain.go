package transport

import (
	"io"
	"net"
)

// Plain talks to the API over an unencrypted TCP connection.
type Plain struct {
	base
}

// NewPlain creates a plaintext transport. Port defaults to 80.
func NewPlain(cfg Config) *Plain {
	return &Plain{base: newBase(cfg, PlainPort)}
}

// Exchange implements Transport.
func (p *Plain) Exchange(req []byte) ([]byte, error) {
	conn, addr, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(req); err != nil {
		return nil, &Error{Op: "write", Addr: addr, Err: err}
	}
	return recvAll(conn, addr)
}

// recvAll reads ReadChunk-sized parts until the peer closes the connection.
func recvAll(conn net.Conn, addr string) ([]byte, error) {
	var data []byte
	buf := make([]byte, ReadChunk)
	for {
		n, err := conn.Read(buf)
		data = append(data, buf[:n]...)
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, &Error{Op: "read", Addr: addr, Err: err}
		}
	}
}
