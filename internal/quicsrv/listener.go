// Package quicsrv wires the QUIC transport: a single UDP-backed listener
// shared by every worker via SO_REUSEPORT, server-authenticated TLS 1.3,
// and the per-connection lifecycle (unreliable datagrams in, one
// unidirectional stream out) that pixel submissions and broadcasts travel
// over.
package quicsrv

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/cnvs/canvas-server/internal/constants"
)

// ListenerConfig configures a worker's QUIC listener.
type ListenerConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}

// Listener accepts incoming QUIC connections on one worker's reuseport
// socket.
type Listener struct {
	ql *quic.Listener
}

// Listen opens a QUIC listener on cfg.Addr. Each worker calls this against
// the same address; SO_REUSEPORT (applied by the caller when constructing
// the underlying UDP socket) lets the kernel load-balance 4-tuples across
// them.
func Listen(cfg ListenerConfig) (*Listener, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("quicsrv: load cert: %w", err)
	}

	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{constants.ALPN},
		MinVersion:   tls.VersionTLS13,
	}

	quicConf := &quic.Config{
		EnableDatagrams: true,
	}

	ql, err := quic.ListenAddr(cfg.Addr, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("quicsrv: listen: %w", err)
	}
	return &Listener{ql: ql}, nil
}

// Accept blocks until a new connection arrives or ctx is canceled.
func (l *Listener) Accept(ctx context.Context) (*Connection, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return newConnection(conn), nil
}

// Close shuts the listener down, rejecting further connections.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// Addr returns the address the listener is bound to.
func (l *Listener) Addr() string {
	return l.ql.Addr().String()
}
