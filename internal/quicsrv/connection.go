package quicsrv

import (
	"context"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// State is a connection's place in its lifecycle.
type State int

const (
	// StateConnecting is set from acceptance until the first successful
	// datagram or stream activity confirms the handshake completed.
	StateConnecting State = iota
	// StateActive is the steady state: datagrams and broadcasts flow.
	StateActive
	// StateClosing is set once the protocol reports closed, the
	// connection went idle, or it was evicted under admission pressure;
	// the worker removes it on the next sweep.
	StateClosing
)

// Connection wraps a QUIC connection with the bookkeeping a worker needs:
// lifecycle state, the broadcast stream, and cooldown/session metadata.
// Not safe for concurrent use except via the accessor methods, which take
// the internal mutex.
type Connection struct {
	qc *quic.Conn

	mu               sync.Mutex
	state            State
	lastActive       time.Time
	lastBroadcastVer uint64
	snapshotSent     bool
	userID           uint32
	hasUser          bool

	broadcastStream *quic.SendStream
}

func newConnection(qc *quic.Conn) *Connection {
	return &Connection{
		qc:         qc,
		state:      StateConnecting,
		lastActive: time.Now(),
	}
}

// ID returns the string form of the peer's current remote address, which
// the worker uses as the connection's key. It is not the QUIC connection
// ID, and it changes if the peer's address changes.
func (c *Connection) ID() string {
	return c.qc.RemoteAddr().String()
}

// ReceiveDatagram blocks for the next unreliable datagram, or returns an
// error once the connection closes or ctx is canceled.
func (c *Connection) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	return c.qc.ReceiveDatagram(ctx)
}

// SendDatagram transmits an unreliable datagram. Used only if the server
// ever needs to answer on the datagram path (e.g., cooldown rejection);
// the main broadcast path uses the unidirectional stream instead.
func (c *Connection) SendDatagram(data []byte) error {
	return c.qc.SendDatagram(data)
}

// OpenBroadcastStream opens this connection's single unidirectional
// server-to-client stream, used for every snapshot and diff push. It is
// idempotent: once opened, the same stream is reused.
func (c *Connection) OpenBroadcastStream(ctx context.Context) (*quic.SendStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broadcastStream != nil {
		return c.broadcastStream, nil
	}
	st, err := c.qc.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	c.broadcastStream = st
	return st, nil
}

// Close tears down the QUIC connection with the given application error
// code and reason.
func (c *Connection) Close(code quic.ApplicationErrorCode, reason string) error {
	return c.qc.CloseWithError(code, reason)
}

// MarkActive records the current time and promotes StateConnecting to
// StateActive on first activity.
func (c *Connection) MarkActive(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = now
	if c.state == StateConnecting {
		c.state = StateActive
	}
}

// IdleFor returns how long it has been since the connection last saw
// activity.
func (c *Connection) IdleFor(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastActive)
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkClosing transitions the connection to StateClosing.
func (c *Connection) MarkClosing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosing
}

// SnapshotSent reports whether this connection has received its initial
// RLE full snapshot yet.
func (c *Connection) SnapshotSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotSent
}

// MarkSnapshotSent records that the initial snapshot has gone out.
func (c *Connection) MarkSnapshotSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshotSent = true
}

// LastBroadcastVersion returns the canvas version this connection was last
// brought up to date with.
func (c *Connection) LastBroadcastVersion() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBroadcastVer
}

// SetLastBroadcastVersion records the canvas version just pushed to this
// connection.
func (c *Connection) SetLastBroadcastVersion(v uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBroadcastVer = v
}

// User returns the learned user id, if any.
func (c *Connection) User() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.hasUser
}

// SetUser records the user id once learned from a pixel submission.
func (c *Connection) SetUser(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
	c.hasUser = true
}
