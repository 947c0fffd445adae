package quicsrv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConnection() *Connection {
	return NewStubConnection()
}

func TestConnection_MarkActivePromotesConnectingToActive(t *testing.T) {
	c := newTestConnection()
	require.Equal(t, StateConnecting, c.State())

	c.MarkActive(time.Now())
	require.Equal(t, StateActive, c.State())
}

func TestConnection_MarkActiveDoesNotDemoteClosing(t *testing.T) {
	c := newTestConnection()
	c.MarkClosing()
	c.MarkActive(time.Now())
	require.Equal(t, StateClosing, c.State(), "MarkActive must not resurrect a closing connection")
}

func TestConnection_IdleForMeasuresSinceLastActive(t *testing.T) {
	c := newTestConnection()
	past := time.Now().Add(-5 * time.Second)
	c.MarkActive(past)

	idle := c.IdleFor(past.Add(3 * time.Second))
	require.Equal(t, 3*time.Second, idle)
}

func TestConnection_SnapshotAndVersionBookkeeping(t *testing.T) {
	c := newTestConnection()
	require.False(t, c.SnapshotSent())
	c.MarkSnapshotSent()
	require.True(t, c.SnapshotSent())

	require.Equal(t, uint64(0), c.LastBroadcastVersion())
	c.SetLastBroadcastVersion(42)
	require.Equal(t, uint64(42), c.LastBroadcastVersion())
}

func TestConnection_UserIdentityLearnedOnce(t *testing.T) {
	c := newTestConnection()
	_, ok := c.User()
	require.False(t, ok)

	c.SetUser(99)
	id, ok := c.User()
	require.True(t, ok)
	require.Equal(t, uint32(99), id)
}
