//go:build !giouring

package ring

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestStubRing_DrainReceivesSubmittedPackets(t *testing.T) {
	serverFD, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	defer unix.Close(serverFD)

	require.NoError(t, unix.Bind(serverFD, &unix.SockaddrInet4{Port: 0, Addr: [4]byte{127, 0, 0, 1}}))
	sa, err := unix.Getsockname(serverFD)
	require.NoError(t, err)
	addr := sa.(*unix.SockaddrInet4)

	r, err := New(Config{SubmissionDepth: 32, CompletionDepth: 64, BufferCount: 8, BufferSize: 64})
	require.NoError(t, err)
	require.False(t, r.Multishot(), "default build must use the one-shot stub")
	require.NoError(t, r.ArmReceive(serverFD))

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: addr.Port})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	var completions []Completion
	require.Eventually(t, func() bool {
		c, err := r.Drain(8)
		require.NoError(t, err)
		completions = append(completions, c...)
		return len(completions) > 0
	}, time.Second, 5*time.Millisecond)

	require.Len(t, completions, 1)
	require.Equal(t, 5, completions[0].Length)
}

func TestStubRing_ProvideBufferIsNoop(t *testing.T) {
	r := newStub(Config{BufferCount: 4, BufferSize: 16})
	require.NoError(t, r.ProvideBuffer(2))
}
