package quicsrv

import (
	"context"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/stretchr/testify/require"
)

func TestListener_AcceptCompletesHandshake(t *testing.T) {
	certPath, keyPath, err := WriteSelfSignedCert(t.TempDir())
	require.NoError(t, err)

	ln, err := Listen(ListenerConfig{
		Addr:     "127.0.0.1:0",
		CertFile: certPath,
		KeyFile:  keyPath,
	})
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan *Connection, 1)
	go func() {
		conn, err := ln.Accept(ctx)
		require.NoError(t, err)
		accepted <- conn
	}()

	clientConf := &quic.Config{EnableDatagrams: true}
	cert, err := ClientTLSConfig(certPath)
	require.NoError(t, err)

	clientConn, err := quic.DialAddr(ctx, ln.Addr(), cert, clientConf)
	require.NoError(t, err)
	defer clientConn.CloseWithError(0, "done")

	select {
	case conn := <-accepted:
		require.NotNil(t, conn)
		require.NotEmpty(t, conn.ID())
	case <-ctx.Done():
		t.Fatal("Accept did not complete handshake in time")
	}
}
