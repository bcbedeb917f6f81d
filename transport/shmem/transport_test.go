package shmem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openeuler-mirror/xmig/transport"
)

func sendBytes(t *testing.T, ep transport.Endpoint, msg []byte) {
	t.Helper()
	buf, err := ep.WriteBuf()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf.Bytes()), len(msg))
	copy(buf.Bytes(), msg)
	require.NoError(t, buf.Submit(len(msg)))
	buf.Release()
}

func recvBytes(t *testing.T, ep transport.Endpoint, n int) []byte {
	t.Helper()
	buf, err := ep.ReadBuf()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf.Bytes()), n)
	out := make([]byte, n)
	copy(out, buf.Bytes())
	require.NoError(t, buf.Consume(n))
	buf.Release()
	return out
}

func TestEndpointPair(t *testing.T) {
	addr := uniqueAddr()
	tr := NewTransport()

	server, err := tr.Create(addr)
	require.NoError(t, err)
	defer server.Close()

	client, err := tr.Connect(addr)
	require.NoError(t, err)
	defer client.Close()

	// Client-to-server direction.
	sendBytes(t, client, []byte("ping"))
	require.Equal(t, []byte("ping"), recvBytes(t, server, 4))

	// Server-to-client direction.
	sendBytes(t, server, []byte("pong!"))
	require.Equal(t, []byte("pong!"), recvBytes(t, client, 5))
}

func TestEndpointPath(t *testing.T) {
	addr := uniqueAddr()
	tr := NewTransport()

	server, err := tr.Create(addr)
	require.NoError(t, err)
	defer server.Close()

	require.Equal(t, "shmem://"+addr, server.(*Endpoint).Path())
}

func TestConnectWithoutCreator(t *testing.T) {
	tr := NewTransport(WithConnectTimeout(50 * time.Millisecond))
	_, err := tr.Connect(uniqueAddr())
	require.True(t, transport.IsCode(err, transport.ErrCodeConnectionTimeout),
		"err = %v, want ConnectionTimeout", err)
}

func TestConnectWhileCreatorDelayed(t *testing.T) {
	addr := uniqueAddr()
	tr := NewTransport(WithConnectTimeout(2 * time.Second))

	done := make(chan transport.Endpoint, 1)
	go func() {
		// The connector starts first and polls until this side shows up.
		time.Sleep(100 * time.Millisecond)
		server, err := tr.Create(addr)
		if err == nil {
			done <- server
		}
	}()

	client, err := tr.Connect(addr)
	require.NoError(t, err)
	defer client.Close()

	server := <-done
	defer server.Close()

	sendBytes(t, client, []byte("late"))
	require.Equal(t, []byte("late"), recvBytes(t, server, 4))
}

func TestCreateCollision(t *testing.T) {
	addr := uniqueAddr()
	tr := NewTransport()

	server, err := tr.Create(addr)
	require.NoError(t, err)
	defer server.Close()

	_, err = tr.Create(addr)
	require.True(t, transport.IsCode(err, transport.ErrCodeCreateFailed),
		"err = %v, want CreateFailed", err)
}
