package multicast

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testGroup = "239.255.42.99"

// openLoopback opens a channel on port (0 for ephemeral), skipping the test when
// the host has no multicast-capable route.
func openLoopback(t *testing.T, port uint16) *Channel {
	t.Helper()
	ch, err := Open(Config{Group: testGroup, Port: port}, nil)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.Op == "join" {
			t.Skipf("multicast unavailable: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func receiveAsync(ch *Channel) <-chan []byte {
	out := make(chan []byte, 1)
	go func() {
		b, err := ch.Receive()
		if err != nil {
			close(out)
			return
		}
		out <- b
	}()
	return out
}

func TestOpenRejectsInvalidGroup(t *testing.T) {
	_, err := Open(Config{Group: "10.0.0.1", Port: 5004}, nil)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "join", te.Op)

	_, err = Open(Config{Group: "nonsense", Port: 5004}, nil)
	require.ErrorAs(t, err, &te)
}

func TestSendReceiveLoopback(t *testing.T) {
	a := openLoopback(t, 0)
	b := openLoopback(t, uint16(a.Group().Port))

	got := receiveAsync(b)
	require.NoError(t, a.Send([]byte("[10:00:00] [alice] hello")))

	select {
	case payload := <-got:
		require.Equal(t, "[10:00:00] [alice] hello", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not received")
	}
}

func TestZeroConfigHearsOwnDatagrams(t *testing.T) {
	ch := openLoopback(t, 0)

	got := receiveAsync(ch)
	require.NoError(t, ch.Send([]byte("[10:00:00] [alice] echo")))

	select {
	case payload := <-got:
		require.Equal(t, "[10:00:00] [alice] echo", string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("sender did not receive its own datagram with default config")
	}
}

func TestDisableLoopbackSilencesLocalReceivers(t *testing.T) {
	a, err := Open(Config{Group: testGroup, DisableLoopback: true}, nil)
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	b := openLoopback(t, uint16(a.Group().Port))

	got := receiveAsync(b)
	require.NoError(t, a.Send([]byte("[10:00:00] [alice] quiet")))

	select {
	case payload, ok := <-got:
		require.False(t, ok, "unexpected datagram %q", payload)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReceiveTruncatesToBufferSize(t *testing.T) {
	ch := openLoopback(t, 0)

	raw, err := net.DialUDP("udp4", nil, ch.Group())
	require.NoError(t, err)
	defer raw.Close()

	got := receiveAsync(ch)
	_, err = raw.Write(bytes.Repeat([]byte("y"), 1500))
	require.NoError(t, err)

	select {
	case payload := <-got:
		require.Len(t, payload, MaxDatagramSize)
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not received")
	}
}

func TestSendRejectsOversizedPayload(t *testing.T) {
	ch := openLoopback(t, 0)

	err := ch.Send(bytes.Repeat([]byte("x"), MaxDatagramSize+1))
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "send", te.Op)
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	require.NoError(t, ch.Send(bytes.Repeat([]byte("x"), MaxDatagramSize)))
}

func TestCloseUnblocksReceive(t *testing.T) {
	ch := openLoopback(t, 0)

	errc := make(chan error, 1)
	go func() {
		_, err := ch.Receive()
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	select {
	case err := <-errc:
		var te *TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "receive", te.Op)
		require.True(t, IsClosed(err))
	case <-time.After(2 * time.Second):
		t.Fatal("receive still blocked after close")
	}

	require.True(t, IsClosed(ch.Send([]byte("late"))))
}
