package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherPlaysQueued(t *testing.T) {
	played := make(chan struct{}, 4)
	d := NewDispatcher(PlayerFunc(func() error {
		played <- struct{}{}
		return nil
	}), Options{QueueSize: 4}, nil)

	require.True(t, d.Notify())
	select {
	case <-played:
	case <-time.After(time.Second):
		t.Fatal("notification not played")
	}

	d.Close()
	require.Equal(t, uint64(1), d.Played())
	require.False(t, d.Notify())
	d.Close()
}

func TestDispatcherNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(PlayerFunc(func() error {
		<-release
		return nil
	}), Options{QueueSize: 2}, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Notify()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a stuck player")
	}
	require.Greater(t, d.Dropped(), uint64(0))

	close(release)
	d.Close()
	require.Equal(t, uint64(50), d.Played()+d.Dropped())
}

func TestDispatcherRateLimits(t *testing.T) {
	d := NewDispatcher(PlayerFunc(func() error { return nil }),
		Options{QueueSize: 16, MinInterval: time.Hour}, nil)
	defer d.Close()

	require.True(t, d.Notify())
	require.False(t, d.Notify())
	require.False(t, d.Notify())
	require.Equal(t, uint64(2), d.Dropped())
}

func TestDispatcherSurvivesPlayerErrors(t *testing.T) {
	calls := 0
	d := NewDispatcher(PlayerFunc(func() error {
		calls++
		return errors.New("no audio device")
	}), Options{QueueSize: 4}, nil)

	require.True(t, d.Notify())
	require.True(t, d.Notify())
	d.Close()

	require.Equal(t, 2, calls)
	require.Equal(t, uint64(0), d.Played())
}

func TestBellPlayer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BellPlayer{W: &buf}.Play())
	require.Equal(t, "\a", buf.String())
}
