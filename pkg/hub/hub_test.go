package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tryon/pkg/protocol"
)

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a := NewClient(h, nil, nil)
	b := NewClient(h, nil, nil)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)
	assert.NotEqual(t, a.ID(), b.ID())

	h.Broadcast(NewJSONMessage([]byte(`{"n":1}`)))

	for _, c := range []*Client{a, b} {
		msg, ok := receive(t, c)
		require.True(t, ok)
		assert.JSONEq(t, `{"n":1}`, string(msg.Data))
	}
}

func TestHub_OnConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	h.OnConnect = func(c *Client) {
		c.Send(NewJSONMessage([]byte(`"hello"`)))
	}
	go h.Run(ctx)

	c := NewClient(h, nil, nil)
	msg, ok := receive(t, c)
	require.True(t, ok)
	assert.Equal(t, `"hello"`, string(msg.Data))
}

func TestHub_UnregisterAndShutdownCloseClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test")
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	a := NewClient(h, nil, nil)
	b := NewClient(h, nil, nil)
	h.unregister <- a
	_, ok := receive(t, a)
	assert.False(t, ok, "send channel is closed on unregister")
	assert.False(t, a.Send(NewJSONMessage([]byte(`1`))))

	cancel()
	<-done
	_, ok = receive(t, b)
	assert.False(t, ok, "shutdown closes remaining clients")
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	slow := NewClient(h, nil, nil)
	fast := NewClient(h, nil, nil)
	for slow.Send(NewJSONMessage([]byte(`0`))) {
	}

	h.Broadcast(NewJSONMessage([]byte(`1`)))
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	msg, ok := receive(t, fast)
	require.True(t, ok)
	assert.Equal(t, `1`, string(msg.Data))
	assert.False(t, slow.Send(NewJSONMessage([]byte(`2`))), "slow client is closed")
}

func TestHub_JoinAndLeaveAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test")
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	joined := make(chan *Client, 1)
	go func() { joined <- NewClient(h, nil, nil) }()

	var c *Client
	select {
	case c = <-joined:
	case <-time.After(time.Second):
		t.Fatal("NewClient blocked on a stopped hub")
	}
	assert.False(t, c.Send(NewJSONMessage([]byte(`1`))), "client of a stopped hub is closed")

	left := make(chan struct{})
	go func() {
		h.leave(c)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked on a stopped hub")
	}
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	c := &Client{send: make(chan Message, 1)}
	assert.True(t, c.Send(NewJSONMessage([]byte(`1`))))
	assert.False(t, c.Send(NewJSONMessage([]byte(`2`))))
}

func TestEncode(t *testing.T) {
	msg, err := protocol.NewErrorMessage(errors.New("boom"))
	require.NoError(t, err)

	frame, err := Encode(msg)
	require.NoError(t, err)
	assert.Contains(t, string(frame.Data), `"type":"error"`)
	assert.Contains(t, string(frame.Data), `"boom"`)
}
