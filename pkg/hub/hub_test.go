package hub

import (
	"context"
	"testing"
	"time"

	"github.com/teslashibe/go-hal/internal/log"
)

func startHub(t *testing.T, opts ...Option) (*Hub, context.CancelFunc) {
	t.Helper()
	opts = append(opts, WithLogger(log.Discard()))
	h := New("test", opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func fakeClient(h *Hub) *Client {
	c := &Client{hub: h, send: make(chan Message, sendBuffer)}
	h.add(c)
	return c
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client queue closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Broadcast(t *testing.T) {
	h, _ := startHub(t)
	a, b := fakeClient(h), fakeClient(h)

	if err := h.BroadcastEvent("status", map[string]string{"mode": "face"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*Client{a, b} {
		msg := recv(t, c)
		if msg.Type != JSONMessage || string(msg.Data) != `{"type":"status","data":{"mode":"face"}}` {
			t.Errorf("got %v %s", msg.Type, msg.Data)
		}
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	if msg := recv(t, a); msg.Type != BinaryMessage || len(msg.Data) != 2 {
		t.Errorf("binary message: %+v", msg)
	}
	waitFor(t, func() bool { return h.ClientCount() == 2 })
}

func TestHub_RetainReplaysLastMessage(t *testing.T) {
	h, _ := startHub(t, WithRetain())
	first := fakeClient(h)

	h.BroadcastJSON(map[string]int{"n": 1})
	h.BroadcastJSON(map[string]int{"n": 2})
	recv(t, first)
	recv(t, first)

	late := fakeClient(h)
	if msg := recv(t, late); string(msg.Data) != `{"n":2}` {
		t.Errorf("replayed %s, want the last message", msg.Data)
	}
}

func TestHub_NoRetainByDefault(t *testing.T) {
	h, _ := startHub(t)
	first := fakeClient(h)
	h.BroadcastJSON(1)
	recv(t, first)

	late := fakeClient(h)
	select {
	case msg := <-late.send:
		t.Errorf("unexpected replay: %s", msg.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := fakeClient(h)

	for i := 0; i < sendBuffer+8; i++ {
		h.BroadcastJSON(i)
		time.Sleep(time.Millisecond)
	}
	waitFor(t, func() bool { return h.Dropped() == 1 })

	if h.ClientCount() != 0 {
		t.Errorf("slow client still registered")
	}
	n := 0
	for range slow.send {
		n++
	}
	if n != sendBuffer {
		t.Errorf("slow client received %d queued messages, want %d", n, sendBuffer)
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := fakeClient(h)
	waitFor(t, h.IsRunning)

	cancel()
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed queue")
		}
	case <-time.After(time.Second):
		t.Fatal("queue not closed on stop")
	}
	waitFor(t, func() bool { return !h.IsRunning() })

	late := &Client{hub: h, send: make(chan Message, 1)}
	if h.add(late) {
		t.Error("add after stop should fail")
	}
	if _, ok := <-late.send; ok {
		t.Error("late client queue should be closed")
	}
	h.remove(late) // must not block
}
