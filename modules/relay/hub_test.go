package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// fakeConn records every frame written to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []WireEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]WireEvent, 0, len(c.frames))
	for _, frame := range c.frames {
		var ev WireEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("frame is not a wire event: %v", err)
		}
		result = append(result, ev)
	}
	return result
}

func newTestClient(id string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	return &Client{ID: id, Conn: conn}, conn
}

// errConn fails every write, like a peer that vanished mid-broadcast.
type errConn struct{}

func (c *errConn) WriteMessage(int, []byte) error { return errors.New("connection reset") }
func (c *errConn) Close() error                   { return nil }

func TestHub_BroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub(&mockLogger{})

	alice, aliceConn := newTestClient("c-alice")
	bob, bobConn := newTestClient("c-bob")
	eve, eveConn := newTestClient("c-eve")

	hub.handleRegister(alice)
	hub.handleRegister(bob)
	hub.handleRegister(eve)
	hub.JoinRoom("c-alice", "r1")
	hub.JoinRoom("c-bob", "r1")
	hub.JoinRoom("c-eve", "r2")

	hub.handleSend(&frame{roomID: "r1", event: EventNotifications, data: "hello"})

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		events := conn.events(t)
		if len(events) != 1 {
			t.Fatalf("room member got %d events, want 1", len(events))
		}
		if events[0].Event != EventNotifications || events[0].Data != "hello" {
			t.Errorf("event = %+v, want {notifications hello}", events[0])
		}
	}
	if got := eveConn.events(t); len(got) != 0 {
		t.Errorf("client in another room got %d events, want 0", len(got))
	}
}

func TestHub_BroadcastSkipsFailedWrites(t *testing.T) {
	hub := NewHub(&mockLogger{})

	broken := &Client{ID: "c-broken", Conn: &errConn{}}
	alice, aliceConn := newTestClient("c-alice")
	hub.handleRegister(broken)
	hub.handleRegister(alice)
	hub.JoinRoom("c-broken", "r1")
	hub.JoinRoom("c-alice", "r1")

	hub.handleSend(&frame{roomID: "r1", event: EventNotifications, data: "hello"})

	events := aliceConn.events(t)
	if len(events) != 1 {
		t.Fatalf("healthy client got %d events, want 1", len(events))
	}
	if events[0].Event != EventNotifications || events[0].Data != "hello" {
		t.Errorf("event = %+v, want {notifications hello}", events[0])
	}

	// The failed write must not evict the client either.
	if n := hub.RoomClientCount("r1"); n != 2 {
		t.Errorf("RoomClientCount() = %d, want 2", n)
	}
}

func TestHub_DirectSend(t *testing.T) {
	hub := NewHub(&mockLogger{})

	alice, aliceConn := newTestClient("c-alice")
	bob, bobConn := newTestClient("c-bob")
	hub.handleRegister(alice)
	hub.handleRegister(bob)
	hub.JoinRoom("c-alice", "r1")
	hub.JoinRoom("c-bob", "r1")

	hub.handleSend(&frame{clientID: "c-alice", event: "join result", data: "ok"})

	if got := aliceConn.events(t); len(got) != 1 {
		t.Fatalf("addressee got %d events, want 1", len(got))
	}
	if got := bobConn.events(t); len(got) != 0 {
		t.Errorf("other client got %d events, want 0", len(got))
	}
}

func TestHub_UnregisterRemovesFromRoom(t *testing.T) {
	hub := NewHub(&mockLogger{})

	alice, aliceConn := newTestClient("c-alice")
	bob, _ := newTestClient("c-bob")
	hub.handleRegister(alice)
	hub.handleRegister(bob)
	hub.JoinRoom("c-alice", "r1")
	hub.JoinRoom("c-bob", "r1")

	hub.handleUnregister(alice)

	if n := hub.RoomClientCount("r1"); n != 1 {
		t.Errorf("RoomClientCount() = %d, want 1", n)
	}

	hub.handleSend(&frame{roomID: "r1", event: EventNotifications, data: "x"})
	if got := aliceConn.events(t); len(got) != 0 {
		t.Errorf("unregistered client got %d events, want 0", len(got))
	}

	hub.handleUnregister(bob)
	if n := hub.RoomClientCount("r1"); n != 0 {
		t.Errorf("RoomClientCount() after last unregister = %d, want 0", n)
	}
}

func TestHub_JoinRoomMovesClient(t *testing.T) {
	hub := NewHub(&mockLogger{})

	alice, _ := newTestClient("c-alice")
	hub.handleRegister(alice)
	hub.JoinRoom("c-alice", "r1")
	hub.JoinRoom("c-alice", "r2")

	if n := hub.RoomClientCount("r1"); n != 0 {
		t.Errorf("RoomClientCount(r1) = %d, want 0 after move", n)
	}
	if n := hub.RoomClientCount("r2"); n != 1 {
		t.Errorf("RoomClientCount(r2) = %d, want 1", n)
	}
}

func TestHub_JoinRoomUnknownClient(t *testing.T) {
	hub := NewHub(&mockLogger{})

	// A client that disconnected before the join event was consumed.
	hub.JoinRoom("ghost", "r1")

	if n := hub.RoomClientCount("r1"); n != 0 {
		t.Errorf("RoomClientCount() = %d, want 0", n)
	}
}

func TestHub_RunShutdownClosesClients(t *testing.T) {
	hub := NewHub(&mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	alice, aliceConn := newTestClient("c-alice")
	hub.Register(alice)

	// Wait for the run loop to pick up the registration.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	hub.Wait()

	aliceConn.mu.Lock()
	closed := aliceConn.closed
	aliceConn.mu.Unlock()
	if !closed {
		t.Error("client connection was not closed on shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() after shutdown = %d, want 0", hub.ClientCount())
	}
}

func TestHub_SendersDoNotBlockAfterShutdown(t *testing.T) {
	hub := NewHub(&mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	hub.Wait()

	// A session goroutine can still be tearing down after the hub stopped.
	done := make(chan struct{})
	go func() {
		defer close(done)
		alice, _ := newTestClient("c-alice")
		hub.Register(alice)
		hub.Broadcast("r1", EventNotifications, "x")
		hub.Send("c-alice", "join result", "x")
		hub.Unregister(alice)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub senders blocked after shutdown")
	}
}
