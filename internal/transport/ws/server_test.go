package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/world"
)

func startTestServer(t *testing.T) (*world.World, *httptest.Server) {
	t.Helper()
	w, err := world.NewWorld(world.WorldConfig{
		ID:         "test",
		TickRateHz: 50,
		Gen: grid.GenConfig{
			Width: 16, Height: 16, CellSize: 1.0, Seed: 7,
			DiggableHP: 50, ClearingRadius: 3,
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(NewServer(w, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return w, srv
}

func dialTest(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func waitForAgentCount(t *testing.T, w *world.World, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for w.AgentCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("agent count stuck at %d, want %d", w.AgentCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandshake_WelcomeThenGridSync(t *testing.T) {
	w, srv := startTestServer(t)
	conn := dialTest(t, srv)
	defer conn.Close()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "miner"}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write HELLO: %v", err)
	}

	var welcome protocol.WelcomeMsg
	readMessage(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.AgentID == "" || welcome.Spawn == nil {
		t.Fatalf("bad WELCOME: %+v", welcome)
	}
	if welcome.WorldParams.Width != 16 || welcome.WorldParams.TickRateHz != 50 {
		t.Fatalf("world params: %+v", welcome.WorldParams)
	}

	var sync protocol.GridMsg
	readMessage(t, conn, &sync)
	if sync.Type != protocol.TypeGridSync || sync.Width != 16 || sync.Height != 16 || sync.Cells == "" {
		t.Fatalf("bad GRID: %+v", sync)
	}

	if w.AgentCount() != 1 {
		t.Fatalf("agent count = %d, want 1", w.AgentCount())
	}
}

func TestHandshake_RejectsBadVersion(t *testing.T) {
	w, srv := startTestServer(t)
	conn := dialTest(t, srv)
	defer conn.Close()

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.9", ClientName: "miner"}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write HELLO: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("connection survived a bad protocol version")
	}
	if w.AgentCount() != 0 {
		t.Fatalf("rejected handshake created an agent")
	}
}

// Whether the connection dies before, during, or after the WELCOME write, the
// agent must not outlive the session; a leaked one would drag a live flow
// field along for the rest of the world's lifetime.
func TestSession_NoGhostAgentAfterDisconnect(t *testing.T) {
	w, srv := startTestServer(t)

	// Disconnect mid-handshake: HELLO sent, socket gone before (or while) the
	// server writes WELCOME and GRID.
	conn := dialTest(t, srv)
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "flaky"}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write HELLO: %v", err)
	}
	_ = conn.Close()
	// The join may still be in flight when the socket dies; give it time to
	// land before requiring the roster to be empty again.
	time.Sleep(100 * time.Millisecond)
	waitForAgentCount(t, w, 0)

	// Disconnect after a complete handshake.
	conn = dialTest(t, srv)
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	readMessage(t, conn, &welcome)
	var sync protocol.GridMsg
	readMessage(t, conn, &sync)
	waitForAgentCount(t, w, 1)
	_ = conn.Close()
	waitForAgentCount(t, w, 0)
}
