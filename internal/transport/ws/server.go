package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: sole writer after the handshake. Everything
		// outbound, including PATH results and errors, goes through out.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.route(ctx, out, sessionID, msg)
		}

		s.world.Leave(sessionID)
	}
}

// route dispatches one inbound frame. Actions go to the world inbox and are
// applied at the next tick boundary; PATH queries are resolved against the
// current tick's state and answered on this session's queue.
func (s *Server) route(ctx context.Context, out chan []byte, sessionID string, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.send(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Detail: "malformed JSON"})
		return
	}
	if base.ProtocolVersion != "" && base.ProtocolVersion != protocol.Version {
		s.send(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Detail: "bad protocol_version"})
		return
	}

	switch base.Type {
	case protocol.TypeMutate:
		var m protocol.MutateMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.send(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Detail: "malformed MUTATE"})
			return
		}
		if !s.world.Enqueue(world.ActionEnvelope{AgentID: sessionID, Mutate: &m}) && s.log != nil {
			s.log.Printf("inbox full, dropped MUTATE from %s", sessionID)
		}
	case protocol.TypeMove:
		var m protocol.MoveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.send(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Detail: "malformed MOVE"})
			return
		}
		if !s.world.Enqueue(world.ActionEnvelope{AgentID: sessionID, Move: &m}) && s.log != nil {
			s.log.Printf("inbox full, dropped MOVE from %s", sessionID)
		}
	case protocol.TypePath:
		var m protocol.PathMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.send(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Detail: "malformed PATH"})
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		res := s.world.ResolvePathMsg(reqCtx, &m)
		cancel()
		s.send(ctx, out, res)
	default:
		s.send(ctx, out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Detail: "unknown message type " + base.Type})
	}
}

func (s *Server) send(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	out = make(chan []byte, 16)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := s.world.Join(ctx, world.JoinRequest{
		Name:     hello.ClientName,
		Observer: hello.Observer,
		Out:      out,
	})
	if err != nil {
		return "", nil
	}

	// The session exists in the world from here on; a failed write must tear
	// it down or its flow field would be repaired forever.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave(resp.Welcome.AgentID)
		return "", nil
	}
	if resp.GridSync != nil {
		if err := writeJSON(conn, resp.GridSync); err != nil {
			s.world.Leave(resp.Welcome.AgentID)
			return "", nil
		}
	}
	return resp.Welcome.AgentID, out
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
