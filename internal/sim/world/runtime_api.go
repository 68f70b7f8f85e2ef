package world

import (
	"context"
	"encoding/json"

	"digcraft.gg/internal/protocol"
	"digcraft.gg/internal/sim/grid"
	"digcraft.gg/internal/sim/path"
)

// Thread-safe entry points for transport goroutines. Everything funnels
// into the loop via channels; nothing here touches world state directly.

// Join registers a session and blocks until the loop has applied it at a
// tick boundary.
func (w *World) Join(ctx context.Context, req JoinRequest) (JoinResponse, error) {
	if req.Resp == nil {
		req.Resp = make(chan JoinResponse, 1)
	}
	select {
	case w.join <- req:
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	}
}

// Leave asks the loop to tear a session down. Non-blocking best effort; a
// full channel means the world is wedged anyway.
func (w *World) Leave(id string) {
	select {
	case w.leave <- id:
	default:
	}
}

// Enqueue hands a client action to the loop. Reports false when the inbox
// is full and the action was dropped.
func (w *World) Enqueue(env ActionEnvelope) bool {
	select {
	case w.inbox <- env:
		return true
	default:
		return false
	}
}

type pathRequest struct {
	req  path.Request
	resp chan pathResponse
}

type pathResponse struct {
	cells []grid.Coord
	err   error
}

// RequestPath resolves a path query on the loop goroutine and returns the
// result. The query never observes a half-applied mutation because the loop
// only mutates at tick boundaries.
func (w *World) RequestPath(ctx context.Context, req path.Request) ([]grid.Coord, error) {
	pr := pathRequest{req: req, resp: make(chan pathResponse, 1)}
	select {
	case w.pathReq <- pr:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-pr.resp:
		return r.cells, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *World) handlePathRequest(pr pathRequest) {
	cells, err := w.facade.TryGetPath(pr.req)
	pr.resp <- pathResponse{cells: cells, err: err}
}

// PathFor is the loop-goroutine form of RequestPath, for replays and tests
// that drive the world synchronously via StepOnce.
func (w *World) PathFor(req path.Request) ([]grid.Coord, error) {
	return w.facade.TryGetPath(req)
}

func marshalMsg(v any) ([]byte, error) {
	return json.Marshal(v)
}

// ResolvePathMsg translates a wire PATH request into a solver request,
// resolves it on the loop goroutine, and shapes the PATH_RESULT. Safe to
// call from transport goroutines.
func (w *World) ResolvePathMsg(ctx context.Context, msg *protocol.PathMsg) protocol.PathResultMsg {
	res := protocol.PathResultMsg{Type: protocol.TypePathResult, RequestID: msg.RequestID}

	req, ok := pathRequestFromMsg(msg)
	if !ok {
		res.Reason = protocol.ReasonBadRequest
		return res
	}

	cells, err := w.RequestPath(ctx, req)
	if err != nil {
		switch err {
		case path.ErrOutOfBounds:
			res.Reason = protocol.ReasonBadRequest
		case path.ErrUnreachable:
			res.Reason = protocol.ReasonUnreachable
		default:
			res.Reason = protocol.ReasonNoPath
		}
		return res
	}
	res.OK = true
	res.Cells = make([][2]int, len(cells))
	for i, c := range cells {
		res.Cells[i] = [2]int{c.X, c.Y}
	}
	return res
}

// pathRequestFromMsg validates and translates the wire form. Returns false
// on an unknown key kind or cell-type label.
func pathRequestFromMsg(msg *protocol.PathMsg) (path.Request, bool) {
	req := path.Request{
		Start: grid.Coord{X: msg.Start[0], Y: msg.Start[1]},
		Goal:  grid.Coord{X: msg.Goal[0], Y: msg.Goal[1]},
	}
	if k := msg.DestinationKey; k != nil {
		switch k.Kind {
		case "FIXED":
			req.Key = path.FixedKey(k.ID)
		case "AGENT":
			req.Key = path.AgentKey(k.ID)
		default:
			return path.Request{}, false
		}
	}
	for _, label := range msg.Traversable {
		t, ok := grid.TypeFromString(label)
		if !ok {
			return path.Request{}, false
		}
		req.Traversable = append(req.Traversable, t)
	}
	return req, true
}
