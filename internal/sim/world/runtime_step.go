package world

// step executes one tick: leaves, then joins, then actions in
// server-receive order. Every grid change inside the tick is batched per
// mutation op, repairs all live flow fields once, and fans one CELLS event
// out to the connected clients.
func (w *World) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	nowTick := w.tick.Load()
	w.cellsChangedThisTick = 0

	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := w.agents[id]; ok {
			w.handleLeave(id)
			recordedLeaves = append(recordedLeaves, id)
		} else if _, ok := w.clients[id]; ok {
			// Observer session: no agent to tear down.
			delete(w.clients, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}

	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := w.joinSession(req, nowTick)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{
			AgentID:  resp.Welcome.AgentID,
			Name:     req.Name,
			Observer: req.Observer,
		})
	}

	recorded := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		a := w.agents[env.AgentID]
		if a == nil {
			continue
		}
		recorded = append(recorded, RecordedAction{AgentID: env.AgentID, Mutate: env.Mutate, Move: env.Move})
		switch {
		case env.Mutate != nil:
			w.applyMutate(a, env.Mutate, nowTick)
		case env.Move != nil:
			w.applyMove(a, env.Move)
		}
	}

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		err := w.tickLogger.WriteTick(TickLogEntry{
			Tick:    nowTick,
			Joins:   recordedJoins,
			Leaves:  recordedLeaves,
			Actions: recorded,
			Digest:  digest,
		})
		if err != nil && w.log != nil {
			w.log.Printf("tick %d: journal write: %v", nowTick, err)
		}
	}
	if w.indexer != nil {
		w.indexer.IndexTick(nowTick, len(recorded), w.cellsChangedThisTick, digest)
	}

	w.tick.Add(1)
}
