package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
)

// stateDigest hashes everything replay-relevant: grid dimensions, every
// cell's type/durability/override, and the agent roster with positions.
// Two worlds fed identical inputs must produce identical digests.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteU64(h, &tmp, uint64(w.grid.Width()))
	digestWriteU64(h, &tmp, uint64(w.grid.Height()))

	for y := 0; y < w.grid.Height(); y++ {
		for x := 0; x < w.grid.Width(); x++ {
			c := w.grid.CellAt(x, y)
			h.Write([]byte{byte(c.Type), c.WeightOverride})
			digestWriteU64(h, &tmp, uint64(c.HP))
		}
	}

	ids := make([]string, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	digestWriteU64(h, &tmp, uint64(len(ids)))
	for _, id := range ids {
		a := w.agents[id]
		h.Write([]byte(id))
		digestWriteU64(h, &tmp, uint64(int64(a.Pos.X)))
		digestWriteU64(h, &tmp, uint64(int64(a.Pos.Y)))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}
