package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeCellsRLE packs a row-major cell scan into base64(varint triples).
// Each run is (packed_cell, hp, run_len) where packed_cell combines the
// cell type and weight override. Fresh grids compress extremely well: long
// stretches of identical diggable terrain collapse to a handful of runs.
func EncodeCellsRLE(types []uint8, hps []int, weights []uint8) (string, error) {
	if len(types) != len(hps) || len(types) != len(weights) {
		return "", fmt.Errorf("rle: mismatched lengths %d/%d/%d", len(types), len(hps), len(weights))
	}
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(types) {
		packed := uint64(types[i]) | uint64(weights[i])<<8
		hp := hps[i]
		run := 1
		for j := i + 1; j < len(types); j++ {
			if types[j] != types[i] || weights[j] != weights[i] || hps[j] != hp {
				break
			}
			run++
		}

		n := binary.PutUvarint(tmp[:], packed)
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(hp))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeCellsRLE reverses EncodeCellsRLE. expect is the required cell count;
// a mismatch means a corrupt or truncated payload.
func DecodeCellsRLE(b64 string, expect int) (types []uint8, hps []int, weights []uint8, err error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, nil, nil, err
	}
	types = make([]uint8, 0, expect)
	hps = make([]int, 0, expect)
	weights = make([]uint8, 0, expect)
	for i := 0; i < len(raw); {
		packed, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, nil, nil, fmt.Errorf("rle: bad varint at %d", i)
		}
		i += n
		hp, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, nil, nil, fmt.Errorf("rle: bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, nil, nil, fmt.Errorf("rle: bad varint at %d", i)
		}
		i += n
		if packed > 0xFFFF {
			return nil, nil, nil, fmt.Errorf("rle: packed cell too large: %d", packed)
		}
		if len(types)+int(run) > expect {
			return nil, nil, nil, fmt.Errorf("rle: payload overruns %d cells", expect)
		}
		for k := 0; k < int(run); k++ {
			types = append(types, uint8(packed&0xFF))
			hps = append(hps, int(hp))
			weights = append(weights, uint8(packed>>8))
		}
	}
	if len(types) != expect {
		return nil, nil, nil, fmt.Errorf("rle: got %d cells, want %d", len(types), expect)
	}
	return types, hps, weights, nil
}
