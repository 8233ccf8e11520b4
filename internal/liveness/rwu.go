package liveness

import (
	"fmt"
	"math"

	"fortio.org/safecast"
)

// Access bits passed to liveness.acc.
const (
	accRead  uint32 = 1 // reads the value
	accWrite uint32 = 2 // overwrites the whole variable
	accUse   uint32 = 4 // genuine use, as opposed to the target of `x += 1`
)

// rwu is one unpacked (LiveNode, Variable) record: the nearest reader and
// writer on any path forward from the node, and whether the variable is
// genuinely used on some such path.
type rwu struct {
	reader LiveNode
	writer LiveNode
	used   bool
}

// The packed table stores one word per (LiveNode, Variable) pair. Almost all
// records never acquire a reader or writer, so two sentinel words encode the
// "absent" records directly and only the rest spill into the unpacked slice.
const (
	invInvFalse uint32 = math.MaxUint32     // no reader, no writer, not used
	invInvTrue  uint32 = math.MaxUint32 - 1 // no reader, no writer, used
)

// rwuTable holds the packed words plus the append-only spill of unpacked
// records. Spilled entries are never reclaimed: a record's reader and writer
// cannot both revert to absent under the monotonic merge, so stale spill
// slots are simply never referenced again.
type rwuTable struct {
	packed   []uint32
	unpacked []rwu
}

func newRWUTable(size uint32) *rwuTable {
	packed := make([]uint32, size)
	for i := range packed {
		packed[i] = invInvFalse
	}
	return &rwuTable{packed: packed}
}

func (t *rwuTable) get(idx uint32) rwu {
	switch p := t.packed[idx]; p {
	case invInvFalse:
		return rwu{}
	case invInvTrue:
		return rwu{used: true}
	default:
		return t.unpacked[p]
	}
}

func (t *rwuTable) getReader(idx uint32) LiveNode {
	switch p := t.packed[idx]; p {
	case invInvFalse, invInvTrue:
		return NoLiveNode
	default:
		return t.unpacked[p].reader
	}
}

func (t *rwuTable) getWriter(idx uint32) LiveNode {
	switch p := t.packed[idx]; p {
	case invInvFalse, invInvTrue:
		return NoLiveNode
	default:
		return t.unpacked[p].writer
	}
}

func (t *rwuTable) getUsed(idx uint32) bool {
	switch p := t.packed[idx]; p {
	case invInvFalse:
		return false
	case invInvTrue:
		return true
	default:
		return t.unpacked[p].used
	}
}

func (t *rwuTable) copyPacked(dst, src uint32) {
	t.packed[dst] = t.packed[src]
}

// assign stores a record, collapsing it back to a sentinel word when both
// reader and writer are absent.
func (t *rwuTable) assign(idx uint32, v rwu) {
	if v.reader == NoLiveNode && v.writer == NoLiveNode {
		if v.used {
			t.packed[idx] = invInvTrue
		} else {
			t.packed[idx] = invInvFalse
		}
		return
	}
	slot, err := safecast.Conv[uint32](len(t.unpacked))
	if err != nil {
		panic(fmt.Errorf("rwu table spill overflow: %w", err))
	}
	if slot >= invInvTrue {
		panic(fmt.Errorf("rwu table spill overflow at %d entries", slot))
	}
	t.packed[idx] = slot
	t.unpacked = append(t.unpacked, v)
}

// assignInvInv kills the reader and writer but keeps the used bit; this is
// what happens at a variable's definition node.
func (t *rwuTable) assignInvInv(idx uint32) {
	if t.getUsed(idx) {
		t.packed[idx] = invInvTrue
	} else {
		t.packed[idx] = invInvFalse
	}
}
