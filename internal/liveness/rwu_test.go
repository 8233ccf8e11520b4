package liveness

import "testing"

func TestRWUTableStartsAbsent(t *testing.T) {
	tbl := newRWUTable(4)
	for idx := uint32(0); idx < 4; idx++ {
		if got := tbl.get(idx); got != (rwu{}) {
			t.Fatalf("idx %d: got %+v, want zero record", idx, got)
		}
		if tbl.getReader(idx) != NoLiveNode || tbl.getWriter(idx) != NoLiveNode {
			t.Fatalf("idx %d: fresh record has a reader or writer", idx)
		}
		if tbl.getUsed(idx) {
			t.Fatalf("idx %d: fresh record marked used", idx)
		}
	}
	if len(tbl.unpacked) != 0 {
		t.Fatalf("fresh table spilled %d records", len(tbl.unpacked))
	}
}

func TestRWUTableSentinelCollapse(t *testing.T) {
	tbl := newRWUTable(2)

	// Absent records stay packed regardless of the used bit.
	tbl.assign(0, rwu{used: true})
	tbl.assign(1, rwu{})
	if len(tbl.unpacked) != 0 {
		t.Fatalf("absent records spilled: %d entries", len(tbl.unpacked))
	}
	if !tbl.getUsed(0) || tbl.getUsed(1) {
		t.Fatal("used bit lost in packed form")
	}

	// A real reader forces a spill.
	tbl.assign(0, rwu{reader: LiveNode(3), used: true})
	if len(tbl.unpacked) != 1 {
		t.Fatalf("got %d spilled records, want 1", len(tbl.unpacked))
	}
	if got := tbl.get(0); got != (rwu{reader: LiveNode(3), used: true}) {
		t.Fatalf("got %+v after spill", got)
	}

	// Collapsing back to absent leaves the stale spill slot behind.
	tbl.assign(0, rwu{used: true})
	if tbl.getReader(0) != NoLiveNode {
		t.Fatal("reader survived collapse")
	}
	if !tbl.getUsed(0) {
		t.Fatal("used bit lost on collapse")
	}
	if len(tbl.unpacked) != 1 {
		t.Fatalf("collapse reclaimed spill storage: %d entries", len(tbl.unpacked))
	}
}

func TestRWUTableAssignInvInvKeepsUsed(t *testing.T) {
	tbl := newRWUTable(2)
	tbl.assign(0, rwu{reader: LiveNode(7), writer: LiveNode(2), used: true})
	tbl.assign(1, rwu{reader: LiveNode(7)})

	tbl.assignInvInv(0)
	tbl.assignInvInv(1)

	if got := tbl.get(0); got != (rwu{used: true}) {
		t.Fatalf("idx 0: got %+v, want used-only record", got)
	}
	if got := tbl.get(1); got != (rwu{}) {
		t.Fatalf("idx 1: got %+v, want zero record", got)
	}
}

func TestRWUTableCopyPacked(t *testing.T) {
	tbl := newRWUTable(4)
	tbl.assign(2, rwu{writer: LiveNode(5)})
	tbl.copyPacked(0, 2)
	if got := tbl.get(0); got != (rwu{writer: LiveNode(5)}) {
		t.Fatalf("got %+v after copy", got)
	}
	// Both indices reference the same spilled record.
	if len(tbl.unpacked) != 1 {
		t.Fatalf("copy duplicated the record: %d entries", len(tbl.unpacked))
	}
}

func TestRWUTableSpillGrowsPerAssign(t *testing.T) {
	tbl := newRWUTable(1)
	tbl.assign(0, rwu{reader: LiveNode(1)})
	tbl.assign(0, rwu{reader: LiveNode(2)})
	tbl.assign(0, rwu{reader: LiveNode(2), writer: LiveNode(4)})
	if len(tbl.unpacked) != 3 {
		t.Fatalf("got %d spilled records, want 3", len(tbl.unpacked))
	}
	if got := tbl.get(0); got != (rwu{reader: LiveNode(2), writer: LiveNode(4)}) {
		t.Fatalf("got %+v, want latest record", got)
	}
}
