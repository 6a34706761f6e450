package fusion

import (
	"testing"
	"time"

	"github.com/floorwatch/floorwatch/internal/timeutil"
)

func newTestFuser() (*Fuser, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))
	return NewFuser(DefaultConfig(), clock), clock
}

func TestFuseCreatesTrack(t *testing.T) {
	f, _ := newTestFuser()

	gid := f.Fuse("camA", "5", 5.0, 3.0)
	if gid != "global_1" {
		t.Errorf("first track id = %q, want global_1", gid)
	}
	if f.TrackCount() != 1 {
		t.Errorf("track count = %d, want 1", f.TrackCount())
	}

	pos, ok := f.TrackPosition(gid)
	if !ok {
		t.Fatal("track position not found")
	}
	if pos.X != 5.0 || pos.Y != 3.0 {
		t.Errorf("position = %+v, want (5, 3)", pos)
	}
}

func TestFuseIdempotent(t *testing.T) {
	f, _ := newTestFuser()

	gid1 := f.Fuse("camA", "5", 5.0, 3.0)
	gid2 := f.Fuse("camA", "5", 5.0, 3.0)
	gid3 := f.Fuse("camA", "5", 5.0, 3.0)

	if gid1 != gid2 || gid2 != gid3 {
		t.Errorf("ids differ: %q %q %q", gid1, gid2, gid3)
	}
	pos, _ := f.TrackPosition(gid1)
	if pos.X != 5.0 || pos.Y != 3.0 {
		t.Errorf("position changed: %+v", pos)
	}
	if f.TrackCount() != 1 {
		t.Errorf("track count = %d, want 1", f.TrackCount())
	}
}

func TestFuseSameKeyOverwritesPosition(t *testing.T) {
	f, _ := newTestFuser()

	gid1 := f.Fuse("camA", "5", 5.0, 3.0)
	gid2 := f.Fuse("camA", "5", 7.0, 4.0)

	if gid1 != gid2 {
		t.Errorf("same camera track key got different ids: %q vs %q", gid1, gid2)
	}
	pos, _ := f.TrackPosition(gid1)
	// Same key overwrites, no averaging.
	if pos.X != 7.0 || pos.Y != 4.0 {
		t.Errorf("position = %+v, want (7, 4)", pos)
	}
}

func TestFuseSpatialMergeAveragesPosition(t *testing.T) {
	f, _ := newTestFuser()

	gidA := f.Fuse("camA", "5", 5.0, 3.0)
	gidB := f.Fuse("camB", "3", 5.1, 3.1)

	if gidA != gidB {
		t.Fatalf("tracks within fusion distance not merged: %q vs %q", gidA, gidB)
	}
	pos, _ := f.TrackPosition(gidA)
	if pos.X != 5.05 || pos.Y != 3.05 {
		t.Errorf("merged position = %+v, want (5.05, 3.05)", pos)
	}
	if f.TrackCount() != 1 {
		t.Errorf("track count = %d, want 1", f.TrackCount())
	}
}

func TestFuseNoMergeAtThreshold(t *testing.T) {
	f, _ := newTestFuser()

	// Exactly 0.5 m apart: strict less-than means no merge.
	gidA := f.Fuse("camA", "1", 0.0, 0.0)
	gidB := f.Fuse("camB", "1", 0.5, 0.0)

	if gidA == gidB {
		t.Error("distance exactly at threshold must not fuse")
	}
	if f.TrackCount() != 2 {
		t.Errorf("track count = %d, want 2", f.TrackCount())
	}
}

func TestFuseJustInsideThresholdMerges(t *testing.T) {
	f, _ := newTestFuser()

	gidA := f.Fuse("camA", "1", 0.0, 0.0)
	gidB := f.Fuse("camB", "1", 0.499, 0.0)

	if gidA != gidB {
		t.Error("distance just inside threshold should fuse")
	}
}

func TestFuseFirstMatchWins(t *testing.T) {
	f, _ := newTestFuser()

	// Two separate tracks, both within range of the probe point, the second
	// one closer. First-match (insertion order) still wins.
	first := f.Fuse("camA", "1", 0.0, 0.0)
	second := f.Fuse("camB", "1", 0.6, 0.0)
	if first == second {
		t.Fatal("setup tracks unexpectedly merged")
	}

	probe := f.Fuse("camC", "1", 0.35, 0.0) // 0.35 from first, 0.25 from second
	if probe != first {
		t.Errorf("probe fused to %q, want first-inserted %q", probe, first)
	}
}

func TestEviction(t *testing.T) {
	f, clock := newTestFuser()

	stale := f.Fuse("camA", "1", 1.0, 1.0)
	clock.Advance(4 * time.Second) // past the 3 s timeout

	// Any subsequent fuse call runs eviction first.
	fresh := f.Fuse("camB", "9", 50.0, 50.0)

	if _, ok := f.TrackPosition(stale); ok {
		t.Error("stale track still resolvable after timeout")
	}
	active := f.ActiveTracks()
	if len(active) != 1 || active[0].ID != fresh {
		t.Errorf("active tracks = %+v, want only %q", active, fresh)
	}
}

func TestEvictionUnbindsCameraKey(t *testing.T) {
	f, clock := newTestFuser()

	old := f.Fuse("camA", "1", 1.0, 1.0)
	clock.Advance(4 * time.Second)

	// Same camera key reappears far away after eviction: a new identity.
	renewed := f.Fuse("camA", "1", 40.0, 40.0)
	if renewed == old {
		t.Error("evicted track id was reused for a stale camera key")
	}
}

func TestRefreshKeepsTrackAlive(t *testing.T) {
	f, clock := newTestFuser()

	gid := f.Fuse("camA", "1", 1.0, 1.0)
	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Second) // under the timeout each step
		if got := f.Fuse("camA", "1", 1.0, 1.0); got != gid {
			t.Fatalf("step %d: id = %q, want %q", i, got, gid)
		}
	}
}

func TestResetRestartsIDs(t *testing.T) {
	f, _ := newTestFuser()

	f.Fuse("camA", "1", 1.0, 1.0)
	f.Fuse("camB", "2", 10.0, 10.0)
	f.Reset()

	if f.TrackCount() != 0 {
		t.Errorf("track count after reset = %d, want 0", f.TrackCount())
	}
	if gid := f.Fuse("camA", "1", 1.0, 1.0); gid != "global_1" {
		t.Errorf("first id after reset = %q, want global_1", gid)
	}
}

func TestActiveTracksInsertionOrder(t *testing.T) {
	f, _ := newTestFuser()

	f.Fuse("camA", "1", 0.0, 0.0)
	f.Fuse("camA", "2", 10.0, 0.0)
	f.Fuse("camA", "3", 20.0, 0.0)

	active := f.ActiveTracks()
	if len(active) != 3 {
		t.Fatalf("active = %d tracks, want 3", len(active))
	}
	for i, want := range []string{"global_1", "global_2", "global_3"} {
		if active[i].ID != want {
			t.Errorf("active[%d].ID = %q, want %q", i, active[i].ID, want)
		}
	}
}
