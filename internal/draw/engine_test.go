package draw

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/bhupatram/tippan/internal/feature"
)

// ~0.00001 degrees of latitude is about 1.1 m, inside the snap tolerance.
var nearFirst = orb.Point{0, 0.00001}

func drawSquare(t *testing.T, e *Engine) string {
	t.Helper()
	e.StartPolygon()
	for _, p := range []orb.Point{{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0.001}} {
		if err := e.AddVertex(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	id := e.SelectedID()
	if id == "" {
		t.Fatal("no feature selected after finish")
	}
	return id
}

func TestLineDrawAndFinish(t *testing.T) {
	e := NewEngine()
	var changes []Change
	e.Subscribe(func(c Change) { changes = append(changes, c) })

	e.StartLine()
	if e.Mode() != ModeDrawLine {
		t.Fatalf("mode = %s, want draw_line", e.Mode())
	}
	if err := e.AddVertex(orb.Point{0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddVertex(orb.Point{0, 0.01}); err != nil {
		t.Fatal(err)
	}
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}

	if e.Mode() != ModeSelected {
		t.Errorf("mode after finish = %s, want selected", e.Mode())
	}
	if len(changes) != 1 || changes[0].Action != ActionCreate {
		t.Fatalf("changes = %+v, want one create", changes)
	}
	f, ok := e.Feature(changes[0].ID)
	if !ok || f.Type != feature.Line || len(f.Coordinates) != 2 {
		t.Fatalf("created feature = %+v", f)
	}
}

func TestSingleVertexLineDiscarded(t *testing.T) {
	e := NewEngine()
	var changes []Change
	e.Subscribe(func(c Change) { changes = append(changes, c) })

	e.StartLine()
	if err := e.AddVertex(orb.Point{1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	if e.Len() != 0 || e.Mode() != ModeIdle || len(changes) != 0 {
		t.Fatalf("accidental click persisted: len=%d mode=%s changes=%v", e.Len(), e.Mode(), changes)
	}
}

func TestPolygonSnapClose(t *testing.T) {
	e := NewEngine()

	e.StartPolygon()
	for _, p := range []orb.Point{{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0.001}} {
		if err := e.AddVertex(p); err != nil {
			t.Fatal(err)
		}
	}
	// Click near the first vertex: ring snaps closed, mode leaves drawing.
	if err := e.AddVertex(nearFirst); err != nil {
		t.Fatal(err)
	}

	if e.Mode() != ModeSelected {
		t.Fatalf("mode = %s, want selected after snap close", e.Mode())
	}
	f, ok := e.Feature(e.SelectedID())
	if !ok {
		t.Fatal("no selected feature")
	}
	if len(f.Coordinates) != 5 {
		t.Fatalf("ring has %d points, want 5 (4 vertices + closing)", len(f.Coordinates))
	}
	if f.Coordinates[0] != f.Coordinates[4] {
		t.Fatalf("ring not closed: %v ... %v", f.Coordinates[0], f.Coordinates[4])
	}
}

func TestPolygonFarClickDoesNotSnap(t *testing.T) {
	e := NewEngine()
	e.StartPolygon()
	for _, p := range []orb.Point{{0, 0}, {0.001, 0}, {0.001, 0.001}} {
		if err := e.AddVertex(p); err != nil {
			t.Fatal(err)
		}
	}
	// ~11 m from the first vertex: should just add a vertex.
	if err := e.AddVertex(orb.Point{0, 0.0001}); err != nil {
		t.Fatal(err)
	}
	if e.Mode() != ModeDrawPolygon {
		t.Fatalf("mode = %s, want still drawing", e.Mode())
	}
	if p := e.Pending(); p == nil || len(p.Coordinates) != 4 {
		t.Fatalf("pending = %+v, want 4 vertices", p)
	}
}

func TestCancelDiscardsPending(t *testing.T) {
	e := NewEngine()
	var changes []Change
	e.Subscribe(func(c Change) { changes = append(changes, c) })

	e.StartPolygon()
	if err := e.AddVertex(orb.Point{0, 0}); err != nil {
		t.Fatal(err)
	}
	e.Cancel()

	if e.Mode() != ModeIdle || e.Pending() != nil || e.Len() != 0 {
		t.Fatal("cancel did not discard in-progress feature")
	}
	if len(changes) != 0 {
		t.Fatalf("cancel published changes: %v", changes)
	}
}

func TestSwitchingToolsDiscardsPending(t *testing.T) {
	e := NewEngine()
	e.StartLine()
	if err := e.AddVertex(orb.Point{0, 0}); err != nil {
		t.Fatal(err)
	}
	e.StartPolygon()
	if p := e.Pending(); p == nil || p.Type != feature.Polygon || len(p.Coordinates) != 0 {
		t.Fatalf("pending after tool switch = %+v", p)
	}
	if e.Len() != 0 {
		t.Fatal("unfinalized line was persisted")
	}
}

func TestLockedFeatureImmutable(t *testing.T) {
	e := NewEngine()
	locked := feature.New(feature.Polygon)
	locked.Coordinates = []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	locked.Locked = true
	e.InstallSnapshot([]*feature.Feature{locked})

	before, _ := e.Feature(locked.ID)

	if err := e.Select(locked.ID); !errors.Is(err, ErrLocked) {
		t.Fatalf("Select on locked = %v, want ErrLocked", err)
	}
	if e.Mode() != ModeIdle || e.SelectedID() != "" {
		t.Fatal("locked selection did not reset to neutral")
	}

	if err := e.MoveVertex(locked.ID, 1, orb.Point{5, 5}); !errors.Is(err, ErrLocked) {
		t.Fatalf("MoveVertex on locked = %v, want ErrLocked", err)
	}

	after, _ := e.Feature(locked.ID)
	for i := range before.Coordinates {
		if before.Coordinates[i] != after.Coordinates[i] {
			t.Fatalf("locked coordinates changed at %d: %v -> %v", i, before.Coordinates[i], after.Coordinates[i])
		}
	}
	if e.Mode() != ModeIdle || e.SelectedID() != "" {
		t.Fatal("engine not neutral after locked edit attempt")
	}
}

func TestMoveVertexKeepsRingClosed(t *testing.T) {
	e := NewEngine()
	id := drawSquare(t, e)

	if err := e.MoveVertex(id, 0, orb.Point{0.0005, 0.0005}); err != nil {
		t.Fatal(err)
	}
	f, _ := e.Feature(id)
	if f.Coordinates[0] != f.Coordinates[len(f.Coordinates)-1] {
		t.Fatal("ring opened by moving the shared end vertex")
	}
}

func TestDeleteVertexInvariant(t *testing.T) {
	e := NewEngine()
	e.StartLine()
	for _, p := range []orb.Point{{0, 0}, {1, 0}, {2, 0}} {
		if err := e.AddVertex(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Finish(); err != nil {
		t.Fatal(err)
	}
	id := e.SelectedID()

	if err := e.DeleteVertex(id, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteVertex(id, 0); err == nil {
		t.Fatal("vertex delete below minimum accepted")
	}
}

func TestDeleteClearsSelection(t *testing.T) {
	e := NewEngine()
	var changes []Change
	e.Subscribe(func(c Change) { changes = append(changes, c) })
	id := drawSquare(t, e)

	if err := e.Delete(id); err != nil {
		t.Fatal(err)
	}
	if e.Len() != 0 || e.SelectedID() != "" || e.Mode() != ModeIdle {
		t.Fatal("delete did not clear state")
	}
	last := changes[len(changes)-1]
	if last.Action != ActionDelete || last.ID != id {
		t.Fatalf("last change = %+v, want delete of %s", last, id)
	}
}

func TestChangesDispatchedInOrder(t *testing.T) {
	e := NewEngine()
	var actions []Action
	e.Subscribe(func(c Change) { actions = append(actions, c.Action) })

	id := drawSquare(t, e)
	if err := e.MoveVertex(id, 1, orb.Point{0.002, 0}); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(id); err != nil {
		t.Fatal(err)
	}

	want := []Action{ActionCreate, ActionUpdate, ActionDelete}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("actions = %v, want %v", actions, want)
		}
	}
}

func TestInstallSnapshotReplacesWholesale(t *testing.T) {
	e := NewEngine()
	drawSquare(t, e)

	replacement := feature.New(feature.Line)
	replacement.Coordinates = []orb.Point{{0, 0}, {1, 1}}
	e.InstallSnapshot([]*feature.Feature{replacement})

	if e.Len() != 1 {
		t.Fatalf("len = %d, want 1", e.Len())
	}
	if _, ok := e.Feature(replacement.ID); !ok {
		t.Fatal("replacement feature missing")
	}
}
