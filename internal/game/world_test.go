package game

import "testing"

func TestWorldSpawnDespawn(t *testing.T) {
	w := NewWorld()
	e := w.Spawn(func(c *components) {
		c.position = &Vec2{X: 1, Y: 2}
	})
	if !w.Contains(e) {
		t.Fatal("expected entity to be alive after spawn")
	}
	if got := w.Get(e).position; got.X != 1 || got.Y != 2 {
		t.Errorf("position = %+v, want {1 2}", got)
	}

	w.Despawn(e)
	if w.Contains(e) {
		t.Fatal("expected entity to be dead after despawn")
	}
	if w.Get(e) != nil {
		t.Error("Get on a despawned entity should return nil")
	}
}

func TestWorldReusesFreedIndex(t *testing.T) {
	w := NewWorld()
	a := w.Spawn()
	w.Despawn(a)
	b := w.Spawn()
	if a != b {
		t.Errorf("expected index reuse: a=%d b=%d", a, b)
	}
	if !w.Contains(b) {
		t.Fatal("reused entity should be alive")
	}
}

func TestWorldEntitiesStableOrder(t *testing.T) {
	w := NewWorld()
	var ids []Entity
	for i := 0; i < 5; i++ {
		ids = append(ids, w.Spawn())
	}
	w.Despawn(ids[2])
	got := w.Entities()
	if len(got) != 4 {
		t.Fatalf("expected 4 live entities, got %d", len(got))
	}
	for i := 0; i < len(got)-1; i++ {
		if got[i] >= got[i+1] {
			t.Errorf("Entities() not ascending at %d: %v", i, got)
		}
	}
}
