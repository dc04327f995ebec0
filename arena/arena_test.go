package arena

import (
	"errors"
	"math"
	"os"
	"testing"
)

func TestLoadHarbour(t *testing.T) {
	a, err := Load(os.DirFS("testdata"), "harbour.tmx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Width != 1600 || a.Height != 1280 {
		t.Fatalf("size = %vx%v, want 1600x1280", a.Width, a.Height)
	}
	if len(a.Spawns) != 3 {
		t.Fatalf("spawns = %d, want 3", len(a.Spawns))
	}
	if a.Spawns[1].X != 1400 || math.Abs(a.Spawns[1].Angle-math.Pi) > 1e-9 {
		t.Fatalf("second spawn = %+v", a.Spawns[1])
	}
}

func TestLoadWithoutSpawns(t *testing.T) {
	if _, err := Load(os.DirFS("testdata"), "empty.tmx"); !errors.Is(err, ErrNoSpawns) {
		t.Fatalf("expected ErrNoSpawns, got %v", err)
	}
	if _, err := Load(os.DirFS("testdata"), "missing.tmx"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNextSpawnRoundRobin(t *testing.T) {
	a := Default(1000, 800)
	first := a.NextSpawn()
	for i := 1; i < len(a.Spawns); i++ {
		a.NextSpawn()
	}
	if again := a.NextSpawn(); again != first {
		t.Fatalf("round robin broken: %+v vs %+v", again, first)
	}
	for _, s := range a.Spawns {
		if !a.Contains(s.X, s.Y) {
			t.Fatalf("spawn %+v outside arena", s)
		}
	}
	if a.Contains(-1, 10) || a.Contains(10, 801) {
		t.Fatal("points outside the arena reported inside")
	}
}

func TestCloneHasIndependentRotation(t *testing.T) {
	a := Default(1000, 1000)
	first := a.NextSpawn()
	c := a.Clone()
	if got := c.NextSpawn(); got != first {
		t.Fatalf("clone should restart rotation, got %+v want %+v", got, first)
	}
	c.Spawns[0].X = -1
	if a.Spawns[0].X == -1 {
		t.Fatal("clone shares spawn slice")
	}
}
