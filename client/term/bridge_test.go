package term

import (
	"math"
	"testing"

	"github.com/gdamore/tcell/v2"

	"broadside/client"
	"broadside/protocol"
)

var _ client.Bridge = (*Bridge)(nil)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	screen.SetSize(80, 21)
	t.Cleanup(screen.Fini)
	return screen
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestPresentDrawsScaledSprites(t *testing.T) {
	screen := newScreen(t)
	b := New(screen, client.DefaultAssets(), 800, 200)

	b.Create("alice", protocol.KindShip)
	b.Create("cb-1", protocol.KindCannonball)
	b.Update("alice", client.Pose{X: 400, Y: 100, Angle: math.Pi / 2})
	b.Update("cb-1", client.Pose{X: 10, Y: 10})
	b.SetStatus("hits 0")
	b.Present()

	if got := runeAt(screen, 40, 10); got != '↓' {
		t.Fatalf("ship glyph = %q", got)
	}
	if got := runeAt(screen, 1, 1); got != '•' {
		t.Fatalf("ball glyph = %q", got)
	}
	if got := runeAt(screen, 0, 20); got != 'h' {
		t.Fatalf("status line = %q", got)
	}

	b.Dispose("cb-1")
	b.Present()
	if got := runeAt(screen, 1, 1); got == '•' {
		t.Fatal("disposed sprite still drawn")
	}
}

func TestCellClipsOutsideWorld(t *testing.T) {
	screen := newScreen(t)
	b := New(screen, client.DefaultAssets(), 800, 200)

	for _, p := range [][2]float64{{-1, 10}, {10, -1}, {800, 10}, {10, 200}} {
		if _, _, ok := b.Cell(p[0], p[1]); ok {
			t.Fatalf("%v should be off screen", p)
		}
	}
	if col, row, ok := b.Cell(799, 199); !ok || col != 79 || row != 19 {
		t.Fatalf("corner = (%d,%d,%v)", col, row, ok)
	}
}

func TestSpriteHiddenUntilFirstUpdate(t *testing.T) {
	screen := newScreen(t)
	b := New(screen, client.DefaultAssets(), 800, 200)
	b.Create("alice", protocol.KindShip)
	b.Present()
	if got := runeAt(screen, 0, 0); got == '→' {
		t.Fatal("sprite drawn before its first pose")
	}
}
