package client

import (
	"math"
	"testing"

	"broadside/protocol"
)

type recordingBridge struct {
	calls    []string
	poses    map[string]Pose
	presents int
}

func newRecordingBridge() *recordingBridge {
	return &recordingBridge{poses: make(map[string]Pose)}
}

func (b *recordingBridge) Create(id string, kind protocol.EntityKind) {
	b.calls = append(b.calls, "create "+id+" "+string(kind))
}

func (b *recordingBridge) Update(id string, pose Pose) {
	b.poses[id] = pose
}

func (b *recordingBridge) Dispose(id string) {
	b.calls = append(b.calls, "dispose "+id)
	delete(b.poses, id)
}

func (b *recordingBridge) Present() { b.presents++ }

func TestRendererLifecycle(t *testing.T) {
	ip := NewInterpolator()
	br := newRecordingBridge()
	r := NewRenderer(ip, br)

	ball := protocol.Entity{ID: "cb-1", Type: protocol.KindCannonball, X: 5, Cannonball: &protocol.CannonballState{Owner: "s"}}
	r.OnSnapshot(snapshot(0, shipAt("s", 0, 0, 0), ball), at(0))
	r.Frame(at(10))

	if len(br.calls) != 2 || br.calls[0] != "create s ship" || br.calls[1] != "create cb-1 cannonball" {
		t.Fatalf("calls = %v", br.calls)
	}
	if br.poses["cb-1"].X != 5 || br.presents != 1 || r.Live() != 2 {
		t.Fatalf("poses = %+v presents = %d", br.poses, br.presents)
	}

	r.OnSnapshot(snapshot(100, shipAt("s", 100, 0, 0)), at(100))
	r.Frame(at(120))
	if len(br.calls) != 3 || br.calls[2] != "dispose cb-1" {
		t.Fatalf("calls = %v", br.calls)
	}
	if x := br.poses["s"].X; math.Abs(x-100.0*20/140) > 0.01 {
		t.Fatalf("ship x = %v", x)
	}

	// 旧快照不产生任何事件
	r.OnSnapshot(snapshot(50, shipAt("s", 0, 0, 0), ball), at(130))
	r.Frame(at(240))
	if len(br.calls) != 3 || br.poses["s"].X != 100 || br.presents != 3 {
		t.Fatalf("calls = %v pose = %+v", br.calls, br.poses["s"])
	}
}

func TestVisualGlyph(t *testing.T) {
	ship, _ := DefaultAssets().Lookup(protocol.KindShip)
	cases := []struct {
		pose Pose
		want rune
	}{
		{Pose{Angle: 0}, '→'},
		{Pose{Angle: math.Pi / 2}, '↓'},
		{Pose{Angle: -math.Pi / 2}, '↑'},
		{Pose{Angle: 3 * math.Pi}, '←'},
		{Pose{Angle: 0, Destroyed: true}, 'x'},
	}
	for _, c := range cases {
		if got := ship.Glyph(c.pose); got != c.want {
			t.Fatalf("angle %v destroyed %v: glyph %q, want %q", c.pose.Angle, c.pose.Destroyed, got, c.want)
		}
	}
	if _, ok := NewAssets().Lookup(protocol.KindShip); ok {
		t.Fatal("empty registry should not resolve")
	}
}
