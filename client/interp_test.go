package client

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tanema/gween/ease"

	"broadside/protocol"
)

// 服务端时间基准（毫秒）；测试中本地时钟与服务端同步
const base = 1_700_000_000_000

func at(ms int64) time.Time {
	return time.UnixMilli(base + ms)
}

func shipAt(id string, x, y, angle float64) protocol.Entity {
	return protocol.Entity{ID: id, Type: protocol.KindShip, X: x, Y: y, Angle: angle, Ship: &protocol.ShipState{}}
}

func snapshot(ms int64, entities ...protocol.Entity) protocol.Snapshot {
	return protocol.Snapshot{Type: protocol.MsgSnapshot, UpdatedAt: uint64(base + ms), Entities: entities}
}

func TestInterpolationScenario(t *testing.T) {
	ip := NewInterpolator(WithBufferDelay(140 * time.Millisecond))

	diff, ok := ip.Apply(snapshot(0, shipAt("s", 0, 0, 0)), at(0))
	if !ok || len(diff.Added) != 1 {
		t.Fatalf("first snapshot: ok=%v diff=%+v", ok, diff)
	}
	// 新实体立即显示在首个样本处
	if p, _ := ip.Pose("s", at(0)); p.X != 0 || p.Y != 0 {
		t.Fatalf("new entity pose = %+v", p)
	}

	ip.Apply(snapshot(100, shipAt("s", 100, 0, 0)), at(100))
	p, ok := ip.Pose("s", at(120))
	if !ok {
		t.Fatal("entity missing")
	}
	// anchor 100，到达 240：(120-100)/(240-100)
	want := 100.0 * 20 / 140
	if math.Abs(p.X-want) > 0.01 || p.X <= 0 || p.X >= 100 {
		t.Fatalf("x = %v, want %.2f", p.X, want)
	}
}

func TestHoldsAtArrival(t *testing.T) {
	ip := NewInterpolator()
	ip.Apply(snapshot(0, shipAt("s", 0, 0, 0)), at(0))
	ip.Apply(snapshot(100, shipAt("s", 100, 50, 1)), at(100))

	arrival := 100 + DefaultBufferDelay.Milliseconds()
	for _, ms := range []int64{arrival, arrival + 1, arrival + 5000} {
		p, _ := ip.Pose("s", at(ms))
		if p.X != 100 || p.Y != 50 || p.Angle != 1 {
			t.Fatalf("at %dms pose = %+v, want exactly the target", ms, p)
		}
	}
	// 锚点之前保持在 from
	if p, _ := ip.Pose("s", at(50)); p.X != 0 {
		t.Fatalf("before anchor x = %v", p.X)
	}
}

func TestStraightLineProgressIsMonotone(t *testing.T) {
	ip := NewInterpolator()
	prev := -1.0
	for tick := int64(0); tick <= 10; tick++ {
		ms := tick * 100
		ip.Apply(snapshot(ms, shipAt("s", float64(tick)*10, 0, 0)), at(ms))
		for f := ms; f < ms+100; f += 16 {
			p, _ := ip.Pose("s", at(f))
			if p.X < prev {
				t.Fatalf("x went backwards at %dms: %v < %v", f, p.X, prev)
			}
			if p.X > float64(tick)*10 {
				t.Fatalf("x overshot latest sample at %dms: %v", f, p.X)
			}
			prev = p.X
		}
	}
}

func TestAngleTakesShortestArc(t *testing.T) {
	ip := NewInterpolator()
	from, to := math.Pi-0.1, -math.Pi+0.1
	ip.Apply(snapshot(0, shipAt("s", 0, 0, from)), at(0))
	ip.Apply(snapshot(100, shipAt("s", 0, 0, to)), at(100))

	p, _ := ip.Pose("s", at(170)) // 一半
	if math.Abs(math.Remainder(p.Angle-math.Pi, 2*math.Pi)) > 1e-6 {
		t.Fatalf("midpoint angle = %v, want pi", p.Angle)
	}
}

func TestRemovalAndStaleSnapshots(t *testing.T) {
	ip := NewInterpolator()
	ball := protocol.Entity{ID: "cb-1", Type: protocol.KindCannonball, Cannonball: &protocol.CannonballState{Owner: "s"}}
	ip.Apply(snapshot(0, shipAt("s", 0, 0, 0), ball), at(0))

	diff, ok := ip.Apply(snapshot(100, shipAt("s", 10, 0, 0)), at(100))
	if !ok || len(diff.Removed) != 1 || diff.Removed[0] != "cb-1" || len(diff.Added) != 0 {
		t.Fatalf("diff = %+v", diff)
	}
	if _, ok := ip.Pose("cb-1", at(100)); ok {
		t.Fatal("removed entity still rendered")
	}

	// 乱序到达的旧快照整帧忽略
	if _, ok := ip.Apply(snapshot(50, shipAt("s", 999, 0, 0), ball), at(110)); ok {
		t.Fatal("stale snapshot applied")
	}
	if ip.Len() != 1 {
		t.Fatalf("len = %d", ip.Len())
	}
	if p, _ := ip.Pose("s", at(1000)); p.X != 10 {
		t.Fatalf("stale data leaked: x = %v", p.X)
	}
}

func TestClockOffsetTranslation(t *testing.T) {
	// 本地时钟比服务端快 5 秒，固定网络延迟 20ms
	const skew = 5000
	local := func(ms int64) time.Time { return at(ms + skew) }

	ip := NewInterpolator()
	ip.Apply(snapshot(0, shipAt("s", 0, 0, 0)), local(20))
	ip.Apply(snapshot(100, shipAt("s", 100, 0, 0)), local(120))

	// 到达时间 = 100 + 偏移(skew+20) + 140
	p, _ := ip.Pose("s", local(120+140))
	if p.X != 100 {
		t.Fatalf("x = %v at translated arrival", p.X)
	}
	p, _ = ip.Pose("s", local(190))
	if p.X <= 0 || p.X >= 100 {
		t.Fatalf("x = %v, want strictly between samples", p.X)
	}
}

func TestEasingIsPluggable(t *testing.T) {
	linear := NewInterpolator()
	eased := NewInterpolator(WithEasing(ease.InQuad))
	for _, ip := range []*Interpolator{linear, eased} {
		ip.Apply(snapshot(0, shipAt("s", 0, 0, 0)), at(0))
		ip.Apply(snapshot(100, shipAt("s", 100, 0, 0)), at(100))
	}
	l, _ := linear.Pose("s", at(170))
	e, _ := eased.Pose("s", at(170))
	if !(e.X < l.X) {
		t.Fatalf("ease-in should lag linear at midpoint: %v vs %v", e.X, l.X)
	}
	if end, _ := eased.Pose("s", at(240)); end.X != 100 {
		t.Fatalf("eased end = %v", end.X)
	}
}

func TestConcurrentApplyAndRead(t *testing.T) {
	ip := NewInterpolator()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, id := range ip.IDs() {
				// x 与 y 总是同一样本对的插值，两者相等
				if p, ok := ip.Pose(id, time.Now()); ok && math.Abs(p.X-p.Y) > 1e-6 {
					t.Errorf("torn pose %+v", p)
					return
				}
			}
		}
	}()

	for i := int64(1); i <= 500; i++ {
		v := float64(i)
		ip.Apply(snapshot(i, shipAt("a", v, v, 0), shipAt("b", -v, -v, 0)), time.Now())
	}
	close(done)
	wg.Wait()
}
