package sim

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"
)

const tick = 100 * time.Millisecond

func newTestShip() (*Ship, *Tuning) {
	tn := DefaultTuning()
	return NewShip("alice", 0, 0, 0, &tn), &tn
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestForwardAccelerationScenario(t *testing.T) {
	for _, n := range []int{1, 10, 40, 60} {
		s, tn := newTestShip()
		s.SetHeading(Forward, true)

		wantX := 0.0
		for i := 1; i <= n; i++ {
			s.Advance(tick)
			wantX += math.Min(float64(i)*tn.Acceleration, tn.MaxVelocity) * tick.Seconds()
		}

		wantV := math.Min(float64(n)*tn.Acceleration, tn.MaxVelocity)
		if !near(s.Velocity(), wantV) {
			t.Fatalf("n=%d velocity = %v, want %v", n, s.Velocity(), wantV)
		}
		x, y, angle := s.Pose()
		if !near(x, wantX) || y != 0 || angle != 0 {
			t.Fatalf("n=%d pose = (%v,%v,%v), want (%v,0,0)", n, x, y, angle, wantX)
		}
	}
}

func TestTurnAppliesBeforeThrust(t *testing.T) {
	s, tn := newTestShip()
	s.SetHeading(Right, true)
	s.Advance(time.Second)

	x, y, angle := s.Pose()
	if !near(angle, tn.AngularSpeed) {
		t.Fatalf("angle = %v, want %v", angle, tn.AngularSpeed)
	}
	if !near(x, math.Cos(angle)*tn.Acceleration) || !near(y, math.Sin(angle)*tn.Acceleration) {
		t.Fatalf("thrust not along rotated heading: (%v,%v)", x, y)
	}

	s.SetHeading(Left, false)
	s.Advance(time.Second)
	_, _, angle = s.Pose()
	if !near(angle, 0) {
		t.Fatalf("left turn should decrease angle back to 0, got %v", angle)
	}
}

func TestHeadingIsLevelTriggered(t *testing.T) {
	s, tn := newTestShip()
	s.SetHeading(Left, false)
	for i := 0; i < 5; i++ {
		s.Advance(tick)
	}
	_, _, angle := s.Pose()
	if !near(angle, -5*tn.AngularSpeed*tick.Seconds()) {
		t.Fatalf("ship should keep turning every tick, angle = %v", angle)
	}
}

func TestVelocityStaysInBounds(t *testing.T) {
	s, tn := newTestShip()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		if rng.Intn(5) == 0 {
			s.SetHeading(Orientation(rng.Intn(3)), rng.Intn(2) == 0)
		}
		s.Advance(time.Duration(rng.Intn(250)) * time.Millisecond)
		if v := s.Velocity(); v < 0 || v > tn.MaxVelocity {
			t.Fatalf("step %d: velocity %v out of [0,%v]", i, v, tn.MaxVelocity)
		}
	}
}

func TestHitCountMonotoneAndSaturates(t *testing.T) {
	s, tn := newTestShip()
	prev := s.HitCount()
	for i := 0; i < 10; i++ {
		s.RegisterHit()
		if s.HitCount() < prev || s.HitCount() > tn.MaxHits {
			t.Fatalf("hit count %d after %d hits (prev %d)", s.HitCount(), i+1, prev)
		}
		prev = s.HitCount()
	}
	if !s.Destroyed() || s.HitCount() != tn.MaxHits {
		t.Fatalf("expected saturated destroyed ship, got %d", s.HitCount())
	}
}

func TestDestroyedShipIsInert(t *testing.T) {
	s, _ := newTestShip()
	s.SetHeading(Right, true)
	s.Advance(tick)
	s.Kill()

	x0, y0, a0 := s.Pose()
	v0 := s.Velocity()
	o0, acc0 := s.Orientation()
	for i := 0; i < 3; i++ {
		if s.SetHeading(Left, false) {
			t.Fatal("SetHeading accepted on destroyed ship")
		}
		if s.Fire(int64(100000 * (i + 1))) {
			t.Fatal("Fire accepted on destroyed ship")
		}
		s.Advance(time.Second)
		s.RegisterHit()
	}
	x, y, a := s.Pose()
	o, acc := s.Orientation()
	if x != x0 || y != y0 || a != a0 || s.Velocity() != v0 || o != o0 || acc != acc0 {
		t.Fatal("destroyed ship state changed")
	}
	if !s.Snapshot().Ship.Destroyed {
		t.Fatal("snapshot should report destroyed")
	}
}

func TestFireCooldown(t *testing.T) {
	s, tn := newTestShip()
	if !s.Fire(0) {
		t.Fatal("first fire should succeed")
	}
	if s.Fire(tn.ReloadMs - 1) {
		t.Fatal("fire inside reload window accepted")
	}
	if !s.Fire(tn.ReloadMs) {
		t.Fatal("fire exactly at reload should succeed")
	}

	s2, tn2 := newTestShip()
	var fired []int64
	for now := int64(0); now < 20000; now += 70 {
		if s2.Fire(now) {
			fired = append(fired, now)
		}
	}
	for i := 1; i < len(fired); i++ {
		if fired[i]-fired[i-1] < tn2.ReloadMs {
			t.Fatalf("fires at %d and %d closer than reload", fired[i-1], fired[i])
		}
	}
}

func TestLastHitDestroysAndBlocksFire(t *testing.T) {
	s, tn := newTestShip()
	for i := 0; i < tn.MaxHits-1; i++ {
		s.RegisterHit()
	}
	if s.Destroyed() {
		t.Fatal("ship destroyed too early")
	}

	enemy := NewShip("bob", -100, 0, 0, tn)
	ball := SpawnCannonball("b1", enemy, 0, *tn)
	if !ball.Strike(s) {
		t.Fatal("strike should land on non-owner")
	}
	if s.HitCount() != tn.MaxHits || !s.Destroyed() {
		t.Fatalf("hit count = %d, want %d", s.HitCount(), tn.MaxHits)
	}
	if s.Fire(1_000_000) {
		t.Fatal("destroyed ship fired")
	}
}

func TestTuningValidate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	bad := DefaultTuning()
	bad.MaxHits = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTuning) {
		t.Fatalf("expected ErrInvalidTuning, got %v", err)
	}
	bad = DefaultTuning()
	bad.TickMs = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTuning) {
		t.Fatalf("expected ErrInvalidTuning, got %v", err)
	}
}
