package sim

import (
	"math"
	"time"

	"broadside/protocol"
)

// Orientation 转向指令（互斥）
type Orientation int

const (
	Forward Orientation = iota
	Left
	Right
)

func (o Orientation) String() string {
	switch o {
	case Left:
		return protocol.OrientationLeft
	case Right:
		return protocol.OrientationRight
	default:
		return protocol.OrientationForward
	}
}

// Ship 一名玩家的权威船只。只由所在房间的 Tick 协程修改。
//
// 两个状态：Active（hitCount < MaxHits）与 Destroyed（hitCount == MaxHits）。
// Destroyed 是终态，之后 SetHeading/Fire/Advance 全部无效。
type Ship struct {
	player string
	tuning *Tuning

	x, y  float64
	angle float64

	orientation  Orientation
	accelerating bool
	velocity     float64

	hitCount    int
	lastFiredAt int64
	hasFired    bool
}

// NewShip 在出生点创建船只；tuning 由房间持有并共享
func NewShip(player string, x, y, angle float64, tuning *Tuning) *Ship {
	return &Ship{
		player: player,
		tuning: tuning,
		x:      x,
		y:      y,
		angle:  angle,
	}
}

func (s *Ship) Player() string { return s.player }

// Destroyed 是否已进入终态
func (s *Ship) Destroyed() bool {
	return s.hitCount >= s.tuning.MaxHits
}

func (s *Ship) HitCount() int     { return s.hitCount }
func (s *Ship) Velocity() float64 { return s.velocity }

func (s *Ship) Orientation() (Orientation, bool) {
	return s.orientation, s.accelerating
}

// Pose 当前位置与朝向
func (s *Ship) Pose() (x, y, angle float64) {
	return s.x, s.y, s.angle
}

// SetHeading 覆盖转向/油门指令；电平触发，持续生效直到下一条指令
func (s *Ship) SetHeading(o Orientation, accelerating bool) bool {
	if s.Destroyed() {
		return false
	}
	s.orientation = o
	s.accelerating = accelerating
	return true
}

// Fire 只负责冷却判定；炮弹由调用方生成
// now: 房间单调时钟（毫秒）
func (s *Ship) Fire(now int64) bool {
	if s.Destroyed() {
		return false
	}
	if s.hasFired && now-s.lastFiredAt < s.tuning.ReloadMs {
		return false
	}
	s.lastFiredAt = now
	s.hasFired = true
	return true
}

// Advance 推进一个 Tick：先转向，再加减速，最后沿新朝向位移
func (s *Ship) Advance(dt time.Duration) {
	if s.Destroyed() {
		return
	}
	secs := dt.Seconds()
	switch s.orientation {
	case Left:
		s.angle -= s.tuning.AngularSpeed * secs
	case Right:
		s.angle += s.tuning.AngularSpeed * secs
	}

	if s.accelerating {
		s.velocity = math.Min(s.velocity+s.tuning.Acceleration, s.tuning.MaxVelocity)
	} else {
		s.velocity = math.Max(s.velocity-s.tuning.Acceleration, 0)
	}
	// 热更新可能降低上限
	if s.velocity > s.tuning.MaxVelocity {
		s.velocity = s.tuning.MaxVelocity
	}

	if s.velocity > 0 {
		s.x += math.Cos(s.angle) * s.velocity * secs
		s.y += math.Sin(s.angle) * s.velocity * secs
	}
}

// RegisterHit 命中一次，饱和于 MaxHits
func (s *Ship) RegisterHit() {
	if s.hitCount < s.tuning.MaxHits {
		s.hitCount++
	}
}

// Kill 立即进入终态（例如驶出海域）
func (s *Ship) Kill() {
	s.hitCount = s.tuning.MaxHits
}

// Snapshot 纯投影，无副作用
func (s *Ship) Snapshot() protocol.Entity {
	return protocol.Entity{
		ID:    s.player,
		Type:  protocol.KindShip,
		X:     s.x,
		Y:     s.y,
		Angle: s.angle,
		Ship: &protocol.ShipState{
			Hits:      s.hitCount,
			Destroyed: s.Destroyed(),
		},
	}
}
