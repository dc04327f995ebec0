package sim

import (
	"math"
	"time"

	"broadside/protocol"
)

// Cannonball 由开火成功的船只生成：匀速直线，超时或命中后销毁
type Cannonball struct {
	ID     string
	Owner  string // 发射者，永远不会被自己的炮弹命中
	X, Y   float64
	VX, VY float64
	Angle  float64

	SpawnedAt int64 // 房间单调时钟（毫秒）
	ttl       int64
	spent     bool
}

// SpawnCannonball 沿发射船当前朝向、从船头前方生成炮弹
func SpawnCannonball(id string, from *Ship, now int64, t Tuning) *Cannonball {
	x, y, angle := from.Pose()
	cos, sin := math.Cos(angle), math.Sin(angle)
	offset := t.MuzzleOffset()
	return &Cannonball{
		ID:        id,
		Owner:     from.Player(),
		X:         x + cos*offset,
		Y:         y + sin*offset,
		VX:        cos * t.CannonballSpeed,
		VY:        sin * t.CannonballSpeed,
		Angle:     angle,
		SpawnedAt: now,
		ttl:       t.CannonballTTLMs,
	}
}

// Advance position += velocity * dt
func (c *Cannonball) Advance(dt time.Duration) {
	secs := dt.Seconds()
	c.X += c.VX * secs
	c.Y += c.VY * secs
}

// Expired 存活时间超过 TTL，与是否命中无关
func (c *Cannonball) Expired(now int64) bool {
	return now-c.SpawnedAt > c.ttl
}

// Spent 已命中，等待移除
func (c *Cannonball) Spent() bool { return c.spent }

// Strike 对重叠的船只结算命中；发射者本人或已结算过的炮弹返回 false
func (c *Cannonball) Strike(target *Ship) bool {
	if c.spent || target.Player() == c.Owner {
		return false
	}
	target.RegisterHit()
	c.spent = true
	return true
}

func (c *Cannonball) Snapshot() protocol.Entity {
	return protocol.Entity{
		ID:         c.ID,
		Type:       protocol.KindCannonball,
		X:          c.X,
		Y:          c.Y,
		Angle:      c.Angle,
		Cannonball: &protocol.CannonballState{Owner: c.Owner},
	}
}
