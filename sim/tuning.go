package sim

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTuning = errors.New("sim: invalid tuning")

// Tuning 同一部署内服务端与客户端必须一致的常量
type Tuning struct {
	ShipHalfWidth  float64 `json:"shipHalfWidth"`
	ShipHalfHeight float64 `json:"shipHalfHeight"`
	Acceleration   float64 `json:"acceleration"` // 每次 Advance 的速度增量（单位/秒）
	MaxVelocity    float64 `json:"maxVelocity"`  // 单位/秒
	AngularSpeed   float64 `json:"angularSpeed"` // 弧度/秒
	ReloadMs       int64   `json:"reloadMs"`
	MaxHits        int     `json:"maxHits"`

	CannonballSpeed  float64 `json:"cannonballSpeed"` // 单位/秒
	CannonballRadius float64 `json:"cannonballRadius"`
	CannonballTTLMs  int64   `json:"cannonballTtlMs"`

	TickMs        int64 `json:"tickMs"`
	BufferDelayMs int64 `json:"bufferDelayMs"`
}

// DefaultTuning 与原部署保持一致的默认值
func DefaultTuning() Tuning {
	return Tuning{
		ShipHalfWidth:    113.0 / 2,
		ShipHalfHeight:   66.0 / 2,
		Acceleration:     5,
		MaxVelocity:      200,
		AngularSpeed:     1.0,
		ReloadMs:         1500,
		MaxHits:          3,
		CannonballSpeed:  400,
		CannonballRadius: 8,
		CannonballTTLMs:  2000,
		TickMs:           100,
		BufferDelayMs:    140,
	}
}

// Validate 检查参数是否可用
func (t Tuning) Validate() error {
	switch {
	case t.ShipHalfWidth <= 0 || t.ShipHalfHeight <= 0:
		return fmt.Errorf("%w: ship extents must be positive", ErrInvalidTuning)
	case t.Acceleration <= 0 || t.MaxVelocity <= 0:
		return fmt.Errorf("%w: acceleration and max velocity must be positive", ErrInvalidTuning)
	case t.AngularSpeed < 0 || t.ReloadMs < 0:
		return fmt.Errorf("%w: angular speed and reload must not be negative", ErrInvalidTuning)
	case t.MaxHits < 1:
		return fmt.Errorf("%w: max hits must be at least 1", ErrInvalidTuning)
	case t.CannonballSpeed <= 0 || t.CannonballRadius <= 0 || t.CannonballTTLMs <= 0:
		return fmt.Errorf("%w: cannonball speed, radius and ttl must be positive", ErrInvalidTuning)
	case t.TickMs <= 0 || t.BufferDelayMs < 0:
		return fmt.Errorf("%w: tick period must be positive", ErrInvalidTuning)
	}
	return nil
}

// MuzzleOffset 炮弹出生点距船心的前向距离，保证出生时不与本船重叠
func (t Tuning) MuzzleOffset() float64 {
	return t.ShipHalfWidth + t.CannonballRadius + 2
}

func (t Tuning) TickPeriod() time.Duration {
	return time.Duration(t.TickMs) * time.Millisecond
}

func (t Tuning) BufferDelay() time.Duration {
	return time.Duration(t.BufferDelayMs) * time.Millisecond
}
