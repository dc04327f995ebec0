// Package client 客户端：把离散、带延迟的权威快照还原为连续的画面运动。
//
// 读协程调用 Interpolator.Apply 写入状态；渲染协程每帧调用 Pose 只读。
// 单个实体的 (from, to) 通过 atomic.Pointer 整体发布，渲染方不会看到半更新的状态。
package client

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanema/gween/ease"

	"broadside/protocol"
)

// DefaultBufferDelay 目标到达时间相对服务端时间的缓冲
const DefaultBufferDelay = 140 * time.Millisecond

// Pose 渲染所需的位置、朝向与船只的沉没标记
type Pose struct {
	X, Y      float64
	Angle     float64
	Destroyed bool
}

// track 一个实体的两帧样本；发布后不再修改
type track struct {
	from, to Pose
	anchor   time.Time // from 成为当前值的本地时间
	arrival  time.Time // 应到达 to 的本地时间
	state    protocol.Entity
}

type entity struct {
	cur atomic.Pointer[track]
}

// Diff 一次快照带来的实体增删
type Diff struct {
	Added   []protocol.Entity
	Removed []string
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Option 配置 Interpolator
type Option func(*Interpolator)

// WithBufferDelay 覆盖缓冲时长；须与服务端部署一致
func WithBufferDelay(d time.Duration) Option {
	return func(ip *Interpolator) { ip.bufferDelay = d }
}

// WithEasing 替换插值曲线，默认 ease.Linear
func WithEasing(fn ease.TweenFunc) Option {
	return func(ip *Interpolator) { ip.easing = fn }
}

// Interpolator 每个实体只保留最近两帧，不保存历史
type Interpolator struct {
	bufferDelay time.Duration
	easing      ease.TweenFunc

	entities atomic.Pointer[map[string]*entity] // 写时复制

	mu            sync.Mutex // 串行化 Apply
	applied       bool
	lastUpdatedAt uint64
	offset        time.Duration // 本地时间 - 服务端时间 的最小观测值
	hasOffset     bool
}

func NewInterpolator(opts ...Option) *Interpolator {
	ip := &Interpolator{
		bufferDelay: DefaultBufferDelay,
		easing:      ease.Linear,
	}
	for _, o := range opts {
		o(ip)
	}
	empty := make(map[string]*entity)
	ip.entities.Store(&empty)
	return ip
}

func (ip *Interpolator) BufferDelay() time.Duration {
	return ip.bufferDelay
}

// Apply 处理一帧快照。recv 为本地接收时间。
// updatedAt 不新于上一帧时整帧忽略，返回 false。
func (ip *Interpolator) Apply(snap protocol.Snapshot, recv time.Time) (Diff, bool) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	var diff Diff
	if ip.applied && snap.UpdatedAt <= ip.lastUpdatedAt {
		return diff, false
	}
	ip.applied = true
	ip.lastUpdatedAt = snap.UpdatedAt

	serverTime := time.UnixMilli(int64(snap.UpdatedAt))
	if off := recv.Sub(serverTime); !ip.hasOffset || off < ip.offset {
		ip.offset = off
		ip.hasOffset = true
	}
	arrival := serverTime.Add(ip.offset + ip.bufferDelay)

	old := *ip.entities.Load()
	next := old
	copied := false
	seen := make(map[string]bool, len(snap.Entities))

	for _, e := range snap.Entities {
		seen[e.ID] = true
		sample := poseOf(e)
		if ent, ok := old[e.ID]; ok {
			prev := ent.cur.Load()
			ent.cur.Store(&track{
				from:    prev.to,
				to:      sample,
				anchor:  recv,
				arrival: arrival,
				state:   e,
			})
			continue
		}
		if !copied {
			next = copyEntities(old)
			copied = true
		}
		ent := &entity{}
		ent.cur.Store(&track{from: sample, to: sample, anchor: recv, arrival: recv, state: e})
		next[e.ID] = ent
		diff.Added = append(diff.Added, e)
	}

	for id := range old {
		if seen[id] {
			continue
		}
		if !copied {
			next = copyEntities(old)
			copied = true
		}
		delete(next, id)
		diff.Removed = append(diff.Removed, id)
	}
	sort.Strings(diff.Removed)

	if copied {
		ip.entities.Store(&next)
	}
	return diff, true
}

func copyEntities(m map[string]*entity) map[string]*entity {
	c := make(map[string]*entity, len(m)+1)
	for k, v := range m {
		c[k] = v
	}
	return c
}

func poseOf(e protocol.Entity) Pose {
	p := Pose{X: e.X, Y: e.Y, Angle: e.Angle}
	if e.Ship != nil {
		p.Destroyed = e.Ship.Destroyed
	}
	return p
}

// Pose 返回实体在本地时间 now 的插值姿态；到达后保持在 to，不外推
func (ip *Interpolator) Pose(id string, now time.Time) (Pose, bool) {
	ent, ok := (*ip.entities.Load())[id]
	if !ok {
		return Pose{}, false
	}
	return ent.cur.Load().at(now, ip.easing), true
}

// State 最近一次快照中该实体的摘要（命中数等）
func (ip *Interpolator) State(id string) (protocol.Entity, bool) {
	ent, ok := (*ip.entities.Load())[id]
	if !ok {
		return protocol.Entity{}, false
	}
	return ent.cur.Load().state, true
}

// IDs 当前实体 id（已排序）
func (ip *Interpolator) IDs() []string {
	m := *ip.entities.Load()
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (ip *Interpolator) Len() int {
	return len(*ip.entities.Load())
}

func (t *track) at(now time.Time, easing ease.TweenFunc) Pose {
	f := 1.0
	if span := t.arrival.Sub(t.anchor); span > 0 {
		f = float64(now.Sub(t.anchor)) / float64(span)
	}
	switch {
	case f >= 1:
		return t.to
	case f <= 0:
		return t.from
	}
	if easing != nil {
		f = float64(easing(float32(f), 0, 1, 1))
	}
	return Pose{
		X:         t.from.X + (t.to.X-t.from.X)*f,
		Y:         t.from.Y + (t.to.Y-t.from.Y)*f,
		Angle:     t.from.Angle + math.Remainder(t.to.Angle-t.from.Angle, 2*math.Pi)*f,
		Destroyed: t.to.Destroyed,
	}
}
