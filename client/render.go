package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"broadside/logging"
	"broadside/protocol"
)

type eventKind int

const (
	evAdd eventKind = iota
	evRemove
)

type event struct {
	kind   eventKind
	id     string
	entity protocol.EntityKind
}

// Renderer 单协程帧调度：取出增删事件 → Create/Dispose → 逐个 Update → Present
// 只读取插值状态，从不写入
type Renderer struct {
	ip     *Interpolator
	bridge Bridge
	log    *zap.SugaredLogger

	mu     sync.Mutex
	queued []event

	// 以下只在渲染协程访问
	live map[string]protocol.EntityKind
	ids  []string
}

func NewRenderer(ip *Interpolator, bridge Bridge) *Renderer {
	return &Renderer{
		ip:     ip,
		bridge: bridge,
		log:    logging.Named("render"),
		live:   make(map[string]protocol.EntityKind),
	}
}

// OnSnapshot 由读协程调用：写入插值器并把增删排队给下一帧
func (r *Renderer) OnSnapshot(snap protocol.Snapshot, recv time.Time) {
	diff, ok := r.ip.Apply(snap, recv)
	if !ok {
		r.log.Debugw("stale snapshot ignored", "tick", snap.Tick, "updatedAt", snap.UpdatedAt)
		return
	}
	if diff.Empty() {
		return
	}
	r.mu.Lock()
	for _, e := range diff.Added {
		r.queued = append(r.queued, event{kind: evAdd, id: e.ID, entity: e.Type})
	}
	for _, id := range diff.Removed {
		r.queued = append(r.queued, event{kind: evRemove, id: id})
	}
	r.mu.Unlock()
}

// Frame 绘制一帧；now 为本地时间
func (r *Renderer) Frame(now time.Time) {
	r.mu.Lock()
	events := r.queued
	r.queued = nil
	r.mu.Unlock()

	changed := false
	for _, ev := range events {
		switch ev.kind {
		case evAdd:
			if _, ok := r.live[ev.id]; ok {
				continue
			}
			r.live[ev.id] = ev.entity
			r.bridge.Create(ev.id, ev.entity)
		case evRemove:
			if _, ok := r.live[ev.id]; !ok {
				continue
			}
			delete(r.live, ev.id)
			r.bridge.Dispose(ev.id)
		}
		changed = true
	}
	if changed {
		r.ids = r.ids[:0]
		for id := range r.live {
			r.ids = append(r.ids, id)
		}
		sort.Strings(r.ids)
	}

	for _, id := range r.ids {
		// 实体可能已从插值器移除而删除事件尚未处理，下一帧再 Dispose
		if pose, ok := r.ip.Pose(id, now); ok {
			r.bridge.Update(id, pose)
		}
	}
	r.bridge.Present()
}

// Live 当前已创建视觉对象的实体数（渲染协程）
func (r *Renderer) Live() int {
	return len(r.live)
}

// Run 按固定帧率绘制，直到 ctx 结束
func (r *Renderer) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Frame(now)
		}
	}
}
