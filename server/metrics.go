package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
	CommandsAccepted  int64 // 被接受的指令数
	CommandsRejected  int64 // 冷却未到或船只已沉没而被拒绝的指令数
	UnknownDropped    int64 // 指向不存在玩家的指令数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	BroadcastDropped  int64 // 因客户端发送队列满而丢弃的快照数
	CannonballsFired  int64
	Hits              int64
	ArenaKills        int64 // 驶出海域被击沉
	Players           int64 // 当前玩家数（仪表）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.CommandsAccepted, 1) }
func (m *RoomMetrics) IncRejected()          { atomic.AddInt64(&m.CommandsRejected, 1) }
func (m *RoomMetrics) IncUnknown()           { atomic.AddInt64(&m.UnknownDropped, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncBroadcastDropped()  { atomic.AddInt64(&m.BroadcastDropped, 1) }
func (m *RoomMetrics) IncFired()             { atomic.AddInt64(&m.CannonballsFired, 1) }
func (m *RoomMetrics) IncHits()              { atomic.AddInt64(&m.Hits, 1) }
func (m *RoomMetrics) IncArenaKills()        { atomic.AddInt64(&m.ArenaKills, 1) }
func (m *RoomMetrics) SetPlayers(n int)      { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"commands_accepted":   atomic.LoadInt64(&m.CommandsAccepted),
		"commands_rejected":   atomic.LoadInt64(&m.CommandsRejected),
		"unknown_dropped":     atomic.LoadInt64(&m.UnknownDropped),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"broadcast_dropped":   atomic.LoadInt64(&m.BroadcastDropped),
		"cannonballs_fired":   atomic.LoadInt64(&m.CannonballsFired),
		"hits":                atomic.LoadInt64(&m.Hits),
		"arena_kills":         atomic.LoadInt64(&m.ArenaKills),
		"players":             atomic.LoadInt64(&m.Players),
		"avg_tick_ms":         avgMs,
	}
}
