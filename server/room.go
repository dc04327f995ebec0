package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"broadside/arena"
	"broadside/geom"
	"broadside/logging"
	"broadside/protocol"
	"broadside/sim"
)

// BallIDPrefix 炮弹实体 id 前缀；玩家 id 不允许使用，避免快照中 id 冲突
const BallIDPrefix = "cb-"

// RoomConfig 创建房间所需的配置
type RoomConfig struct {
	Tuning sim.Tuning
	Arena  *arena.Arena
}

// DefaultRoomConfig 默认参数 + 2000x2000 的空海域
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{Tuning: sim.DefaultTuning(), Arena: arena.Default(2000, 2000)}
}

type controlKind int

const (
	ctlJoin controlKind = iota
	ctlLeave
	ctlTuning
)

// control 加入/离开/热更新请求，必须送达（与可丢弃的输入分开排队）
type control struct {
	kind  controlKind
	pid   PlayerID
	conn  Conn
	patch TuningPatch
}

// Room 房间世界：权威状态维护在内存，单协程 Tick 推进
type Room struct {
	ID string

	// 以下字段只在 Tick 协程中访问
	tuning  sim.Tuning
	arena   *arena.Arena
	geo     *geom.World
	players map[PlayerID]*Player
	order   []PlayerID // 加入顺序
	balls   []*sim.Cannonball
	pending map[PlayerID]*pending

	nextBall      uint64
	epoch         time.Time
	lastTick      time.Time
	lastUpdatedAt uint64

	inputChan   chan Input
	controlChan chan control

	published atomic.Pointer[sim.Tuning] // 供 HTTP 读取的只读副本
	tickSeq   atomic.Uint64
	metrics   *RoomMetrics
	log       *zap.SugaredLogger

	tickerOnce sync.Once
	stopOnce   sync.Once
	quit       chan struct{}
	done       chan struct{}
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, cfg RoomConfig) *Room {
	ar := cfg.Arena
	if ar == nil {
		ar = arena.Default(2000, 2000)
	}
	ar = ar.Clone()
	r := &Room{
		ID:          id,
		tuning:      cfg.Tuning,
		arena:       ar,
		geo:         geom.NewWorld(int(ar.Width), int(ar.Height), 64),
		players:     make(map[PlayerID]*Player),
		pending:     make(map[PlayerID]*pending),
		inputChan:   make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		controlChan: make(chan control, 64),
		metrics:     &RoomMetrics{},
		log:         logging.Named("room").With("room", id),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	t := cfg.Tuning
	r.published.Store(&t)
	return r
}

// Tuning 当前生效参数的副本（可在任意协程调用）
func (r *Room) Tuning() sim.Tuning {
	return *r.published.Load()
}

// Tick 已完成的 Tick 数
func (r *Room) Tick() uint64 {
	return r.tickSeq.Load()
}

func (r *Room) Metrics() *RoomMetrics {
	return r.metrics
}

// OnInput 入站输入（不立即生效），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	// 不阻塞：拥塞时直接丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// RequestJoin 请求在 Tick 协程中加入玩家；同一玩家再次加入时替换连接
// 房间已停止时返回 false
func (r *Room) RequestJoin(pid PlayerID, conn Conn) bool {
	return r.sendControl(control{kind: ctlJoin, pid: pid, conn: conn})
}

// RequestLeave 请求移除玩家；conn 与当前连接不一致时忽略（旧连接断开不影响重连）
func (r *Room) RequestLeave(pid PlayerID, conn Conn) bool {
	return r.sendControl(control{kind: ctlLeave, pid: pid, conn: conn})
}

// RequestTuning 先校验补丁，再交给 Tick 协程应用
func (r *Room) RequestTuning(patch TuningPatch) error {
	if _, err := patch.Apply(r.Tuning()); err != nil {
		return err
	}
	if !r.sendControl(control{kind: ctlTuning, patch: patch}) {
		return ErrRoomStopped
	}
	return nil
}

// 控制请求必须送达：阻塞写入，房间停止后放弃
func (r *Room) sendControl(c control) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.controlChan <- c:
		return true
	case <-r.quit:
		return false
	}
}

// Step 推进一个 Tick 并返回本次快照。now 为本次 Tick 的墙钟时间。
// 只能在同一协程中调用（ticker 或测试）。
func (r *Room) Step(now time.Time) protocol.Snapshot {
	start := time.Now()
	if r.epoch.IsZero() {
		r.epoch = now
		r.lastTick = now.Add(-r.tuning.TickPeriod())
	}
	dt := now.Sub(r.lastTick)
	if dt < 0 {
		dt = 0
	}
	r.lastTick = now
	nowMs := now.Sub(r.epoch).Milliseconds()

	// 核心顺序：控制请求 → 输入 → 船只 → 炮弹 → 快照
	r.processControl()
	r.processInputs()
	r.applyCommands(nowMs)
	r.advanceShips(dt)
	r.advanceCannonballs(dt, nowMs)

	snap := r.buildSnapshot(now)
	r.broadcast(snap)
	r.metrics.AddTick(time.Since(start).Nanoseconds())
	return snap
}

func (r *Room) processControl() {
	for {
		select {
		case c := <-r.controlChan:
			switch c.kind {
			case ctlJoin:
				r.joinPlayer(c.pid, c.conn)
			case ctlLeave:
				r.leavePlayer(c.pid, c.conn)
			case ctlTuning:
				r.applyTuning(c.patch)
			}
		default:
			return
		}
	}
}

func (r *Room) joinPlayer(pid PlayerID, conn Conn) {
	if p, ok := r.players[pid]; ok {
		if p.Conn != nil && p.Conn != conn {
			p.Conn.Close()
		}
		p.Conn = conn
		r.log.Infow("player reconnected", "player", pid)
		return
	}

	sp := r.arena.NextSpawn()
	ship := sim.NewShip(string(pid), sp.X, sp.Y, sp.Angle, &r.tuning)
	r.geo.AddBox(string(pid), r.tuning.ShipHalfWidth, r.tuning.ShipHalfHeight, geom.TagShip)
	r.geo.SetPose(string(pid), sp.X, sp.Y, sp.Angle)

	r.players[pid] = &Player{ID: pid, Ship: ship, Conn: conn}
	r.order = append(r.order, pid)
	r.metrics.SetPlayers(len(r.players))
	r.log.Infow("player joined", "player", pid, "x", sp.X, "y", sp.Y)
}

func (r *Room) leavePlayer(pid PlayerID, conn Conn) {
	p, ok := r.players[pid]
	if !ok {
		return
	}
	if conn != nil && p.Conn != conn {
		r.log.Debugw("stale leave ignored", "player", pid)
		return
	}
	if p.Conn != nil {
		p.Conn.Close()
	}
	r.geo.Remove(string(pid))
	delete(r.players, pid)
	delete(r.pending, pid)
	for i, id := range r.order {
		if id == pid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.metrics.SetPlayers(len(r.players))
	r.log.Infow("player left", "player", pid)
}

func (r *Room) applyTuning(patch TuningPatch) {
	next, err := patch.Apply(r.tuning)
	if err != nil {
		r.log.Warnw("tuning patch rejected", "err", err)
		return
	}
	// 船只持有 &r.tuning，原地赋值即对所有船生效
	r.tuning = next
	published := next
	r.published.Store(&published)
	r.log.Infow("tuning updated",
		"acceleration", next.Acceleration,
		"maxVelocity", next.MaxVelocity,
		"angularSpeed", next.AngularSpeed,
		"reloadMs", next.ReloadMs,
		"cannonballSpeed", next.CannonballSpeed,
		"cannonballTtlMs", next.CannonballTTLMs)
}

// processInputs 非阻塞 drain，按玩家合并
func (r *Room) processInputs() {
	for {
		select {
		case in := <-r.inputChan:
			if _, ok := r.players[in.PlayerID]; !ok {
				r.metrics.IncUnknown()
				r.log.Debugw("input for unknown player dropped", "player", in.PlayerID)
				continue
			}
			p, ok := r.pending[in.PlayerID]
			if !ok {
				p = &pending{}
				r.pending[in.PlayerID] = p
			}
			p.merge(in)
		default:
			return
		}
	}
}

// applyCommands 按加入顺序执行合并后的指令
func (r *Room) applyCommands(nowMs int64) {
	for _, pid := range r.order {
		pd, ok := r.pending[pid]
		if !ok {
			continue
		}
		ship := r.players[pid].Ship
		if h := pd.heading; h != nil {
			if ship.SetHeading(h.Orientation, h.Accelerating) {
				r.metrics.IncAccepted()
			} else {
				r.metrics.IncRejected()
				r.log.Debugw("heading rejected", "player", pid)
			}
		}
		if f := pd.fire; f != nil {
			if f.Target != nil {
				// 瞄准点不参与物理，炮弹沿船头方向
				r.log.Debugw("fire target ignored", "player", pid, "x", f.Target.X, "y", f.Target.Y)
			}
			if ship.Fire(nowMs) {
				r.metrics.IncAccepted()
				r.spawnCannonball(ship, nowMs)
			} else {
				r.metrics.IncRejected()
				r.log.Debugw("fire rejected", "player", pid)
			}
		}
	}
	clear(r.pending)
}

func (r *Room) spawnCannonball(from *sim.Ship, nowMs int64) {
	r.nextBall++
	id := fmt.Sprintf("%s%d", BallIDPrefix, r.nextBall)
	b := sim.SpawnCannonball(id, from, nowMs, r.tuning)
	r.geo.AddCircle(id, r.tuning.CannonballRadius, geom.TagCannonball)
	r.geo.SetPose(id, b.X, b.Y, b.Angle)
	r.balls = append(r.balls, b)
	r.metrics.IncFired()
}

func (r *Room) advanceShips(dt time.Duration) {
	for _, pid := range r.order {
		ship := r.players[pid].Ship
		if ship.Destroyed() {
			continue
		}
		ship.Advance(dt)
		x, y, angle := ship.Pose()
		r.geo.SetPose(string(pid), x, y, angle)
		if !r.arena.Contains(x, y) {
			ship.Kill()
			r.metrics.IncArenaKills()
			r.log.Infow("ship left the arena", "player", pid, "x", x, "y", y)
		}
	}
}

func (r *Room) advanceCannonballs(dt time.Duration, nowMs int64) {
	for _, b := range r.balls {
		b.Advance(dt)
		r.geo.SetPose(b.ID, b.X, b.Y, b.Angle)
	}

	for _, b := range r.balls {
		overlapping := r.geo.Query(b.ID, geom.TagShip)
		if len(overlapping) == 0 {
			continue
		}
		hit := make(map[string]bool, len(overlapping))
		for _, id := range overlapping {
			hit[id] = true
		}
		// 多船重叠时按加入顺序取第一个非发射者
		for _, pid := range r.order {
			if !hit[string(pid)] {
				continue
			}
			target := r.players[pid].Ship
			if b.Strike(target) {
				r.metrics.IncHits()
				r.log.Infow("ship hit", "ball", b.ID, "owner", b.Owner, "target", pid,
					"hits", target.HitCount(), "destroyed", target.Destroyed())
				break
			}
		}
	}

	alive := r.balls[:0]
	for _, b := range r.balls {
		if b.Spent() || b.Expired(nowMs) {
			r.geo.Remove(b.ID)
			continue
		}
		alive = append(alive, b)
	}
	// 释放尾部引用
	for i := len(alive); i < len(r.balls); i++ {
		r.balls[i] = nil
	}
	r.balls = alive
}

// buildSnapshot 船只按加入顺序在前，炮弹按生成顺序在后
func (r *Room) buildSnapshot(now time.Time) protocol.Snapshot {
	updatedAt := uint64(now.UnixMilli())
	if updatedAt <= r.lastUpdatedAt {
		updatedAt = r.lastUpdatedAt + 1
	}
	r.lastUpdatedAt = updatedAt

	entities := make([]protocol.Entity, 0, len(r.order)+len(r.balls))
	for _, pid := range r.order {
		entities = append(entities, r.players[pid].Ship.Snapshot())
	}
	for _, b := range r.balls {
		entities = append(entities, b.Snapshot())
	}
	return protocol.Snapshot{
		Type:      protocol.MsgSnapshot,
		Tick:      r.tickSeq.Add(1),
		UpdatedAt: updatedAt,
		Entities:  entities,
	}
}

// broadcast 每种编码只序列化一次；发送队列满则丢弃该帧
func (r *Room) broadcast(snap protocol.Snapshot) {
	encoded := make(map[string][]byte, len(protocol.Codecs))
	for _, pid := range r.order {
		p := r.players[pid]
		if p.Conn == nil {
			continue
		}
		codec := p.Conn.Codec()
		payload, ok := encoded[codec.Name()]
		if !ok {
			b, err := codec.Marshal(snap)
			if err != nil {
				r.log.Errorw("encode snapshot failed", "codec", codec.Name(), "err", err)
			}
			encoded[codec.Name()] = b
			payload = b
		}
		if payload == nil {
			continue
		}
		if !p.Conn.Enqueue(payload) {
			r.metrics.IncBroadcastDropped()
			r.log.Warnw("send queue full, snapshot dropped", "player", pid, "tick", snap.Tick)
		}
	}
}

// shutdown 房间停止时断开所有连接，包括尚未处理的加入请求
func (r *Room) shutdown() {
drain:
	for {
		select {
		case c := <-r.controlChan:
			if c.kind == ctlJoin && c.conn != nil {
				c.conn.Close()
			}
		default:
			break drain
		}
	}
	for _, pid := range r.order {
		if c := r.players[pid].Conn; c != nil {
			c.Close()
		}
	}
	r.log.Infow("room stopped", "ticks", r.tickSeq.Load())
}
