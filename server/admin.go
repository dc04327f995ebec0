package server

import (
	"encoding/json"
	"net/http"

	"broadside/sim"
)

// TuningPatch 可热更新的参数子集；nil 表示不修改
// 船体尺寸与 Tick 周期在房间生命周期内固定
type TuningPatch struct {
	Acceleration    *float64 `json:"acceleration,omitempty"`
	MaxVelocity     *float64 `json:"maxVelocity,omitempty"`
	AngularSpeed    *float64 `json:"angularSpeed,omitempty"`
	ReloadMs        *int64   `json:"reloadMs,omitempty"`
	CannonballSpeed *float64 `json:"cannonballSpeed,omitempty"`
	CannonballTTLMs *int64   `json:"cannonballTtlMs,omitempty"`
}

// Apply 返回应用补丁后的参数；结果非法时返回 sim.ErrInvalidTuning
func (p TuningPatch) Apply(t sim.Tuning) (sim.Tuning, error) {
	if p.Acceleration != nil {
		t.Acceleration = *p.Acceleration
	}
	if p.MaxVelocity != nil {
		t.MaxVelocity = *p.MaxVelocity
	}
	if p.AngularSpeed != nil {
		t.AngularSpeed = *p.AngularSpeed
	}
	if p.ReloadMs != nil {
		t.ReloadMs = *p.ReloadMs
	}
	if p.CannonballSpeed != nil {
		t.CannonballSpeed = *p.CannonballSpeed
	}
	if p.CannonballTTLMs != nil {
		t.CannonballTTLMs = *p.CannonballTTLMs
	}
	if err := t.Validate(); err != nil {
		return sim.Tuning{}, err
	}
	return t, nil
}

func roomParam(r *http.Request) string {
	if id := r.URL.Query().Get("room"); id != "" {
		return id
	}
	return DefaultRoomID
}

// lookupRoom 管理接口只操作已存在的房间；房间仅由 /ws 加入时创建
func (m *RoomManager) lookupRoom(w http.ResponseWriter, r *http.Request) (string, *Room, bool) {
	roomID := roomParam(r)
	room, ok := m.GetRoom(roomID)
	if !ok {
		http.Error(w, "unknown room: "+roomID, http.StatusNotFound)
	}
	return roomID, room, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间参数的读取与热更新
// GET /admin/config?room=room-1  返回当前参数
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段，下一个 Tick 生效
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID, room, ok := m.lookupRoom(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, room.Tuning())
		return
	case http.MethodPost:
		var body TuningPatch
		dec := json.NewDecoder(r.Body)
		// 不可热更新的字段直接拒绝，而不是静默忽略
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := room.RequestTuning(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
		m.log.Infow("config patch queued", "room", roomID)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1，房间不存在返回 404
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID, room, ok := m.lookupRoom(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"room":    roomID,
		"tick":    room.Tick(),
		"metrics": room.metrics.Snapshot(),
	})
}
