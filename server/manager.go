package server

import (
	"sync"

	"go.uber.org/zap"

	"broadside/logging"
)

// DefaultRoomID 未指定 room 参数时使用的房间
const DefaultRoomID = "room-1"

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	cfg   RoomConfig
	log   *zap.SugaredLogger
}

// NewRoomManager 所有房间共享同一份初始配置
func NewRoomManager(cfg RoomConfig) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		log:   logging.Named("manager"),
	}
}

// GetRoom 只查询，不创建
func (m *RoomManager) GetRoom(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.rooms[id]; !ok {
		r = NewRoom(id, m.cfg)
		m.rooms[id] = r
		r.StartTicker()
		m.log.Infow("room created", "room", id)
	}
	return r
}

// StopAll 停止全部房间并断开连接
func (m *RoomManager) StopAll() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Stop()
	}
}
