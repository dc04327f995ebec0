package server

import (
	"broadside/protocol"
	"broadside/sim"
)

// PlayerID 表示玩家唯一标识，同时也是其船只在快照中的实体 id
type PlayerID string

// Conn 房间向客户端发送数据所需的最小接口（便于测试替换）
type Conn interface {
	// Enqueue 非阻塞入队；队列满或已关闭返回 false
	Enqueue(b []byte) bool
	Codec() protocol.Codec
	Close()
}

// Player 房间内的玩家：权威船只 + 网络连接
type Player struct {
	ID   PlayerID
	Ship *sim.Ship
	Conn Conn
}
