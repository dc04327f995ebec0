package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"broadside/logging"
	"broadside/protocol"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendQueue  = 64
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec protocol.Codec
	send  chan []byte
	log   *zap.SugaredLogger

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec) *ClientConn {
	return &ClientConn{
		ws:     ws,
		codec:  codec,
		send:   make(chan []byte, sendQueue),
		log:    logging.Named("ws"),
		closed: make(chan struct{}),
	}
}

func (c *ClientConn) Codec() protocol.Codec { return c.codec }

// Enqueue 将要发送的消息压入队列（非阻塞，满或已关闭返回 false）
func (c *ClientConn) Enqueue(b []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		// 为了实时性丢弃本帧，防止阻塞 Tick
		return false
	}
}

// Close 关闭底层连接；可重复调用，send 通道不关闭以免与 Enqueue 竞争
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(c.codec.MessageType(), msg); err != nil {
				c.log.Debugw("write failed", "err", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端指令，转换为 Input 注入房间
func (c *ClientConn) readPump(room *Room, playerID PlayerID) {
	// 读泵退出时，通知房间在 Tick 协程中移除该玩家
	defer func() {
		room.RequestLeave(playerID, c)
		c.Close()
	}()
	c.ws.SetReadLimit(1 << 16)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Infow("connection lost", "player", playerID, "err", err)
			}
			return
		}
		cmd, err := protocol.DecodeCommand(mt, payload)
		if err != nil {
			c.log.Debugw("bad command", "player", playerID, "err", err)
			continue
		}
		in, err := inputFromCommand(playerID, cmd)
		if err != nil {
			c.log.Debugw("bad command", "player", playerID, "err", err)
			continue
		}
		room.OnInput(in)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?room=room-1&player=alice&codec=json|msgpack
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	playerID := q.Get("player")
	if playerID == "" {
		http.Error(w, "missing player query", http.StatusBadRequest)
		return
	}
	if strings.HasPrefix(playerID, BallIDPrefix) {
		http.Error(w, "player id must not start with "+BallIDPrefix, http.StatusBadRequest)
		return
	}
	codec, err := protocol.CodecByName(q.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warnw("upgrade failed", "err", err)
		return
	}

	room := m.GetOrCreateRoom(roomParam(r))
	client := NewClientConn(ws, codec)
	if !room.RequestJoin(PlayerID(playerID), client) {
		client.Close()
		return
	}

	go client.writePump()
	go client.readPump(room, PlayerID(playerID))
}
