package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"broadside/logging"
	"broadside/protocol"
)

const writeWait = 5 * time.Second

// Conn 到服务端的一条 WebSocket 连接：读快照、写指令
type Conn struct {
	ws    *websocket.Conn
	codec protocol.Codec
	log   *zap.SugaredLogger

	writeMu sync.Mutex
}

// Dial 连接 base（例如 ws://localhost:8080/ws），附加 room/player/codec 参数
func Dial(ctx context.Context, base, room, player string, codec protocol.Codec) (*Conn, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("room", room)
	q.Set("player", player)
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	c := &Conn{ws: ws, codec: codec, log: logging.Named("conn")}
	c.log.Infow("connected", "url", u.Redacted(), "codec", codec.Name())
	return c, nil
}

// ReadSnapshots 阻塞读取快照并回调 fn，直到连接断开或 ctx 结束
// fn 在读协程中调用，recv 为本地接收时间
func (c *Conn) ReadSnapshots(ctx context.Context, fn func(snap protocol.Snapshot, recv time.Time)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read snapshot: %w", err)
		}
		recv := time.Now()
		snap, err := protocol.DecodeSnapshot(mt, data)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownMessage) {
				continue
			}
			c.log.Warnw("bad snapshot", "err", err)
			continue
		}
		fn(snap, recv)
	}
}

// SendHeading 发送转向/油门指令（电平触发）
func (c *Conn) SendHeading(orientation string, accelerating bool) error {
	return c.send(protocol.HeadingCommand(orientation, accelerating))
}

// SendFire 发送开火指令；target 仅作提示，可为 nil
func (c *Conn) SendFire(target *protocol.Point) error {
	return c.send(protocol.FireCommand(target))
}

func (c *Conn) send(cmd protocol.Command) error {
	b, err := c.codec.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Type, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(c.codec.MessageType(), b); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	return nil
}

// Close 发送关闭帧后断开
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
