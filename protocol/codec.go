package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownCodec   = errors.New("protocol: unknown codec")
	ErrUnknownMessage = errors.New("protocol: unknown message type")
	ErrBadEntity      = errors.New("protocol: bad entity")
)

// Codec 负责一种线格式的编解码；文本帧走 JSON，二进制帧走 msgpack
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	// MessageType 对应的 WebSocket 帧类型
	MessageType() int
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) MessageType() int                   { return websocket.TextMessage }

type msgpackCodec struct{}

func (msgpackCodec) Name() string                       { return "msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (msgpackCodec) MessageType() int                   { return websocket.BinaryMessage }

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// Codecs 全部可用编解码器，顺序固定
var Codecs = []Codec{JSON, MsgPack}

// CodecByName 按名称查找；空字符串默认 JSON
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return MsgPack, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// CodecForFrame 按 WebSocket 帧类型选择编解码器
func CodecForFrame(messageType int) (Codec, error) {
	switch messageType {
	case websocket.TextMessage:
		return JSON, nil
	case websocket.BinaryMessage:
		return MsgPack, nil
	}
	return nil, fmt.Errorf("%w: frame type %d", ErrUnknownCodec, messageType)
}

// DecodeCommand 解析一条入站指令
func DecodeCommand(messageType int, data []byte) (Command, error) {
	codec, err := CodecForFrame(messageType)
	if err != nil {
		return Command{}, err
	}
	var cmd Command
	if err := codec.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	switch cmd.Type {
	case MsgHeading, MsgFire:
		return cmd, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownMessage, cmd.Type)
}

// DecodeSnapshot 解析一条出站快照，并校验每个实体的标签与子结构一致
func DecodeSnapshot(messageType int, data []byte) (Snapshot, error) {
	codec, err := CodecForFrame(messageType)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Type != MsgSnapshot {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownMessage, snap.Type)
	}
	for i := range snap.Entities {
		if err := snap.Entities[i].Validate(); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

// Validate 检查标签变体的一致性
func (e Entity) Validate() error {
	switch e.Type {
	case KindShip:
		if e.Ship == nil || e.Cannonball != nil {
			return fmt.Errorf("%w: ship %q", ErrBadEntity, e.ID)
		}
	case KindCannonball:
		if e.Cannonball == nil || e.Ship != nil {
			return fmt.Errorf("%w: cannonball %q", ErrBadEntity, e.ID)
		}
	default:
		return fmt.Errorf("%w: %q has type %q", ErrBadEntity, e.ID, e.Type)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrBadEntity)
	}
	return nil
}
