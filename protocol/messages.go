// Package protocol 定义服务端与客户端之间唯一的契约：入站指令与出站世界快照
package protocol

// 消息类型
const (
	MsgHeading  = "heading"
	MsgFire     = "fire"
	MsgSnapshot = "snapshot"
)

// EntityKind 快照中实体的类型标签
type EntityKind string

const (
	KindShip       EntityKind = "ship"
	KindCannonball EntityKind = "cannonball"
)

// ShipState 仅船只携带的字段
type ShipState struct {
	Hits      int  `json:"hits" msgpack:"hits"`
	Destroyed bool `json:"destroyed" msgpack:"destroyed"`
}

// CannonballState 仅炮弹携带的字段
type CannonballState struct {
	Owner string `json:"owner" msgpack:"owner"`
}

// Entity 快照中的单个实体摘要（带标签的变体：Type 决定哪一个子结构非空）
type Entity struct {
	ID    string     `json:"id" msgpack:"id"`
	Type  EntityKind `json:"type" msgpack:"type"`
	X     float64    `json:"x" msgpack:"x"`
	Y     float64    `json:"y" msgpack:"y"`
	Angle float64    `json:"angle" msgpack:"angle"`

	Ship       *ShipState       `json:"ship,omitempty" msgpack:"ship,omitempty"`
	Cannonball *CannonballState `json:"cannonball,omitempty" msgpack:"cannonball,omitempty"`
}

// Snapshot 每个 Tick 结束时的完整权威世界状态
type Snapshot struct {
	Type      string   `json:"type" msgpack:"type"`
	Tick      uint64   `json:"tick" msgpack:"tick"`
	UpdatedAt uint64   `json:"updatedAt" msgpack:"updatedAt"` // 服务端时钟（毫秒），单调递增
	Entities  []Entity `json:"entities" msgpack:"entities"`
}

// Point 世界坐标点
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Command 入站指令
// 示例：{"type":"heading","orientation":"left","accelerating":true}
//
//	{"type":"fire","target":{"x":10,"y":20}}
type Command struct {
	Type         string `json:"type" msgpack:"type"`
	Orientation  string `json:"orientation,omitempty" msgpack:"orientation,omitempty"`
	Accelerating bool   `json:"accelerating,omitempty" msgpack:"accelerating,omitempty"`
	Target       *Point `json:"target,omitempty" msgpack:"target,omitempty"` // 瞄准提示，物理层不使用
}

// Orientation 指令取值
const (
	OrientationForward = "forward"
	OrientationLeft    = "left"
	OrientationRight   = "right"
)

// HeadingCommand 构造转向/油门指令
func HeadingCommand(orientation string, accelerating bool) Command {
	return Command{Type: MsgHeading, Orientation: orientation, Accelerating: accelerating}
}

// FireCommand 构造开火指令，target 可为 nil
func FireCommand(target *Point) Command {
	return Command{Type: MsgFire, Target: target}
}
