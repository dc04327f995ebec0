package server

import (
	"errors"
	"fmt"
	"strings"

	"broadside/protocol"
	"broadside/sim"
)

var ErrBadOrientation = errors.New("server: bad orientation")

// CommandKind 指令种类
type CommandKind int

const (
	CmdHeading CommandKind = iota
	CmdFire
)

// Input 客户端输入（意图），在下一次 Tick 开始时才生效
type Input struct {
	PlayerID PlayerID
	Kind     CommandKind

	Orientation  sim.Orientation
	Accelerating bool
	Target       *protocol.Point // 仅 CmdFire；物理层忽略
}

// pending 同一 Tick 内合并后的指令：只保留最新的转向指令，开火只记一次
type pending struct {
	heading *Input
	fire    *Input
}

func (p *pending) merge(in Input) {
	switch in.Kind {
	case CmdHeading:
		p.heading = &in
	case CmdFire:
		p.fire = &in
	}
}

// ParseOrientation "forward" / "left" / "right"，不区分大小写
func ParseOrientation(s string) (sim.Orientation, error) {
	switch strings.ToLower(s) {
	case protocol.OrientationForward, "":
		return sim.Forward, nil
	case protocol.OrientationLeft:
		return sim.Left, nil
	case protocol.OrientationRight:
		return sim.Right, nil
	}
	return sim.Forward, fmt.Errorf("%w: %q", ErrBadOrientation, s)
}

// inputFromCommand 将线协议指令转换为房间输入
func inputFromCommand(pid PlayerID, cmd protocol.Command) (Input, error) {
	switch cmd.Type {
	case protocol.MsgHeading:
		o, err := ParseOrientation(cmd.Orientation)
		if err != nil {
			return Input{}, err
		}
		return Input{PlayerID: pid, Kind: CmdHeading, Orientation: o, Accelerating: cmd.Accelerating}, nil
	case protocol.MsgFire:
		return Input{PlayerID: pid, Kind: CmdFire, Target: cmd.Target}, nil
	}
	return Input{}, fmt.Errorf("%w: %q", protocol.ErrUnknownMessage, cmd.Type)
}
