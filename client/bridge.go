package client

import (
	"math"

	"broadside/protocol"
)

// Bridge 展示层契约。所有方法只在渲染协程中调用。
type Bridge interface {
	// Create 为新实体建立视觉对象
	Create(id string, kind protocol.EntityKind)
	Update(id string, pose Pose)
	// Dispose 释放视觉对象；未知 id 忽略
	Dispose(id string)
	// Present 一帧绘制结束
	Present()
}

// Visual 一种实体的外观描述
type Visual struct {
	// Headings 按朝向均分的字形，索引 0 对应 +x，顺时针（屏幕 y 向下）
	Headings []rune
	// Wreck 船只沉没后使用的字形
	Wreck rune
	// Color W3C 颜色名，例如 "white"、"orange"
	Color string
}

// Glyph 按朝向选取字形
func (v Visual) Glyph(pose Pose) rune {
	if pose.Destroyed && v.Wreck != 0 {
		return v.Wreck
	}
	n := len(v.Headings)
	switch n {
	case 0:
		return '?'
	case 1:
		return v.Headings[0]
	}
	step := 2 * math.Pi / float64(n)
	i := int(math.Round(pose.Angle/step)) % n
	if i < 0 {
		i += n
	}
	return v.Headings[i]
}

// Assets 由客户端会话持有的外观注册表，构造展示层时显式传入
type Assets struct {
	visuals map[protocol.EntityKind]Visual
}

func NewAssets() *Assets {
	return &Assets{visuals: make(map[protocol.EntityKind]Visual)}
}

// DefaultAssets 船只为八方向箭头，炮弹为圆点
func DefaultAssets() *Assets {
	a := NewAssets()
	a.Register(protocol.KindShip, Visual{
		Headings: []rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'},
		Wreck:    'x',
		Color:    "white",
	})
	a.Register(protocol.KindCannonball, Visual{
		Headings: []rune{'•'},
		Color:    "orange",
	})
	return a
}

func (a *Assets) Register(kind protocol.EntityKind, v Visual) {
	a.visuals[kind] = v
}

func (a *Assets) Lookup(kind protocol.EntityKind) (Visual, bool) {
	v, ok := a.visuals[kind]
	return v, ok
}
