// Package term 基于 tcell 的终端展示层：船只画成朝向箭头，炮弹画成圆点。
package term

import (
	"sort"

	"github.com/gdamore/tcell/v2"

	"broadside/client"
	"broadside/protocol"
)

type sprite struct {
	kind  protocol.EntityKind
	pose  client.Pose
	drawn bool
}

// Bridge 把世界坐标按比例映射到终端网格；最后一行留给状态栏
type Bridge struct {
	screen tcell.Screen
	assets *client.Assets

	worldW, worldH float64
	sprites        map[string]*sprite
	status         string
}

func New(screen tcell.Screen, assets *client.Assets, worldW, worldH float64) *Bridge {
	return &Bridge{
		screen:  screen,
		assets:  assets,
		worldW:  worldW,
		worldH:  worldH,
		sprites: make(map[string]*sprite),
	}
}

func (b *Bridge) Create(id string, kind protocol.EntityKind) {
	b.sprites[id] = &sprite{kind: kind}
}

func (b *Bridge) Update(id string, pose client.Pose) {
	if s, ok := b.sprites[id]; ok {
		s.pose = pose
		s.drawn = true
	}
}

func (b *Bridge) Dispose(id string) {
	delete(b.sprites, id)
}

// SetStatus 状态栏文本，下一次 Present 时绘制
func (b *Bridge) SetStatus(s string) {
	b.status = s
}

// Cell 世界坐标对应的终端格子；超出画面返回 false
func (b *Bridge) Cell(x, y float64) (col, row int, ok bool) {
	w, h := b.screen.Size()
	h-- // 状态栏
	if w <= 0 || h <= 0 || b.worldW <= 0 || b.worldH <= 0 {
		return 0, 0, false
	}
	col = int(x / b.worldW * float64(w))
	row = int(y / b.worldH * float64(h))
	if x < 0 || y < 0 || col >= w || row >= h {
		return 0, 0, false
	}
	return col, row, true
}

func (b *Bridge) Present() {
	b.screen.Clear()

	ids := make([]string, 0, len(b.sprites))
	for id := range b.sprites {
		ids = append(ids, id)
	}
	// 炮弹先画，船只覆盖其上
	sort.Slice(ids, func(i, j int) bool {
		si, sj := b.sprites[ids[i]], b.sprites[ids[j]]
		if si.kind != sj.kind {
			return si.kind == protocol.KindCannonball
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		s := b.sprites[id]
		if !s.drawn {
			continue
		}
		v, ok := b.assets.Lookup(s.kind)
		if !ok {
			continue
		}
		col, row, ok := b.Cell(s.pose.X, s.pose.Y)
		if !ok {
			continue
		}
		style := tcell.StyleDefault.Foreground(tcell.GetColor(v.Color))
		if s.pose.Destroyed {
			style = style.Dim(true)
		}
		b.screen.SetContent(col, row, v.Glyph(s.pose), nil, style)
	}

	_, h := b.screen.Size()
	for i, r := range []rune(b.status) {
		b.screen.SetContent(i, h-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
	b.screen.Show()
}
