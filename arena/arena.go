// Package arena 海域边界与出生点。可从 Tiled 的 TMX 地图加载，
// 读取地图尺寸与名为 ShipSpawn 的对象层。
package arena

import (
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/lafriks/go-tiled"
)

// SpawnLayer TMX 中出生点对象层的名称
const SpawnLayer = "ShipSpawn"

var ErrNoSpawns = errors.New("arena: no spawn points")

// Spawn 出生点；Angle 为弧度
type Spawn struct {
	X, Y  float64
	Angle float64
}

// Arena 矩形海域 [0,Width]x[0,Height]
type Arena struct {
	Width, Height float64
	Spawns        []Spawn

	next int
}

// Default 无地图时使用：四个出生点分布在四分位处，朝向中心
func Default(width, height float64) *Arena {
	a := &Arena{Width: width, Height: height}
	cx, cy := width/2, height/2
	for _, p := range [][2]float64{
		{width / 4, height / 4},
		{3 * width / 4, 3 * height / 4},
		{3 * width / 4, height / 4},
		{width / 4, 3 * height / 4},
	} {
		a.Spawns = append(a.Spawns, Spawn{X: p[0], Y: p[1], Angle: math.Atan2(cy-p[1], cx-p[0])})
	}
	return a
}

// Load 解析 TMX 文件。fsys 可以是 os.DirFS 或 embed.FS
func Load(fsys fs.FS, tmxPath string) (*Arena, error) {
	m, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	a := &Arena{
		Width:  float64(m.Width * m.TileWidth),
		Height: float64(m.Height * m.TileHeight),
	}
	for _, og := range m.ObjectGroups {
		if og.Name != SpawnLayer {
			continue
		}
		for _, o := range og.Objects {
			// heading 属性以角度填写，0 指向 +x
			deg := o.Properties.GetInt("heading")
			a.Spawns = append(a.Spawns, Spawn{
				X:     o.X,
				Y:     o.Y,
				Angle: float64(deg) * math.Pi / 180,
			})
		}
	}
	if len(a.Spawns) == 0 {
		return nil, fmt.Errorf("%s: %w", tmxPath, ErrNoSpawns)
	}
	return a, nil
}

// Contains 点是否在海域内（含边界）
func (a *Arena) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= a.Width && y <= a.Height
}

// NextSpawn 轮询分配出生点
func (a *Arena) NextSpawn() Spawn {
	if len(a.Spawns) == 0 {
		return Spawn{X: a.Width / 2, Y: a.Height / 2}
	}
	s := a.Spawns[a.next%len(a.Spawns)]
	a.next++
	return s
}

// Clone 每个房间持有独立的出生点轮询状态
func (a *Arena) Clone() *Arena {
	c := &Arena{Width: a.Width, Height: a.Height}
	c.Spawns = append([]Spawn(nil), a.Spawns...)
	return c
}
