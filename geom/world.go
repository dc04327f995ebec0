// Package geom 碰撞适配层：resolv Space 负责粗检（网格），Object 上挂的 ConvexPolygon/Circle 负责精检。
// 不支持并发，归房间 Tick 协程独占。
package geom

import (
	"math"
	"sort"

	"github.com/kvartborg/vector"
	"github.com/solarlune/resolv"
)

const (
	TagShip       = "ship"
	TagCannonball = "cannonball"
)

type body struct {
	obj *resolv.Object

	// 圆体 halfW == halfH == radius
	halfW, halfH float64
	circle       bool
}

// World 持有所有注册形体及其姿态
type World struct {
	space  *resolv.Space
	bodies map[string]*body
}

// NewWorld width/height 为海域尺寸，cellSize 为粗检网格边长
func NewWorld(width, height, cellSize int) *World {
	return &World{
		space:  resolv.NewSpace(width, height, cellSize, cellSize),
		bodies: make(map[string]*body),
	}
}

// AddBox 注册一个以中心为原点的矩形（船体）；重复 id 会替换旧形体
func (w *World) AddBox(id string, halfW, halfH float64, tag string) {
	shape := resolv.NewConvexPolygon(0, 0,
		-halfW, -halfH,
		halfW, -halfH,
		halfW, halfH,
		-halfW, halfH,
	)
	w.insert(id, &body{halfW: halfW, halfH: halfH}, shape, tag)
}

// AddCircle 注册一个圆（炮弹）
func (w *World) AddCircle(id string, radius float64, tag string) {
	w.insert(id, &body{halfW: radius, halfH: radius, circle: true}, resolv.NewCircle(0, 0, radius), tag)
}

func (w *World) insert(id string, b *body, shape resolv.IShape, tag string) {
	w.Remove(id)
	b.obj = resolv.NewObject(0, 0, 2*b.halfW, 2*b.halfH, tag)
	b.obj.Data = id
	b.obj.SetShape(shape)
	w.space.Add(b.obj)
	w.bodies[id] = b
	w.place(b, 0, 0, 0)
}

// SetPose 更新位置与朝向（弧度），同步粗检网格与精检形状
func (w *World) SetPose(id string, x, y, angle float64) {
	if b, ok := w.bodies[id]; ok {
		w.place(b, x, y, angle)
	}
}

func (w *World) place(b *body, x, y, angle float64) {
	ex, ey := b.halfW, b.halfH
	if !b.circle {
		// resolv 的 Transformed 按 -rotation 旋转顶点
		angle = math.Remainder(angle, 2*math.Pi)
		b.obj.Shape.SetRotation(-angle)
		cos, sin := math.Abs(math.Cos(angle)), math.Abs(math.Sin(angle))
		ex, ey = cos*b.halfW+sin*b.halfH, sin*b.halfW+cos*b.halfH
	}
	b.obj.X, b.obj.Y = x-ex, y-ey
	b.obj.W, b.obj.H = 2*ex, 2*ey
	b.obj.Update()
	// Update 把形状放到包围盒左上角，精检形状以中心为原点
	b.obj.Shape.SetPosition(x, y)
}

// Remove 注销形体，未知 id 忽略
func (w *World) Remove(id string) {
	b, ok := w.bodies[id]
	if !ok {
		return
	}
	w.space.Remove(b.obj)
	delete(w.bodies, id)
}

func (w *World) Has(id string) bool {
	_, ok := w.bodies[id]
	return ok
}

// Len 已注册形体数量
func (w *World) Len() int {
	return len(w.bodies)
}

// Overlaps 两个已注册形体当前是否重叠；任一未知返回 false
func (w *World) Overlaps(a, b string) bool {
	ba, ok := w.bodies[a]
	if !ok {
		return false
	}
	bb, ok := w.bodies[b]
	if !ok || ba == bb {
		return false
	}
	return overlap(ba.obj.Shape, bb.obj.Shape)
}

// Query 返回与 id 重叠且带 tag 的形体 id（已排序）
func (w *World) Query(id, tag string) []string {
	b, ok := w.bodies[id]
	if !ok {
		return nil
	}
	check := b.obj.Check(0, 0, tag)
	if check == nil {
		return nil
	}
	var hits []string
	for _, o := range check.Objects {
		other, ok := o.Data.(string)
		if !ok || other == id {
			continue
		}
		if overlap(b.obj.Shape, o.Shape) {
			hits = append(hits, other)
		}
	}
	sort.Strings(hits)
	return hits
}

// overlap resolv 的 Intersection 只收集边与边的交点，一方完全落在另一方内部时返回 nil，需补包含判断
func overlap(a, b resolv.IShape) bool {
	if a.Intersection(0, 0, b) != nil {
		return true
	}
	return contains(a, b) || contains(b, a)
}

func contains(outer, inner resolv.IShape) bool {
	switch in := inner.(type) {
	case *resolv.Circle:
		return pointInside(outer, vector.Vector{in.X, in.Y})
	case *resolv.ConvexPolygon:
		// ContainedBy 对圆恒为 true，只用于多边形
		if op, ok := outer.(*resolv.ConvexPolygon); ok {
			return in.ContainedBy(op)
		}
		return pointInside(outer, in.Center())
	}
	return false
}

func pointInside(s resolv.IShape, p vector.Vector) bool {
	switch s := s.(type) {
	case *resolv.Circle:
		return s.PointInside(p)
	case *resolv.ConvexPolygon:
		return s.PointInside(p)
	}
	return false
}
