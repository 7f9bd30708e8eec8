package mesh

import (
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/vtk"
)

// areaEps bounds the squared cross-product length below which a triangle
// counts as degenerate.
const areaEps = 1e-12

// Face tables for 3D cells, in the standard VTK point ordering. Quads are
// split along the fixed (0,2) diagonal. Winding follows the cell's point
// order so face normals point outward.
var (
	tetraFaces = [][3]int{
		{0, 1, 2}, {0, 2, 3}, {0, 3, 1}, {1, 3, 2},
	}
	hexaFaces = [][4]int{
		{0, 4, 7, 3}, {1, 2, 6, 5}, // -x +x
		{0, 1, 5, 4}, {3, 7, 6, 2}, // -y +y
		{0, 3, 2, 1}, {4, 5, 6, 7}, // -z +z
	}
	wedgeTriFaces  = [][3]int{{0, 2, 1}, {3, 4, 5}}
	wedgeQuadFaces = [][4]int{{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5}}
	pyramidBase    = [4]int{0, 3, 2, 1}
	pyramidSides   = [][3]int{{0, 1, 4}, {1, 2, 4}, {2, 3, 4}, {3, 0, 4}}
)

// Triangulation is a flat triangle list over dataset point ids, with the
// per-triangle source cell mapping and conversion counters.
type Triangulation struct {
	Triangles [][3]uint32
	CellOf    []int32

	Dropped     int // degenerate or too-short cells
	Unsupported int // unknown cell type codes
	Collapsed   int // vertex/line cells emitted as degenerate triangles
}

// Triangulate converts every dataset cell into triangles. Degenerate and
// unsupported cells are counted and skipped, never fatal.
func Triangulate(ds *vtk.Dataset) *Triangulation {
	t := &triangulator{points: ds.Points}
	for ci, cell := range ds.Cells {
		t.cell(int32(ci), cell)
	}
	return &t.Triangulation
}

type triangulator struct {
	Triangulation
	points [][3]float32
}

func (t *triangulator) pos(id int32) math.Vec3 {
	p := t.points[id]
	return math.Vec3{X: p[0], Y: p[1], Z: p[2]}
}

// emit appends one triangle unless it is geometrically degenerate.
func (t *triangulator) emit(cell int32, a, b, c int32) bool {
	n := t.pos(b).Sub(t.pos(a)).Cross(t.pos(c).Sub(t.pos(a)))
	if n.Dot(n) < areaEps {
		return false
	}
	t.Triangles = append(t.Triangles, [3]uint32{uint32(a), uint32(b), uint32(c)})
	t.CellOf = append(t.CellOf, cell)
	return true
}

// emitQuad splits a quad along the fixed (0,2) diagonal.
func (t *triangulator) emitQuad(cell int32, a, b, c, d int32) int {
	emitted := 0
	if t.emit(cell, a, b, c) {
		emitted++
	}
	if t.emit(cell, a, c, d) {
		emitted++
	}
	return emitted
}

// emitDegenerate appends a zero-area triangle for vertex and line cells,
// bypassing the degeneracy check. Rendered as points/lines by repetition.
func (t *triangulator) emitDegenerate(cell int32, a, b, c int32) {
	t.Triangles = append(t.Triangles, [3]uint32{uint32(a), uint32(b), uint32(c)})
	t.CellOf = append(t.CellOf, cell)
	t.Collapsed++
}

func (t *triangulator) cell(ci int32, cell vtk.Cell) {
	pts := cell.Points

	switch cell.Type {
	case vtk.CellVertex:
		if len(pts) < 1 {
			t.Dropped++
			return
		}
		t.emitDegenerate(ci, pts[0], pts[0], pts[0])

	case vtk.CellLine:
		if len(pts) < 2 {
			t.Dropped++
			return
		}
		t.emitDegenerate(ci, pts[0], pts[1], pts[1])

	case vtk.CellTriangle:
		if len(pts) != 3 || !t.emit(ci, pts[0], pts[1], pts[2]) {
			t.Dropped++
		}

	case vtk.CellQuad:
		if len(pts) != 4 || t.emitQuad(ci, pts[0], pts[1], pts[2], pts[3]) == 0 {
			t.Dropped++
		}

	case vtk.CellPolygon:
		t.polygon(ci, pts)

	case vtk.CellTetra:
		if len(pts) != 4 {
			t.Dropped++
			return
		}
		for _, f := range tetraFaces {
			t.emit(ci, pts[f[0]], pts[f[1]], pts[f[2]])
		}

	case vtk.CellHexahedron:
		if len(pts) != 8 {
			t.Dropped++
			return
		}
		for _, f := range hexaFaces {
			t.emitQuad(ci, pts[f[0]], pts[f[1]], pts[f[2]], pts[f[3]])
		}

	case vtk.CellWedge:
		if len(pts) != 6 {
			t.Dropped++
			return
		}
		for _, f := range wedgeTriFaces {
			t.emit(ci, pts[f[0]], pts[f[1]], pts[f[2]])
		}
		for _, f := range wedgeQuadFaces {
			t.emitQuad(ci, pts[f[0]], pts[f[1]], pts[f[2]], pts[f[3]])
		}

	case vtk.CellPyramid:
		if len(pts) != 5 {
			t.Dropped++
			return
		}
		t.emitQuad(ci, pts[pyramidBase[0]], pts[pyramidBase[1]], pts[pyramidBase[2]], pts[pyramidBase[3]])
		for _, f := range pyramidSides {
			t.emit(ci, pts[f[0]], pts[f[1]], pts[f[2]])
		}

	case vtk.CellQuadraticTriangle:
		// Corner vertices render the linear triangle; the edge midpoints
		// only matter for subdivision, which re-derives them.
		if len(pts) != 6 || !t.emit(ci, pts[0], pts[1], pts[2]) {
			t.Dropped++
		}

	default:
		t.Unsupported++
	}
}

// polygon triangulates an n-gon: fan for convex input, ear clipping
// otherwise.
func (t *triangulator) polygon(ci int32, pts []int32) {
	if len(pts) < 3 {
		t.Dropped++
		return
	}
	if len(pts) == 3 {
		if !t.emit(ci, pts[0], pts[1], pts[2]) {
			t.Dropped++
		}
		return
	}

	normal := t.newellNormal(pts)
	if normal.Dot(normal) < areaEps {
		t.Dropped++
		return
	}
	normal = normal.Normalize()

	if t.isConvex(pts, normal) {
		emitted := 0
		for i := 1; i < len(pts)-1; i++ {
			if t.emit(ci, pts[0], pts[i], pts[i+1]) {
				emitted++
			}
		}
		if emitted == 0 {
			t.Dropped++
		}
		return
	}

	t.earClip(ci, pts, normal)
}

// newellNormal computes the polygon normal by Newell's method; robust for
// non-convex and slightly non-planar polygons.
func (t *triangulator) newellNormal(pts []int32) math.Vec3 {
	var n math.Vec3
	for i := range pts {
		cur := t.pos(pts[i])
		next := t.pos(pts[(i+1)%len(pts)])
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// isConvex reports whether every corner turns the same way as the polygon
// normal.
func (t *triangulator) isConvex(pts []int32, normal math.Vec3) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		prev := t.pos(pts[(i+n-1)%n])
		cur := t.pos(pts[i])
		next := t.pos(pts[(i+1)%n])

		cross := cur.Sub(prev).Cross(next.Sub(cur))
		if cross.Dot(normal) < -1e-7 {
			return false
		}
	}
	return true
}

// earClip removes ears one at a time; O(n^2) worst case. If no ear can be
// found (numerically degenerate remainder) the rest is fanned so the loop
// always terminates.
func (t *triangulator) earClip(ci int32, pts []int32, normal math.Vec3) {
	work := make([]int32, len(pts))
	copy(work, pts)

	for len(work) > 3 {
		clipped := false
		for i := 0; i < len(work); i++ {
			n := len(work)
			prev := work[(i+n-1)%n]
			cur := work[i]
			next := work[(i+1)%n]

			if !t.isEar(work, prev, cur, next, normal) {
				continue
			}
			t.emit(ci, prev, cur, next)
			work = append(work[:i], work[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			for i := 1; i < len(work)-1; i++ {
				t.emit(ci, work[0], work[i], work[i+1])
			}
			return
		}
	}
	t.emit(ci, work[0], work[1], work[2])
}

// isEar reports whether (prev,cur,next) is a positive-area corner with no
// other polygon vertex inside it.
func (t *triangulator) isEar(work []int32, prev, cur, next int32, normal math.Vec3) bool {
	a := t.pos(prev)
	b := t.pos(cur)
	c := t.pos(next)

	cross := b.Sub(a).Cross(c.Sub(a))
	if cross.Dot(normal) < areaEps {
		return false // reflex or zero-area corner
	}

	for _, id := range work {
		if id == prev || id == cur || id == next {
			continue
		}
		if pointInTriangle(t.pos(id), a, b, c, normal) {
			return false
		}
	}
	return true
}

// pointInTriangle tests containment via same-side checks against the
// triangle plane normal.
func pointInTriangle(p, a, b, c, normal math.Vec3) bool {
	sameSide := func(p0, p1, e0, e1 math.Vec3) bool {
		edge := e1.Sub(e0)
		return edge.Cross(p0.Sub(e0)).Dot(normal)*edge.Cross(p1.Sub(e0)).Dot(normal) >= 0
	}
	return sameSide(p, c, a, b) && sameSide(p, a, b, c) && sameSide(p, b, c, a)
}
