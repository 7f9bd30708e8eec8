package lod

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/Faultbox/meshview/internal/engine/mesh"
	"github.com/Faultbox/meshview/pkg/math"
)

var (
	// ErrTargetOutOfRange reports a decimation target below the minimum
	// usable triangle count.
	ErrTargetOutOfRange = errors.New("lod: target triangle count out of range")

	// ErrCannotReach reports that no more edges could be collapsed
	// without destroying the surface.
	ErrCannotReach = errors.New("lod: cannot reach target triangle count")
)

// quadric is a symmetric 4x4 error matrix stored as its upper triangle.
type quadric [10]float32

func (q *quadric) add(o *quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// planeQuadric builds the quadric for the plane with unit normal n
// through point p.
func planeQuadric(n math.Vec3, p math.Vec3) quadric {
	d := -n.Dot(p)
	return quadric{
		n.X * n.X, n.X * n.Y, n.X * n.Z, n.X * d,
		n.Y * n.Y, n.Y * n.Z, n.Y * d,
		n.Z * n.Z, n.Z * d,
		d * d,
	}
}

// eval returns the squared plane-distance error of v under q.
func (q *quadric) eval(v math.Vec3) float32 {
	return q[0]*v.X*v.X + 2*q[1]*v.X*v.Y + 2*q[2]*v.X*v.Z + 2*q[3]*v.X +
		q[4]*v.Y*v.Y + 2*q[5]*v.Y*v.Z + 2*q[6]*v.Y +
		q[7]*v.Z*v.Z + 2*q[8]*v.Z +
		q[9]
}

type collapse struct {
	a, b    int
	cost    float32
	version uint32 // sum of vertex versions at push time, for lazy invalidation
}

type collapseHeap []collapse

func (h collapseHeap) Len() int            { return len(h) }
func (h collapseHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h collapseHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *collapseHeap) Push(x interface{}) { *h = append(*h, x.(collapse)) }
func (h *collapseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type decimator struct {
	verts    []mesh.Vertex
	tris     [][3]uint32
	cellOf   []int32
	quadrics []quadric
	versions []uint32
	parent   []int // union-find over collapsed vertices
	triAlive []bool
	alive    int
	heap     collapseHeap
}

// Decimate collapses the cheapest edges of m until at most target
// triangles remain, returning a new mesh. The input is not modified.
// Collapsed vertices move to the edge midpoint; scalars are averaged.
func Decimate(m *mesh.Mesh, target int) (*mesh.Mesh, error) {
	if target < 1 || target >= m.TriangleCount() {
		return nil, fmt.Errorf("%w: %d of %d", ErrTargetOutOfRange, target, m.TriangleCount())
	}

	d := newDecimator(m)
	for d.alive > target {
		if !d.collapseNext() {
			return nil, fmt.Errorf("%w: stuck at %d triangles", ErrCannotReach, d.alive)
		}
	}
	return d.compact(), nil
}

func newDecimator(m *mesh.Mesh) *decimator {
	d := &decimator{
		verts:    append([]mesh.Vertex(nil), m.Vertices...),
		tris:     append([][3]uint32(nil), m.Triangles...),
		cellOf:   append([]int32(nil), m.CellOf...),
		quadrics: make([]quadric, len(m.Vertices)),
		versions: make([]uint32, len(m.Vertices)),
		parent:   make([]int, len(m.Vertices)),
		triAlive: make([]bool, len(m.Triangles)),
		alive:    len(m.Triangles),
	}
	for i := range d.parent {
		d.parent[i] = i
	}

	for i, tri := range d.tris {
		d.triAlive[i] = true
		a := d.verts[tri[0]].Position
		b := d.verts[tri[1]].Position
		c := d.verts[tri[2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Length() == 0 {
			continue
		}
		q := planeQuadric(n.Normalize(), a)
		for _, vi := range tri {
			d.quadrics[vi].add(&q)
		}
	}

	seen := make(map[[2]int]struct{})
	for _, tri := range d.tris {
		for e := 0; e < 3; e++ {
			a, b := int(tri[e]), int(tri[(e+1)%3])
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			d.pushEdge(a, b)
		}
	}
	heap.Init(&d.heap)
	return d
}

func (d *decimator) find(v int) int {
	for d.parent[v] != v {
		d.parent[v] = d.parent[d.parent[v]]
		v = d.parent[v]
	}
	return v
}

func (d *decimator) pushEdge(a, b int) {
	mid := d.verts[a].Position.Mid(d.verts[b].Position)
	q := d.quadrics[a]
	q.add(&d.quadrics[b])
	d.heap = append(d.heap, collapse{
		a:       a,
		b:       b,
		cost:    q.eval(mid),
		version: d.versions[a] + d.versions[b],
	})
}

// collapseNext pops candidates until a live, up-to-date edge is found
// and collapses it. Returns false when the heap runs dry.
func (d *decimator) collapseNext() bool {
	for d.heap.Len() > 0 {
		c := heap.Pop(&d.heap).(collapse)
		a, b := d.find(c.a), d.find(c.b)
		if a == b {
			continue
		}
		if c.version != d.versions[a]+d.versions[b] || c.a != a || c.b != b {
			// stale entry, re-evaluate against current geometry
			na, nb := a, b
			if na > nb {
				na, nb = nb, na
			}
			mid := d.verts[na].Position.Mid(d.verts[nb].Position)
			q := d.quadrics[na]
			q.add(&d.quadrics[nb])
			heap.Push(&d.heap, collapse{
				a:       na,
				b:       nb,
				cost:    q.eval(mid),
				version: d.versions[na] + d.versions[nb],
			})
			continue
		}

		d.doCollapse(a, b)
		return true
	}
	return false
}

func (d *decimator) doCollapse(a, b int) {
	va, vb := &d.verts[a], &d.verts[b]
	va.Position = va.Position.Mid(vb.Position)
	va.Scalar = (va.Scalar + vb.Scalar) / 2
	qb := d.quadrics[b]
	d.quadrics[a].add(&qb)

	d.parent[b] = a
	d.versions[a]++

	// kill triangles that lost an edge and re-key survivors touching a
	for ti, tri := range d.tris {
		if !d.triAlive[ti] {
			continue
		}
		r0 := d.find(int(tri[0]))
		r1 := d.find(int(tri[1]))
		r2 := d.find(int(tri[2]))
		if r0 == r1 || r1 == r2 || r2 == r0 {
			d.triAlive[ti] = false
			d.alive--
			continue
		}
		if r0 == a || r1 == a || r2 == a {
			d.pushEdges(ti, r0, r1, r2)
		}
	}
}

func (d *decimator) pushEdges(ti, r0, r1, r2 int) {
	for _, e := range [3][2]int{{r0, r1}, {r1, r2}, {r2, r0}} {
		a, b := e[0], e[1]
		if a > b {
			a, b = b, a
		}
		mid := d.verts[a].Position.Mid(d.verts[b].Position)
		q := d.quadrics[a]
		q.add(&d.quadrics[b])
		heap.Push(&d.heap, collapse{
			a:       a,
			b:       b,
			cost:    q.eval(mid),
			version: d.versions[a] + d.versions[b],
		})
	}
}

// compact rebuilds a dense mesh from the surviving vertices and
// triangles.
func (d *decimator) compact() *mesh.Mesh {
	remap := make(map[int]uint32)
	out := &mesh.Mesh{}

	for ti, tri := range d.tris {
		if !d.triAlive[ti] {
			continue
		}
		var idx [3]uint32
		for k := 0; k < 3; k++ {
			root := d.find(int(tri[k]))
			ni, ok := remap[root]
			if !ok {
				ni = uint32(len(out.Vertices))
				remap[root] = ni
				out.Vertices = append(out.Vertices, d.verts[root])
			}
			idx[k] = ni
		}
		out.Triangles = append(out.Triangles, idx)
		if ti < len(d.cellOf) {
			out.CellOf = append(out.CellOf, d.cellOf[ti])
		}
	}

	out.ComputeNormals()
	return out
}
