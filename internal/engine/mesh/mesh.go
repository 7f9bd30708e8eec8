// Package mesh converts parsed VTK datasets into renderable triangle
// meshes and provides topology-preserving refinement.
package mesh

import (
	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/vtk"
	"github.com/chewxy/math32"
)

// Vertex is a renderable mesh vertex.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	Scalar   float32
}

// Mesh is an indexed triangle mesh. Vertices of a freshly built mesh map
// 1:1 onto dataset points; subdivision appends midpoint vertices.
type Mesh struct {
	Vertices  []Vertex
	Triangles [][3]uint32

	// CellOf maps each triangle to the dataset cell it came from, so
	// cell attributes can be applied after conversion.
	CellOf []int32
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// Bounds returns the center and diagonal size of the axis-aligned
// bounding box.
func (m *Mesh) Bounds() (center math.Vec3, size float32) {
	if len(m.Vertices) == 0 {
		return math.Vec3{}, 0
	}

	min := m.Vertices[0].Position
	max := min
	for i := 1; i < len(m.Vertices); i++ {
		p := m.Vertices[i].Position
		min.X = math32.Min(min.X, p.X)
		min.Y = math32.Min(min.Y, p.Y)
		min.Z = math32.Min(min.Z, p.Z)
		max.X = math32.Max(max.X, p.X)
		max.Y = math32.Max(max.Y, p.Y)
		max.Z = math32.Max(max.Z, p.Z)
	}
	return min.Add(max).Scale(0.5), max.Sub(min).Length()
}

// ScalarRange returns the min and max scalar over all vertices.
func (m *Mesh) ScalarRange() (lo, hi float32) {
	if len(m.Vertices) == 0 {
		return 0, 0
	}
	lo, hi = m.Vertices[0].Scalar, m.Vertices[0].Scalar
	for i := 1; i < len(m.Vertices); i++ {
		s := m.Vertices[i].Scalar
		lo = math32.Min(lo, s)
		hi = math32.Max(hi, s)
	}
	return lo, hi
}

// Scalars returns a copy of the per-vertex scalar values.
func (m *Mesh) Scalars() []float32 {
	out := make([]float32, len(m.Vertices))
	for i := range m.Vertices {
		out[i] = m.Vertices[i].Scalar
	}
	return out
}

// SetScalars replaces the per-vertex scalar values in place. The length
// must match the vertex count.
func (m *Mesh) SetScalars(scalars []float32) {
	for i := range m.Vertices {
		m.Vertices[i].Scalar = scalars[i]
	}
}

// ComputeNormals recomputes vertex normals by accumulating area-weighted
// triangle normals, matching the source winding.
func (m *Mesh) ComputeNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = math.Vec3{}
	}
	for _, tri := range m.Triangles {
		p0 := m.Vertices[tri[0]].Position
		p1 := m.Vertices[tri[1]].Position
		p2 := m.Vertices[tri[2]].Position

		// Cross product length is twice the area, so accumulating the
		// raw cross weights by triangle size.
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		m.Vertices[tri[0]].Normal = m.Vertices[tri[0]].Normal.Add(n)
		m.Vertices[tri[1]].Normal = m.Vertices[tri[1]].Normal.Add(n)
		m.Vertices[tri[2]].Normal = m.Vertices[tri[2]].Normal.Add(n)
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
	}
}

// BuildResult is a built mesh plus conversion statistics.
type BuildResult struct {
	Mesh        *Mesh
	Dropped     int // degenerate cells discarded
	Unsupported int // cells with unknown type codes discarded
}

// Build converts a dataset into a triangle mesh: cells are triangulated,
// point scalars (or cell scalars spread to vertices, or vector magnitudes)
// populate the per-vertex scalar field, and normals are computed.
func Build(ds *vtk.Dataset) *BuildResult {
	tri := Triangulate(ds)

	m := &Mesh{
		Vertices:  make([]Vertex, len(ds.Points)),
		Triangles: tri.Triangles,
		CellOf:    tri.CellOf,
	}
	for i, p := range ds.Points {
		m.Vertices[i].Position = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}

	applyScalars(m, ds)
	m.ComputeNormals()

	return &BuildResult{
		Mesh:        m,
		Dropped:     tri.Dropped,
		Unsupported: tri.Unsupported,
	}
}

// VertexColors extracts direct per-vertex RGB from the first
// COLOR_SCALARS attribute with at least three components, bypassing the
// colormap. Cell-located colors are spread to each triangle's vertices
// through CellOf. Returns nil when the dataset carries no colors.
func VertexColors(m *Mesh, ds *vtk.Dataset) []float32 {
	pick := func(attrs []vtk.Attribute) *vtk.Attribute {
		for i := range attrs {
			if attrs[i].Kind == vtk.AttrColorScalar && attrs[i].NumComp >= 3 {
				return &attrs[i]
			}
		}
		return nil
	}

	if a := pick(ds.PointData); a != nil {
		out := make([]float32, len(m.Vertices)*3)
		for i := 0; i < len(m.Vertices) && i < a.Count(); i++ {
			base := i * a.NumComp
			copy(out[i*3:i*3+3], a.Data[base:base+3])
		}
		return out
	}

	a := pick(ds.CellData)
	if a == nil {
		return nil
	}
	out := make([]float32, len(m.Vertices)*3)
	for ti, tri := range m.Triangles {
		cell := int(m.CellOf[ti])
		if cell >= a.Count() {
			continue
		}
		base := cell * a.NumComp
		for _, vi := range tri {
			copy(out[vi*3:vi*3+3], a.Data[base:base+3])
		}
	}
	return out
}

// applyScalars fills the vertex scalar field from the best available
// attribute: point scalars first, then cell scalars spread through the
// triangle-to-cell mapping, then point vector magnitudes.
func applyScalars(m *Mesh, ds *vtk.Dataset) {
	if s := ds.PointScalars(); s != nil {
		for i := range m.Vertices {
			m.Vertices[i].Scalar = s.ScalarAt(i)
		}
		return
	}

	if s := ds.CellScalars(); s != nil {
		for ti, tri := range m.Triangles {
			cell := m.CellOf[ti]
			if int(cell) >= s.Count() {
				continue
			}
			v := s.ScalarAt(int(cell))
			m.Vertices[tri[0]].Scalar = v
			m.Vertices[tri[1]].Scalar = v
			m.Vertices[tri[2]].Scalar = v
		}
		return
	}

	for i := range ds.PointData {
		a := &ds.PointData[i]
		if a.Kind != vtk.AttrVector {
			continue
		}
		for vi := range m.Vertices {
			vec := a.VectorAt(vi)
			m.Vertices[vi].Scalar = math32.Sqrt(vec[0]*vec[0] + vec[1]*vec[1] + vec[2]*vec[2])
		}
		return
	}
}
