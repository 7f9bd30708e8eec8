package mesh

import (
	"errors"
	"fmt"
)

// MaxSubdivisionPasses bounds refinement: each pass multiplies the
// triangle count by 4.
const MaxSubdivisionPasses = 6

// maxSubdividedTriangles caps the output size so dense inputs cannot grow
// without bound.
const maxSubdividedTriangles = 4 << 20

// Subdivision errors. These indicate invariant violations or out-of-range
// requests, not bad input data.
var (
	ErrPassesOutOfRange = errors.New("subdivision pass count out of range")
	ErrMeshTooDense     = errors.New("subdivision would exceed triangle limit")
	ErrInvalidTopology  = errors.New("invalid mesh topology")
)

// Subdivide returns a new mesh refined by the given number of 1-to-4
// passes. Each triangle edge gets exactly one shared midpoint vertex whose
// position and scalar are the average of the edge endpoints, so shared
// edges never produce duplicate vertices and the surface stays crack-free.
// The input mesh is not modified.
func Subdivide(m *Mesh, passes int) (*Mesh, error) {
	if passes < 0 || passes > MaxSubdivisionPasses {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrPassesOutOfRange, passes, MaxSubdivisionPasses)
	}

	cur := m
	for p := 0; p < passes; p++ {
		if len(cur.Triangles)*4 > maxSubdividedTriangles {
			return nil, fmt.Errorf("%w: pass %d would produce %d triangles",
				ErrMeshTooDense, p+1, len(cur.Triangles)*4)
		}
		next, err := subdivideOnce(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	if cur == m {
		// Zero passes: still hand back a fresh copy so the caller owns it.
		cur = &Mesh{
			Vertices:  append([]Vertex(nil), m.Vertices...),
			Triangles: append([][3]uint32(nil), m.Triangles...),
			CellOf:    append([]int32(nil), m.CellOf...),
		}
	}
	cur.ComputeNormals()
	return cur, nil
}

// edgeKey is an unordered vertex-id pair.
type edgeKey struct {
	lo, hi uint32
}

func makeEdgeKey(a, b uint32) edgeKey {
	if a < b {
		return edgeKey{a, b}
	}
	return edgeKey{b, a}
}

// subdivideOnce performs one 1-to-4 split of every triangle.
func subdivideOnce(m *Mesh) (*Mesh, error) {
	nv := uint32(len(m.Vertices))
	for _, tri := range m.Triangles {
		if tri[0] >= nv || tri[1] >= nv || tri[2] >= nv {
			return nil, fmt.Errorf("%w: triangle references vertex %v of %d",
				ErrInvalidTopology, tri, nv)
		}
	}

	out := &Mesh{
		Vertices:  append(make([]Vertex, 0, len(m.Vertices)*2), m.Vertices...),
		Triangles: make([][3]uint32, 0, len(m.Triangles)*4),
		CellOf:    make([]int32, 0, len(m.CellOf)*4),
	}
	midpoints := make(map[edgeKey]uint32, len(m.Triangles)*3/2)

	midpoint := func(a, b uint32) uint32 {
		key := makeEdgeKey(a, b)
		if id, ok := midpoints[key]; ok {
			return id
		}
		va, vb := &out.Vertices[a], &out.Vertices[b]
		id := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, Vertex{
			Position: va.Position.Mid(vb.Position),
			Scalar:   (va.Scalar + vb.Scalar) * 0.5,
		})
		midpoints[key] = id
		return id
	}

	for ti, tri := range m.Triangles {
		v0, v1, v2 := tri[0], tri[1], tri[2]
		m01 := midpoint(v0, v1)
		m12 := midpoint(v1, v2)
		m20 := midpoint(v2, v0)

		var cell int32
		if ti < len(m.CellOf) {
			cell = m.CellOf[ti]
		}
		out.Triangles = append(out.Triangles,
			[3]uint32{v0, m01, m20},
			[3]uint32{m01, v1, m12},
			[3]uint32{m20, m12, v2},
			[3]uint32{m01, m12, m20},
		)
		out.CellOf = append(out.CellOf, cell, cell, cell, cell)
	}
	return out, nil
}
