package mesh

import (
	"testing"

	"github.com/Faultbox/meshview/pkg/math"
	"github.com/Faultbox/meshview/pkg/vtk"
)

// polygonDataset builds a single-cell polygon dataset in the z=0 plane.
func polygonDataset(coords [][3]float32) *vtk.Dataset {
	ids := make([]int32, len(coords))
	for i := range ids {
		ids[i] = int32(i)
	}
	return &vtk.Dataset{
		Kind:   vtk.PolyData,
		Points: coords,
		Cells:  []vtk.Cell{{Type: vtk.CellPolygon, Points: ids}},
	}
}

// triangleArea returns the area of triangle (a,b,c).
func triangleArea(a, b, c math.Vec3) float32 {
	return b.Sub(a).Cross(c.Sub(a)).Length() * 0.5
}

func meshArea(t *Triangulation, pts [][3]float32) float32 {
	vec := func(id uint32) math.Vec3 {
		p := pts[id]
		return math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}
	var sum float32
	for _, tri := range t.Triangles {
		sum += triangleArea(vec(tri[0]), vec(tri[1]), vec(tri[2]))
	}
	return sum
}

func TestTriangulate_ConvexPolygonFan(t *testing.T) {
	// Regular hexagon with unit circumradius: area = 3*sqrt(3)/2.
	coords := [][3]float32{
		{1, 0, 0}, {0.5, 0.8660254, 0}, {-0.5, 0.8660254, 0},
		{-1, 0, 0}, {-0.5, -0.8660254, 0}, {0.5, -0.8660254, 0},
	}
	tri := Triangulate(polygonDataset(coords))

	if got, want := len(tri.Triangles), len(coords)-2; got != want {
		t.Fatalf("triangle count = %d, want n-2 = %d", got, want)
	}

	const hexArea = 2.5980762
	if got := meshArea(tri, coords); got < hexArea-1e-4 || got > hexArea+1e-4 {
		t.Errorf("summed area = %v, want %v", got, hexArea)
	}
}

func TestTriangulate_NonConvexPolygon(t *testing.T) {
	// An L-shape: 6 vertices, one reflex corner, area 3.
	coords := [][3]float32{
		{0, 0, 0}, {2, 0, 0}, {2, 1, 0}, {1, 1, 0}, {1, 2, 0}, {0, 2, 0},
	}
	tri := Triangulate(polygonDataset(coords))

	if got, want := len(tri.Triangles), 4; got != want {
		t.Fatalf("triangle count = %d, want %d", got, want)
	}
	if got := meshArea(tri, coords); got < 3-1e-4 || got > 3+1e-4 {
		t.Errorf("summed area = %v, want 3", got)
	}
	if tri.Dropped != 0 {
		t.Errorf("dropped = %d, want 0", tri.Dropped)
	}
}

func TestTriangulate_Tetra(t *testing.T) {
	ds := &vtk.Dataset{
		Kind: vtk.UnstructuredGrid,
		Points: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		},
		Cells: []vtk.Cell{{Type: vtk.CellTetra, Points: []int32{0, 1, 2, 3}}},
	}
	tri := Triangulate(ds)

	if len(tri.Triangles) != 4 {
		t.Fatalf("tetra produced %d triangles, want 4 faces", len(tri.Triangles))
	}

	// Each face references 3 distinct input points; collectively every
	// point appears at least twice.
	seen := map[uint32]int{}
	for _, face := range tri.Triangles {
		if face[0] == face[1] || face[1] == face[2] || face[0] == face[2] {
			t.Errorf("face %v repeats a point", face)
		}
		for _, id := range face {
			if id > 3 {
				t.Errorf("face references unknown point %d", id)
			}
			seen[id]++
		}
	}
	for id := uint32(0); id < 4; id++ {
		if seen[id] < 2 {
			t.Errorf("point %d covered %d times, want >= 2", id, seen[id])
		}
	}
}

func TestTriangulate_CellMix(t *testing.T) {
	pts := [][3]float32{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, // quad in z=0
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}, // top of hexa
	}

	tests := []struct {
		name      string
		cell      vtk.Cell
		wantTris  int
		wantDrop  int
		wantUnsup int
	}{
		{
			name:     "triangle passthrough",
			cell:     vtk.Cell{Type: vtk.CellTriangle, Points: []int32{0, 1, 2}},
			wantTris: 1,
		},
		{
			name:     "quad split",
			cell:     vtk.Cell{Type: vtk.CellQuad, Points: []int32{0, 1, 2, 3}},
			wantTris: 2,
		},
		{
			name:     "hexahedron faces",
			cell:     vtk.Cell{Type: vtk.CellHexahedron, Points: []int32{0, 1, 2, 3, 4, 5, 6, 7}},
			wantTris: 12,
		},
		{
			name:     "wedge faces",
			cell:     vtk.Cell{Type: vtk.CellWedge, Points: []int32{0, 1, 2, 4, 5, 6}},
			wantTris: 8,
		},
		{
			name:     "pyramid faces",
			cell:     vtk.Cell{Type: vtk.CellPyramid, Points: []int32{0, 1, 2, 3, 6}},
			wantTris: 6,
		},
		{
			name:     "degenerate collinear triangle",
			cell:     vtk.Cell{Type: vtk.CellTriangle, Points: []int32{0, 1, 1}},
			wantDrop: 1,
		},
		{
			name:      "unsupported code",
			cell:      vtk.Cell{Type: vtk.CellType(42), Points: []int32{0, 1, 2}},
			wantUnsup: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &vtk.Dataset{Points: pts, Cells: []vtk.Cell{tt.cell}}
			tri := Triangulate(ds)
			if len(tri.Triangles) != tt.wantTris {
				t.Errorf("triangles = %d, want %d", len(tri.Triangles), tt.wantTris)
			}
			if tri.Dropped != tt.wantDrop {
				t.Errorf("dropped = %d, want %d", tri.Dropped, tt.wantDrop)
			}
			if tri.Unsupported != tt.wantUnsup {
				t.Errorf("unsupported = %d, want %d", tri.Unsupported, tt.wantUnsup)
			}
		})
	}
}

func TestTriangulate_VertexAndLineCollapse(t *testing.T) {
	ds := &vtk.Dataset{
		Points: [][3]float32{{0, 0, 0}, {1, 0, 0}},
		Cells: []vtk.Cell{
			{Type: vtk.CellVertex, Points: []int32{0}},
			{Type: vtk.CellLine, Points: []int32{0, 1}},
		},
	}
	tri := Triangulate(ds)
	if len(tri.Triangles) != 2 || tri.Collapsed != 2 {
		t.Errorf("triangles = %d, collapsed = %d, want 2 and 2", len(tri.Triangles), tri.Collapsed)
	}
}

func TestTriangulate_CellMapping(t *testing.T) {
	ds := &vtk.Dataset{
		Points: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Cells: []vtk.Cell{
			{Type: vtk.CellTriangle, Points: []int32{0, 1, 2}},
			{Type: vtk.CellQuad, Points: []int32{0, 1, 2, 3}},
		},
	}
	tri := Triangulate(ds)
	want := []int32{0, 1, 1}
	if len(tri.CellOf) != len(want) {
		t.Fatalf("mapping = %v, want %v", tri.CellOf, want)
	}
	for i, c := range want {
		if tri.CellOf[i] != c {
			t.Errorf("CellOf[%d] = %d, want %d", i, tri.CellOf[i], c)
		}
	}
}

func TestTriangulate_WindingConsistency(t *testing.T) {
	// Both quad halves must face the same way as the source orientation.
	ds := &vtk.Dataset{
		Points: [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Cells:  []vtk.Cell{{Type: vtk.CellQuad, Points: []int32{0, 1, 2, 3}}},
	}
	tri := Triangulate(ds)
	if len(tri.Triangles) != 2 {
		t.Fatalf("triangles = %d", len(tri.Triangles))
	}
	for i, face := range tri.Triangles {
		a := math.Vec3{X: ds.Points[face[0]][0], Y: ds.Points[face[0]][1]}
		b := math.Vec3{X: ds.Points[face[1]][0], Y: ds.Points[face[1]][1]}
		c := math.Vec3{X: ds.Points[face[2]][0], Y: ds.Points[face[2]][1]}
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Z <= 0 {
			t.Errorf("triangle %d winds against the source orientation (normal %+v)", i, n)
		}
	}
}
