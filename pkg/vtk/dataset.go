// Package vtk parses VTK family mesh datasets: the Legacy format in its
// ASCII and binary variants, and a minimal ASCII subset of the XML formats
// (.vtu, .vtp). Parsing is all-or-nothing per file; a failed parse never
// yields a partially populated Dataset.
package vtk

import "fmt"

// CellType is the standard VTK numeric cell-type code.
type CellType int32

// Supported VTK cell-type codes.
const (
	CellVertex            CellType = 1
	CellLine              CellType = 3
	CellTriangle          CellType = 5
	CellPolygon           CellType = 7
	CellQuad              CellType = 9
	CellTetra             CellType = 10
	CellHexahedron        CellType = 12
	CellWedge             CellType = 13
	CellPyramid           CellType = 14
	CellQuadraticTriangle CellType = 22
)

// String returns a human-readable cell type name.
func (c CellType) String() string {
	switch c {
	case CellVertex:
		return "Vertex"
	case CellLine:
		return "Line"
	case CellTriangle:
		return "Triangle"
	case CellPolygon:
		return "Polygon"
	case CellQuad:
		return "Quad"
	case CellTetra:
		return "Tetra"
	case CellHexahedron:
		return "Hexahedron"
	case CellWedge:
		return "Wedge"
	case CellPyramid:
		return "Pyramid"
	case CellQuadraticTriangle:
		return "QuadraticTriangle"
	default:
		return fmt.Sprintf("Unsupported(%d)", int32(c))
	}
}

// Supported reports whether the triangulator knows this cell type.
func (c CellType) Supported() bool {
	switch c {
	case CellVertex, CellLine, CellTriangle, CellPolygon, CellQuad,
		CellTetra, CellHexahedron, CellWedge, CellPyramid, CellQuadraticTriangle:
		return true
	}
	return false
}

// DatasetKind identifies the dataset geometry class.
type DatasetKind int

const (
	// UnstructuredGrid holds arbitrary-topology cells.
	UnstructuredGrid DatasetKind = iota
	// PolyData holds surface primitives (vertices, lines, polygons).
	PolyData
)

// String returns the VTK keyword for the kind.
func (k DatasetKind) String() string {
	if k == PolyData {
		return "POLYDATA"
	}
	return "UNSTRUCTURED_GRID"
}

// Cell is a topological element referencing point indices.
type Cell struct {
	Type   CellType
	Points []int32 // indices into Dataset.Points
}

// AttributeKind distinguishes the attribute sub-block it came from.
type AttributeKind int

const (
	// AttrScalar came from a SCALARS block.
	AttrScalar AttributeKind = iota
	// AttrColorScalar came from a COLOR_SCALARS block.
	AttrColorScalar
	// AttrVector came from a VECTORS block.
	AttrVector
)

// Attribute is a named data array aligned 1:1 with points or cells.
// Data is flattened with NumComp values per element.
type Attribute struct {
	Name    string
	Kind    AttributeKind
	NumComp int
	Data    []float32
}

// Count returns the number of elements in the attribute.
func (a *Attribute) Count() int {
	if a.NumComp == 0 {
		return 0
	}
	return len(a.Data) / a.NumComp
}

// ScalarAt returns the first component of element i.
func (a *Attribute) ScalarAt(i int) float32 {
	return a.Data[i*a.NumComp]
}

// VectorAt returns element i as a 3-vector. Missing components are zero.
func (a *Attribute) VectorAt(i int) [3]float32 {
	var v [3]float32
	base := i * a.NumComp
	for c := 0; c < a.NumComp && c < 3; c++ {
		v[c] = a.Data[base+c]
	}
	return v
}

// Dataset is a parsed VTK dataset: raw points, cells, and attributes.
type Dataset struct {
	Kind      DatasetKind
	Points    [][3]float32
	Cells     []Cell
	PointData []Attribute
	CellData  []Attribute
}

// PointScalars returns the first single-component scalar attribute on
// points, or nil if the dataset carries none.
func (d *Dataset) PointScalars() *Attribute {
	for i := range d.PointData {
		a := &d.PointData[i]
		if a.Kind == AttrScalar && a.NumComp == 1 {
			return a
		}
	}
	return nil
}

// CellScalars returns the first single-component scalar attribute on
// cells, or nil.
func (d *Dataset) CellScalars() *Attribute {
	for i := range d.CellData {
		a := &d.CellData[i]
		if a.Kind == AttrScalar && a.NumComp == 1 {
			return a
		}
	}
	return nil
}

// Validate checks the dataset invariants: every cell point index is a
// valid point id and every attribute length matches its owner count.
func (d *Dataset) Validate() error {
	np := int32(len(d.Points))
	for ci, cell := range d.Cells {
		for _, p := range cell.Points {
			if p < 0 || p >= np {
				return parseErrf(ErrTruncatedStream, 0,
					"cell %d references point %d of %d", ci, p, np)
			}
		}
	}
	for i := range d.PointData {
		a := &d.PointData[i]
		if a.Count() != len(d.Points) {
			return parseErrf(ErrAttributeSizeMismatch, 0,
				"point attribute %q has %d elements, want %d", a.Name, a.Count(), len(d.Points))
		}
	}
	for i := range d.CellData {
		a := &d.CellData[i]
		if a.Count() != len(d.Cells) {
			return parseErrf(ErrAttributeSizeMismatch, 0,
				"cell attribute %q has %d elements, want %d", a.Name, a.Count(), len(d.Cells))
		}
	}
	return nil
}
