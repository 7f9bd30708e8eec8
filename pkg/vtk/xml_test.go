package vtk

import (
	"errors"
	"testing"
)

const vtuTwoTriangles = `<?xml version="1.0"?>
<VTKFile type="UnstructuredGrid" version="0.1" byte_order="LittleEndian">
  <UnstructuredGrid>
    <Piece NumberOfPoints="4" NumberOfCells="2">
      <Points>
        <DataArray type="Float32" NumberOfComponents="3" format="ascii">
          0 0 0  1 0 0  1 1 0  0 1 0
        </DataArray>
      </Points>
      <Cells>
        <DataArray type="Int32" Name="connectivity" format="ascii">
          0 1 2  0 2 3
        </DataArray>
        <DataArray type="Int32" Name="offsets" format="ascii">
          3 6
        </DataArray>
        <DataArray type="UInt8" Name="types" format="ascii">
          5 5
        </DataArray>
      </Cells>
      <PointData>
        <DataArray type="Float32" Name="temperature" format="ascii">
          0 1 2 3
        </DataArray>
      </PointData>
    </Piece>
  </UnstructuredGrid>
</VTKFile>
`

func TestParseXML_UnstructuredGrid(t *testing.T) {
	ds, err := ParseXML([]byte(vtuTwoTriangles))
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}

	if ds.Kind != UnstructuredGrid {
		t.Errorf("kind = %v", ds.Kind)
	}
	if len(ds.Points) != 4 {
		t.Errorf("point count = %d, want 4", len(ds.Points))
	}
	if len(ds.Cells) != 2 {
		t.Fatalf("cell count = %d, want 2", len(ds.Cells))
	}
	for i, cell := range ds.Cells {
		if cell.Type != CellTriangle || len(cell.Points) != 3 {
			t.Errorf("cell %d = %+v, want triangle", i, cell)
		}
	}
	s := ds.PointScalars()
	if s == nil || s.Count() != 4 {
		t.Fatalf("point scalars = %+v", s)
	}
	if s.ScalarAt(2) != 2 {
		t.Errorf("scalar 2 = %v", s.ScalarAt(2))
	}
}

const vtpQuad = `<?xml version="1.0"?>
<VTKFile type="PolyData">
  <PolyData>
    <Piece NumberOfPoints="4" NumberOfPolys="1">
      <Points>
        <DataArray NumberOfComponents="3">0 0 0 1 0 0 1 1 0 0 1 0</DataArray>
      </Points>
      <Polys>
        <DataArray Name="connectivity">0 1 2 3</DataArray>
        <DataArray Name="offsets">4</DataArray>
      </Polys>
    </Piece>
  </PolyData>
</VTKFile>
`

func TestParseXML_PolyData(t *testing.T) {
	ds, err := ParseXML([]byte(vtpQuad))
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}
	if ds.Kind != PolyData {
		t.Errorf("kind = %v", ds.Kind)
	}
	if len(ds.Cells) != 1 || ds.Cells[0].Type != CellPolygon || len(ds.Cells[0].Points) != 4 {
		t.Errorf("cells = %+v", ds.Cells)
	}
}

func TestParseXML_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "compressed",
			input: `<VTKFile type="UnstructuredGrid" compressor="vtkZLibDataCompressor"><UnstructuredGrid/></VTKFile>`,
		},
		{
			name:  "appended data",
			input: `<VTKFile type="UnstructuredGrid"><UnstructuredGrid/><AppendedData encoding="raw">_</AppendedData></VTKFile>`,
		},
		{
			name: "binary data array",
			input: `<VTKFile type="PolyData"><PolyData><Piece NumberOfPoints="1">
			<Points><DataArray NumberOfComponents="3" format="binary">AAAA</DataArray></Points>
			</Piece></PolyData></VTKFile>`,
		},
		{
			name:  "multiblock",
			input: `<VTKFile type="vtkMultiBlockDataSet"></VTKFile>`,
		},
		{
			name: "multiple pieces",
			input: `<VTKFile type="PolyData"><PolyData><Piece NumberOfPoints="0"></Piece>
			<Piece NumberOfPoints="0"></Piece></PolyData></VTKFile>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseXML([]byte(tt.input))
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("err = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestParseXML_VectorAttribute(t *testing.T) {
	input := `<VTKFile type="PolyData"><PolyData><Piece NumberOfPoints="2">
	<Points><DataArray NumberOfComponents="3">0 0 0 1 1 1</DataArray></Points>
	<PointData>
	<DataArray Name="velocity" NumberOfComponents="3">1 0 0 0 0 2</DataArray>
	</PointData>
	</Piece></PolyData></VTKFile>`

	ds, err := ParseXML([]byte(input))
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}
	if len(ds.PointData) != 1 {
		t.Fatalf("attribute count = %d", len(ds.PointData))
	}
	a := &ds.PointData[0]
	if a.Kind != AttrVector || a.VectorAt(1) != [3]float32{0, 0, 2} {
		t.Errorf("vector attribute = %+v", a)
	}
}
