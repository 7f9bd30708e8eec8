package vtk

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// The XML subset contract: Points, Cells/Polys connectivity and offsets,
// and PointData/CellData arrays, all as plain ASCII numeric text. Anything
// needing compressed or appended binary payloads is rejected.

type xmlFile struct {
	XMLName          xml.Name       `xml:"VTKFile"`
	Type             string         `xml:"type,attr"`
	Compressor       string         `xml:"compressor,attr"`
	UnstructuredGrid *xmlGrid       `xml:"UnstructuredGrid"`
	PolyData         *xmlGrid       `xml:"PolyData"`
	AppendedData     *xmlRawSection `xml:"AppendedData"`
}

type xmlRawSection struct{}

type xmlGrid struct {
	Pieces []xmlPiece `xml:"Piece"`
}

type xmlPiece struct {
	NumberOfPoints int            `xml:"NumberOfPoints,attr"`
	NumberOfCells  int            `xml:"NumberOfCells,attr"`
	NumberOfPolys  int            `xml:"NumberOfPolys,attr"`
	Points         *xmlDataArrays `xml:"Points"`
	Cells          *xmlDataArrays `xml:"Cells"`
	Polys          *xmlDataArrays `xml:"Polys"`
	PointData      *xmlDataArrays `xml:"PointData"`
	CellData       *xmlDataArrays `xml:"CellData"`
}

type xmlDataArrays struct {
	Arrays []xmlDataArray `xml:"DataArray"`
}

type xmlDataArray struct {
	Name               string `xml:"Name,attr"`
	Format             string `xml:"format,attr"`
	NumberOfComponents string `xml:"NumberOfComponents,attr"`
	Text               string `xml:",chardata"`
}

func (a *xmlDataArray) components() int {
	n, err := strconv.Atoi(a.NumberOfComponents)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// floats parses the array body as whitespace-separated numbers.
func (a *xmlDataArray) floats() ([]float32, error) {
	if a.Format != "" && a.Format != "ascii" {
		return nil, parseErrf(ErrUnsupportedFormat, 0, "DataArray format %q", a.Format)
	}
	fields := strings.Fields(a.Text)
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, parseErrf(ErrTruncatedStream, 0, "bad number %q in %q", f, a.Name)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func (a *xmlDataArray) ints() ([]int32, error) {
	vals, err := a.floats()
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(vals))
	for i, v := range vals {
		out[i] = int32(v)
	}
	return out, nil
}

func (d *xmlDataArrays) find(name string) *xmlDataArray {
	if d == nil {
		return nil
	}
	for i := range d.Arrays {
		if strings.EqualFold(d.Arrays[i].Name, name) {
			return &d.Arrays[i]
		}
	}
	return nil
}

// ParseXML parses the minimal XML subset (.vtu unstructured grids and
// .vtp polydata).
func ParseXML(data []byte) (*Dataset, error) {
	var file xmlFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, parseErrf(ErrMalformedHeader, 0, "xml: %v", err)
	}
	if file.Compressor != "" {
		return nil, parseErrf(ErrUnsupportedFormat, 0, "compressed data (%s)", file.Compressor)
	}
	if file.AppendedData != nil {
		return nil, parseErrf(ErrUnsupportedFormat, 0, "appended binary data")
	}

	var (
		grid *xmlGrid
		kind DatasetKind
	)
	switch {
	case file.UnstructuredGrid != nil:
		grid, kind = file.UnstructuredGrid, UnstructuredGrid
	case file.PolyData != nil:
		grid, kind = file.PolyData, PolyData
	default:
		return nil, parseErrf(ErrUnsupportedFormat, 0, "VTKFile type %q", file.Type)
	}
	if len(grid.Pieces) != 1 {
		return nil, parseErrf(ErrUnsupportedFormat, 0, "%d pieces, want 1", len(grid.Pieces))
	}
	piece := &grid.Pieces[0]

	ds := &Dataset{Kind: kind}

	if piece.Points == nil || len(piece.Points.Arrays) == 0 {
		return nil, parseErrf(ErrMalformedHeader, 0, "Piece without Points")
	}
	coords, err := piece.Points.Arrays[0].floats()
	if err != nil {
		return nil, err
	}
	if len(coords) != piece.NumberOfPoints*3 {
		return nil, parseErrf(ErrTruncatedStream, 0,
			"points array has %d values, want %d", len(coords), piece.NumberOfPoints*3)
	}
	ds.Points = make([][3]float32, piece.NumberOfPoints)
	for i := range ds.Points {
		ds.Points[i] = [3]float32{coords[i*3], coords[i*3+1], coords[i*3+2]}
	}

	switch kind {
	case UnstructuredGrid:
		if err := parseXMLCells(ds, piece); err != nil {
			return nil, err
		}
	case PolyData:
		if err := parseXMLPolys(ds, piece); err != nil {
			return nil, err
		}
	}

	if err := parseXMLAttributes(&ds.PointData, piece.PointData); err != nil {
		return nil, err
	}
	if err := parseXMLAttributes(&ds.CellData, piece.CellData); err != nil {
		return nil, err
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func parseXMLCells(ds *Dataset, piece *xmlPiece) error {
	conn := piece.Cells.find("connectivity")
	offs := piece.Cells.find("offsets")
	types := piece.Cells.find("types")
	if piece.Cells == nil || conn == nil || offs == nil || types == nil {
		return parseErrf(ErrMalformedHeader, 0, "Cells missing connectivity/offsets/types")
	}

	connectivity, err := conn.ints()
	if err != nil {
		return err
	}
	offsets, err := offs.ints()
	if err != nil {
		return err
	}
	codes, err := types.ints()
	if err != nil {
		return err
	}
	if len(offsets) != piece.NumberOfCells || len(codes) != piece.NumberOfCells {
		return parseErrf(ErrTruncatedStream, 0,
			"offsets/types length %d/%d, want %d", len(offsets), len(codes), piece.NumberOfCells)
	}

	start := int32(0)
	for i, end := range offsets {
		if end < start || int(end) > len(connectivity) {
			return parseErrf(ErrTruncatedStream, 0, "cell %d: bad offset %d", i, end)
		}
		pts := make([]int32, end-start)
		copy(pts, connectivity[start:end])
		ds.Cells = append(ds.Cells, Cell{Type: CellType(codes[i]), Points: pts})
		start = end
	}
	return nil
}

func parseXMLPolys(ds *Dataset, piece *xmlPiece) error {
	if piece.Polys == nil {
		return nil // point cloud, no polys
	}
	conn := piece.Polys.find("connectivity")
	offs := piece.Polys.find("offsets")
	if conn == nil || offs == nil {
		return parseErrf(ErrMalformedHeader, 0, "Polys missing connectivity/offsets")
	}

	connectivity, err := conn.ints()
	if err != nil {
		return err
	}
	offsets, err := offs.ints()
	if err != nil {
		return err
	}

	start := int32(0)
	for i, end := range offsets {
		if end < start || int(end) > len(connectivity) {
			return parseErrf(ErrTruncatedStream, 0, "poly %d: bad offset %d", i, end)
		}
		pts := make([]int32, end-start)
		copy(pts, connectivity[start:end])
		ds.Cells = append(ds.Cells, Cell{Type: CellPolygon, Points: pts})
		start = end
	}
	return nil
}

func parseXMLAttributes(dst *[]Attribute, src *xmlDataArrays) error {
	if src == nil {
		return nil
	}
	for i := range src.Arrays {
		arr := &src.Arrays[i]
		vals, err := arr.floats()
		if err != nil {
			return err
		}
		ncomp := arr.components()
		kind := AttrScalar
		if ncomp == 3 {
			kind = AttrVector
		}
		*dst = append(*dst, Attribute{
			Name: arr.Name, Kind: kind, NumComp: ncomp, Data: vals,
		})
	}
	return nil
}
