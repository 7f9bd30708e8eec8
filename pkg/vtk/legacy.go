package vtk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads a VTK file from disk, sniffs its variant and parses it.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ds, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return ds, nil
}

// Parse sniffs the format variant and decodes the byte stream into a
// Dataset. A leading '<' selects the XML subset parser, anything else the
// Legacy parser.
func Parse(data []byte) (*Dataset, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return ParseXML(data)
	}
	return ParseLegacy(data)
}

// dtypeSize maps legacy data type keywords to their binary width in bytes.
var dtypeSize = map[string]int{
	"char": 1, "unsigned_char": 1,
	"short": 2, "unsigned_short": 2,
	"int": 4, "unsigned_int": 4,
	"long": 8, "unsigned_long": 8,
	"float": 4, "double": 8,
}

// legacyReader walks a legacy VTK byte stream. Keyword lines are ASCII in
// both variants; numeric blocks are whitespace tokens (ASCII) or big-endian
// values (binary) per the legacy spec.
type legacyReader struct {
	data   []byte
	pos    int
	line   int // 1-based, tracks '\n' consumed
	binary bool
}

func newLegacyReader(data []byte) *legacyReader {
	return &legacyReader{data: data, line: 1}
}

func (r *legacyReader) eof() bool {
	return r.pos >= len(r.data)
}

func (r *legacyReader) skipSpace() {
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		if c == '\n' {
			r.line++
		} else if c != ' ' && c != '\t' && c != '\r' {
			return
		}
		r.pos++
	}
}

// token returns the next whitespace-delimited token, or "" at EOF.
func (r *legacyReader) token() string {
	r.skipSpace()
	start := r.pos
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			break
		}
		r.pos++
	}
	return string(r.data[start:r.pos])
}

// peek returns the next token without consuming it.
func (r *legacyReader) peek() string {
	pos, line := r.pos, r.line
	tok := r.token()
	r.pos, r.line = pos, line
	return tok
}

// restOfLine consumes up to and including the next newline.
func (r *legacyReader) restOfLine() string {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != '\n' {
		r.pos++
	}
	s := string(r.data[start:r.pos])
	if r.pos < len(r.data) {
		r.pos++
		r.line++
	}
	return strings.TrimRight(s, "\r")
}

// startData positions the reader at the first byte of a binary data block:
// the single newline terminating the keyword line is consumed. ASCII data
// needs no positioning.
func (r *legacyReader) startData() {
	if !r.binary {
		return
	}
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		if c == '\n' {
			r.pos++
			r.line++
			return
		}
		if c != ' ' && c != '\t' && c != '\r' {
			return
		}
		r.pos++
	}
}

// readFloats reads n numeric values of the given legacy dtype as float32.
func (r *legacyReader) readFloats(n int, dtype string) ([]float32, error) {
	size, ok := dtypeSize[dtype]
	if !ok {
		return nil, parseErrf(ErrUnsupportedFormat, r.line, "data type %q", dtype)
	}

	out := make([]float32, n)

	if !r.binary {
		for i := 0; i < n; i++ {
			tok := r.token()
			if tok == "" {
				return nil, parseErrf(ErrTruncatedStream, r.line, "expected %d values, got %d", n, i)
			}
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, parseErrf(ErrTruncatedStream, r.line, "bad number %q", tok)
			}
			out[i] = float32(v)
		}
		return out, nil
	}

	r.startData()
	need := n * size
	if r.pos+need > len(r.data) {
		return nil, parseErrf(ErrTruncatedStream, r.line, "binary block needs %d bytes, %d left", need, len(r.data)-r.pos)
	}
	buf := r.data[r.pos : r.pos+need]
	r.pos += need

	for i := 0; i < n; i++ {
		b := buf[i*size:]
		switch dtype {
		case "float":
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(b))
		case "double":
			out[i] = float32(math.Float64frombits(binary.BigEndian.Uint64(b)))
		case "int":
			out[i] = float32(int32(binary.BigEndian.Uint32(b)))
		case "unsigned_int":
			out[i] = float32(binary.BigEndian.Uint32(b))
		case "long":
			out[i] = float32(int64(binary.BigEndian.Uint64(b)))
		case "unsigned_long":
			out[i] = float32(binary.BigEndian.Uint64(b))
		case "short":
			out[i] = float32(int16(binary.BigEndian.Uint16(b)))
		case "unsigned_short":
			out[i] = float32(binary.BigEndian.Uint16(b))
		case "char":
			out[i] = float32(int8(b[0]))
		case "unsigned_char":
			out[i] = float32(b[0])
		}
	}
	return out, nil
}

// readInts reads n int32 values; legacy connectivity is always int.
func (r *legacyReader) readInts(n int) ([]int32, error) {
	vals, err := r.readFloats(n, "int")
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i, v := range vals {
		out[i] = int32(v)
	}
	return out, nil
}

// intToken reads one token and parses it as a non-negative int.
func (r *legacyReader) intToken(what string) (int, error) {
	tok := r.token()
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, parseErrf(ErrMalformedHeader, r.line, "bad %s count %q", what, tok)
	}
	return n, nil
}

// ParseLegacy parses a Legacy VTK byte stream (ASCII or binary variant).
func ParseLegacy(data []byte) (*Dataset, error) {
	r := newLegacyReader(data)

	// Header: "# vtk DataFile Version x.x", title, ASCII|BINARY, DATASET kind.
	header := r.restOfLine()
	if !strings.HasPrefix(header, "# vtk DataFile") {
		return nil, parseErrf(ErrMalformedHeader, 1, "missing '# vtk DataFile' signature")
	}
	r.restOfLine() // title, ignored

	switch strings.ToUpper(strings.TrimSpace(r.restOfLine())) {
	case "ASCII":
		r.binary = false
	case "BINARY":
		r.binary = true
	default:
		return nil, parseErrf(ErrMalformedHeader, r.line-1, "expected ASCII or BINARY")
	}

	if kw := strings.ToUpper(r.token()); kw != "DATASET" {
		return nil, parseErrf(ErrMalformedHeader, r.line, "expected DATASET, got %q", kw)
	}

	ds := &Dataset{}
	switch strings.ToUpper(r.token()) {
	case "UNSTRUCTURED_GRID":
		ds.Kind = UnstructuredGrid
	case "POLYDATA":
		ds.Kind = PolyData
	default:
		return nil, parseErrf(ErrUnsupportedFormat, r.line, "dataset type not supported")
	}

	p := &legacyParser{r: r, ds: ds}
	if err := p.sections(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// legacyParser holds the section-parsing state for one file.
type legacyParser struct {
	r  *legacyReader
	ds *Dataset

	// Pending unstructured-grid connectivity, combined once CELL_TYPES
	// arrives.
	rawCells  []int32
	cellCount int

	// Current attribute target: nil before POINT_DATA/CELL_DATA.
	attrTarget *[]Attribute
	attrCount  int
}

func (p *legacyParser) sections() error {
	r := p.r
	for {
		r.skipSpace()
		if r.eof() {
			break
		}
		kw := strings.ToUpper(r.token())

		var err error
		switch kw {
		case "POINTS":
			err = p.points()
		case "CELLS":
			err = p.cells()
		case "CELL_TYPES":
			err = p.cellTypes()
		case "VERTICES":
			err = p.polyCells(CellVertex)
		case "LINES":
			err = p.polyCells(CellLine)
		case "POLYGONS":
			err = p.polyCells(CellPolygon)
		case "POINT_DATA":
			p.attrTarget = &p.ds.PointData
			p.attrCount, err = r.intToken("POINT_DATA")
		case "CELL_DATA":
			p.attrTarget = &p.ds.CellData
			p.attrCount, err = r.intToken("CELL_DATA")
		case "SCALARS":
			err = p.scalars()
		case "COLOR_SCALARS":
			err = p.colorScalars()
		case "VECTORS":
			err = p.vectors()
		case "LOOKUP_TABLE":
			err = p.skipLookupTable()
		case "FIELD":
			err = p.skipField()
		case "TRIANGLE_STRIPS":
			return parseErrf(ErrUnsupportedFormat, r.line, "TRIANGLE_STRIPS not supported")
		default:
			return parseErrf(ErrMalformedHeader, r.line, "unexpected keyword %q", kw)
		}
		if err != nil {
			return err
		}
	}

	if p.rawCells != nil {
		return parseErrf(ErrTruncatedStream, r.line, "CELLS without CELL_TYPES")
	}
	return nil
}

func (p *legacyParser) points() error {
	r := p.r
	n, err := r.intToken("POINTS")
	if err != nil {
		return err
	}
	dtype := r.token()

	vals, err := r.readFloats(n*3, dtype)
	if err != nil {
		return err
	}
	p.ds.Points = make([][3]float32, n)
	for i := 0; i < n; i++ {
		p.ds.Points[i] = [3]float32{vals[i*3], vals[i*3+1], vals[i*3+2]}
	}
	return nil
}

func (p *legacyParser) cells() error {
	r := p.r
	n, err := r.intToken("CELLS")
	if err != nil {
		return err
	}
	size, err := r.intToken("CELLS size")
	if err != nil {
		return err
	}
	p.rawCells, err = r.readInts(size)
	if err != nil {
		return err
	}
	p.cellCount = n
	return nil
}

func (p *legacyParser) cellTypes() error {
	r := p.r
	n, err := r.intToken("CELL_TYPES")
	if err != nil {
		return err
	}
	codes, err := r.readInts(n)
	if err != nil {
		return err
	}
	if p.rawCells == nil {
		return parseErrf(ErrMalformedHeader, r.line, "CELL_TYPES before CELLS")
	}
	if n != p.cellCount {
		return parseErrf(ErrMalformedHeader, r.line,
			"CELL_TYPES count %d does not match CELLS count %d", n, p.cellCount)
	}

	pos := 0
	for i := 0; i < n; i++ {
		if pos >= len(p.rawCells) {
			return parseErrf(ErrTruncatedStream, r.line, "cell %d: connectivity exhausted", i)
		}
		cnt := int(p.rawCells[pos])
		pos++
		if cnt < 0 || pos+cnt > len(p.rawCells) {
			return parseErrf(ErrTruncatedStream, r.line, "cell %d: bad point count %d", i, cnt)
		}
		pts := make([]int32, cnt)
		copy(pts, p.rawCells[pos:pos+cnt])
		pos += cnt
		p.ds.Cells = append(p.ds.Cells, Cell{Type: CellType(codes[i]), Points: pts})
	}
	p.rawCells = nil
	return nil
}

// polyCells parses a POLYDATA primitive block (VERTICES, LINES, POLYGONS):
// the connectivity carries a leading point count per primitive and the cell
// type is implied by the block keyword.
func (p *legacyParser) polyCells(typ CellType) error {
	r := p.r
	n, err := r.intToken(typ.String())
	if err != nil {
		return err
	}
	size, err := r.intToken(typ.String() + " size")
	if err != nil {
		return err
	}
	raw, err := r.readInts(size)
	if err != nil {
		return err
	}

	pos := 0
	for i := 0; i < n; i++ {
		if pos >= len(raw) {
			return parseErrf(ErrTruncatedStream, r.line, "%s %d: connectivity exhausted", typ, i)
		}
		cnt := int(raw[pos])
		pos++
		if cnt < 0 || pos+cnt > len(raw) {
			return parseErrf(ErrTruncatedStream, r.line, "%s %d: bad point count %d", typ, i, cnt)
		}
		pts := make([]int32, cnt)
		copy(pts, raw[pos:pos+cnt])
		pos += cnt
		p.ds.Cells = append(p.ds.Cells, Cell{Type: typ, Points: pts})
	}
	return nil
}

func (p *legacyParser) scalars() error {
	r := p.r
	if p.attrTarget == nil {
		return parseErrf(ErrMalformedHeader, r.line, "SCALARS outside POINT_DATA/CELL_DATA")
	}
	name := r.token()
	dtype := r.token()

	// Optional component count, 1 when absent.
	ncomp := 1
	if v, err := strconv.Atoi(r.peek()); err == nil && v >= 1 && v <= 4 {
		r.token()
		ncomp = v
	}

	// Optional LOOKUP_TABLE line; only "default" tables are meaningful here.
	if strings.ToUpper(r.peek()) == "LOOKUP_TABLE" {
		r.token()
		r.token() // table name
	}

	vals, err := r.readFloats(p.attrCount*ncomp, dtype)
	if err != nil {
		return err
	}
	*p.attrTarget = append(*p.attrTarget, Attribute{
		Name: name, Kind: AttrScalar, NumComp: ncomp, Data: vals,
	})
	return nil
}

func (p *legacyParser) colorScalars() error {
	r := p.r
	if p.attrTarget == nil {
		return parseErrf(ErrMalformedHeader, r.line, "COLOR_SCALARS outside POINT_DATA/CELL_DATA")
	}
	name := r.token()
	ncomp, err := r.intToken("COLOR_SCALARS components")
	if err != nil {
		return err
	}
	if ncomp < 1 || ncomp > 4 {
		return parseErrf(ErrMalformedHeader, r.line, "COLOR_SCALARS with %d components", ncomp)
	}

	// ASCII color scalars are floats in [0,1]; the binary variant stores
	// unsigned chars that normalize to the same range.
	var vals []float32
	if r.binary {
		vals, err = r.readFloats(p.attrCount*ncomp, "unsigned_char")
		for i := range vals {
			vals[i] /= 255.0
		}
	} else {
		vals, err = r.readFloats(p.attrCount*ncomp, "float")
	}
	if err != nil {
		return err
	}
	*p.attrTarget = append(*p.attrTarget, Attribute{
		Name: name, Kind: AttrColorScalar, NumComp: ncomp, Data: vals,
	})
	return nil
}

func (p *legacyParser) vectors() error {
	r := p.r
	if p.attrTarget == nil {
		return parseErrf(ErrMalformedHeader, r.line, "VECTORS outside POINT_DATA/CELL_DATA")
	}
	name := r.token()
	dtype := r.token()

	vals, err := r.readFloats(p.attrCount*3, dtype)
	if err != nil {
		return err
	}
	*p.attrTarget = append(*p.attrTarget, Attribute{
		Name: name, Kind: AttrVector, NumComp: 3, Data: vals,
	})
	return nil
}

// skipLookupTable consumes a standalone LOOKUP_TABLE definition block
// (name, size, then size RGBA tuples). Custom tables are not applied; the
// colormap package owns color assignment.
func (p *legacyParser) skipLookupTable() error {
	r := p.r
	r.token() // table name
	n, err := r.intToken("LOOKUP_TABLE size")
	if err != nil {
		return err
	}
	var skipErr error
	if r.binary {
		_, skipErr = r.readFloats(n*4, "unsigned_char")
	} else {
		_, skipErr = r.readFloats(n*4, "float")
	}
	return skipErr
}

// skipField consumes a FIELD block without keeping its arrays.
func (p *legacyParser) skipField() error {
	r := p.r
	r.token() // field name
	n, err := r.intToken("FIELD array count")
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r.token() // array name
		ncomp, err := r.intToken("FIELD components")
		if err != nil {
			return err
		}
		ntuples, err := r.intToken("FIELD tuples")
		if err != nil {
			return err
		}
		dtype := r.token()
		if _, err := r.readFloats(ncomp*ntuples, dtype); err != nil {
			return err
		}
	}
	return nil
}
