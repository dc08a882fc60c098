package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned by the parser.
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorOutOfRange = errors.New("accessor reads past the end of its buffer")
	errNoDocument         = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser defines the interface for loading glTF/GLB files and reading their accessors.
// This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// The GLB container is detected by extension or by its magic number.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader. Relative buffer URIs are resolved
	// against the working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed glTF document, or nil before a successful parse.
	//
	// Returns:
	//   - *gltfDocument: the parsed document or nil
	Document() *gltfDocument

	// ReadVec3Accessor reads a VEC3 accessor. Float and normalized integer components are
	// accepted and sparse substitution is applied.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][3]float32: the vec3 data
	//   - error: error if reading fails
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadVec4Accessor reads a VEC4 accessor the same way as ReadVec3Accessor.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][4]float32: the vec4 data
	//   - error: error if reading fails
	ReadVec4Accessor(accessorIndex int) ([][4]float32, error)

	// ReadIndicesAccessor reads a SCALAR accessor of unsigned integers as index data.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the index data
	//   - error: error if reading fails
	ReadIndicesAccessor(accessorIndex int) ([]uint32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseJSON(data)
}

// parseJSON decodes the glTF JSON and loads its buffers.
func (p *gltfParserImpl) parseJSON(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}
	p.document = &doc
	return nil
}

// parseGLB splits a GLB container into its JSON and BIN chunks.
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return errors.New("GLB file too small")
	}
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return errInvalidGLBVersion
	}

	var jsonChunk []byte
	for {
		var ch gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read chunk header: %w", err)
		}
		if int64(ch.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("chunk of %d bytes exceeds file: %w", ch.ChunkLength, errBufferSizeMismatch)
		}
		chunk := make([]byte, ch.ChunkLength)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch ch.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = chunk
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = chunk
		}
	}
	if jsonChunk == nil {
		return errMissingJSONChunk
	}
	return p.parseJSON(jsonChunk)
}

// loadBuffers populates Data for every buffer from its URI or the GLB BIN chunk.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := p.loadBufferURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// loadBufferURI loads buffer data from a data URI or a path relative to the glTF file.
func (p *gltfParserImpl) loadBufferURI(uri string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, errInvalidBufferURI
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}

// --- Accessor Data Reading ---

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	flat, err := p.readFloats(accessorIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(flat)/3)
	for i := range out {
		copy(out[i][:], flat[i*3:])
	}
	return out, nil
}

func (p *gltfParserImpl) ReadVec4Accessor(accessorIndex int) ([][4]float32, error) {
	flat, err := p.readFloats(accessorIndex, gltfAccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	out := make([][4]float32, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[i*4:])
	}
	return out, nil
}

func (p *gltfParserImpl) ReadIndicesAccessor(accessorIndex int) ([]uint32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor is not SCALAR: type=%s", acc.Type)
	}
	if acc.Sparse != nil || acc.BufferView == nil {
		return nil, fmt.Errorf("index accessor %d must be dense", accessorIndex)
	}

	size := gltfComponentTypeSize(acc.ComponentType)
	if size == 0 || acc.ComponentType == gltfComponentTypeByte || acc.ComponentType == gltfComponentTypeShort || acc.ComponentType == gltfComponentTypeFloat {
		return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
	}
	view, stride, err := p.viewBytes(*acc.BufferView, size)
	if err != nil {
		return nil, err
	}
	if err := checkAccessorRange(acc.ByteOffset, acc.Count, stride, size, len(view)); err != nil {
		return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
	}

	out := make([]uint32, acc.Count)
	for i := range out {
		out[i] = readUint(view[acc.ByteOffset+i*stride:], acc.ComponentType)
	}
	return out, nil
}

// accessor returns the accessor at index after checking a document is loaded.
func (p *gltfParserImpl) accessor(index int) (*gltfAccessor, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	return &p.document.Accessors[index], nil
}

// viewBytes returns the bytes of a buffer view and the element stride to use for it.
func (p *gltfParserImpl) viewBytes(viewIndex, elementSize int) ([]byte, int, error) {
	if viewIndex < 0 || viewIndex >= len(p.document.BufferViews) {
		return nil, 0, fmt.Errorf("bufferView index %d out of range", viewIndex)
	}
	bv := &p.document.BufferViews[viewIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, 0, fmt.Errorf("bufferView %d: buffer index %d out of range", viewIndex, bv.Buffer)
	}
	data := p.document.Buffers[bv.Buffer].Data
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, 0, fmt.Errorf("bufferView %d: %w", viewIndex, errBufferSizeMismatch)
	}

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], stride, nil
}

// readFloats reads every element of a float or normalized integer accessor into a flat slice,
// then overlays the sparse substitutions. An accessor without a buffer view starts as zeros.
func (p *gltfParserImpl) readFloats(accessorIndex int, accessorType string) ([]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", accessorIndex, acc.Type, accessorType)
	}
	if acc.ComponentType != gltfComponentTypeFloat && !acc.Normalized {
		return nil, fmt.Errorf("accessor %d: component type %d must be FLOAT or normalized", accessorIndex, acc.ComponentType)
	}

	comps := gltfAccessorTypeComponentCount(acc.Type)
	size := gltfComponentTypeSize(acc.ComponentType)
	if size == 0 {
		return nil, fmt.Errorf("accessor %d: unknown component type %d", accessorIndex, acc.ComponentType)
	}
	if acc.Count < 0 || acc.ByteOffset < 0 {
		return nil, fmt.Errorf("accessor %d: %w", accessorIndex, errAccessorOutOfRange)
	}

	var view []byte
	stride := comps * size
	if acc.BufferView != nil {
		if view, stride, err = p.viewBytes(*acc.BufferView, comps*size); err != nil {
			return nil, err
		}
		if err := checkAccessorRange(acc.ByteOffset, acc.Count, stride, comps*size, len(view)); err != nil {
			return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
		}
	}

	out := make([]float32, acc.Count*comps)
	if acc.BufferView != nil {
		for i := range acc.Count {
			off := acc.ByteOffset + i*stride
			for c := range comps {
				out[i*comps+c] = readComponent(view[off+c*size:], acc.ComponentType)
			}
		}
	}

	if acc.Sparse != nil {
		if err := p.applySparse(acc, out, comps, size); err != nil {
			return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
		}
	}
	return out, nil
}

// applySparse overwrites the elements named by the sparse indices with the sparse values.
func (p *gltfParserImpl) applySparse(acc *gltfAccessor, out []float32, comps, size int) error {
	sp := acc.Sparse
	idxSize := gltfComponentTypeSize(sp.Indices.ComponentType)
	if idxSize == 0 || sp.Indices.ComponentType == gltfComponentTypeByte || sp.Indices.ComponentType == gltfComponentTypeShort {
		return fmt.Errorf("unsupported sparse index component type: %d", sp.Indices.ComponentType)
	}
	indices, _, err := p.viewBytes(sp.Indices.BufferView, idxSize)
	if err != nil {
		return err
	}
	values, _, err := p.viewBytes(sp.Values.BufferView, comps*size)
	if err != nil {
		return err
	}
	if err := checkAccessorRange(sp.Indices.ByteOffset, sp.Count, idxSize, idxSize, len(indices)); err != nil {
		return err
	}
	if err := checkAccessorRange(sp.Values.ByteOffset, sp.Count, comps*size, comps*size, len(values)); err != nil {
		return err
	}

	for i := range sp.Count {
		target := int(readUint(indices[sp.Indices.ByteOffset+i*idxSize:], sp.Indices.ComponentType))
		if target >= acc.Count {
			return fmt.Errorf("sparse index %d exceeds count %d", target, acc.Count)
		}
		src := sp.Values.ByteOffset + i*comps*size
		for c := range comps {
			out[target*comps+c] = readComponent(values[src+c*size:], acc.ComponentType)
		}
	}
	return nil
}

// checkAccessorRange reports errAccessorOutOfRange for a negative offset or count, or when
// count elements of elemSize bytes spaced stride apart starting at offset do not fit in viewLen.
func checkAccessorRange(offset, count, stride, elemSize, viewLen int) error {
	if offset < 0 || count < 0 {
		return errAccessorOutOfRange
	}
	if count == 0 {
		return nil
	}
	if elemSize > viewLen-offset || count-1 > (viewLen-offset-elemSize)/stride {
		return errAccessorOutOfRange
	}
	return nil
}

// readComponent decodes one little-endian component. Integer components are normalized the
// way glTF defines for normalized accessors.
func readComponent(b []byte, componentType int) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeByte:
		return max(float32(int8(b[0]))/127, -1)
	case gltfComponentTypeUnsignedByte:
		return float32(b[0]) / 255
	case gltfComponentTypeShort:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
	case gltfComponentTypeUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b)) / 65535
	case gltfComponentTypeUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

// readUint decodes one little-endian unsigned integer component.
func readUint(b []byte, componentType int) uint32 {
	switch componentType {
	case gltfComponentTypeUnsignedByte:
		return uint32(b[0])
	case gltfComponentTypeUnsignedShort:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return binary.LittleEndian.Uint32(b)
	}
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
