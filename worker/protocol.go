// Package worker runs streamline generation out of process over a websocket.
//
// Every message is one binary frame:
//
//	uint32 (little-endian)  length of the JSON header
//	[]byte                  JSON Header
//	[]float32 (LE)          payloads, back to back; Header.Buffers holds
//	                        their lengths in elements
//	[]uint32 (LE)           Header.Indices mesh indices, if any
//
// Requests carry the field raster as their only payload, or none when the
// field is already cached on the server. Results carry six payloads in
// order: the four flow buffers (Position1, Position2, TimeInfo, Speed), the
// magnitude texture and the mesh vertices. Empty ones are sent with length
// zero.
package worker

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/flowline"
	"github.com/gogpu/flowline/internal/pack"
)

// Kind identifies a frame.
type Kind string

const (
	// KindGenerate asks for streamline buffers.
	KindGenerate Kind = "generate"

	// KindPut stores a field in the server cache without generating.
	KindPut Kind = "put"

	// KindResult carries generated buffers.
	KindResult Kind = "result"

	// KindError reports a failed request.
	KindError Kind = "error"
)

// headerPrefix is the size of the header length prefix.
const headerPrefix = 4

// maxHeader bounds the JSON header size.
const maxHeader = 1 << 20

var (
	// ErrFrame reports a malformed frame.
	ErrFrame = errors.New("worker: malformed frame")

	// ErrRemote wraps an error reported by the server.
	ErrRemote = errors.New("worker: remote error")
)

// Header is the JSON part of a frame.
type Header struct {
	Kind    Kind   `json:"kind"`
	Version uint64 `json:"version"`
	FieldID string `json:"fieldId,omitempty"`

	// Field geometry, set when a field payload follows. NoData is nil when
	// only NaN marks missing cells, since JSON cannot carry NaN.
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
	NoData *float32 `json:"noData,omitempty"`

	Settings *flowline.Settings    `json:"settings,omitempty"`
	Pack     *flowline.PackOptions `json:"pack,omitempty"`

	// Meshes asks for, or on a result marks, tessellated meshes. Magnitude
	// is the speed texture size.
	Meshes    bool   `json:"meshes,omitempty"`
	MeshCount int    `json:"meshCount,omitempty"`
	Magnitude [2]int `json:"magnitude"`

	Error      string     `json:"error,omitempty"`
	SpeedRange [2]float64 `json:"speedRange"`
	Segments   int        `json:"segments,omitempty"`
	Lines      int        `json:"lines,omitempty"`

	// Buffers holds the element count of each payload.
	Buffers []int `json:"buffers,omitempty"`

	// Indices is the number of uint32 indices after the payloads.
	Indices int `json:"indices,omitempty"`
}

// resultPayloads is the number of payloads in a result frame.
const resultPayloads = 6

// Frame is a decoded message.
type Frame struct {
	Header   Header
	Payloads [][]float32
	Indices  []uint32
}

// Encode serializes f. Header.Buffers and Header.Indices are filled from
// the frame.
func Encode(f Frame) ([]byte, error) {
	h := f.Header
	h.Buffers = make([]int, len(f.Payloads))
	h.Indices = len(f.Indices)
	size := len(f.Indices) * 4
	for i, p := range f.Payloads {
		h.Buffers[i] = len(p)
		size += len(p) * 4
	}

	hdr, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("worker: encode header: %w", err)
	}

	out := make([]byte, 0, headerPrefix+len(hdr)+size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(hdr))) //nolint:gosec // bounded by JSON size
	out = append(out, hdr...)
	for _, p := range f.Payloads {
		out = pack.Float32Bytes(out, p)
	}
	out = pack.Uint32Bytes(out, f.Indices)
	return out, nil
}

// Decode parses a frame produced by Encode.
func Decode(b []byte) (Frame, error) {
	if len(b) < headerPrefix {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrame, len(b))
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > maxHeader || headerPrefix+n > len(b) {
		return Frame{}, fmt.Errorf("%w: header length %d", ErrFrame, n)
	}

	var f Frame
	if err := json.Unmarshal(b[headerPrefix:headerPrefix+n], &f.Header); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrFrame, err)
	}

	rest := b[headerPrefix+n:]
	avail := len(rest) / 4
	want := 0
	for _, c := range append(f.Header.Buffers, f.Header.Indices) {
		if c < 0 || c > avail-want {
			return Frame{}, fmt.Errorf("%w: buffer length %d exceeds %d byte payload", ErrFrame, c, len(rest))
		}
		want += c
	}
	if want*4 != len(rest) {
		return Frame{}, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrFrame, len(rest), want*4)
	}

	f.Payloads = make([][]float32, len(f.Header.Buffers))
	for i, c := range f.Header.Buffers {
		p, err := pack.BytesFloat32(rest[:c*4])
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %w", ErrFrame, err)
		}
		f.Payloads[i] = p
		rest = rest[c*4:]
	}
	if f.Header.Indices > 0 {
		idx, err := pack.BytesUint32(rest)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %w", ErrFrame, err)
		}
		f.Indices = idx
	}
	return f, nil
}

// RequestFrame builds a generate frame. The field raster is attached when
// req.Field is set.
func RequestFrame(kind Kind, version uint64, req flowline.Request) Frame {
	f := Frame{Header: Header{
		Kind:     kind,
		Version:  version,
		FieldID:  req.FieldID,
		Settings:  req.Settings,
		Pack:      req.Pack,
		Meshes:    req.Meshes,
		Magnitude: req.Magnitude,
	}}
	if req.Field != nil {
		f.Header.Width = req.Field.Width
		f.Header.Height = req.Field.Height
		if nd := req.Field.NoData; !math.IsNaN(float64(nd)) {
			f.Header.NoData = &nd
		}
		f.Payloads = [][]float32{req.Field.Data}
	}
	return f
}

// Request rebuilds the request carried by a generate or put frame.
func (f Frame) Request() (flowline.Request, error) {
	req := flowline.Request{
		FieldID:  f.Header.FieldID,
		Settings:  f.Header.Settings,
		Pack:      f.Header.Pack,
		Meshes:    f.Header.Meshes,
		Magnitude: f.Header.Magnitude,
	}
	switch len(f.Payloads) {
	case 0:
		return req, nil
	case 1:
	default:
		return req, fmt.Errorf("%w: request has %d payloads", ErrFrame, len(f.Payloads))
	}

	noData := float32(math.NaN())
	if f.Header.NoData != nil {
		noData = *f.Header.NoData
	}
	field, err := flowline.NewField(f.Header.Width, f.Header.Height, f.Payloads[0], noData)
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrFrame, err)
	}
	req.Field = field
	return req, nil
}

// ResultFrame builds a result frame answering request version.
func ResultFrame(version uint64, res *flowline.Result) Frame {
	b := res.Buffers
	f := Frame{
		Header: Header{
			Kind:       KindResult,
			Version:    version,
			FieldID:    res.FieldID,
			SpeedRange: res.SpeedRange,
			Segments:   b.Segments,
			Lines:      res.Lines,
		},
		Payloads: [][]float32{b.Position1, b.Position2, b.TimeInfo, b.Speed, res.Magnitude, nil},
	}
	if m := res.Meshes; m != nil {
		f.Header.Meshes = true
		f.Header.MeshCount = m.Meshes
		f.Payloads[5] = m.Vertices
		f.Indices = m.Indices
	}
	return f
}

// Result rebuilds the result carried by a result or error frame. Error
// frames yield an error wrapping ErrRemote.
func (f Frame) Result() (*flowline.Result, error) {
	switch f.Header.Kind {
	case KindError:
		return nil, fmt.Errorf("%w: %s", ErrRemote, f.Header.Error)
	case KindResult:
	default:
		return nil, fmt.Errorf("%w: unexpected kind %q", ErrFrame, f.Header.Kind)
	}
	if len(f.Payloads) != resultPayloads {
		return nil, fmt.Errorf("%w: result has %d payloads", ErrFrame, len(f.Payloads))
	}

	b := &flowline.FlowBuffers{
		Position1: f.Payloads[0],
		Position2: f.Payloads[1],
		TimeInfo:  f.Payloads[2],
		Segments:  f.Header.Segments,
	}
	if len(f.Payloads[3]) > 0 {
		b.Speed = f.Payloads[3]
	}
	res := &flowline.Result{
		Version:    f.Header.Version,
		FieldID:    f.Header.FieldID,
		Buffers:    b,
		SpeedRange: f.Header.SpeedRange,
		Lines:      f.Header.Lines,
	}
	if len(f.Payloads[4]) > 0 {
		res.Magnitude = f.Payloads[4]
	}
	if f.Header.Meshes {
		res.Meshes = &flowline.MeshBuffers{
			Vertices: f.Payloads[5],
			Indices:  f.Indices,
			Meshes:   f.Header.MeshCount,
		}
	}
	return res, nil
}

// ErrorFrame reports err for request version.
func ErrorFrame(version uint64, err error) Frame {
	return Frame{Header: Header{Kind: KindError, Version: version, Error: err.Error()}}
}
