package pack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrAlignment reports a byte slice whose length is not a multiple of 4.
var ErrAlignment = errors.New("pack: byte length is not a multiple of 4")

// Float32Bytes appends the little-endian encoding of src to dst.
func Float32Bytes(dst []byte, src []float32) []byte {
	for _, f := range src {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// BytesFloat32 decodes little-endian float32 values.
func BytesFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrAlignment, len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Uint32Bytes appends the little-endian encoding of src to dst.
func Uint32Bytes(dst []byte, src []uint32) []byte {
	for _, v := range src {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}

// BytesUint32 decodes little-endian uint32 values.
func BytesUint32(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrAlignment, len(b))
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}
