package formats

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rmesh/pkg/encoding"
)

// DecodeError reports a structural failure at a byte offset in the stream.
type DecodeError struct {
	Offset int    // Offset of the field that could not be read
	Field  string // Field being read
	Err    error  // ErrTruncatedRMeshData or ErrInvalidRMeshCount
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: reading %s at offset %d", e.Err, e.Field, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// rmeshReader is a little-endian cursor over an in-memory buffer.
// Invariant: 0 <= off <= len(data).
type rmeshReader struct {
	data []byte
	off  int
}

// remaining returns the number of unread bytes.
func (r *rmeshReader) remaining() int {
	return len(r.data) - r.off
}

func (r *rmeshReader) need(n int, field string) error {
	if n > r.remaining() {
		return &DecodeError{Offset: r.off, Field: field, Err: ErrTruncatedRMeshData}
	}
	return nil
}

func (r *rmeshReader) uint8(field string) (uint8, error) {
	if err := r.need(1, field); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

func (r *rmeshReader) int32(field string) (int32, error) {
	if err := r.need(4, field); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v, nil
}

func (r *rmeshReader) float32(field string) (float32, error) {
	if err := r.need(4, field); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v, nil
}

// vec3 reads three consecutive float32 values as-is, without axis conversion.
func (r *rmeshReader) vec3(field string) (mgl32.Vec3, error) {
	if err := r.need(12, field); err != nil {
		return mgl32.Vec3{}, err
	}
	var v mgl32.Vec3
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
		r.off += 4
	}
	return v, nil
}

func (r *rmeshReader) vec2(field string) (mgl32.Vec2, error) {
	if err := r.need(8, field); err != nil {
		return mgl32.Vec2{}, err
	}
	var v mgl32.Vec2
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
		r.off += 4
	}
	return v, nil
}

func (r *rmeshReader) skip(n int, field string) error {
	if err := r.need(n, field); err != nil {
		return err
	}
	r.off += n
	return nil
}

// count reads an int32 element count. Negative counts are rejected.
func (r *rmeshReader) count(field string) (int, error) {
	start := r.off
	n, err := r.int32(field)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &DecodeError{Offset: start, Field: field, Err: fmt.Errorf("%w: %d", ErrInvalidRMeshCount, n)}
	}
	return int(n), nil
}

// string reads an int32 length followed by that many ANSI bytes.
// The bytes are not null-terminated.
func (r *rmeshReader) string(field string) (string, error) {
	length, err := r.count(field + " length")
	if err != nil {
		return "", err
	}
	if err := r.need(length, field); err != nil {
		return "", err
	}
	s := encoding.ANSIToUTF8(r.data[r.off : r.off+length])
	r.off += length
	return s, nil
}
