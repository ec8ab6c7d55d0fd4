// Package polyline implements the HERE flexible polyline format and wraps the
// Google encoded polyline format.
//
// A flexible polyline starts with a format version and a header value that
// packs the coordinate precision, an optional third dimension and its
// precision. The remaining characters are zig-zag encoded deltas of
// lat, lon and, when present, the third dimension, each written as groups
// of five bits with a continuation flag.
package polyline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// FormatVersion is the only flexible polyline version understood here.
const FormatVersion = 1

// ErrDecode matches every *DecodeError.
var ErrDecode = errors.New("polyline: malformed encoding")

// DecodeError describes why an encoded polyline could not be read.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("polyline: %s at offset %d", e.Reason, e.Offset)
}

// Is makes errors.Is(err, ErrDecode) succeed.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// ThirdDimension identifies what the optional third coordinate holds.
type ThirdDimension int

// Third dimension kinds as defined by the format. Values 4 and 5 are reserved.
const (
	Absent    ThirdDimension = 0
	Level     ThirdDimension = 1
	Altitude  ThirdDimension = 2
	Elevation ThirdDimension = 3
	Custom1   ThirdDimension = 6
	Custom2   ThirdDimension = 7
)

// Header carries the scaling parameters of one encoded polyline.
type Header struct {
	Precision         int
	ThirdDim          ThirdDimension
	ThirdDimPrecision int
}

func (h Header) pack() (uint64, error) {
	if h.Precision < 0 || h.Precision > 15 {
		return 0, fmt.Errorf("polyline: precision %d out of range", h.Precision)
	}
	if h.ThirdDimPrecision < 0 || h.ThirdDimPrecision > 15 {
		return 0, fmt.Errorf("polyline: third dimension precision %d out of range", h.ThirdDimPrecision)
	}
	if h.ThirdDim < 0 || h.ThirdDim > 7 || h.ThirdDim == 4 || h.ThirdDim == 5 {
		return 0, fmt.Errorf("polyline: third dimension %d not supported", h.ThirdDim)
	}
	return uint64(h.Precision) | uint64(h.ThirdDim)<<4 | uint64(h.ThirdDimPrecision)<<7, nil
}

func unpackHeader(v uint64) Header {
	return Header{
		Precision:         int(v & 15),
		ThirdDim:          ThirdDimension((v >> 4) & 7),
		ThirdDimPrecision: int((v >> 7) & 15),
	}
}

const encodingTable = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// decodingTable maps a character minus '-' to its 6-bit value, -1 if unused.
var decodingTable = [...]int8{
	62, -1, -1, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, -1, -1, -1, -1, -1, -1, -1,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21,
	22, 23, 24, 25, -1, -1, -1, -1, 63, -1, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35,
	36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51,
}

// Decoder reads points from an encoded polyline one at a time, in the manner
// of bufio.Scanner. A Decoder cannot be rewound; create a new one to read the
// same input again.
type Decoder struct {
	encoded string
	pos     int
	header  Header

	scale  float64
	zScale float64

	lat, lon, z int64

	current geo.Point
	err     error
	done    bool
}

// NewDecoder reads the version and header of encoded and returns a decoder
// positioned at the first coordinate.
func NewDecoder(encoded string) (*Decoder, error) {
	d := &Decoder{encoded: encoded}

	version, ok, err := d.readUnsigned()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &DecodeError{Offset: 0, Reason: "missing format version"}
	}
	if version != FormatVersion {
		return nil, &DecodeError{Offset: 0, Reason: fmt.Sprintf("unsupported format version %d", version)}
	}

	offset := d.pos
	raw, ok, err := d.readUnsigned()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &DecodeError{Offset: offset, Reason: "missing header"}
	}

	d.header = unpackHeader(raw)
	d.scale = math.Pow10(d.header.Precision)
	d.zScale = math.Pow10(d.header.ThirdDimPrecision)

	return d, nil
}

// Header returns the parsed header.
func (d *Decoder) Header() Header {
	return d.header
}

// Next advances to the next point. It returns false at the end of the input
// or on the first error; Err distinguishes the two.
func (d *Decoder) Next() bool {
	if d.done || d.err != nil {
		return false
	}

	latDelta, ok, err := d.readSigned()
	if err != nil {
		d.err = err
		return false
	}
	if !ok {
		d.done = true
		return false
	}

	lonDelta, ok, err := d.readSigned()
	if err == nil && !ok {
		err = &DecodeError{Offset: d.pos, Reason: "premature ending, longitude missing"}
	}
	if err != nil {
		d.err = err
		return false
	}

	d.lat += latDelta
	d.lon += lonDelta
	point := geo.NewPoint(float64(d.lat)/d.scale, float64(d.lon)/d.scale)

	if d.header.ThirdDim != Absent {
		zDelta, ok, err := d.readSigned()
		if err == nil && !ok {
			err = &DecodeError{Offset: d.pos, Reason: "premature ending, third dimension missing"}
		}
		if err != nil {
			d.err = err
			return false
		}
		d.z += zDelta
		point = point.WithZ(float64(d.z) / d.zScale)
	}

	d.current = point
	return true
}

// Point returns the point read by the last successful call to Next.
func (d *Decoder) Point() geo.Point {
	return d.current
}

// Err returns the first decoding error, or nil if the input was read cleanly.
func (d *Decoder) Err() error {
	return d.err
}

// readUnsigned returns ok=false when the input ends cleanly on a value boundary.
func (d *Decoder) readUnsigned() (uint64, bool, error) {
	if d.pos >= len(d.encoded) {
		return 0, false, nil
	}

	var result uint64
	var shift uint
	start := d.pos

	for d.pos < len(d.encoded) {
		c := d.encoded[d.pos]
		idx := int(c) - '-'
		if idx < 0 || idx >= len(decodingTable) || decodingTable[idx] < 0 {
			return 0, false, &DecodeError{Offset: d.pos, Reason: fmt.Sprintf("invalid character %q", c)}
		}
		v := uint64(decodingTable[idx])
		chunk := v & 0x1F
		// The group at shift 60 has only four bits left.
		if shift > 60 || (shift == 60 && chunk>>4 != 0) {
			return 0, false, &DecodeError{Offset: start, Reason: "value overflows 64 bits"}
		}

		d.pos++
		result |= chunk << shift
		if v&0x20 == 0 {
			return result, true, nil
		}
		shift += 5
	}

	return 0, false, &DecodeError{Offset: start, Reason: "input ends inside a value"}
}

func (d *Decoder) readSigned() (int64, bool, error) {
	u, ok, err := d.readUnsigned()
	if err != nil || !ok {
		return 0, ok, err
	}
	return zigzag(u), true, nil
}

func zigzag(u uint64) int64 {
	v := int64(u)
	if v&1 != 0 {
		v = ^v
	}
	return v >> 1
}

// Decode reads every point of encoded.
func Decode(encoded string) ([]geo.Point, error) {
	d, err := NewDecoder(encoded)
	if err != nil {
		return nil, err
	}

	var points []geo.Point
	for d.Next() {
		points = append(points, d.Point())
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// Encode writes points in the flexible polyline format described by h.
// Third dimension values are read from Point.Z when h.ThirdDim is set.
func Encode(points []geo.Point, h Header) (string, error) {
	packed, err := h.pack()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeUnsigned(&b, FormatVersion)
	writeUnsigned(&b, packed)

	scale := math.Pow10(h.Precision)
	zScale := math.Pow10(h.ThirdDimPrecision)

	var lastLat, lastLon, lastZ int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * scale))
		lon := int64(math.Round(p.Lon * scale))
		writeSigned(&b, lat-lastLat)
		writeSigned(&b, lon-lastLon)
		lastLat, lastLon = lat, lon

		if h.ThirdDim != Absent {
			z := int64(math.Round(p.Z * zScale))
			writeSigned(&b, z-lastZ)
			lastZ = z
		}
	}

	return b.String(), nil
}

func writeUnsigned(b *strings.Builder, v uint64) {
	for v > 0x1F {
		b.WriteByte(encodingTable[(v&0x1F)|0x20])
		v >>= 5
	}
	b.WriteByte(encodingTable[v])
}

func writeSigned(b *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	writeUnsigned(b, u)
}
