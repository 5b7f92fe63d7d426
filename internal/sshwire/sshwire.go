// Package sshwire reads and writes the SSH binary field encodings of RFC 4251
// section 5: uint32, length-prefixed strings and mpints.
//
// Every string read has an explicit upper bound. Slices returned by the
// Decoder alias the input buffer.
package sshwire

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"

	"keyscope/internal/errors"
)

// Field length bounds
const (
	MaxNameLen           = 64        // cipher, kdf, key type, curve names
	MaxKdfOptionsLen     = 128       // nested kdfoptions record
	MaxPublicKeyLen      = 8192      // public key blob
	MaxPrivateSectionLen = 64 * 1024 // encrypted private section
	MaxCommentLen        = 4096
	MaxMPIntLen          = 2048 // 16384-bit integers
	MaxPointLen          = 133  // uncompressed P-521 point
)

// Decoder reads successive fields from a buffer.
type Decoder struct {
	s     cryptobyte.String
	total int
}

// NewDecoder returns a decoder positioned at the start of b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{s: cryptobyte.String(b), total: len(b)}
}

// Consumed is the number of bytes read so far.
func (d *Decoder) Consumed() int {
	return d.total - len(d.s)
}

// Remaining returns the unread tail of the buffer.
func (d *Decoder) Remaining() []byte {
	return d.s
}

// Empty reports whether every byte was consumed.
func (d *Decoder) Empty() bool {
	return d.s.Empty()
}

// Uint32 reads a big-endian uint32.
func (d *Decoder) Uint32(field string) (uint32, error) {
	var v uint32
	if !d.s.ReadUint32(&v) {
		return 0, errors.NewDecodeError(field, errors.ErrTruncated)
	}
	return v, nil
}

// Bytes reads a uint32 length-prefixed string of at most limit bytes.
func (d *Decoder) Bytes(field string, limit int) ([]byte, error) {
	var n uint32
	if !d.s.ReadUint32(&n) {
		return nil, errors.NewDecodeError(field, errors.ErrTruncated)
	}
	if uint64(n) > uint64(limit) {
		return nil, errors.NewDecodeError(field, fmt.Errorf("%w: %d > %d", errors.ErrFieldTooLarge, n, limit))
	}
	var out []byte
	if !d.s.ReadBytes(&out, int(n)) {
		return nil, errors.NewDecodeError(field, errors.ErrTruncated)
	}
	return out, nil
}

// String reads a length-prefixed string and copies it into a Go string.
func (d *Decoder) String(field string, limit int) (string, error) {
	b, err := d.Bytes(field, limit)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Fixed reads a length-prefixed string that must be exactly n bytes long.
func (d *Decoder) Fixed(field string, n int) ([]byte, error) {
	b, err := d.Bytes(field, n)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, errors.NewDecodeError(field, fmt.Errorf("%w: length %d, want %d", errors.ErrMalformedContainer, len(b), n))
	}
	return b, nil
}

// MPInt reads a non-negative multiple precision integer.
// Negative values are malformed in every structure keyscope reads.
func (d *Decoder) MPInt(field string) (*big.Int, error) {
	b, err := d.Bytes(field, MaxMPIntLen)
	if err != nil {
		return nil, err
	}
	if len(b) > 0 && b[0]&0x80 != 0 {
		return nil, errors.NewDecodeError(field, fmt.Errorf("%w: negative mpint", errors.ErrMalformedContainer))
	}
	return new(big.Int).SetBytes(b), nil
}

type kind int

const (
	kindUint32 kind = iota
	kindBytes
	kindString
	kindMPInt
)

// Field describes one typed field for Decode.
type Field struct {
	name  string
	kind  kind
	limit int
	u32   *uint32
	b     *[]byte
	str   *string
	n     **big.Int
}

// Uint32 decodes into dst.
func Uint32(name string, dst *uint32) Field {
	return Field{name: name, kind: kindUint32, u32: dst}
}

// Bytes decodes a string of at most limit bytes into dst (aliasing the input).
func Bytes(name string, dst *[]byte, limit int) Field {
	return Field{name: name, kind: kindBytes, limit: limit, b: dst}
}

// String decodes a string of at most limit bytes into dst.
func String(name string, dst *string, limit int) Field {
	return Field{name: name, kind: kindString, limit: limit, str: dst}
}

// MPInt decodes a non-negative mpint into dst.
func MPInt(name string, dst **big.Int) Field {
	return Field{name: name, kind: kindMPInt, n: dst}
}

// Decode reads fields in order from buf and returns the bytes consumed.
// On error, destinations of fields already read are left populated.
func Decode(buf []byte, fields ...Field) (int, error) {
	d := NewDecoder(buf)
	if err := d.Decode(fields...); err != nil {
		return d.Consumed(), err
	}
	return d.Consumed(), nil
}

// Decode reads fields in order from the decoder's position.
func (d *Decoder) Decode(fields ...Field) error {
	for _, f := range fields {
		var err error
		switch f.kind {
		case kindUint32:
			*f.u32, err = d.Uint32(f.name)
		case kindBytes:
			*f.b, err = d.Bytes(f.name, f.limit)
		case kindString:
			*f.str, err = d.String(f.name, f.limit)
		case kindMPInt:
			*f.n, err = d.MPInt(f.name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Encoder builds SSH wire data.
type Encoder struct {
	b *cryptobyte.Builder
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{b: cryptobyte.NewBuilder(nil)}
}

// Uint32 appends a big-endian uint32.
func (e *Encoder) Uint32(v uint32) *Encoder {
	e.b.AddUint32(v)
	return e
}

// Bytes appends a length-prefixed string.
func (e *Encoder) Bytes(v []byte) *Encoder {
	e.b.AddUint32LengthPrefixed(func(c *cryptobyte.Builder) {
		c.AddBytes(v)
	})
	return e
}

// String appends a length-prefixed string.
func (e *Encoder) String(v string) *Encoder {
	return e.Bytes([]byte(v))
}

// MPInt appends x as an mpint. Zero encodes as the empty string.
func (e *Encoder) MPInt(x *big.Int) *Encoder {
	if x.Sign() < 0 {
		e.b.SetError(errors.New("sshwire: negative mpint"))
		return e
	}
	b := x.Bytes()
	if len(b) > 0 && b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return e.Bytes(b)
}

// Raw appends v without a length prefix.
func (e *Encoder) Raw(v []byte) *Encoder {
	e.b.AddBytes(v)
	return e
}

// Finish returns the encoded bytes.
func (e *Encoder) Finish() ([]byte, error) {
	return e.b.Bytes()
}
