// Package parse provides small byte-cursor primitives used to decode
// the fixed-layout disk image formats in this repository. It plays
// the role nom's parser combinators play in the original implementation
// this was ported from, but as a handful of explicit, error-returning
// methods rather than combinator functions, matching the way the rest
// of this codebase already decodes structures by hand (see
// lib/dos33.FileDesc.FromBytes and lib/disk/marshal.go).
package parse

import (
	"encoding/binary"

	"github.com/zellyn/diskii/lib/errors"
)

// Cursor reads sequentially through an in-memory byte slice,
// returning an Invalid error (see lib/errors) instead of panicking
// whenever a read would run past the end of the slice.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps data for sequential parsing.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Rest returns every byte not yet consumed, without advancing.
func (c *Cursor) Rest() []byte {
	return c.data[c.pos:]
}

// Take consumes and returns the next n bytes.
func (c *Cursor) Take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, errors.Invalidf("parse: need %d bytes at offset %d, only %d remain", n, c.pos, c.Remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Peek returns the next n bytes without advancing the cursor.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, errors.Invalidf("parse: need %d bytes at offset %d, only %d remain", n, c.pos, c.Remaining())
	}
	return c.data[c.pos : c.pos+n], nil
}

// Skip advances the cursor by n bytes without returning them.
func (c *Cursor) Skip(n int) error {
	_, err := c.Take(n)
	return err
}

// SeekTo moves the cursor to an absolute offset from the start of the
// underlying slice, used by formats (like the Commodore BAM) whose
// layout is addressed by a fixed absolute offset rather than relative
// fields.
func (c *Cursor) SeekTo(offset int) error {
	if offset < 0 || offset > len(c.data) {
		return errors.Invalidf("parse: seek offset %d out of range (len %d)", offset, len(c.data))
	}
	c.pos = offset
	return nil
}

// Tag consumes len(expected) bytes and requires they equal expected
// exactly, the way nom's tag() combinator verifies a magic number.
func (c *Cursor) Tag(expected []byte) error {
	got, err := c.Take(len(expected))
	if err != nil {
		return err
	}
	for i := range expected {
		if got[i] != expected[i] {
			return errors.Invalidf("parse: expected tag %q at offset %d, got %q", expected, c.pos-len(expected), got)
		}
	}
	return nil
}

// U8 reads a single byte.
func (c *Cursor) U8() (byte, error) {
	b, err := c.Take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// LEU16 reads a little-endian 16-bit word.
func (c *Cursor) LEU16() (uint16, error) {
	b, err := c.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// BEU16 reads a big-endian 16-bit word, used by STX sector-header
// CRCs.
func (c *Cursor) BEU16() (uint16, error) {
	b, err := c.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// LEU32 reads a little-endian 32-bit word.
func (c *Cursor) LEU32() (uint32, error) {
	b, err := c.Take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// TakeUntil consumes and returns bytes up to (not including) the next
// occurrence of marker, leaving the cursor positioned at marker. It
// mirrors nom's take_until().
func (c *Cursor) TakeUntil(marker byte) ([]byte, error) {
	for i := c.pos; i < len(c.data); i++ {
		if c.data[i] == marker {
			b := c.data[c.pos:i]
			c.pos = i
			return b, nil
		}
	}
	return nil, errors.Invalidf("parse: marker 0x%02X not found after offset %d", marker, c.pos)
}
