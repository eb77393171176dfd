package fmp4

import (
	"github.com/pkg/errors"
)

// ErrInsufficientData is returned when a read or skip needs more bytes than
// remain in the buffer.
var ErrInsufficientData = errors.New("insufficient data")

// Cursor reads big-endian fixed-width integers sequentially from a buffer.
// A Cursor is not safe for concurrent use.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a Cursor positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the number of bytes consumed so far.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the number of unread bytes.
func (c *Cursor) Len() int { return len(c.buf) - c.pos }

// take returns the next n bytes and advances past them.
func (c *Cursor) take(op string, n int) ([]byte, error) {
	if n < 0 || c.Len() < n {
		return nil, errors.Wrapf(ErrInsufficientData, "%s: need %d bytes, have %d", op, n, c.Len())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.take("read uint16", 2)
	if err != nil {
		return 0, err
	}
	return be.Uint16(b), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.take("read uint32", 4)
	if err != nil {
		return 0, err
	}
	return be.Uint32(b), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (c *Cursor) ReadUint64() (uint64, error) {
	b, err := c.take("read uint64", 8)
	if err != nil {
		return 0, err
	}
	return be.Uint64(b), nil
}

// ReadInt32 reads a two's complement signed 32-bit integer.
func (c *Cursor) ReadInt32() (int32, error) {
	b, err := c.take("read int32", 4)
	if err != nil {
		return 0, err
	}
	return int32(be.Uint32(b)), nil
}

// Skip advances past n bytes without decoding them.
func (c *Cursor) Skip(n int) error {
	_, err := c.take("skip", n)
	return err
}
