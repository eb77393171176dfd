package fmp4_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetsuo/fmp4"
)

func TestCursorReads(t *testing.T) {
	c := fmp4.NewCursor([]byte{
		0x12, 0x34,
		0xde, 0xad, 0xbe, 0xef,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02,
		0xff, 0xff, 0xff, 0xfe,
	})

	u16, err := c.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := c.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := c.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0000000100000002), u64)

	i32, err := c.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)

	assert.Equal(t, 18, c.Pos())
	assert.Equal(t, 0, c.Len())
}

func TestCursorShortRead(t *testing.T) {
	c := fmp4.NewCursor([]byte{0x01, 0x02, 0x03})

	_, err := c.ReadUint32()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fmp4.ErrInsufficientData))
	assert.Equal(t, fmp4.ErrInsufficientData, errors.Cause(err))
	assert.Equal(t, 0, c.Pos(), "failed read must not advance")

	_, err = c.ReadUint64()
	assert.ErrorIs(t, err, fmp4.ErrInsufficientData)

	v, err := c.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v)
}

func TestCursorSkip(t *testing.T) {
	c := fmp4.NewCursor(make([]byte, 6))

	require.NoError(t, c.Skip(4))
	assert.Equal(t, 4, c.Pos())
	assert.ErrorIs(t, c.Skip(3), fmp4.ErrInsufficientData)
	assert.Equal(t, 4, c.Pos())
	require.NoError(t, c.Skip(2))
	require.NoError(t, c.Skip(0))
	assert.ErrorIs(t, c.Skip(-1), fmp4.ErrInsufficientData)
}

func TestCursorEmpty(t *testing.T) {
	c := fmp4.NewCursor(nil)
	_, err := c.ReadUint16()
	assert.ErrorIs(t, err, fmp4.ErrInsufficientData)
	assert.Equal(t, 0, c.Len())
}

func TestOptional(t *testing.T) {
	var none fmp4.Optional[uint32]
	_, ok := none.Get()
	assert.False(t, ok)
	assert.False(t, none.Valid())
	assert.Equal(t, uint32(7), none.Or(7))

	some := fmp4.Some[uint32](3)
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, uint32(3), v)
	assert.Equal(t, uint32(3), some.Or(7))

	b, err := none.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
	b, err = some.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "3", string(b))
}
