package fmp4_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	amp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/require"
)

// marshalPayload encodes b with an independent muxer and returns the bytes
// following the full box version and flags.
func marshalPayload(t testing.TB, b amp4.IImmutableBox) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := amp4.Marshal(&buf, b, amp4.Context{})
	require.NoError(t, err)
	return buf.Bytes()[4:]
}

// marshalBox encodes b as a complete box with an 8-byte header.
func marshalBox(t testing.TB, b amp4.IImmutableBox) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := amp4.Marshal(&buf, b, amp4.Context{})
	require.NoError(t, err)
	typ := b.GetType()
	return makeBox(string(typ[:]), buf.Bytes())
}

// makeBox wraps the concatenated children in a box header.
func makeBox(typ string, children ...[]byte) []byte {
	var body []byte
	for _, c := range children {
		body = append(body, c...)
	}
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(8+len(body)))
	copy(out[4:], typ)
	return append(out, body...)
}

// makeLargeBox wraps body in a header with a 64-bit size.
func makeLargeBox(typ string, body []byte) []byte {
	out := make([]byte, 16, 16+len(body))
	binary.BigEndian.PutUint32(out, 1)
	copy(out[4:], typ)
	binary.BigEndian.PutUint64(out[8:], uint64(16+len(body)))
	return append(out, body...)
}

func u32(vs ...uint32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out
}
