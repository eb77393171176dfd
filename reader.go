package fmp4

import "github.com/pkg/errors"

// maxDepth limits the reader nesting stack.
const maxDepth = 16

// readerFrame stores parent state when entering a container box.
type readerFrame struct {
	end    int // parent's iteration end boundary
	boxEnd int // position to resume after exiting this container
}

// Reader walks the box tree of an in-memory buffer. Each box's content is
// handed to decoders through a Cursor bounded to that box.
type Reader struct {
	buf []byte
	pos int // next position to parse from
	end int // iteration end boundary

	// Current box state
	boxType   BoxType
	boxSize   uint64
	boxStart  int
	boxEnd    int
	dataStart int

	// Full box fields
	version uint8
	flags   uint32

	stack    [maxDepth]readerFrame
	depth    int
	overflow int // Enter calls refused because the stack was full

	err error
}

// NewReader creates a Reader for the given buffer.
func NewReader(buf []byte) Reader {
	return Reader{
		buf: buf,
		end: len(buf),
	}
}

// Next advances to the next sibling box. Returns false if there are no more
// boxes at this level or the next header is malformed; check Err.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	// Skip past current box
	if r.boxEnd > r.pos {
		r.pos = r.boxEnd
	}
	// Fewer than 8 bytes cannot hold a header; treat them as padding.
	if r.end-r.pos < 8 {
		return false
	}

	h, err := ReadHeaders(r.buf[r.pos:r.end])
	if err != nil {
		r.err = errors.Wrapf(err, "box at offset %d", r.pos)
		return false
	}
	if h.Size > uint64(r.end-r.pos) {
		r.err = errors.Wrapf(ErrBoxOverrun, "%s at offset %d: size %d, %d bytes left", h.Type, r.pos, h.Size, r.end-r.pos)
		return false
	}

	r.boxType = h.Type
	r.boxSize = h.Size
	r.boxStart = r.pos
	r.boxEnd = r.pos + int(h.Size)
	r.dataStart = r.pos + h.HeaderSize
	r.version = h.Version
	r.flags = h.Flags
	return true
}

// Err returns the first malformed-header error met by Next, if any.
func (r *Reader) Err() error { return r.err }

// Type returns the current box's type.
func (r *Reader) Type() BoxType { return r.boxType }

// Size returns the current box's total size including header.
func (r *Reader) Size() uint64 { return r.boxSize }

// Version returns the version field for full boxes.
func (r *Reader) Version() uint8 { return r.version }

// Flags returns the flags field for full boxes.
func (r *Reader) Flags() uint32 { return r.flags }

// Offset returns the byte offset of the current box's start in the buffer.
func (r *Reader) Offset() int { return r.boxStart }

// HeaderSize returns the size of the current box's header in bytes.
func (r *Reader) HeaderSize() int { return r.dataStart - r.boxStart }

// Data returns the current box's data (after all headers).
// The returned slice points into the original buffer.
func (r *Reader) Data() []byte {
	return r.buf[r.dataStart:r.boxEnd]
}

// RawBox returns the entire current box including headers.
// The returned slice points into the original buffer.
func (r *Reader) RawBox() []byte {
	return r.buf[r.boxStart:r.boxEnd]
}

// Cursor returns a Cursor over the current box's data only.
func (r *Reader) Cursor() *Cursor {
	return NewCursor(r.Data())
}

// Depth returns the current nesting depth (0 at top level).
func (r *Reader) Depth() int { return r.depth }

// Enter descends into the current container box to iterate its children.
// After Enter, call Next to advance to the first child box.
// Call Exit when done to return to the parent level.
func (r *Reader) Enter() {
	if r.depth == maxDepth {
		r.err = errors.Errorf("%s at offset %d: nesting deeper than %d", r.boxType, r.boxStart, maxDepth)
		r.overflow++
		return
	}
	r.stack[r.depth] = readerFrame{
		end:    r.end,
		boxEnd: r.boxEnd,
	}
	r.depth++
	r.end = r.boxEnd
	r.pos = r.dataStart
	r.boxEnd = r.dataStart // prevent Next from skipping
}

// Exit returns to the parent container level.
// After Exit, the next call to Next will advance to the next sibling.
func (r *Reader) Exit() {
	if r.overflow > 0 {
		r.overflow--
		return
	}
	if r.depth == 0 {
		return
	}
	r.depth--
	f := r.stack[r.depth]
	r.end = f.end
	r.pos = f.boxEnd
	r.boxEnd = f.boxEnd
}
