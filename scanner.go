package fmp4

import (
	"io"

	"github.com/pkg/errors"
)

// ScanEntry is a top-level box discovered by the Scanner.
type ScanEntry struct {
	Type       BoxType
	Size       int64 // total box size including header
	Offset     int64 // byte offset from start of stream
	HeaderSize int   // 8, or 16 with a 64-bit size
}

// DataSize returns the size of the box data (excluding the header).
func (e ScanEntry) DataSize() int64 {
	return e.Size - int64(e.HeaderSize)
}

// Scanner reads top-level box headers from an io.ReadSeeker without loading
// box contents. Callers pick the boxes they need (moov, moof) and read them
// with ReadBox for parsing with NewReader or ParseFragment.
//
//	sc := fmp4.NewScanner(f)
//	for sc.Next() {
//	    e := sc.Entry()
//	    if e.Type == fmp4.TypeMoof {
//	        buf := make([]byte, e.Size)
//	        sc.ReadBox(buf)
//	        frag, err := fmp4.ParseFragment(buf, e.Offset)
//	        ...
//	    }
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	rs    io.ReadSeeker
	hdr   [16]byte
	entry ScanEntry
	err   error
	pos   int64 // current position in stream
	end   int64 // stream length, -1 until known
}

// NewScanner creates a Scanner that reads box headers from rs.
func NewScanner(rs io.ReadSeeker) Scanner {
	return Scanner{rs: rs, end: -1}
}

// streamEnd returns the stream length, seeking to the end once and back.
func (s *Scanner) streamEnd() (int64, error) {
	if s.end >= 0 {
		return s.end, nil
	}
	cur, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.rs.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	s.end = end
	return end, nil
}

// Next advances to the next top-level box. Returns false at end of stream
// or on error; check Err after the loop. A box that claims more bytes than
// the stream holds fails with ErrBoxOverrun.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	n, err := io.ReadFull(s.rs, s.hdr[:8])
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			s.err = errors.Wrapf(ErrTruncatedHeader, "offset %d: %d trailing bytes", s.pos, n)
		} else if err != io.EOF {
			s.err = err
		}
		return false
	}

	boxStart := s.pos
	size := int64(be.Uint32(s.hdr[:4]))
	var t BoxType
	copy(t[:], s.hdr[4:8])
	headerSize := 8

	if size == 1 {
		if _, err = io.ReadFull(s.rs, s.hdr[8:16]); err != nil {
			s.err = errors.Wrapf(ErrTruncatedHeader, "%s at offset %d: largesize: %v", t, boxStart, err)
			return false
		}
		size = int64(be.Uint64(s.hdr[8:16]))
		headerSize = 16
	}

	end, err := s.streamEnd()
	if err != nil {
		s.err = err
		return false
	}
	if size == 0 {
		// Box extends to end of file
		size = end - boxStart
	}

	if size < int64(headerSize) {
		s.err = errors.Wrapf(ErrTruncatedHeader, "%s at offset %d: size %d smaller than header", t, boxStart, size)
		return false
	}
	if size > end-boxStart {
		s.err = errors.Wrapf(ErrBoxOverrun, "%s at offset %d: size %d, %d bytes left", t, boxStart, size, end-boxStart)
		return false
	}

	s.entry = ScanEntry{
		Type:       t,
		Size:       size,
		Offset:     boxStart,
		HeaderSize: headerSize,
	}

	if dataSize := size - int64(headerSize); dataSize > 0 {
		if _, err := s.rs.Seek(dataSize, io.SeekCurrent); err != nil {
			s.err = err
			return false
		}
	}
	s.pos = boxStart + size
	return true
}

// Entry returns the current box entry. Only valid after Next returns true.
func (s *Scanner) Entry() ScanEntry {
	return s.entry
}

// Err returns the first non-EOF error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// ReadBody reads the current box's data (excluding header) into buf, which
// must be DataSize() bytes long.
func (s *Scanner) ReadBody(buf []byte) error {
	return s.readAt(s.entry.Offset+int64(s.entry.HeaderSize), buf)
}

// ReadBox reads the current box including its header into buf, which must
// be Size bytes long.
func (s *Scanner) ReadBox(buf []byte) error {
	return s.readAt(s.entry.Offset, buf)
}

// readAt fills buf from off and restores the scan position.
func (s *Scanner) readAt(off int64, buf []byte) error {
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.rs, buf); err != nil {
		return errors.Wrapf(err, "%s at offset %d", s.entry.Type, s.entry.Offset)
	}
	_, err := s.rs.Seek(s.pos, io.SeekStart)
	return err
}
