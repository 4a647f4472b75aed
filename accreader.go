// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package accreader makes a forward-only stream seekable by remembering it.
//
// A Reader wraps any io.Reader (a socket, a pipe, a decompressor) and adds
// io.Seeker and io.ReaderAt on top, so the stream can be handed to code
// that insists on random access, like archive parsers. Every byte pulled
// from the source is retained for the life of the Reader: seeking backward
// replays from memory, seeking forward pulls from the source exactly as
// far as needed and no further. The source is never asked for the same
// byte twice.
//
// The price is memory. Nothing is ever evicted, so the footprint grows to
// the total number of bytes read or seeked past, and a Seek relative to
// the end buffers the entire remaining stream. Do not use this on streams
// you are not prepared to hold in memory whole.
package accreader

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

// DefaultChunk is the source read size used by Fill when the
// accumulated buffer has no unread bytes left.
const DefaultChunk = 1024

// ErrNegativeOffset is returned by Seek and ReadAt when the requested
// position works out below the start of the stream.
var ErrNegativeOffset = errors.New("accreader: negative offset")

// Reader adds io.Seeker, io.ReaderAt and a Fill/Consume surface to a
// plain io.Reader. Not safe for concurrent use, including ReadAt.
type Reader struct {
	src   io.Reader
	buf   []byte // all bytes ever read from src, in order
	pos   int64  // invariant: 0 <= pos <= len(buf)
	eof   bool   // src returned io.EOF; len(buf) is the stream length
	chunk int
}

func New(src io.Reader) *Reader {
	return NewSize(src, DefaultChunk)
}

// NewSize is like New with a caller-chosen Fill chunk size.
func NewSize(src io.Reader, chunk int) *Reader {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &Reader{src: src, chunk: chunk}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.pos < int64(len(r.buf)) {
		n := copy(p, r.buf[r.pos:])
		r.pos += int64(n)
		return n, nil
	}
	if r.eof {
		return 0, io.EOF
	}

	// At the edge of the accumulator: pass the read straight through,
	// preserving the source's own granularity, and remember the result.
	n, err := r.src.Read(p)
	r.buf = append(r.buf, p[:n]...)
	r.pos += int64(n)
	if err == io.EOF {
		r.eof = true
	}
	return n, err
}

func (r *Reader) ReadByte() (byte, error) {
	view, err := r.Fill()
	if err != nil {
		return 0, err
	}
	if len(view) == 0 {
		return 0, io.EOF
	}
	r.pos++
	return view[0], nil
}

// Fill returns a view of the unread bytes already in memory, without
// copying. If there are none it asks the source for one chunk first. An
// empty view with a nil error means the source is exhausted. The view is
// only valid until the next call on r.
func (r *Reader) Fill() ([]byte, error) {
	if r.pos == int64(len(r.buf)) && !r.eof {
		base := len(r.buf)
		r.buf = slices.Grow(r.buf, r.chunk)
		n, err := r.src.Read(r.buf[base : base+r.chunk])
		r.buf = r.buf[:base+n]
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return nil, err
		}
	}
	return r.buf[r.pos:], nil
}

// Consume marks the first n bytes of the last Fill view as read. n is
// clamped to the bytes actually buffered.
func (r *Reader) Consume(n int) {
	r.pos = min(r.pos+int64(max(n, 0)), int64(len(r.buf)))
}

// Seek implements io.Seeker. Seeking backward is free. Seeking forward of
// the accumulated bytes reads the source up to the target, and io.SeekEnd
// reads it to exhaustion, because the length is not known until then.
// Seeking past the true end returns io.ErrUnexpectedEOF and leaves the
// position at the end; the stream stays intact and fully replayable.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		if err := r.drain(); err != nil {
			return r.pos, err
		}
		target = int64(len(r.buf)) + offset
	default:
		return r.pos, fmt.Errorf("accreader: invalid whence %d", whence)
	}

	if target < 0 {
		return r.pos, ErrNegativeOffset
	}
	if err := r.fetch(target); err != nil {
		return r.pos, err
	}
	if target > int64(len(r.buf)) {
		r.pos = int64(len(r.buf))
		return r.pos, io.ErrUnexpectedEOF
	}
	r.pos = target
	return r.pos, nil
}

// fetch reads from the source until the accumulator holds at least
// target bytes, the source ends, or it fails. Partial progress is kept.
func (r *Reader) fetch(target int64) error {
	for int64(len(r.buf)) < target && !r.eof {
		base := len(r.buf)
		// bounded growth steps: a target far past the true end must not
		// allocate for bytes that turn out not to exist
		step := int(min(target-int64(base), int64(max(r.chunk, base))))
		r.buf = slices.Grow(r.buf, step)
		n, err := r.src.Read(r.buf[base : base+step])
		r.buf = r.buf[:base+n]
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) drain() error {
	for !r.eof {
		base := len(r.buf)
		r.buf = slices.Grow(r.buf, r.chunk)
		n, err := r.src.Read(r.buf[base:cap(r.buf)])
		r.buf = r.buf[:base+n]
		if err == io.EOF {
			r.eof = true
		} else if err != nil {
			return err
		}
	}
	return nil
}
