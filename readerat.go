// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package accreader

import "io"

// ReadAt reads at an absolute offset without moving the Seek position,
// pulling from the source as needed to reach off+len(p). Unlike most
// io.ReaderAt implementations it must not be called concurrently,
// because it shares the accumulator with every other method.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}

	ferr := r.fetch(off + int64(len(p)))

	var n int
	if off < int64(len(r.buf)) {
		n = copy(p, r.buf[off:])
	}
	if n == len(p) {
		return n, nil
	}
	if ferr != nil {
		return n, ferr
	}
	return n, io.EOF
}

// Size reads the source to exhaustion and returns the total stream
// length, leaving the Seek position alone. It is the companion to ReadAt
// for callers like zip.NewReader that want a ReaderAt plus a size.
func (r *Reader) Size() (int64, error) {
	if err := r.drain(); err != nil {
		return 0, err
	}
	return int64(len(r.buf)), nil
}
