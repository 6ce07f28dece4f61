package util

import (
	"io"
)

// CountingReader counts the number of bytes read through it.
type CountingReader struct {
	reader io.Reader
	count  uint64
}

func NewCountingReader(reader io.Reader) *CountingReader {
	return &CountingReader{reader: reader}
}

func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count += uint64(n)
	return n, err
}

// Count returns the total number of bytes read so far.
func (r *CountingReader) Count() uint64 {
	return r.count
}
