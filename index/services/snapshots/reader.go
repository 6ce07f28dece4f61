package snapshots

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// maxLineBytes bounds a single snapshot line. Archived page bodies live on
// one line each, so this needs to be generous.
const maxLineBytes = 256 * 1024 * 1024

// Reader streams raw lines from a snapshot line file. Files ending in .zst
// are decompressed transparently; anything else is read as plain text.
type Reader struct {
	file    *os.File
	decoder *zstd.Decoder
	scanner *bufio.Scanner
}

func OpenReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening snapshot line file %s", path)
	}
	reader := &Reader{file: file}
	var source io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		reader.decoder, err = zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, errors.Wrapf(err, "error creating zstd reader for %s", path)
		}
		source = reader.decoder
	}
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 1024*1024), maxLineBytes)
	reader.scanner = scanner
	return reader, nil
}

// Next returns the next line, or io.EOF when the file is exhausted.
func (r *Reader) Next() (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	err := r.scanner.Err()
	if err != nil {
		return "", errors.Wrap(err, "error reading snapshot line")
	}
	return "", io.EOF
}

func (r *Reader) Close() error {
	if r.decoder != nil {
		r.decoder.Close()
	}
	return r.file.Close()
}
