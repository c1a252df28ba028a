package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/h2non/filetype"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ionkit/binary"
	"ionkit/text"
)

// sniffLen is enough for gzip magic and version marker.
const sniffLen = 4

func isGzip(head []byte) bool {
	return filetype.Is(head, "gz")
}

// isBinary reports binary version marker of any version, so unsupported
// versions are reported by binary cursor.
func isBinary(head []byte) bool {
	return len(head) >= 4 && head[0] == 0xE0 && head[3] == 0xEA
}

// decodeText strips byte order mark and converts UTF-16 to UTF-8. Input
// without BOM is passed through unchanged.
func decodeText(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, fmt.Errorf("unable to read text input: %w", err)
	}
	return data, nil
}

// NewBytes returns reader over encoded bytes. Input may be gzip compressed,
// binary or text. Binary input read this way supports spans.
func NewBytes(data []byte, opts ...Option) (*Reader, error) {
	if isGzip(data) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("unable to decompress input: %w", err)
		}
		defer gz.Close()
		if data, err = io.ReadAll(gz); err != nil {
			return nil, fmt.Errorf("unable to decompress input: %w", err)
		}
	}
	if isBinary(data) {
		c := binary.NewCursor(data)
		r := newReader(binaryCursor{c}, opts...)
		r.spans = &Spans{r: r, c: c}
		return r, nil
	}
	data, err := decodeText(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return newReader(textCursor{text.NewCursor(data)}, opts...), nil
}

// New returns reader over stream. Binary input is read one top-level value
// at a time, text input is read completely before the first value.
func New(in io.Reader, opts ...Option) (*Reader, error) {
	br := bufio.NewReader(in)
	head, _ := br.Peek(sniffLen)

	var closers []func() error
	if isGzip(head) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("unable to decompress input: %w", err)
		}
		closers = append(closers, gz.Close)
		br = bufio.NewReader(gz)
		head, _ = br.Peek(sniffLen)
	}

	var r *Reader
	if isBinary(head) {
		r = newReader(binaryCursor{binary.NewStreamCursor(br)}, opts...)
	} else {
		data, err := decodeText(br)
		if err != nil {
			return nil, err
		}
		r = newReader(textCursor{text.NewCursor(data)}, opts...)
	}
	r.closers = closers
	return r, nil
}
