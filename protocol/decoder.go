// Package protocol implements the wire protocol for generation streams: the
// line-oriented frame decoder, the two payload encodings (legacy verb-prefixed
// lines and structured JSON), and the matching encoders used by the relay.
package protocol

import (
	"bufio"
	"io"
	"strings"
)

// dataMarker prefixes every candidate frame line on the wire.
const dataMarker = "data: "

// maxLineSize bounds a single frame line. Generated file chunks are small;
// 1 MiB leaves generous headroom.
const maxLineSize = 1024 * 1024

// Decoder splits a streaming response body into raw frame payload strings.
// Chunk boundaries may fall anywhere, including mid-line; the underlying
// buffered scanner carries partial lines across reads. Lines that do not start
// with the frame marker, and the blank lines used as frame separators, are
// discarded without error.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{scanner: sc}
}

// Next returns the next raw frame payload. It returns io.EOF when the stream
// ends, or the underlying read error.
func (d *Decoder) Next() (string, error) {
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, dataMarker) {
			continue
		}
		return strings.TrimPrefix(line, dataMarker), nil
	}
	if err := d.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
