// Package streamio reads and writes decoded demo streams as JSON lines, one
// envelope per line, optionally snappy framed.
package streamio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/demolens/tickstate/pkg/streaming"

	"github.com/golang/snappy"
)

// Compression selects the framing of a stream file.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionAuto   Compression = "auto" // snappy for *.sz, none otherwise
)

// SnappyExt marks snappy framed stream files.
const SnappyExt = ".sz"

const maxLineSize = 16 << 20

// Source yields stream messages in order. Next returns io.EOF after the
// last message.
type Source interface {
	Next() (streaming.Message, error)
}

// Reader decodes envelopes line by line.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// NewReader wraps r. CompressionAuto is treated as none since there is no
// file name to go by.
func NewReader(r io.Reader, c Compression) *Reader {
	if c == CompressionSnappy {
		r = snappy.NewReader(r)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Open opens a stream file for reading.
func Open(path string, c Compression) (*Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("stream path must be provided")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	r := NewReader(f, Resolve(path, c))
	r.closer = f
	return r, nil
}

// Resolve turns CompressionAuto into a concrete framing for path.
func Resolve(path string, c Compression) Compression {
	switch c {
	case CompressionSnappy, CompressionNone:
		return c
	}
	if strings.EqualFold(filepath.Ext(path), SnappyExt) {
		return CompressionSnappy
	}
	return CompressionNone
}

// Next returns the next message. Blank lines are skipped.
func (r *Reader) Next() (streaming.Message, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var env streaming.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		msg, err := streaming.Decode(env)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return msg, nil
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("line %d: %w", r.line+1, err)
		}
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return nil, io.EOF
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// Close closes the underlying file, if the reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// SliceSource replays a fixed list of messages.
type SliceSource struct {
	msgs []streaming.Message
	pos  int
}

func NewSliceSource(msgs ...streaming.Message) *SliceSource {
	return &SliceSource{msgs: msgs}
}

func (s *SliceSource) Next() (streaming.Message, error) {
	if s.pos >= len(s.msgs) {
		return nil, io.EOF
	}
	msg := s.msgs[s.pos]
	s.pos++
	return msg, nil
}

// Len returns the total number of messages.
func (s *SliceSource) Len() int {
	return len(s.msgs)
}
