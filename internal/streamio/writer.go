package streamio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/demolens/tickstate/pkg/streaming"

	"github.com/golang/snappy"
)

// Writer encodes messages as envelope lines.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	stream *snappy.Writer
	file   *os.File
}

// NewWriter writes to w. With CompressionSnappy the output is snappy framed.
func NewWriter(w io.Writer, c Compression) *Writer {
	wr := &Writer{out: w}
	if c == CompressionSnappy {
		wr.stream = snappy.NewBufferedWriter(w)
		wr.out = wr.stream
	}
	return wr
}

// Create creates a stream file. CompressionAuto picks the framing from the
// file extension.
func Create(path string, c Compression) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating stream: %w", err)
	}
	w := NewWriter(f, Resolve(path, c))
	w.file = f
	return w, nil
}

// Write appends one message.
func (w *Writer) Write(msg streaming.Message) error {
	env, err := streaming.Encode(msg)
	if err != nil {
		return err
	}
	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", env.Type, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(line); err != nil {
		return err
	}
	_, err = w.out.Write([]byte("\n"))
	return err
}

// Close flushes the snappy frame, if any, and closes the file Create opened.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.stream != nil {
		err = w.stream.Close()
	}
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
