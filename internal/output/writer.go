package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Writer appends records as JSON lines.
type Writer struct {
	bw    *bufio.Writer
	enc   *json.Encoder
	c     io.Closer
	count int
}

// NewWriter writes to w. Close flushes but does not close w.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{bw: bw, enc: json.NewEncoder(bw)}
}

// Create truncates path and writes records to it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w := NewWriter(f)
	w.c = f
	return w, nil
}

// WriteRecord appends r.
func (w *Writer) WriteRecord(_ context.Context, r *Record) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("encode record %d:%d:%d: %w", r.Run, r.Lumi, r.Event, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int { return w.count }

// Close flushes buffered records and closes the file opened by Create.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	if w.c != nil {
		return w.c.Close()
	}
	return nil
}

// ReadAll decodes every record from r.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
