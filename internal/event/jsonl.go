package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileExtension is the extension of JSON-lines event files.
const FileExtension = ".jsonl"

// maxLineSize bounds a single event line; particle-flow arrays in central
// heavy-ion events run to a few MB.
const maxLineSize = 64 * 1024 * 1024

// RangeError is returned for entries outside the source.
type RangeError struct {
	Index, Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("event index out of range: %d >= %d", e.Index, e.Len)
}

type indexEntry struct {
	offset int64
	length int
}

// JSONLSource reads one JSON object per line. Opening the file builds an
// offset index so Event(i) is a single ReadAt.
type JSONLSource struct {
	path   string
	file   *os.File
	index  []indexEntry
	fields map[string]struct{}

	mu  sync.Mutex
	buf []byte
}

// OpenJSONL indexes path. The schema is taken from the first event.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events: %w", err)
	}

	s := &JSONLSource{path: path, file: f, fields: make(map[string]struct{})}

	r := bufio.NewReaderSize(f, 64*1024)
	var offset int64
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > maxLineSize {
			f.Close()
			return nil, fmt.Errorf("event line %d exceeds %d bytes", len(s.index), maxLineSize)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if len(s.index) == 0 {
				var first map[string]json.RawMessage
				if err := json.Unmarshal(trimmed, &first); err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to parse first event: %w", err)
				}
				for k := range first {
					s.fields[k] = struct{}{}
				}
			}
			s.index = append(s.index, indexEntry{offset: offset, length: len(line)})
		}
		offset += int64(len(line))
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to index events: %w", err)
		}
	}
	return s, nil
}

// Path returns the file being read.
func (s *JSONLSource) Path() string { return s.path }

func (s *JSONLSource) Len() int { return len(s.index) }

func (s *JSONLSource) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Event decodes entry i.
func (s *JSONLSource) Event(i int) (Event, error) {
	if i < 0 || i >= len(s.index) {
		return nil, &RangeError{Index: i, Len: len(s.index)}
	}
	entry := s.index[i]

	s.mu.Lock()
	defer s.mu.Unlock()
	if cap(s.buf) < entry.length {
		s.buf = make([]byte, entry.length)
	}
	buf := s.buf[:entry.length]
	if _, err := s.file.ReadAt(buf, entry.offset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read event %d: %w", i, err)
	}
	var fields Fields
	if err := json.Unmarshal(buf, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode event %d: %w", i, err)
	}
	return fields, nil
}

func (s *JSONLSource) Close() error {
	return s.file.Close()
}

// Writer records events as JSON lines, the format JSONLSource replays.
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one event.
func (w *Writer) Write(f Fields) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of events written.
func (w *Writer) Count() int { return w.count }

// Flush writes buffered events to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }
