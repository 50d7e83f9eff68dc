// Package source provides line cursors over text streams.
//
// A cursor is the only view a distillation stage has of its input: a
// pull interface yielding one line at a time. Exhaustion is structural,
// not an error; Err reports an underlying read fault only after Next
// has returned false.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single line read (1 MiB).
const maxLineSize = 1024 * 1024

// Cursor yields successive lines of a text stream. Next returns false
// once the stream is exhausted and every later call keeps returning
// false. Lines carry no terminator.
type Cursor interface {
	Next() (line string, ok bool)
	Err() error
}

// Lines is a Cursor over an io.Reader.
type Lines struct {
	scanner *bufio.Scanner
	err     error
	done    bool
}

// NewLines returns a cursor reading from r.
func NewLines(r io.Reader) *Lines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Lines{scanner: sc}
}

// Next returns the next line of the stream.
func (l *Lines) Next() (string, bool) {
	if l.done {
		return "", false
	}
	if l.scanner.Scan() {
		return l.scanner.Text(), true
	}
	l.done = true
	l.err = l.scanner.Err()
	return "", false
}

// Err returns the read error that ended the stream, nil on clean EOF.
func (l *Lines) Err() error { return l.err }

// File is a file-backed cursor.
type File struct {
	*Lines
	f *os.File
}

// Open returns a cursor over the named file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return &File{Lines: NewLines(f), f: f}, nil
}

// Close releases the underlying file.
func (f *File) Close() error { return f.f.Close() }

// Multi concatenates cursors into one stream, advancing to the next
// cursor as each one exhausts. A cursor that ends with a read error
// ends the whole stream.
type Multi struct {
	cursors []Cursor
	err     error
}

// NewMulti returns a cursor over the given cursors in order.
func NewMulti(cursors ...Cursor) *Multi {
	return &Multi{cursors: cursors}
}

// Next returns the next line across the concatenation.
func (m *Multi) Next() (string, bool) {
	for len(m.cursors) > 0 {
		line, ok := m.cursors[0].Next()
		if ok {
			return line, true
		}
		if err := m.cursors[0].Err(); err != nil {
			m.err = err
			m.cursors = nil
			return "", false
		}
		m.cursors = m.cursors[1:]
	}
	return "", false
}

// Err returns the read error that ended the stream, nil on clean EOF.
func (m *Multi) Err() error { return m.err }
