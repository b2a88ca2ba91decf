package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// Source yields raw feed lines in arrival order. Next returns io.EOF when
// the source is exhausted; infinite sources (live subscriptions) block
// until a line arrives or the context is cancelled.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// Depth lines with full books run long; give the scanner headroom.
const maxLineBytes = 1 << 20

// FileSource replays a quote file line by line.
type FileSource struct {
	f  *os.File
	sc *bufio.Scanner
}

// OpenFile opens a quote file for replay.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quote file: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &FileSource{f: f, sc: sc}, nil
}

// Next returns the next line, or io.EOF at end of file.
func (s *FileSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", fmt.Errorf("read quote file: %w", err)
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// ChanSource adapts a line channel (e.g. a live feed subscription) to
// Source. A closed channel ends the stream with io.EOF.
type ChanSource struct {
	C <-chan string
}

// Next blocks for the next line.
func (s ChanSource) Next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-s.C:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
