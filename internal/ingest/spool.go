package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// DefaultBatchSize is the number of rows buffered in memory before a batch
// is flushed to the spool file, and the number of rows per batch handed to
// the bulk-insert pass.
const DefaultBatchSize = 5000

// errSpoolFinalized is returned when rows are appended after Finalize.
var errSpoolFinalized = errors.New("ingest: spool already finalized")

// Spool buffers normalized rows in fixed-size batches and stages them as
// newline-delimited JSON records in a temporary file, bounding peak memory
// independent of source size. The backing file is exclusively owned by one
// ingestion run; Close removes it on every exit path.
type Spool struct {
	f         *os.File
	w         *bufio.Writer
	batch     [][]any
	batchSize int
	rows      int
	finalized bool
}

// NewSpool creates a spool backed by a temporary file in dir (the system
// temp directory when dir is empty). batchSize falls back to
// DefaultBatchSize when it is not positive.
func NewSpool(dir string, batchSize int) (*Spool, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	f, err := os.CreateTemp(dir, "spool-"+uuid.NewString()+"-*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("ingest: create spool file: %w", err)
	}
	return &Spool{
		f:         f,
		w:         bufio.NewWriter(f),
		batch:     make([][]any, 0, batchSize),
		batchSize: batchSize,
	}, nil
}

// Append adds one normalized row, flushing the in-memory batch to disk when
// it reaches the configured size.
func (s *Spool) Append(row []any) error {
	if s.finalized {
		return errSpoolFinalized
	}
	s.batch = append(s.batch, row)
	s.rows++
	if len(s.batch) >= s.batchSize {
		return s.flushBatch()
	}
	return nil
}

// Finalize flushes any buffered remainder and makes the spool readable.
// Further Appends fail.
func (s *Spool) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	if len(s.batch) > 0 {
		if err := s.flushBatch(); err != nil {
			return err
		}
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("ingest: flush spool: %w", err)
	}
	return nil
}

func (s *Spool) flushBatch() error {
	var sb strings.Builder
	for _, row := range s.batch {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("ingest: encode spool row: %w", err)
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	if _, err := s.w.WriteString(sb.String()); err != nil {
		return fmt.Errorf("ingest: write spool batch: %w", err)
	}
	s.batch = s.batch[:0]
	return nil
}

// Rows returns the number of rows appended so far.
func (s *Spool) Rows() int { return s.rows }

// Close removes the backing file. Safe to call multiple times; removal
// failures are reported but the caller may ignore them (the file lives in
// a temp directory).
func (s *Spool) Close() error {
	if s.f == nil {
		return nil
	}
	name := s.f.Name()
	closeErr := s.f.Close()
	s.f = nil
	if err := os.Remove(name); err != nil && closeErr == nil {
		return fmt.Errorf("ingest: remove spool file: %w", err)
	}
	return closeErr
}

// Batches rewinds the spool and returns a sequential reader yielding one
// batch of up to the configured size at a time. The spool must be
// finalized first.
func (s *Spool) Batches() (*BatchReader, error) {
	if !s.finalized {
		return nil, errors.New("ingest: spool not finalized")
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ingest: rewind spool: %w", err)
	}
	sc := bufio.NewScanner(s.f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &BatchReader{sc: sc, size: s.batchSize}, nil
}

// BatchReader reads spooled rows back in source order.
type BatchReader struct {
	sc   *bufio.Scanner
	size int
	done bool
}

// Next returns the next batch of rows, or (nil, io.EOF) once the spool is
// exhausted.
func (r *BatchReader) Next() ([][]any, error) {
	if r.done {
		return nil, io.EOF
	}
	batch := make([][]any, 0, r.size)
	for len(batch) < r.size {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, fmt.Errorf("ingest: read spool: %w", err)
			}
			r.done = true
			break
		}
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		row, err := decodeSpoolRow(line)
		if err != nil {
			return nil, err
		}
		batch = append(batch, row)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}

// decodeSpoolRow decodes one JSON line back into the row form expected by
// the bulk-insert path. Numbers are decoded via json.Number so integers
// survive the round trip without being widened to float64.
func decodeSpoolRow(line []byte) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(string(line)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("ingest: decode spool row: %w", err)
	}
	row := make([]any, len(raw))
	for i, v := range raw {
		row[i] = normalizeSpoolValue(v)
	}
	return row, nil
}

func normalizeSpoolValue(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		for i, e := range n {
			n[i] = normalizeSpoolValue(e)
		}
		return n
	case map[string]any:
		for k, e := range n {
			n[k] = normalizeSpoolValue(e)
		}
		return n
	default:
		return v
	}
}
