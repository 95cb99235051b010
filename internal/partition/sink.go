package partition

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/pkg/types"
)

// SinkState is the lifecycle position of a sink.
type SinkState int

const (
	SinkUnopened SinkState = iota
	SinkOpen
	SinkFailed
	SinkClosed
)

func (s SinkState) String() string {
	switch s {
	case SinkUnopened:
		return "unopened"
	case SinkOpen:
		return "open"
	case SinkFailed:
		return "failed"
	case SinkClosed:
		return "closed"
	default:
		return fmt.Sprintf("SinkState(%d)", int(s))
	}
}

// SinkOptions controls how sinks deduplicate.
type SinkOptions struct {
	// Dedup selects the dedup strategy (default: scan)
	Dedup DedupStrategy

	// BloomExpectedItems sizes a fresh bloom filter (default: 4096)
	BloomExpectedItems int

	// BloomFPR is the bloom filter target false positive rate (default: 0.01)
	BloomFPR float64
}

// DefaultSinkOptions returns the default sink options.
func DefaultSinkOptions() SinkOptions {
	return SinkOptions{
		Dedup:              DedupScan,
		BloomExpectedItems: 4096,
		BloomFPR:           0.01,
	}
}

// Sink is the live handle on one key's partition file. Its mutex is the
// per-key exclusive region: every read-scan-append sequence runs under it.
type Sink struct {
	key  types.Key
	path string
	opts SinkOptions

	mu           sync.Mutex
	state        SinkState
	openErr      error
	file         *os.File
	index        dedupIndex
	needsNewline bool
	opened       bool

	appended   int64
	duplicates int64
	rescans    int64
}

func newSink(key types.Key, path string, opts SinkOptions) *Sink {
	return &Sink{
		key:   key,
		path:  path,
		opts:  opts,
		state: SinkUnopened,
	}
}

// Key returns the partition key served by this sink.
func (s *Sink) Key() types.Key { return s.key }

// Path returns the partition file path.
func (s *Sink) Path() string { return s.path }

// State returns the current lifecycle state.
func (s *Sink) State() SinkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ensureOpen performs Unopened -> Open exactly once. A failed open is
// remembered and returned to every later caller.
func (s *Sink) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SinkOpen:
		return nil
	case SinkFailed:
		return s.openErr
	case SinkClosed:
		return splerrors.NewSinkError(splerrors.CodeSinkClosed, fmt.Sprintf("sink %q is closed", s.key.String()), nil)
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return s.failLocked(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return s.failLocked(err)
	}
	if info.Size() > 0 {
		var last [1]byte
		if _, err := f.ReadAt(last[:], info.Size()-1); err != nil {
			f.Close()
			return s.failLocked(err)
		}
		s.needsNewline = last[0] != '\n'
	}

	s.file = f
	if err := s.loadIndexLocked(0); err != nil {
		f.Close()
		s.file = nil
		return s.failLocked(err)
	}

	s.state = SinkOpen
	s.opened = true
	return nil
}

func (s *Sink) failLocked(cause error) error {
	s.state = SinkFailed
	s.openErr = splerrors.NewSinkError(
		splerrors.CodeSinkOpenFailed,
		fmt.Sprintf("cannot open partition %q", s.key.String()),
		cause,
	).WithDetails(map[string]interface{}{"key": s.key.String(), "path": s.path})
	return s.openErr
}

// loadIndexLocked builds the dedup index from the file. minCapacity lets a
// saturated bloom filter be rebuilt larger.
func (s *Sink) loadIndexLocked(minCapacity int) error {
	if s.opts.Dedup != DedupBloom && s.opts.Dedup != DedupMemory {
		return nil
	}

	var existing []types.Record
	err := s.scanLocked(func(rec types.Record) bool {
		existing = append(existing, rec)
		return true
	})
	if err != nil {
		return err
	}

	n := len(existing)
	if minCapacity > n {
		n = minCapacity
	}
	idx := newDedupIndex(s.opts, n)
	for _, rec := range existing {
		idx.add(rec)
	}
	s.index = idx
	return nil
}

// scanLocked calls fn for every parseable line of the partition until fn
// returns false. Lines that do not match the record grammar are skipped.
func (s *Sink) scanLocked(fn func(types.Record) bool) error {
	s.rescans++

	r := io.NewSectionReader(s.file, 0, math.MaxInt64)
	return types.ReadLines(r, func(line string) bool {
		rec, ok := types.ParseRecord(line)
		if !ok {
			return true
		}
		return fn(rec)
	})
}

// containsLocked runs the dedup check against the partition.
func (s *Sink) containsLocked(rec types.Record) (bool, error) {
	if s.index != nil {
		if !s.index.mayContain(rec) {
			return false, nil
		}
		if s.index.exact() {
			return true, nil
		}
	}

	found := false
	err := s.scanLocked(func(existing types.Record) bool {
		if existing.Equal(rec) {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// Offer appends rec unless an equal record is already in the partition.
// The read-scan-append sequence is atomic with respect to other callers on
// the same sink. It returns true when the record was written.
func (s *Sink) Offer(rec types.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SinkOpen {
		if s.state == SinkFailed {
			return false, s.openErr
		}
		return false, splerrors.NewSinkError(
			splerrors.CodeSinkClosed,
			fmt.Sprintf("sink %q is %s", s.key.String(), s.state),
			nil,
		)
	}

	exists, err := s.containsLocked(rec)
	if err != nil {
		return false, splerrors.NewIOError(
			splerrors.CodeReadFailed,
			fmt.Sprintf("scan partition %q", s.key.String()),
			err,
		)
	}
	if exists {
		s.duplicates++
		return false, nil
	}

	line := rec.Line()
	if s.needsNewline {
		line = append([]byte{'\n'}, line...)
	}
	if _, err := s.file.Write(line); err != nil {
		// A short write may leave a partial line at the end of the file.
		s.needsNewline = true
		return false, splerrors.NewIOError(
			splerrors.CodeAppendFailed,
			fmt.Sprintf("append to partition %q", s.key.String()),
			err,
		)
	}
	s.needsNewline = false
	s.appended++

	if s.index != nil {
		s.index.add(rec)
		if bi, ok := s.index.(*bloomIndex); ok && bi.filter.saturated() {
			// A rebuild failure only costs precision; the file stays authoritative.
			if err := s.loadIndexLocked(int(2 * bi.filter.capacity)); err != nil {
				s.index = nil
			}
		}
	}

	return true, nil
}

// Records returns every parseable record currently in the partition.
func (s *Sink) Records() ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SinkOpen {
		return nil, fmt.Errorf("partition: sink %q is %s", s.key.String(), s.state)
	}

	var out []types.Record
	err := s.scanLocked(func(rec types.Record) bool {
		out = append(out, rec)
		return true
	})
	return out, err
}

// SinkStats is a snapshot of one sink's counters.
type SinkStats struct {
	Key        types.Key
	Path       string
	State      SinkState
	Opened     bool
	Appended   int64
	Duplicates int64
	Rescans    int64
}

// Stats returns a snapshot of the sink's counters.
func (s *Sink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SinkStats{
		Key:        s.key,
		Path:       s.path,
		State:      s.state,
		Opened:     s.opened,
		Appended:   s.appended,
		Duplicates: s.duplicates,
		Rescans:    s.rescans,
	}
}

// Close performs Open -> Closed. Closing a sink that never opened just
// marks it closed; closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SinkClosed {
		return nil
	}

	var err error
	if s.file != nil {
		err = s.file.Close()
		s.file = nil
	}
	s.index = nil
	if s.state == SinkOpen || s.state == SinkUnopened {
		s.state = SinkClosed
	}
	return err
}
