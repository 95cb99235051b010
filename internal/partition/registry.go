package partition

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/pkg/types"
)

// ErrRegistryClosed is returned when acquiring a sink after CloseAll.
var ErrRegistryClosed = fmt.Errorf("partition: registry is closed")

// Registry owns one sink per key. Lookup and creation are guarded by a
// registry-wide lock; the read-scan-append sequence is guarded by each
// sink's own lock, so different keys proceed in parallel while writes to
// the same key are serialized.
type Registry struct {
	dir    string
	router *Router
	opts   SinkOptions

	globalMu sync.RWMutex
	sinks    map[types.Key]*Sink
	closed   bool
}

// NewRegistry creates a registry writing partitions under dir. The
// directory must already exist.
func NewRegistry(dir string, router *Router, opts SinkOptions) *Registry {
	if opts.Dedup == "" {
		opts.Dedup = DedupScan
	}
	return &Registry{
		dir:    dir,
		router: router,
		opts:   opts,
		sinks:  make(map[types.Key]*Sink),
	}
}

// Acquire returns the sink for key, creating and opening it on first use.
// Concurrent first references to a new key share a single open. If the
// open failed, the same error is returned to every caller for that key.
func (r *Registry) Acquire(key types.Key) (*Sink, error) {
	sink, err := r.getSink(key)
	if err != nil {
		return nil, err
	}
	if err := sink.ensureOpen(); err != nil {
		return nil, err
	}
	return sink, nil
}

// getSink returns the sink entry for a key, creating one if needed.
func (r *Registry) getSink(key types.Key) (*Sink, error) {
	// Try read lock first for existing key
	r.globalMu.RLock()
	if r.closed {
		r.globalMu.RUnlock()
		return nil, ErrRegistryClosed
	}
	if sink, exists := r.sinks[key]; exists {
		r.globalMu.RUnlock()
		return sink, nil
	}
	r.globalMu.RUnlock()

	// Need to create new entry - acquire write lock
	r.globalMu.Lock()
	defer r.globalMu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	// Double-check after acquiring write lock
	if sink, exists := r.sinks[key]; exists {
		return sink, nil
	}

	name, err := r.router.FileName(key)
	if err != nil {
		// Record a failed sink so later tasks for this key get the same answer.
		sink := newSink(key, "", r.opts)
		sink.state = SinkFailed
		sink.openErr = splerrors.NewSinkError(splerrors.CodeInvalidKey, "cannot name partition", err).
			WithDetails(map[string]interface{}{"key": key.String()})
		r.sinks[key] = sink
		return sink, nil
	}

	sink := newSink(key, filepath.Join(r.dir, name), r.opts)
	r.sinks[key] = sink
	return sink, nil
}

// CloseAll closes every sink exactly once and rejects further acquires.
// It must only be called after all workers have stopped.
func (r *Registry) CloseAll() error {
	r.globalMu.Lock()
	if r.closed {
		r.globalMu.Unlock()
		return nil
	}
	r.closed = true
	sinks := make([]*Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		sinks = append(sinks, s)
	}
	r.globalMu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("partition: close %q: %w", s.Key().String(), err))
		}
	}
	return errors.Join(errs...)
}

// Dir returns the output directory.
func (r *Registry) Dir() string { return r.dir }

// Router returns the router used to name partition files.
func (r *Registry) Router() *Router { return r.router }

// RegistryStats holds statistics about the registry's sinks.
type RegistryStats struct {
	ActiveKeys      int   // Sinks that reached Open (including now closed)
	FailedKeys      int   // Sinks whose open failed
	TotalAppended   int64 // Records written across all sinks
	TotalDuplicates int64 // Records rejected by the dedup check
	TotalRescans    int64 // Full partition scans performed
	Sinks           []SinkStats
}

// Stats returns per-sink counters sorted by key.
func (r *Registry) Stats() RegistryStats {
	r.globalMu.RLock()
	sinks := make([]*Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		sinks = append(sinks, s)
	}
	r.globalMu.RUnlock()

	var stats RegistryStats
	for _, s := range sinks {
		ss := s.Stats()
		if ss.State == SinkFailed {
			stats.FailedKeys++
		}
		if ss.Opened {
			stats.ActiveKeys++
		}
		stats.TotalAppended += ss.Appended
		stats.TotalDuplicates += ss.Duplicates
		stats.TotalRescans += ss.Rescans
		stats.Sinks = append(stats.Sinks, ss)
	}
	sort.Slice(stats.Sinks, func(i, j int) bool {
		return stats.Sinks[i].Key < stats.Sinks[j].Key
	})
	return stats
}
