package partition

import (
	"fmt"

	"github.com/arkilian/splitter/pkg/types"
)

// DedupStrategy selects how a sink decides whether a record already exists
// in its partition.
type DedupStrategy string

const (
	// DedupScan rereads the whole partition file on every offer.
	DedupScan DedupStrategy = "scan"

	// DedupBloom keeps a bloom filter of the partition. A definite miss is
	// appended directly; a possible hit falls back to a full rescan.
	DedupBloom DedupStrategy = "bloom"

	// DedupMemory keeps an exact in-memory set of the partition's records.
	DedupMemory DedupStrategy = "memory"
)

// ParseDedupStrategy validates a strategy name.
func ParseDedupStrategy(s string) (DedupStrategy, error) {
	switch DedupStrategy(s) {
	case DedupScan, DedupBloom, DedupMemory:
		return DedupStrategy(s), nil
	default:
		return "", fmt.Errorf("partition: unsupported dedup strategy %q (must be scan, bloom, or memory)", s)
	}
}

// dedupIndex summarizes a partition's content. Implementations are guarded
// by the owning sink's lock.
type dedupIndex interface {
	// mayContain returns false only if the record is definitely absent.
	mayContain(rec types.Record) bool

	// add registers a record that is now in the partition.
	add(rec types.Record)

	// exact reports whether a positive mayContain is authoritative.
	exact() bool
}

// newDedupIndex returns nil for DedupScan.
func newDedupIndex(opts SinkOptions, existing int) dedupIndex {
	switch opts.Dedup {
	case DedupBloom:
		capacity := opts.BloomExpectedItems
		if 2*existing > capacity {
			capacity = 2 * existing
		}
		return &bloomIndex{filter: newBloomFilter(capacity, opts.BloomFPR)}
	case DedupMemory:
		return &memoryIndex{records: make(map[types.Record]struct{}, existing)}
	default:
		return nil
	}
}

type memoryIndex struct {
	records map[types.Record]struct{}
}

func (m *memoryIndex) mayContain(rec types.Record) bool {
	_, ok := m.records[rec]
	return ok
}

func (m *memoryIndex) add(rec types.Record) {
	m.records[rec] = struct{}{}
}

func (m *memoryIndex) exact() bool { return true }

type bloomIndex struct {
	filter *bloomFilter
}

func (b *bloomIndex) mayContain(rec types.Record) bool {
	return b.filter.mayContain([]byte(rec.String()))
}

func (b *bloomIndex) add(rec types.Record) {
	b.filter.add([]byte(rec.String()))
}

func (b *bloomIndex) exact() bool { return false }
