// Package pipeline wires the producer, the consumer pool and the sink
// registry into a single run.
package pipeline

import (
	"io"

	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/internal/partition"
	"github.com/arkilian/splitter/internal/queue"
	"github.com/arkilian/splitter/pkg/types"
)

// ProducerStats counts what the producer saw.
type ProducerStats struct {
	LinesRead int64
	Malformed int64
	Enqueued  int64
}

// Produce reads r line by line and pushes one task per well-formed record.
// Malformed lines are skipped without error. The queue is closed exactly
// once when Produce returns, whether input ended or reading failed.
func Produce(r io.Reader, q *queue.Queue[types.Task], router *partition.Router) (ProducerStats, error) {
	defer q.Close()

	var stats ProducerStats
	err := types.ReadLines(r, func(line string) bool {
		stats.LinesRead++

		rec, ok := types.ParseRecord(line)
		if !ok {
			stats.Malformed++
			return true
		}

		q.Push(router.Task(rec))
		stats.Enqueued++
		return true
	})
	if err != nil {
		return stats, splerrors.NewInputError(splerrors.CodeInputReadFailed, "read input", err)
	}
	return stats, nil
}
