package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	splerrors "github.com/arkilian/splitter/internal/errors"
	"github.com/arkilian/splitter/internal/partition"
	"github.com/arkilian/splitter/internal/queue"
	"github.com/arkilian/splitter/pkg/types"
)

// DefaultWorkers is the consumer pool size used when none is configured.
const DefaultWorkers = 4

// Options configures a pipeline run.
type Options struct {
	// InputPath is the record source
	InputPath string

	// OutputDir holds one partition file per key; created if missing
	OutputDir string

	// Workers is the consumer pool size (default: 4)
	Workers int

	// Router controls key derivation and partition file names
	Router partition.RouterConfig

	// Sink controls deduplication
	Sink partition.SinkOptions

	// Logger receives progress and per-task error reports (default: log.Default())
	Logger *log.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Producer   ProducerStats
	Consumer   ConsumerStats
	Partitions []partition.SinkStats
	Errors     []error
	Duration   time.Duration
}

// Driver runs the producer and consumer pool against a sink registry.
type Driver struct {
	opts   Options
	router *partition.Router
	logger *log.Logger
}

// NewDriver validates options and creates a driver.
func NewDriver(opts Options) (*Driver, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Router == (partition.RouterConfig{}) {
		opts.Router = partition.DefaultRouterConfig()
	}
	if opts.Sink.Dedup == "" {
		opts.Sink.Dedup = partition.DedupScan
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.OutputDir == "" {
		return nil, splerrors.NewConfigError("output directory is required", nil)
	}

	router, err := partition.NewRouter(opts.Router)
	if err != nil {
		return nil, splerrors.NewConfigError("invalid routing", err)
	}

	return &Driver{opts: opts, router: router, logger: opts.Logger}, nil
}

// Run opens the configured input and processes it to completion. A missing
// or unreadable input is fatal and starts nothing. Once started, the run is
// not interrupted by ctx; per-task failures are collected in the result.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(d.opts.InputPath)
	if err != nil {
		return nil, splerrors.NewInputError(
			splerrors.CodeInputUnavailable,
			fmt.Sprintf("cannot open input %s", d.opts.InputPath),
			err,
		)
	}
	defer f.Close()

	return d.RunReader(ctx, f)
}

// RunReader processes records from r. The output directory is created if
// it does not exist.
func (d *Driver) RunReader(ctx context.Context, r io.Reader) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.opts.OutputDir, 0755); err != nil {
		return nil, splerrors.NewConfigError(fmt.Sprintf("cannot create output directory %s", d.opts.OutputDir), err)
	}

	start := time.Now()
	result := &Result{RunID: uuid.New().String()}
	d.logger.Printf("run %s: splitting into %s with %d workers (dedup=%s)",
		result.RunID, d.opts.OutputDir, d.opts.Workers, d.opts.Sink.Dedup)

	registry := partition.NewRegistry(d.opts.OutputDir, d.router, d.opts.Sink)
	tasks := queue.New[types.Task]()
	errs := make(chan error, 64)

	var collected sync.WaitGroup
	collected.Add(1)
	go func() {
		defer collected.Done()
		for err := range errs {
			err = classify(err)
			d.logger.Printf("run %s: %v", result.RunID, err)
			result.Errors = append(result.Errors, err)
		}
	}()

	// Workers start first; they block on the empty queue until it is closed.
	pool := NewPool(d.opts.Workers, tasks, registry, errs)
	pool.Start()

	var producerErr error
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		result.Producer, producerErr = Produce(r, tasks, d.router)
	}()

	<-producerDone
	if producerErr != nil {
		errs <- producerErr
	}

	pool.Wait()

	if err := registry.CloseAll(); err != nil {
		errs <- err
	}
	close(errs)
	collected.Wait()

	result.Consumer = pool.Stats()
	for _, s := range registry.Stats().Sinks {
		if s.Opened {
			result.Partitions = append(result.Partitions, s)
		}
	}
	result.Duration = time.Since(start)

	d.logger.Printf("run %s: read=%d malformed=%d enqueued=%d appended=%d duplicates=%d failed=%d partitions=%d in %s",
		result.RunID,
		result.Producer.LinesRead, result.Producer.Malformed, result.Producer.Enqueued,
		result.Consumer.Appended, result.Consumer.Duplicates, result.Consumer.Failed,
		len(result.Partitions), result.Duration)

	return result, nil
}

// classify gives errors from outside the pipeline's taxonomy, such as a
// failed close, the INTERNAL category so every collected error has a code.
func classify(err error) error {
	if splerrors.GetCode(err) != "" {
		return err
	}
	return splerrors.NewInternalError("unclassified run error", err)
}

// Failed reports whether any recoverable error occurred during the run.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// ErrorsByCode counts collected errors by their error code.
func (r *Result) ErrorsByCode() map[string]int {
	counts := make(map[string]int)
	for _, err := range r.Errors {
		counts[splerrors.GetCode(err)]++
	}
	return counts
}
