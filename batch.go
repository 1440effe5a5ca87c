package qturing

import (
	"context"
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

// BatchJob is one input of a batch, searched on its own machine.
type BatchJob struct {
	Index int
	Input string
}

// BatchResult is the outcome of one batch job.
type BatchResult struct {
	Job    BatchJob
	Result *SearchResult
	Log    Log
	Err    error
}

/*
Batch searches several inputs of the same machine definition in parallel.
Every job gets its own Machine and Searcher, so the single-caller rule of a
Machine still holds; only the workers run concurrently.

Options handed to WithBatchSearchOptions are shared by every worker. A
Metrics value is safe to share, an Observer must be.
*/
type Batch struct {
	def         *Definition
	workers     int
	seed        uint64
	timeout     time.Duration
	machineOpts []MachineOption
	searchOpts  []SearchOption
}

// BatchOption configures NewBatch.
type BatchOption func(*Batch)

// WithWorkers sets how many inputs are searched at once.
func WithWorkers(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

/*
WithBatchSeed makes the batch reproducible. Job i is seeded with seed+i, so
results do not depend on which worker picked the job up.
*/
func WithBatchSeed(seed uint64) BatchOption {
	return func(b *Batch) {
		b.seed = seed
	}
}

// WithJobTimeout bounds the search of a single input.
func WithJobTimeout(timeout time.Duration) BatchOption {
	return func(b *Batch) {
		b.timeout = timeout
	}
}

// WithBatchMachineOptions is applied to every machine of the batch.
func WithBatchMachineOptions(opts ...MachineOption) BatchOption {
	return func(b *Batch) {
		b.machineOpts = append(b.machineOpts, opts...)
	}
}

// WithBatchSearchOptions is applied to every searcher of the batch.
func WithBatchSearchOptions(opts ...SearchOption) BatchOption {
	return func(b *Batch) {
		b.searchOpts = append(b.searchOpts, opts...)
	}
}

func NewBatch(def *Definition, opts ...BatchOption) *Batch {
	b := &Batch{
		def:     def,
		workers: 1,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

/*
Run searches every input and returns the results in input order. Jobs that
were never started because the context ended carry the context's error,
which is also returned.
*/
func (b *Batch) Run(ctx context.Context, inputs []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))
	for i, input := range inputs {
		results[i].Job = BatchJob{Index: i, Input: input}
	}

	workers := b.workers
	if workers > len(inputs) {
		workers = len(inputs)
	}

	errnie.Info("Batch - %d inputs, %d workers", len(inputs), workers)

	jobs := make(chan BatchJob)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &batchWorker{
			batch:    b,
			searcher: NewSearcher(b.searchOpts...),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			w.start(ctx, jobs, results)
		}()
	}

dispatch:
	for _, result := range results {
		select {
		case jobs <- result.Job:
		case <-ctx.Done():
			break dispatch
		}
	}

	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Result == nil && results[i].Err == nil {
				results[i].Err = err
			}
		}

		return results, err
	}

	return results, nil
}

// batchWorker owns one searcher and processes jobs until the channel closes.
type batchWorker struct {
	batch    *Batch
	searcher *Searcher
}

func (w *batchWorker) start(ctx context.Context, jobs <-chan BatchJob, results []BatchResult) {
	for job := range jobs {
		results[job.Index] = w.process(ctx, job)
	}
}

func (w *batchWorker) process(ctx context.Context, job BatchJob) BatchResult {
	out := BatchResult{Job: job}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	opts := append([]MachineOption(nil), w.batch.machineOpts...)
	if w.batch.seed != 0 {
		opts = append(opts, WithSeed(w.batch.seed+uint64(job.Index)))
	}

	machine, err := w.batch.def.Machine(job.Input, opts...)
	if err != nil {
		out.Err = err
		return out
	}

	if w.batch.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.batch.timeout)
		defer cancel()
	}

	out.Result, out.Log, out.Err = w.searcher.Run(ctx, machine, nil)

	if out.Err != nil {
		errnie.Info("Batch - job %d (%s) stopped: %v", job.Index, job.Input, out.Err)
	}

	return out
}
