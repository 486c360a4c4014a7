package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/template-synth/pkg/logging"
	"github.com/menta2k/template-synth/pkg/types"
)

// Report summarizes one batch run.
type Report struct {
	RunID     string        `json:"run_id"`
	Stage     string        `json:"stage"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// pool bounds the number of units of work running at once. A slot is taken
// from the channel before a unit starts and handed back when it ends.
type pool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

func newPool(size int) *pool {
	size = max(size, 1)
	p := &pool{slots: make(chan struct{}, size)}
	for i := 0; i < size; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// Go runs fn once a slot is free. It returns false without running fn if ctx
// is done first.
func (p *pool) Go(ctx context.Context, fn func()) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.slots:
	}
	p.wg.Add(1)
	go func() {
		defer func() {
			p.slots <- struct{}{}
			p.wg.Done()
		}()
		fn()
	}()
	return true
}

// Wait blocks until every started unit has finished.
func (p *pool) Wait() {
	p.wg.Wait()
}

// batch tracks the outcome of the units of a run. Configuration errors stop
// the run; any other failure is logged and counted.
type batch struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	report Report
	abort  error
	start  time.Time
}

func newBatch(ctx context.Context, stage string) *batch {
	ctx, cancel := context.WithCancel(ctx)
	b := &batch{
		ctx:    ctx,
		cancel: cancel,
		report: Report{RunID: uuid.New().String(), Stage: stage},
		start:  time.Now(),
	}
	logging.Logger().Info("batch started", "stage", stage, "run_id", b.report.RunID)
	return b
}

func (b *batch) processed(n int) {
	b.mu.Lock()
	b.report.Processed += n
	b.mu.Unlock()
}

func (b *batch) skipped(n int, reason string, attrs ...any) {
	b.mu.Lock()
	b.report.Skipped += n
	b.mu.Unlock()
	logging.Logger().Info("item skipped", append([]any{"stage", b.report.Stage, "reason", reason}, attrs...)...)
}

func (b *batch) failed(n int, err error, attrs ...any) {
	b.mu.Lock()
	b.report.Failed += n
	if errors.Is(err, types.ErrInvalidConfig) && b.abort == nil {
		b.abort = err
		b.cancel()
	}
	b.mu.Unlock()
	logging.Logger().Warn("item failed", append([]any{"stage", b.report.Stage, "error", err}, attrs...)...)
}

// finish closes the batch. The error is the configuration error that stopped
// the run, or the context error if the caller cancelled it.
func (b *batch) finish(parent context.Context) (*Report, error) {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.report.Duration = time.Since(b.start)
	r := b.report
	logging.Logger().Info("batch finished",
		"stage", r.Stage, "run_id", r.RunID,
		"processed", r.Processed, "failed", r.Failed, "skipped", r.Skipped,
		"duration", r.Duration)

	if b.abort != nil {
		return &r, b.abort
	}
	if err := parent.Err(); err != nil {
		return &r, err
	}
	return &r, nil
}
