// Package worker provides background processing for catalog enrichment:
// analyzing loops whose tempo or key the catalog does not know yet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
	"github.com/ewilliams-labs/loopmatch/internal/core/ports"
)

// ErrClosed is returned by Submit calls made after Stop.
var ErrClosed = errors.New("worker: pool stopped")

// Analyzer is the slice of the Orchestrator the pool needs.
type Analyzer interface {
	Analyze(ctx context.Context, upload domain.AudioUpload) (domain.Analysis, error)
}

// FeatureWriter persists detected features for one catalog row.
type FeatureWriter interface {
	UpdateSampleFeatures(ctx context.Context, id string, bpm float64, key string) error
}

var _ FeatureWriter = (ports.CatalogStore)(nil)

// Job represents one loop file to analyze. KnownBPM and KnownKey carry what
// the catalog already holds; those fields are not overwritten.
type Job struct {
	SampleID string
	Path     string
	KnownBPM float64
	KnownKey string
}

// Result reports what a job produced. Err is set when nothing was stored.
type Result struct {
	Job    Job
	BPM    float64
	Key    string
	Engine domain.Engine
	Err    error
}

// Pool manages background workers for async jobs.
type Pool struct {
	analyzer   Analyzer
	store      FeatureWriter
	jobs       chan Job
	wg         sync.WaitGroup
	log        zerolog.Logger
	jobTimeout time.Duration
	onResult   func(Result)

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a worker pool with the given queue size. Cancelling ctx
// aborts in-flight analyses.
func NewPool(ctx context.Context, analyzer Analyzer, store FeatureWriter, queueSize int, log zerolog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		analyzer:   analyzer,
		store:      store,
		jobs:       make(chan Job, queueSize),
		log:        log.With().Str("component", "worker").Logger(),
		jobTimeout: 2 * time.Minute,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// OnResult registers fn to be called after every job. Set it before Start;
// fn runs on worker goroutines and must be safe for concurrent use.
func (p *Pool) OnResult(fn func(Result)) {
	p.onResult = fn
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				res := p.processJob(job)
				if p.onResult != nil {
					p.onResult(res)
				}
			}
		}()
	}
}

// Stop waits for queued jobs to finish after closing the queue.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool has stopped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.log.Warn().Str("sample_id", job.SampleID).Msg("queue full, dropping job")
		return false
	}
}

// SubmitWait queues a job, blocking until there is room or ctx ends.
func (p *Pool) SubmitWait(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) processJob(job Job) Result {
	res := Result{Job: job}
	log := p.log.With().Str("sample_id", job.SampleID).Str("path", job.Path).Logger()

	data, err := os.ReadFile(job.Path)
	if err != nil {
		res.Err = fmt.Errorf("worker: read %s: %w", job.Path, err)
		log.Warn().Err(err).Msg("cannot read loop")
		return res
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.jobTimeout)
	defer cancel()

	analysis, err := p.analyzer.Analyze(ctx, domain.AudioUpload{
		Filename: filepath.Base(job.Path),
		Data:     data,
	})
	if err != nil {
		res.Err = fmt.Errorf("worker: analyze %s: %w", job.SampleID, err)
		log.Warn().Err(err).Msg("analysis failed")
		return res
	}

	res.BPM = math.Round(analysis.Result.Tempo())
	res.Key = analysis.Result.Key.String()
	res.Engine = analysis.Engine

	// zero values leave the stored column alone
	bpm, key := res.BPM, res.Key
	if job.KnownBPM > 0 {
		bpm = 0
	}
	if job.KnownKey != "" {
		key = ""
	}
	if err := p.store.UpdateSampleFeatures(ctx, job.SampleID, bpm, key); err != nil {
		res.Err = fmt.Errorf("worker: store %s: %w", job.SampleID, err)
		log.Warn().Err(err).Msg("failed to update sample")
		return res
	}

	log.Debug().
		Float64("bpm", res.BPM).
		Str("key", res.Key).
		Str("engine", string(res.Engine)).
		Msg("updated sample with analyzed features")
	return res
}
