// Package worker provides background analysis of track previews.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ewilliams-labs/moodgraph/internal/core/domain"
	"github.com/ewilliams-labs/moodgraph/internal/core/ports"
)

var _ ports.AnalysisQueue = (*Pool)(nil)

// Job represents a preview to analyze for one cached track.
type Job struct {
	Snapshot   string
	TrackID    string
	PreviewURL string
	Features   domain.AudioFeatures
}

// Pool manages background workers that replace estimated energy with a value
// measured from the track preview.
type Pool struct {
	store   ports.TrackFeatureWriter
	jobs    chan Job
	workers int
	timeout time.Duration
	log     logrus.FieldLogger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewPool creates a worker pool with the given worker count and queue size.
// Jobs submitted before Start wait in the queue.
func NewPool(workers int, queueSize int, log logrus.FieldLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		timeout: 30 * time.Second,
		log:     log.WithField("component", "worker"),
	}
}

// Start launches the worker goroutines. Analyzed features are written
// through store.
func (p *Pool) Start(store ports.TrackFeatureWriter) {
	p.store = store
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
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
}

// Enqueue queues a track for analysis.
func (p *Pool) Enqueue(snapshot string, t domain.Track) {
	p.Submit(Job{Snapshot: snapshot, TrackID: t.ID, PreviewURL: t.PreviewURL, Features: t.Features})
}

// Submit queues a job without blocking. Jobs are dropped when the queue is
// full or the pool is stopped.
func (p *Pool) Submit(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.WithField("track_id", job.TrackID).Warn("pool stopped, dropping job")
		return
	}
	select {
	case p.jobs <- job:
	default:
		p.log.WithField("track_id", job.TrackID).Warn("queue full, dropping job")
	}
}

func (p *Pool) processJob(job Job) {
	log := p.log.WithFields(logrus.Fields{"track_id": job.TrackID, "snapshot": job.Snapshot})
	if job.PreviewURL == "" {
		log.Debug("no preview url, skipping analysis")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	energy, err := AnalyzePreviewFunc(ctx, job.PreviewURL)
	if err != nil {
		log.WithError(err).Warn("preview analysis failed")
		return
	}

	features := job.Features
	features.Energy = energy
	if err := p.store.UpdateTrackFeatures(ctx, job.Snapshot, job.TrackID, features); err != nil {
		log.WithError(err).Warn("failed to update track features")
		return
	}
	log.WithField("energy", energy).Info("updated track with analyzed energy")
}
