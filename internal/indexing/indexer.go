// Package indexing walks directory trees in the background and feeds the
// engine insert batches, reporting live progress and honouring cancellation.
// The engine is borrowed once per batch through the Target interface so
// queries are never blocked for longer than a single batch application.
package indexing

import (
	"os"
	"sync"
	"time"

	"github.com/standardbeagle/pathfinder/internal/config"
	pferrors "github.com/standardbeagle/pathfinder/internal/errors"
	"github.com/standardbeagle/pathfinder/internal/logging"
)

// Target receives mutation batches. Implemented by the engine façade.
type Target interface {
	BatchUpdate(adds, removes []string) error
}

// Monitor observes indexing lifecycle and progress. Implemented by the
// engine state.
type Monitor interface {
	IndexingStarted(root string)
	FilesDiscovered(n int64)
	BatchIndexed(n int64, lastPath string)
	IndexingCompleted(duration time.Duration)
	IndexingCancelled()
	IndexingFailed(reason error)
}

// Indexer runs at most one background walk at a time.
type Indexer struct {
	target  Target
	monitor Monitor
	log     *logging.Logger

	mu      sync.Mutex
	cfg     *config.Config
	running bool
	cancel  chan struct{}
	wg      sync.WaitGroup
}

func New(cfg *config.Config, target Target, monitor Monitor, log *logging.Logger) *Indexer {
	return &Indexer{cfg: cfg, target: target, monitor: monitor, log: log}
}

// SetConfig swaps the settings snapshot used by the next Start.
func (ix *Indexer) SetConfig(cfg *config.Config) {
	ix.mu.Lock()
	ix.cfg = cfg
	ix.mu.Unlock()
}

// Start validates the root, resets progress and spawns the worker. It
// returns immediately; IndexingAlreadyRunning if a walk is in flight.
func (ix *Indexer) Start(root string, chunkSize int) error {
	info, err := os.Stat(root)
	if err != nil {
		return pferrors.NewPathNotFound("index", root, err)
	}
	if !info.IsDir() {
		return pferrors.NewInvalidInput("root", "must be a directory")
	}

	ix.mu.Lock()
	if ix.running {
		ix.mu.Unlock()
		return pferrors.NewIndexingAlreadyRunning(root)
	}
	cfg := ix.cfg.Clone()
	if chunkSize <= 0 {
		chunkSize = cfg.IndexingBatchSize
	}
	ix.running = true
	cancel := make(chan struct{})
	ix.cancel = cancel
	ix.mu.Unlock()

	ix.monitor.IndexingStarted(root)
	ix.log.Infof("starting chunked indexing of %s with chunk size %d", root, chunkSize)

	ix.wg.Add(1)
	go ix.run(root, chunkSize, cfg, cancel)
	return nil
}

// Stop requests cancellation and returns immediately. The status moves to
// Cancelled right away; the worker drains its current batch and exits
// within one batch window.
func (ix *Indexer) Stop() {
	ix.mu.Lock()
	if !ix.running {
		ix.mu.Unlock()
		return
	}
	select {
	case <-ix.cancel:
	default:
		close(ix.cancel)
	}
	ix.mu.Unlock()

	ix.monitor.IndexingCancelled()
	ix.log.Infof("indexing cancellation requested")
}

// Wait blocks until the worker has exited. Mainly for tests and shutdown.
func (ix *Indexer) Wait() {
	ix.wg.Wait()
}

// Running reports whether a walk is in flight.
func (ix *Indexer) Running() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.running
}

func (ix *Indexer) run(root string, chunkSize int, cfg *config.Config, cancel <-chan struct{}) {
	defer ix.wg.Done()
	started := time.Now()

	w := &walker{
		cfg:       cfg,
		log:       ix.log,
		cancel:    cancel,
		chunkSize: chunkSize,
		flush: func(batch []string) error {
			if err := ix.target.BatchUpdate(batch, nil); err != nil {
				return err
			}
			ix.monitor.BatchIndexed(int64(len(batch)), batch[len(batch)-1])
			return nil
		},
		discovered: func(n int64) { ix.monitor.FilesDiscovered(n) },
	}

	err := w.walk(root)

	// Drain whatever accumulated before completion or cancellation.
	if flushErr := w.flushPending(); flushErr != nil && err == nil {
		err = flushErr
	}

	ix.mu.Lock()
	ix.running = false
	if err == nil {
		select {
		case <-cancel:
			// Stop landed after the last entry; its Cancelled status stands.
			err = errCancelled
		default:
		}
	}
	ix.mu.Unlock()

	switch {
	case err == errCancelled:
		// Stop already transitioned the status.
		ix.log.Infof("indexing of %s cancelled after %d files", root, w.indexed)
	case err != nil:
		ix.monitor.IndexingFailed(err)
		ix.log.Errorf("indexing of %s failed: %v", root, err)
	default:
		ix.monitor.IndexingCompleted(time.Since(started))
		ix.log.Infof("indexed %d files under %s in %s", w.indexed, root, time.Since(started))
	}
}
