package render

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"river-strike/internal/game"
)

// frameJob is one snapshot to encode to a numbered PNG.
type frameJob struct {
	index int
	snap  *game.GameSnapshot
}

// PNGWorkerPool encodes snapshots to disk in parallel. Each worker owns its
// own Renderer so gg contexts are never shared.
type PNGWorkerPool struct {
	dir        string
	numWorkers int
	cfg        Config
	jobChan    chan frameJob
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex

	// Stats
	framesWritten uint64 // atomic
	writeErrors   uint64 // atomic
	totalNs       int64  // atomic
	firstErr      error
	errOnce       sync.Once
}

// NewPNGWorkerPool creates a pool writing into dir.
// If numWorkers is 0, it defaults to NumCPU.
func NewPNGWorkerPool(dir string, numWorkers int, cfg Config) *PNGWorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	// Cap at reasonable maximum
	if numWorkers > 16 {
		numWorkers = 16
	}
	return &PNGWorkerPool{
		dir:        dir,
		numWorkers: numWorkers,
		cfg:        cfg,
		jobChan:    make(chan frameJob, numWorkers*2),
	}
}

// Start creates the output directory and begins the workers.
func (p *PNGWorkerPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}

	// One font parse shared by all worker renderers.
	fonts := LoadFonts(p.cfg.FontPath)
	p.running = true
	for i := 0; i < p.numWorkers; i++ {
		r := &Renderer{scale: p.cfg.Scale, fonts: fonts}
		if r.scale <= 0 {
			r.scale = 1
		}
		p.wg.Add(1)
		go p.worker(r)
	}
	return nil
}

// Submit queues a snapshot. It blocks when workers fall behind so no frame
// is lost. The snapshot must not be mutated afterwards.
func (p *PNGWorkerPool) Submit(index int, snap *game.GameSnapshot) {
	p.jobChan <- frameJob{index: index, snap: snap}
}

// Stop waits for queued frames and returns the first write error, if any.
func (p *PNGWorkerPool) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return p.firstErr
	}
	p.running = false
	p.mu.Unlock()

	close(p.jobChan)
	p.wg.Wait()
	return p.firstErr
}

func (p *PNGWorkerPool) worker(r *Renderer) {
	defer p.wg.Done()

	for job := range p.jobChan {
		start := time.Now()
		if err := p.write(r, job); err != nil {
			atomic.AddUint64(&p.writeErrors, 1)
			p.errOnce.Do(func() { p.firstErr = err })
			log.Printf("⚠️ Frame %d failed: %v", job.index, err)
			continue
		}
		atomic.AddUint64(&p.framesWritten, 1)
		atomic.AddInt64(&p.totalNs, int64(time.Since(start)))
	}
}

func (p *PNGWorkerPool) write(r *Renderer, job frameJob) error {
	path := filepath.Join(p.dir, fmt.Sprintf("frame_%06d.png", job.index))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	if err := r.EncodePNG(bw, job.snap); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GetStats returns writer statistics
func (p *PNGWorkerPool) GetStats() map[string]interface{} {
	written := atomic.LoadUint64(&p.framesWritten)
	avgMs := 0.0
	if written > 0 {
		avgMs = float64(atomic.LoadInt64(&p.totalNs)) / float64(written) / 1e6
	}
	return map[string]interface{}{
		"workers":       p.numWorkers,
		"framesWritten": written,
		"writeErrors":   atomic.LoadUint64(&p.writeErrors),
		"avgEncodeMs":   avgMs,
	}
}
