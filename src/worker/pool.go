package worker

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"screen-ocr/src/ocr"
)

// Recognizer is the blocking OCR call the pool runs off the UI path.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// ResultCallback is invoked on OCR completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(text string, err error)

// Pool is a fixed-size OCR worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	rec  Recognizer
	jobs chan job
	wg   sync.WaitGroup

	closeOnce sync.Once
}

type job struct {
	ctx       context.Context
	sessionID string
	img       image.Image
	cb        ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0; the capture
// pipeline never needs more than one recognition in flight.
func New(rec Recognizer, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{rec: rec, jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				b := j.img.Bounds()
				log.Printf("Worker[%s]: Starting OCR for region %dx%d", j.sessionID, b.Dx(), b.Dy())
				text, err := p.run(j)
				log.Printf("Worker[%s]: OCR completed, text length=%d, err=%v", j.sessionID, len(text), err)
				j.cb(text, err)
			}
		}()
	}
}

// run recovers a panicking engine so the worker goroutine survives and the
// caller still gets exactly one callback.
func (p *Pool) run(j job) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker[%s]: recognizer panicked: %v", j.sessionID, r)
			text, err = "", &ocr.EngineError{Op: "process", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.rec.Recognize(j.ctx, j.img)
}

// Submit enqueues an OCR job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, sessionID string, img image.Image, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, sessionID: sessionID, img: img, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
