package eventloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"

	"screen-ocr/src/overlay"
	"screen-ocr/src/screenshot"
	"screen-ocr/src/selection"
	"screen-ocr/src/session"
	"screen-ocr/src/singleinstance"
	"screen-ocr/src/worker"
)

var ErrBusy = errors.New("Busy, please retry")

type State int32

const (
	Idle State = iota
	CaptureRequested
	Snapshotting
	AwaitingSelection
	Recognizing
	Presenting
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CaptureRequested:
		return "capture-requested"
	case Snapshotting:
		return "snapshotting"
	case AwaitingSelection:
		return "awaiting-selection"
	case Recognizing:
		return "recognizing"
	case Presenting:
		return "presenting"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Presenter shows the outcome of a capture to the user.
type Presenter interface {
	Present(text string)
	PresentError(err error)
}

// Submitter runs recognition off the loop goroutine. worker.Pool implements it.
type Submitter interface {
	Submit(ctx context.Context, sessionID string, img image.Image, cb worker.ResultCallback) bool
}

type Options struct {
	Capturer  screenshot.Capturer
	Selector  overlay.Selector
	Pool      Submitter
	Presenter Presenter
	// Server is optional; CAPTURE requests it accepts act as triggers.
	Server singleinstance.Server
	// OnBusy is called with true when recognition starts and false once it ends.
	OnBusy func(busy bool)
	// OnStateChange observes every orchestrator transition.
	OnStateChange func(State)
}

// Loop is the single-threaded coordinator for capture sessions. Every
// session step except recognition runs on the goroutine that calls Run.
type Loop struct {
	opts     Options
	slot     session.Slot
	state    atomic.Int32
	triggers chan struct{}
	results  chan result
	stopped  chan struct{}
}

type result struct {
	sess *session.CaptureSession
	text string
	err  error
}

func New(opts Options) *Loop {
	return &Loop{
		opts:     opts,
		triggers: make(chan struct{}, 1),
		results:  make(chan result, 1),
		stopped:  make(chan struct{}),
	}
}

// State returns the current orchestrator state.
func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	if sess := l.slot.Current(); sess != nil {
		log.Printf("eventloop[%s]: -> %s", sess.ID, s)
	} else {
		log.Printf("eventloop: -> %s", s)
	}
	if l.opts.OnStateChange != nil {
		l.opts.OnStateChange(s)
	}
}

func (l *Loop) setBusy(b bool) {
	if l.opts.OnBusy != nil {
		l.opts.OnBusy(b)
	}
}

// StartCapture requests a new capture session. It never blocks; a request
// while a session is active is ignored.
func (l *Loop) StartCapture() {
	if st := l.State(); st != Idle {
		log.Printf("StartCapture: session active (%s), ignoring trigger", st)
		return
	}
	select {
	case l.triggers <- struct{}{}:
	default:
		log.Printf("StartCapture: trigger already pending, ignoring")
	}
}

// Run processes triggers and results. It blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	var reqCh chan singleinstance.Conn
	if l.opts.Server != nil {
		reqCh = make(chan singleinstance.Conn, 4)
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.opts.Server.Next(ctx)
				if err != nil {
					return
				}
				if ctx.Err() != nil {
					conn.Close()
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if reqCh != nil {
				// Queued requests will never be answered.
				go func() {
					for conn := range reqCh {
						conn.Close()
					}
				}()
			}
			return ctx.Err()
		case <-l.triggers:
			l.handleTrigger(ctx)
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()
	if st := l.State(); st != Idle || l.slot.Active() {
		log.Printf("handleConn: busy (%s)", st)
		_ = conn.RespondError(ErrBusy.Error())
		return
	}
	if err := conn.RespondSuccess("capture started"); err != nil {
		log.Printf("handleConn: respond failed: %v", err)
	}
	l.handleTrigger(ctx)
}

func (l *Loop) handleTrigger(ctx context.Context) {
	if st := l.State(); st != Idle {
		log.Printf("handleTrigger: session active (%s), ignoring", st)
		return
	}
	sess, err := l.slot.Acquire()
	if err != nil {
		log.Printf("handleTrigger: %v", err)
		return
	}
	l.setState(CaptureRequested)

	l.setState(Snapshotting)
	snap, err := l.opts.Capturer.Capture()
	if err != nil {
		l.fail(sess, fmt.Errorf("screen capture failed: %w", err))
		return
	}
	sess.Snapshot = snap

	l.setState(AwaitingSelection)
	sel, err := l.opts.Selector.Select(ctx, snap)
	if err != nil {
		if ctx.Err() != nil {
			sess.Cancel()
			l.abort(sess)
			return
		}
		l.fail(sess, fmt.Errorf("region selection failed: %w", err))
		return
	}
	if sel.Outcome != selection.OutcomeAccepted {
		log.Printf("handleTrigger[%s]: selection %s", sess.ID, sel.Outcome)
		sess.Cancel()
		l.abort(sess)
		return
	}

	if err := sess.Finalize(sel.Region); err != nil {
		l.fail(sess, err)
		return
	}
	img, err := sess.Crop()
	if err != nil {
		l.fail(sess, fmt.Errorf("failed to crop region %v: %w", sel.Region, err))
		return
	}

	l.setState(Recognizing)
	l.setBusy(true)
	submitted := l.opts.Pool.Submit(ctx, sess.ID, img, func(text string, err error) {
		select {
		case l.results <- result{sess: sess, text: text, err: err}:
		case <-l.stopped:
			log.Printf("handleTrigger[%s]: loop stopped, dropping result", sess.ID)
		}
	})
	if !submitted {
		l.setBusy(false)
		l.fail(sess, ErrBusy)
	}
}

func (l *Loop) handleResult(res result) {
	log.Printf("handleResult: called with text length=%d, err=%v", len(res.text), res.err)
	l.setBusy(false)
	if res.sess != l.slot.Current() {
		log.Printf("handleResult: result for stale session %s dropped", res.sess.ID)
		return
	}

	l.setState(Presenting)
	if res.err != nil {
		l.opts.Presenter.PresentError(res.err)
	} else {
		l.opts.Presenter.Present(res.text)
	}
	l.finish(res.sess)
}

// fail reports err to the user and ends the session.
func (l *Loop) fail(sess *session.CaptureSession, err error) {
	log.Printf("eventloop[%s]: %v", sess.ID, err)
	sess.Cancel()
	l.opts.Presenter.PresentError(err)
	l.abort(sess)
}

func (l *Loop) abort(sess *session.CaptureSession) {
	l.setState(Aborted)
	l.finish(sess)
}

func (l *Loop) finish(sess *session.CaptureSession) {
	l.slot.Release(sess)
	l.setState(Idle)
}
