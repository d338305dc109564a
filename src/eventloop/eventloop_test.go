package eventloop

import (
	"context"
	"errors"
	"image"
	_ "image/png"
	"os"
	"sync"
	"testing"
	"time"

	"screen-ocr/src/ocr"
	"screen-ocr/src/overlay"
	"screen-ocr/src/screenshot"
	"screen-ocr/src/selection"
	"screen-ocr/src/singleinstance"
	"screen-ocr/src/worker"
)

type fakeCapturer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCapturer) Capture() (*screenshot.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	return screenshot.NewSnapshot(img, image.Point{}), nil
}

type fakeSelector struct {
	mu      sync.Mutex
	results []overlay.Result
	err     error
	calls   int
	during  func()
}

func (f *fakeSelector) Select(ctx context.Context, snap *screenshot.Snapshot) (overlay.Result, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	during := f.during
	f.mu.Unlock()
	if during != nil {
		during()
	}
	if f.err != nil {
		return overlay.Result{}, f.err
	}
	if n-1 < len(f.results) {
		return f.results[n-1], nil
	}
	return f.results[len(f.results)-1], nil
}

func (f *fakeSelector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEngine decodes the artifact so tests can check what reached the engine.
type fakeEngine struct {
	mu      sync.Mutex
	text    string
	err     error
	block   chan struct{}
	entered chan struct{}
	sizes   []image.Point
	paths   []string
}

func (f *fakeEngine) Text(ctx context.Context, path string) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	cfg, _, err := image.DecodeConfig(file)
	file.Close()
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.sizes = append(f.sizes, image.Point{X: cfg.Width, Y: cfg.Height})
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sizes)
}

type presentation struct {
	text string
	err  error
}

type fakePresenter struct {
	ch chan presentation
}

func (f *fakePresenter) Present(text string)    { f.ch <- presentation{text: text} }
func (f *fakePresenter) PresentError(err error) { f.ch <- presentation{err: err} }

type harness struct {
	loop      *Loop
	capturer  *fakeCapturer
	selector  *fakeSelector
	engine    *fakeEngine
	presenter *fakePresenter
	tempDir   string
	states    chan State
	busy      chan bool
	cancel    context.CancelFunc
	done      chan error
}

func accepted(x, y, w, h int) overlay.Result {
	return overlay.Result{Outcome: selection.OutcomeAccepted, Region: screenshot.Region{X: x, Y: y, Width: w, Height: h}}
}

func newHarness(t *testing.T, sel *fakeSelector, engine *fakeEngine) *harness {
	t.Helper()
	h := &harness{
		capturer:  &fakeCapturer{},
		selector:  sel,
		engine:    engine,
		presenter: &fakePresenter{ch: make(chan presentation, 4)},
		tempDir:   t.TempDir(),
		states:    make(chan State, 64),
		busy:      make(chan bool, 16),
		done:      make(chan error, 1),
	}
	pool := worker.New(ocr.New(engine, h.tempDir), 1)
	h.loop = New(Options{
		Capturer:      h.capturer,
		Selector:      sel,
		Pool:          pool,
		Presenter:     h.presenter,
		OnBusy:        func(b bool) { h.busy <- b },
		OnStateChange: func(s State) { h.states <- s },
	})
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
		pool.Close()
	})
	return h
}

// waitIdle collects state transitions until the loop is idle again.
func (h *harness) waitIdle(t *testing.T) []State {
	t.Helper()
	var seen []State
	for {
		select {
		case s := <-h.states:
			seen = append(seen, s)
			if s == Idle {
				return seen
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("loop did not return to idle, saw %v", seen)
		}
	}
}

func (h *harness) waitPresentation(t *testing.T) presentation {
	t.Helper()
	select {
	case p := <-h.presenter.ch:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("no presentation")
	}
	return presentation{}
}

func (h *harness) assertNoPresentation(t *testing.T) {
	t.Helper()
	select {
	case p := <-h.presenter.ch:
		t.Fatalf("unexpected presentation %+v", p)
	default:
	}
}

func (h *harness) assertNoArtifacts(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no transient artifacts, found %d", len(entries))
	}
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCaptureRecognizesSelectedRegion(t *testing.T) {
	engine := &fakeEngine{text: "Hello"}
	h := newHarness(t, &fakeSelector{results: []overlay.Result{accepted(10, 10, 50, 30)}}, engine)

	h.loop.StartCapture()
	p := h.waitPresentation(t)
	states := h.waitIdle(t)

	if p.err != nil || p.text != "Hello" {
		t.Fatalf("expected text presentation, got %+v", p)
	}
	want := []State{CaptureRequested, Snapshotting, AwaitingSelection, Recognizing, Presenting, Idle}
	if !equalStates(states, want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	if engine.sizes[0] != (image.Point{X: 50, Y: 30}) {
		t.Fatalf("expected 50x30 crop to reach the engine, got %v", engine.sizes[0])
	}
	if b1, b2 := <-h.busy, <-h.busy; !b1 || b2 {
		t.Fatalf("expected busy true then false, got %v %v", b1, b2)
	}
	h.assertNoArtifacts(t)
	if h.loop.slot.Active() {
		t.Fatal("expected session slot released")
	}
}

func TestEmptyTextIsPresentedNotErrored(t *testing.T) {
	h := newHarness(t, &fakeSelector{results: []overlay.Result{accepted(0, 0, 40, 40)}}, &fakeEngine{text: ""})

	h.loop.StartCapture()
	p := h.waitPresentation(t)
	h.waitIdle(t)

	if p.err != nil {
		t.Fatalf("empty result must not be an error, got %v", p.err)
	}
	if p.text != "" {
		t.Fatalf("expected empty text, got %q", p.text)
	}
}

func TestCancelledSelectionSkipsRecognition(t *testing.T) {
	for _, outcome := range []selection.Outcome{selection.OutcomeCancelled, selection.OutcomeRejected} {
		t.Run(outcome.String(), func(t *testing.T) {
			engine := &fakeEngine{text: "never"}
			h := newHarness(t, &fakeSelector{results: []overlay.Result{{Outcome: outcome}}}, engine)

			h.loop.StartCapture()
			states := h.waitIdle(t)

			want := []State{CaptureRequested, Snapshotting, AwaitingSelection, Aborted, Idle}
			if !equalStates(states, want) {
				t.Fatalf("expected states %v, got %v", want, states)
			}
			if engine.calls() != 0 {
				t.Fatal("recognition must not run")
			}
			h.assertNoPresentation(t)
			if h.loop.State() != Idle {
				t.Fatalf("expected idle, got %v", h.loop.State())
			}
		})
	}
}

func TestEngineFailureIsPresentedAndCleanedUp(t *testing.T) {
	engine := &fakeEngine{err: errors.New("unsupported image format")}
	h := newHarness(t, &fakeSelector{results: []overlay.Result{accepted(10, 10, 50, 30)}}, engine)

	h.loop.StartCapture()
	p := h.waitPresentation(t)
	h.waitIdle(t)

	var ee *ocr.EngineError
	if !errors.As(p.err, &ee) {
		t.Fatalf("expected EngineError presentation, got %+v", p)
	}
	if _, err := os.Stat(engine.paths[0]); !os.IsNotExist(err) {
		t.Fatal("expected artifact removed after engine failure")
	}
	h.assertNoArtifacts(t)
}

func TestSequentialCapturesAreIndependent(t *testing.T) {
	engine := &fakeEngine{text: "again"}
	sel := &fakeSelector{results: []overlay.Result{accepted(10, 10, 50, 30), accepted(20, 20, 30, 60)}}
	h := newHarness(t, sel, engine)

	h.loop.StartCapture()
	h.waitPresentation(t)
	h.waitIdle(t)

	h.loop.StartCapture()
	h.waitPresentation(t)
	h.waitIdle(t)

	if engine.calls() != 2 {
		t.Fatalf("expected two recognitions, got %d", engine.calls())
	}
	if engine.sizes[1] != (image.Point{X: 30, Y: 60}) {
		t.Fatalf("second session used stale region: %v", engine.sizes[1])
	}
	if engine.paths[0] == engine.paths[1] {
		t.Fatal("expected a fresh artifact per session")
	}
	h.assertNoArtifacts(t)
}

func TestTriggerDuringRecognitionIsIgnored(t *testing.T) {
	engine := &fakeEngine{text: "slow", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	sel := &fakeSelector{results: []overlay.Result{accepted(10, 10, 50, 30)}}
	h := newHarness(t, sel, engine)

	h.loop.StartCapture()
	<-engine.entered
	if h.loop.State() != Recognizing {
		t.Fatalf("expected recognizing, got %v", h.loop.State())
	}

	h.loop.StartCapture()
	h.loop.StartCapture()
	close(engine.block)
	h.waitPresentation(t)
	h.waitIdle(t)

	// give a wrongly queued trigger time to surface
	time.Sleep(50 * time.Millisecond)
	if sel.count() != 1 {
		t.Fatalf("expected a single session, selector ran %d times", sel.count())
	}
	if h.capturer.calls != 1 {
		t.Fatalf("expected a single snapshot, got %d", h.capturer.calls)
	}
}

func TestTriggerDuringSelectionIsIgnored(t *testing.T) {
	sel := &fakeSelector{results: []overlay.Result{{Outcome: selection.OutcomeCancelled}}}
	h := newHarness(t, sel, &fakeEngine{})
	sel.during = func() { h.loop.StartCapture() }

	h.loop.StartCapture()
	h.waitIdle(t)
	time.Sleep(50 * time.Millisecond)

	if sel.count() != 1 {
		t.Fatalf("expected one selection, got %d", sel.count())
	}
}

func TestCaptureFailureIsPresented(t *testing.T) {
	h := newHarness(t, &fakeSelector{results: []overlay.Result{accepted(0, 0, 20, 20)}}, &fakeEngine{})
	h.capturer.err = screenshot.ErrNoDisplay

	h.loop.StartCapture()
	p := h.waitPresentation(t)
	states := h.waitIdle(t)

	if !errors.Is(p.err, screenshot.ErrNoDisplay) {
		t.Fatalf("expected capture error, got %+v", p)
	}
	if states[len(states)-2] != Aborted {
		t.Fatalf("expected abort before idle, got %v", states)
	}
	if h.selector.count() != 0 {
		t.Fatal("selector must not run without a snapshot")
	}
}

func TestSelectorErrorIsPresented(t *testing.T) {
	h := newHarness(t, &fakeSelector{err: overlay.ErrUnsupported}, &fakeEngine{})

	h.loop.StartCapture()
	p := h.waitPresentation(t)
	h.waitIdle(t)

	if !errors.Is(p.err, overlay.ErrUnsupported) {
		t.Fatalf("expected selector error, got %+v", p)
	}
}

type dropPool struct{}

func (dropPool) Submit(context.Context, string, image.Image, worker.ResultCallback) bool { return false }

func TestSubmitRejectedIsPresentedAsBusy(t *testing.T) {
	presenter := &fakePresenter{ch: make(chan presentation, 1)}
	states := make(chan State, 16)
	loop := New(Options{
		Capturer:      &fakeCapturer{},
		Selector:      &fakeSelector{results: []overlay.Result{accepted(0, 0, 20, 20)}},
		Pool:          dropPool{},
		Presenter:     presenter,
		OnStateChange: func(s State) { states <- s },
	})
	loop.handleTrigger(context.Background())

	p := <-presenter.ch
	if !errors.Is(p.err, ErrBusy) {
		t.Fatalf("expected busy error, got %+v", p)
	}
	if loop.State() != Idle {
		t.Fatalf("expected idle, got %v", loop.State())
	}
}

type fakeConn struct {
	mu        sync.Mutex
	responses []string
	closed    bool
}

func (c *fakeConn) Request() singleinstance.Request {
	return singleinstance.Request{Command: singleinstance.CommandCapture}
}

func (c *fakeConn) RespondSuccess(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, "SUCCESS "+msg)
	return nil
}

func (c *fakeConn) RespondError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, "ERROR "+msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) state() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.responses...), c.closed
}

// queueServer hands out queued conns even after ctx is done, like a listener
// that accepted them just before shutdown.
type queueServer struct {
	mu     sync.Mutex
	queue  []*fakeConn
	handed []*fakeConn
}

func (s *queueServer) Start(context.Context) error { return nil }
func (s *queueServer) Port() int                   { return 0 }
func (s *queueServer) Close() error                { return nil }

func (s *queueServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.handed = append(s.handed, c)
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *queueServer) handedOut() []*fakeConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeConn(nil), s.handed...)
}

func TestRunClosesConnsAcceptedDuringShutdown(t *testing.T) {
	srv := &queueServer{}
	for i := 0; i < 8; i++ {
		srv.queue = append(srv.queue, &fakeConn{})
	}
	loop := New(Options{
		Capturer:  &fakeCapturer{},
		Selector:  &fakeSelector{results: []overlay.Result{{Outcome: selection.OutcomeCancelled}}},
		Pool:      dropPool{},
		Presenter: &fakePresenter{ch: make(chan presentation, 8)},
		Server:    srv,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		handed := srv.handedOut()
		open := 0
		for _, c := range handed {
			if responses, closed := c.state(); !closed {
				open++
			} else if len(responses) != 0 {
				t.Fatalf("expected no reply after shutdown, got %v", responses)
			}
		}
		if len(handed) > 0 && open == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected every accepted conn closed, %d of %d still open", open, len(handed))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConnWhileSessionHeldIsBusy(t *testing.T) {
	loop := New(Options{
		Capturer:  &fakeCapturer{},
		Selector:  &fakeSelector{results: []overlay.Result{accepted(0, 0, 20, 20)}},
		Pool:      dropPool{},
		Presenter: &fakePresenter{ch: make(chan presentation, 1)},
	})
	sess, err := loop.slot.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer loop.slot.Release(sess)

	conn := &fakeConn{}
	loop.handleConn(context.Background(), conn)

	responses, closed := conn.state()
	if len(responses) != 1 || responses[0] != "ERROR "+ErrBusy.Error() {
		t.Fatalf("expected busy reply, got %v", responses)
	}
	if !closed {
		t.Fatal("expected conn closed")
	}
}
