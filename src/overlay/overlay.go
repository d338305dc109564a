package overlay

import (
	"context"
	"errors"
	"image"
	"log"

	"screen-ocr/src/screenshot"
	"screen-ocr/src/selection"
)

var ErrUnsupported = errors.New("interactive region selection not implemented for this platform")

// Result is how one selection ended. Region is set only for OutcomeAccepted.
type Result struct {
	Outcome selection.Outcome
	Region  screenshot.Region
}

// Selector defines a synchronous region-selection API owned by the event loop.
// The call is blocking and MUST be invoked only from the single event-loop goroutine.
// The overlay is hidden again by the time Select returns, whatever the outcome.
type Selector interface {
	Select(ctx context.Context, snap *screenshot.Snapshot) (Result, error)
}

// Surface is the native full-display window the Driver paints into.
type Surface interface {
	Show(frame *image.RGBA) error
	Redraw(frame *image.RGBA)
	Hide()
}

// Driver feeds input events through the selection machine and applies the
// resulting effects to a Surface. Platform selectors translate native events
// into selection.Event values and call Handle; everything else lives here.
type Driver struct {
	surface Surface
	style   Style

	snap    *screenshot.Snapshot
	dimmed  *image.RGBA
	frame   *image.RGBA
	machine selection.Machine
	result  Result
	done    bool
}

func NewDriver(surface Surface, style Style) *Driver {
	return &Driver{surface: surface, style: style}
}

// Begin arms the machine over snap and shows the surface.
func (d *Driver) Begin(snap *screenshot.Snapshot) error {
	if snap == nil || snap.Image == nil {
		return errors.New("overlay: no snapshot to select from")
	}
	d.snap = snap
	d.dimmed = Dim(snap, d.style.Opacity)
	d.frame = image.NewRGBA(snap.Bounds())
	d.machine = selection.Machine{}
	d.result = Result{}
	d.done = false

	var fx selection.Effects
	d.machine, fx = selection.Transition(d.machine, selection.Event{Kind: selection.Arm})
	if err := d.apply(fx); err != nil {
		d.release()
		return err
	}
	log.Printf("OVERLAY: armed over %dx%d snapshot", snap.Width(), snap.Height())
	return nil
}

// Handle processes one input event and reports whether the selection is over.
func (d *Driver) Handle(ev selection.Event) bool {
	if d.done {
		return true
	}
	var fx selection.Effects
	d.machine, fx = selection.Transition(d.machine, ev)
	if err := d.apply(fx); err != nil {
		log.Printf("OVERLAY: %v", err)
	}
	if fx.Outcome == selection.OutcomeNone {
		return false
	}
	log.Printf("OVERLAY: selection %s %v", fx.Outcome, fx.Region)
	d.finish(Result{Outcome: fx.Outcome, Region: fx.Region})
	return true
}

// Abort ends the selection as cancelled, e.g. when the caller's context is done.
func (d *Driver) Abort() {
	if d.done {
		return
	}
	_, fx := selection.Transition(d.machine, selection.Event{Kind: selection.Reset})
	if fx.Hide {
		d.surface.Hide()
	}
	d.finish(Result{Outcome: selection.OutcomeCancelled})
}

func (d *Driver) Done() bool { return d.done }

func (d *Driver) Result() Result { return d.result }

// Machine exposes the current selection state.
func (d *Driver) Machine() selection.Machine { return d.machine }

// Frame is the last rendered frame, or nil outside a selection.
func (d *Driver) Frame() *image.RGBA { return d.frame }

func (d *Driver) apply(fx selection.Effects) error {
	if fx.Show || fx.Redraw {
		RenderFrame(d.frame, d.dimmed, d.snap, d.machine.Feedback(), d.style)
	}
	if fx.Show {
		if err := d.surface.Show(d.frame); err != nil {
			return err
		}
	} else if fx.Redraw {
		d.surface.Redraw(d.frame)
	}
	if fx.Hide {
		d.surface.Hide()
	}
	return nil
}

func (d *Driver) finish(r Result) {
	d.result = r
	d.done = true
	d.machine, _ = selection.Transition(d.machine, selection.Event{Kind: selection.Reset})
	d.release()
}

func (d *Driver) release() {
	d.snap = nil
	d.dimmed = nil
	d.frame = nil
}
