// Package selection holds the overlay's drag-to-select state machine.
// It has no window system dependencies; a surface feeds it pointer and key
// events and applies the returned effects.
package selection

import (
	"fmt"
	"image"

	"screen-ocr/src/screenshot"
)

// MinSize is the exclusive lower bound, per axis, of an accepted selection.
const MinSize = 10

// LabelOffset is how far above the rectangle's top-left the size label sits.
const LabelOffset = 25

type State int

const (
	Idle State = iota
	Armed
	Dragging
	Finalized
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	case Finalized:
		return "finalized"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Button int

const (
	Primary Button = iota
	Secondary
)

type EventKind int

const (
	// Arm shows the surface over a freshly taken snapshot.
	Arm EventKind = iota
	Press
	Move
	Release
	// Cancel is the cancellation key.
	Cancel
	// Reset returns a terminal machine to Idle.
	Reset
)

func (k EventKind) String() string {
	switch k {
	case Arm:
		return "arm"
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	case Cancel:
		return "cancel"
	case Reset:
		return "reset"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one input delivered to the machine. X and Y are overlay-local.
type Event struct {
	Kind   EventKind
	Button Button
	X, Y   int
}

func (e Event) point() image.Point { return image.Point{X: e.X, Y: e.Y} }

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Rectangle is the raw drag: where the press happened and where the pointer is now.
type Rectangle struct {
	Anchor  image.Point
	Current image.Point
}

// Normalize returns (min(ax,cx), min(ay,cy), |cx-ax|, |cy-ay|).
func (r Rectangle) Normalize() screenshot.Region {
	return screenshot.Region{
		X:      min(r.Anchor.X, r.Current.X),
		Y:      min(r.Anchor.Y, r.Current.Y),
		Width:  abs(r.Current.X - r.Anchor.X),
		Height: abs(r.Current.Y - r.Anchor.Y),
	}
}

// Accepted reports whether a finalized region is large enough to extract.
func Accepted(r screenshot.Region) bool {
	return r.Width > MinSize && r.Height > MinSize
}

// Effects tells the surface what to do after a transition. At most one of
// the terminal outcomes is set per transition.
type Effects struct {
	Show    bool
	Redraw  bool
	Hide    bool
	Outcome Outcome
	// Region is set only when Outcome is OutcomeAccepted.
	Region screenshot.Region
}

// Machine is the value threaded through Transition. The zero value is Idle.
type Machine struct {
	State State
	Rect  Rectangle
}

// Active reports whether the surface is up and accepting input.
func (m Machine) Active() bool { return m.State == Armed || m.State == Dragging }

// Transition applies ev to m. Events that do not apply to the current state
// leave the machine unchanged and produce no effects.
func Transition(m Machine, ev Event) (Machine, Effects) {
	switch ev.Kind {
	case Arm:
		if m.State != Idle {
			return m, Effects{}
		}
		return Machine{State: Armed}, Effects{Show: true, Redraw: true}

	case Press:
		if !m.Active() {
			return m, Effects{}
		}
		if ev.Button == Secondary {
			return cancel()
		}
		if m.State != Armed {
			return m, Effects{}
		}
		p := ev.point()
		return Machine{State: Dragging, Rect: Rectangle{Anchor: p, Current: p}}, Effects{Redraw: true}

	case Move:
		if m.State != Dragging {
			return m, Effects{}
		}
		m.Rect.Current = ev.point()
		return m, Effects{Redraw: true}

	case Release:
		if m.State != Dragging || ev.Button != Primary {
			return m, Effects{}
		}
		m.Rect.Current = ev.point()
		region := m.Rect.Normalize()
		if !Accepted(region) {
			return Machine{State: Idle}, Effects{Hide: true, Outcome: OutcomeRejected}
		}
		m.State = Finalized
		return m, Effects{Hide: true, Outcome: OutcomeAccepted, Region: region}

	case Cancel:
		if !m.Active() {
			return m, Effects{}
		}
		return cancel()

	case Reset:
		return Machine{State: Idle}, Effects{Hide: m.Active()}
	}
	return m, Effects{}
}

func cancel() (Machine, Effects) {
	return Machine{State: Cancelled}, Effects{Hide: true, Outcome: OutcomeCancelled}
}

// Feedback is what the surface draws for the current machine.
type Feedback struct {
	// Visible is false when there is no rectangle to draw.
	Visible bool
	Region  screenshot.Region
	Label   string
	LabelAt image.Point
}

// Feedback describes the live rectangle outline and its "W × H" label.
func (m Machine) Feedback() Feedback {
	if m.State != Dragging {
		return Feedback{}
	}
	r := m.Rect.Normalize()
	return Feedback{
		Visible: true,
		Region:  r,
		Label:   fmt.Sprintf("%d × %d", r.Width, r.Height),
		LabelAt: image.Point{X: r.X, Y: max(0, r.Y-LabelOffset)},
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
