package session

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"screen-ocr/src/screenshot"
)

var (
	ErrSessionActive = errors.New("a capture session is already active")
	ErrNotSelecting  = errors.New("capture session is no longer selecting")
	ErrNotFinalized  = errors.New("capture session has no finalized region")
)

type Status int

const (
	Selecting Status = iota
	Finalized
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Finalized:
		return "finalized"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// CaptureSession is one trigger-to-presentation cycle. It owns the snapshot
// until Close.
type CaptureSession struct {
	ID        string
	Snapshot  *screenshot.Snapshot
	Region    screenshot.Region
	Status    Status
	StartedAt time.Time
}

func newSession() *CaptureSession {
	return &CaptureSession{ID: uuid.NewString(), Status: Selecting, StartedAt: time.Now()}
}

// Finalize freezes the selected region. The region is immutable afterwards.
func (s *CaptureSession) Finalize(r screenshot.Region) error {
	if s.Status != Selecting {
		return ErrNotSelecting
	}
	s.Region = r
	s.Status = Finalized
	return nil
}

// Cancel marks the session as abandoned. Cancelling twice is harmless.
func (s *CaptureSession) Cancel() {
	if s.Status == Selecting {
		s.Status = Cancelled
	}
}

// Crop extracts the finalized region from the session's snapshot.
func (s *CaptureSession) Crop() (*image.NRGBA, error) {
	if s.Status != Finalized {
		return nil, ErrNotFinalized
	}
	return screenshot.Extract(s.Snapshot, s.Region)
}

// Close discards the snapshot.
// SnapshotAge is how long ago the session's frame was taken, or zero before
// the snapshot exists.
func (s *CaptureSession) SnapshotAge() time.Duration {
	if s.Snapshot == nil || s.Snapshot.TakenAt.IsZero() {
		return 0
	}
	return time.Since(s.Snapshot.TakenAt)
}

func (s *CaptureSession) Close() {
	s.Snapshot = nil
}

// Slot holds the single active capture session of the process.
type Slot struct {
	cur atomic.Pointer[CaptureSession]
}

// Acquire starts a new session, or fails with ErrSessionActive when one is
// already in flight.
func (sl *Slot) Acquire() (*CaptureSession, error) {
	s := newSession()
	if !sl.cur.CompareAndSwap(nil, s) {
		return nil, ErrSessionActive
	}
	log.Printf("session[%s]: acquired", s.ID)
	return s, nil
}

// Release closes s and frees the slot. Releasing a session that no longer
// owns the slot only closes it.
func (sl *Slot) Release(s *CaptureSession) {
	if s == nil {
		return
	}
	age := s.SnapshotAge()
	s.Close()
	if sl.cur.CompareAndSwap(s, nil) {
		log.Printf("session[%s]: released (%s, %v, snapshot age %v)", s.ID, s.Status, time.Since(s.StartedAt).Round(time.Millisecond), age.Round(time.Millisecond))
	}
}

// Current returns the active session, or nil.
func (sl *Slot) Current() *CaptureSession { return sl.cur.Load() }

// Active reports whether a session is in flight.
func (sl *Slot) Active() bool { return sl.cur.Load() != nil }
