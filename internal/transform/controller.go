// Package transform turns pointer events into overlay geometry updates.
//
// A Controller is a finite-state machine over {Idle, Dragging, Resizing,
// Rotating}. Pointer-down on an object's body, a resize handle or the rotate
// handle opens a session; pointer-moves produce candidate geometries for live
// feedback without touching the owning document; pointer-up computes the
// final geometry exactly like the last move and commits it through the
// document's update callback. Only one session exists at a time: pointer-down
// while another session is active first force-commits the prior session.
package transform

import (
	"github.com/google/uuid"
	"github.com/paperlay/paperlay/internal/geom"
)

// State is the controller's interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
	StateRotating
)

// String returns the state name for logs and test failures.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	case StateRotating:
		return "rotating"
	}
	return "unknown"
}

// Region identifies what part of an object a pointer-down hit.
type Region int

const (
	// RegionBody starts a drag.
	RegionBody Region = iota
	// RegionResize starts a resize; the handle identifies which edge or
	// corner was grabbed.
	RegionResize
	// RegionRotate starts a rotation around the object's center.
	RegionRotate
)

// Session captures the immutable start of one continuous interaction.
// It lives from pointer-down to pointer-up and is never persisted.
type Session struct {
	State         State
	Handle        geom.Handle
	StartPointer  geom.Point
	StartGeometry geom.Geometry
	Pivot         geom.Point
	StartAngle    float64
}

// CommitFunc receives the final geometry of a finished interaction.
type CommitFunc func(id uuid.UUID, g geom.Geometry)

// Controller drives transform sessions for one document's overlay objects.
type Controller struct {
	commit     CommitFunc
	lockAspect bool

	state     State
	object    uuid.UUID
	session   Session
	candidate geom.Geometry
}

// NewController creates an idle controller committing through the given
// callback. Corner resizes lock the aspect ratio by default.
func NewController(commit CommitFunc) *Controller {
	return &Controller{commit: commit, lockAspect: true}
}

// SetLockAspect toggles aspect locking for corner resize handles.
func (c *Controller) SetLockAspect(lock bool) {
	c.lockAspect = lock
}

// State returns the current interaction state.
func (c *Controller) State() State {
	return c.state
}

// Active returns the object id of the current session, if one is active.
func (c *Controller) Active() (uuid.UUID, bool) {
	if c.state == StateIdle {
		return uuid.UUID{}, false
	}
	return c.object, true
}

// Candidate returns the latest live-feedback geometry of the active session.
func (c *Controller) Candidate() (geom.Geometry, bool) {
	if c.state == StateIdle {
		return geom.Geometry{}, false
	}
	return c.candidate, true
}

// PointerDown opens a session on the object. If another session is active,
// it is committed first, so selecting away never loses an in-flight
// transform. The start geometry is snapshotted; for rotations the object
// center becomes the pivot and the pointer's current angle about it the
// start angle.
func (c *Controller) PointerDown(id uuid.UUID, region Region, handle geom.Handle, start geom.Geometry, p geom.Point) {
	if c.state != StateIdle {
		c.ForceCommit()
	}

	c.session = Session{
		StartPointer:  p,
		StartGeometry: start,
	}
	switch region {
	case RegionResize:
		c.state = StateResizing
		c.session.Handle = handle
	case RegionRotate:
		c.state = StateRotating
		c.session.Pivot = start.Center()
		c.session.StartAngle = geom.Angle(c.session.Pivot, p)
	default:
		c.state = StateDragging
	}
	c.session.State = c.state
	c.object = id
	c.candidate = start
}

// PointerMove advances the active session and returns the candidate
// geometry for live feedback. The candidate is fully clamped; it is not
// committed. Returns false when no session is active.
func (c *Controller) PointerMove(p geom.Point) (geom.Geometry, bool) {
	if c.state == StateIdle {
		return geom.Geometry{}, false
	}
	c.candidate = c.geometryAt(p)
	return c.candidate, true
}

// PointerUp finishes the active session: the final geometry is computed
// exactly like a move to the same position, committed through the update
// callback, and the controller returns to idle. A pointer-up with zero net
// movement still commits. Returns false when no session was active.
func (c *Controller) PointerUp(p geom.Point) (geom.Geometry, bool) {
	if c.state == StateIdle {
		return geom.Geometry{}, false
	}
	final := c.geometryAt(p)
	c.finish(final)
	return final, true
}

// ForceCommit commits the active session at its latest candidate geometry
// and returns to idle. Used when selection moves to another object while a
// session is still open. No-op when idle.
func (c *Controller) ForceCommit() {
	if c.state == StateIdle {
		return
	}
	c.finish(c.candidate)
}

// geometryAt computes the session geometry for a pointer position.
func (c *Controller) geometryAt(p geom.Point) geom.Geometry {
	dx := p.X - c.session.StartPointer.X
	dy := p.Y - c.session.StartPointer.Y

	switch c.state {
	case StateResizing:
		return geom.ResizeFromHandle(c.session.StartGeometry, c.session.Handle, dx, dy, c.lockAspect)
	case StateRotating:
		out := c.session.StartGeometry
		angle := geom.Angle(c.session.Pivot, p)
		out.Rotation = c.session.StartGeometry.Rotation + (angle - c.session.StartAngle)
		return out
	default:
		return geom.Translate(c.session.StartGeometry, dx, dy)
	}
}

// finish commits a geometry and resets to idle.
func (c *Controller) finish(g geom.Geometry) {
	if c.commit != nil {
		c.commit(c.object, g)
	}
	c.state = StateIdle
	c.session = Session{}
	c.candidate = geom.Geometry{}
}
