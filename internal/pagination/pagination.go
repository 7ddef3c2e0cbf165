// Package pagination owns the reading position and the display
// backend. A single controller goroutine applies every state
// transition and makes every Present and PollInput call, so backends
// never see concurrent access.
package pagination

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/andrewjensen/skelly/internal/display"
	"github.com/andrewjensen/skelly/internal/logging"
	"github.com/andrewjensen/skelly/internal/raster"
)

// Document is a fully rendered job ready for display.
type Document struct {
	JobID uuid.UUID
	URL   string
	Pages []*raster.Surface
}

// Status is the controller's externally visible state.
type Status uint8

const (
	StatusIdle Status = iota
	StatusRendering
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRendering:
		return "rendering"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Snapshot is a consistent view of the controller state. Page and
// Pages are meaningful when Status is StatusReady.
type Snapshot struct {
	Status Status
	JobID  uuid.UUID
	Page   int
	Pages  int
	Err    error
}

// State tracks the current page within a document. Movement clamps at
// both ends; there is no wrap-around.
type State struct {
	current int
	total   int
}

// NewState positions at the first of total pages.
func NewState(total int) State {
	if total < 0 {
		total = 0
	}
	return State{total: total}
}

// Current returns the zero-based page index.
func (s *State) Current() int { return s.current }

// Total returns the page count.
func (s *State) Total() int { return s.total }

// Next advances one page. It reports whether the position changed.
func (s *State) Next() bool {
	if s.current+1 >= s.total {
		return false
	}
	s.current++
	return true
}

// Prev goes back one page. It reports whether the position changed.
func (s *State) Prev() bool {
	if s.current == 0 {
		return false
	}
	s.current--
	return true
}

// pollInterval is how often the controller samples backend input.
const pollInterval = 30 * time.Millisecond

type outcome struct {
	jobID uuid.UUID
	doc   *Document
	err   error
}

// Controller drives the backend: it presents newly rendered documents
// as they arrive and turns pages on input events. A finished job is
// applied only while it is still the most recently submitted one;
// superseded results are dropped without being presented.
type Controller struct {
	backend  display.Backend
	outcomes chan outcome
	submits  chan uuid.UUID

	// latest is the ID of the most recently submitted job, written
	// synchronously from JobSubmitted so in-flight results are already
	// stale by the time they arrive.
	latest atomic.Value // uuid.UUID

	mu   sync.Mutex
	snap Snapshot

	doc   *Document
	state State
	// resolved is the last job whose outcome was applied. Only the Run
	// goroutine touches it.
	resolved uuid.UUID
}

func NewController(backend display.Backend) *Controller {
	c := &Controller{
		backend:  backend,
		outcomes: make(chan outcome, 4),
		submits:  make(chan uuid.UUID, 8),
	}
	c.latest.Store(uuid.Nil)
	return c
}

// JobSubmitted records a newly accepted job. Anything still in flight
// is superseded from this point on. Safe to call from any goroutine.
func (c *Controller) JobSubmitted(id uuid.UUID) {
	c.latest.Store(id)
	select {
	case c.submits <- id:
	default:
	}
}

// Complete delivers a finished render.
func (c *Controller) Complete(ctx context.Context, doc Document) {
	select {
	case c.outcomes <- outcome{jobID: doc.JobID, doc: &doc}:
	case <-ctx.Done():
	}
}

// Fail reports that a job's render did not produce pages.
func (c *Controller) Fail(ctx context.Context, jobID uuid.UUID, err error) {
	select {
	case c.outcomes <- outcome{jobID: jobID, err: err}:
	case <-ctx.Done():
	}
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Controller) setSnapshot(s Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

func (c *Controller) isLatest(id uuid.UUID) bool {
	latest, _ := c.latest.Load().(uuid.UUID)
	return latest == id
}

// Run executes the control loop until ctx is cancelled, the backend
// requests quit, or polling fails.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log := logging.Logger()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case id := <-c.submits:
			// A signal draining after its own outcome must not regress
			// the applied state back to rendering.
			if !c.isLatest(id) || id == c.resolved {
				continue
			}
			// The displayed document is superseded from this point;
			// drop it so input cannot resurface it mid-render.
			c.doc = nil
			c.state = NewState(0)
			c.setSnapshot(Snapshot{Status: StatusRendering, JobID: id})

		case o := <-c.outcomes:
			if !c.isLatest(o.jobID) {
				log.Info("discarding superseded render", "job", o.jobID)
				continue
			}
			c.resolved = o.jobID
			if o.err != nil {
				log.Error("render failed", "job", o.jobID, "error", o.err)
				c.doc = nil
				c.state = NewState(0)
				c.setSnapshot(Snapshot{Status: StatusError, JobID: o.jobID, Err: o.err})
				continue
			}
			c.doc = o.doc
			c.state = NewState(len(o.doc.Pages))
			log.Info("presenting document", "job", o.jobID, "url", o.doc.URL, "pages", len(o.doc.Pages))
			c.present()

		case <-ticker.C:
			ev, err := c.backend.PollInput()
			if err != nil {
				return err
			}
			switch ev.Kind {
			case display.InputNone:
			case display.InputNextPage:
				if c.canPage() && c.state.Next() {
					c.present()
				}
			case display.InputPrevPage:
				if c.canPage() && c.state.Prev() {
					c.present()
				}
			case display.InputCustom:
				if ev.Action == display.ActionQuit {
					log.Info("quit requested")
					return nil
				}
				log.Debug("dropping unmapped input", "event", ev)
			}
		}
	}
}

// canPage reports whether input may turn pages. Once a newer job is
// submitted the displayed document is superseded and page turns stop
// until the new render lands. The submit signal is best-effort, so
// the latest-ID check closes the window before it drains.
func (c *Controller) canPage() bool {
	return c.doc != nil && c.isLatest(c.doc.JobID)
}

// present writes the current page to the backend. A failed write keeps
// the backend's previous frame and records the error; the next page
// turn or document tries again.
func (c *Controller) present() {
	if c.doc == nil {
		return
	}
	snap := Snapshot{
		Status: StatusReady,
		JobID:  c.doc.JobID,
		Page:   c.state.Current(),
		Pages:  c.state.Total(),
	}
	if c.state.Total() > 0 {
		if err := c.backend.Present(c.doc.Pages[c.state.Current()]); err != nil {
			logging.Logger().Error("present failed",
				"job", c.doc.JobID, "page", c.state.Current()+1, "error", err)
			snap.Status = StatusError
			snap.Err = err
		}
	}
	c.setSnapshot(snap)
}
