// Package submission drives the create-post modal through its flow:
// file selection, a time-interpolated upload animation, validation,
// one network submission, and a finalize step that refreshes the feed
// exactly once.
package submission

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lite-tech/briefings/internal/content"
)

// Phase is the modal's current flow state. Phases are exclusive;
// closing is allowed from any of them.
type Phase string

const (
	PhaseSelecting Phase = "selecting"
	PhaseUploading Phase = "uploading"
	PhaseFailed    Phase = "failed"
	PhaseSuccess   Phase = "success"
	PhaseCompleted Phase = "completed"
)

// uploadDuration is the fixed client-side progress ramp. It runs
// before Confirm ever touches the network; the two notions of
// "uploading" are deliberately independent.
const uploadDuration = 1500 * time.Millisecond

type FieldErrors struct {
	Title bool `json:"title"`
	Image bool `json:"image"`
}

// State is a snapshot of one modal session. It lives only as long as
// the session; nothing persists across opens.
type State struct {
	Phase      Phase       `json:"phase"`
	Title      string      `json:"title"`
	FileName   string      `json:"fileName,omitempty"`
	Progress   float64     `json:"progress"`
	Errors     FieldErrors `json:"errors"`
	Submitting bool        `json:"submitting"`
	Finalizing bool        `json:"finalizing"`
	Closed     bool        `json:"closed"`
	Alert      string      `json:"alert,omitempty"`
}

// Creator issues the single post-creation write.
type Creator interface {
	CreateRelated(ctx context.Context, title, filename string, image io.Reader) error
}

// RelatedFetcher re-reads the related-posts collection after a
// successful creation.
type RelatedFetcher interface {
	FetchRelated(ctx context.Context) ([]content.RelatedPost, error)
}

// Broadcaster tells the rest of the running application that the
// backing feed data changed.
type Broadcaster interface {
	RelatedRefreshed(ctx context.Context, posts []content.RelatedPost) error
}

// Refresher is the full-refresh fallback used when no Broadcaster is
// configured.
type Refresher interface {
	Refresh()
}

type Controller struct {
	creator   Creator
	related   RelatedFetcher
	broadcast Broadcaster
	refresher Refresher
	onClose   func()
	logger    *slog.Logger
	clock     Clock
	frames    FrameScheduler

	ramp        time.Duration
	failUploads bool

	mu          sync.Mutex
	state       State
	file        []byte
	uploadStart time.Time
	cancelFrame func()
}

type Option func(*Controller)

func WithClock(c Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

func WithFrameScheduler(f FrameScheduler) Option {
	return func(ctrl *Controller) { ctrl.frames = f }
}

// WithUploadDuration overrides the progress ramp length.
func WithUploadDuration(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.ramp = d }
}

// WithFailingUploads reproduces the demo build whose simulated uploads
// time out into the failed state instead of succeeding.
func WithFailingUploads() Option {
	return func(ctrl *Controller) { ctrl.failUploads = true }
}

func WithBroadcaster(b Broadcaster) Option {
	return func(ctrl *Controller) { ctrl.broadcast = b }
}

func WithRefresher(r Refresher) Option {
	return func(ctrl *Controller) { ctrl.refresher = r }
}

// WithOnClose registers the callback run when the modal closes. It
// fires exactly once per session.
func WithOnClose(fn func()) Option {
	return func(ctrl *Controller) { ctrl.onClose = fn }
}

func NewController(creator Creator, related RelatedFetcher, logger *slog.Logger, opts ...Option) *Controller {
	ctrl := &Controller{
		creator: creator,
		related: related,
		logger:  logger,
		clock:   systemClock{},
		frames:  timerFrames{interval: frameInterval},
		ramp:    uploadDuration,
		state:   State{Phase: PhaseSelecting},
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetTitle records the typed title. Validation happens at Confirm.
func (c *Controller) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Closed {
		return
	}
	c.state.Title = title
}

// PickFile accepts a selected image, clears the image validation
// error and starts the upload progress ramp. Only meaningful while
// selecting; retry returns here and a new pick re-enters the ramp.
func (c *Controller) PickFile(name string, image []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Closed || c.state.Phase != PhaseSelecting {
		return
	}
	c.state.FileName = name
	c.file = image
	c.state.Errors.Image = false
	c.state.Phase = PhaseUploading
	c.state.Progress = 0
	c.uploadStart = c.clock.Now()
	c.cancelFrame = c.frames.Schedule(c.frame)
}

// frame advances the progress bar by interpolating elapsed time over
// the ramp duration. A frame that fires after the flow has moved on is
// discarded.
func (c *Controller) frame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Closed || c.state.Phase != PhaseUploading {
		return
	}

	elapsed := c.clock.Now().Sub(c.uploadStart)
	progress := float64(elapsed) / float64(c.ramp) * 100
	if progress >= 100 {
		c.state.Progress = 100
		c.cancelFrame = nil
		if c.failUploads {
			c.state.Phase = PhaseFailed
		} else {
			c.state.Phase = PhaseSuccess
		}
		return
	}
	if progress < 0 {
		progress = 0
	}
	c.state.Progress = progress
	c.cancelFrame = c.frames.Schedule(c.frame)
}

// Retry returns a failed upload to file selection, discarding the
// previously selected file and its name.
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Closed || c.state.Phase != PhaseFailed {
		return
	}
	c.state.Phase = PhaseSelecting
	c.state.FileName = ""
	c.state.Progress = 0
	c.file = nil
}

// Confirm validates both required fields and, if they hold, issues the
// one network write. Outside the success phase it is a no-op. A failed
// validation sets the per-field flags and leaves state untouched; a
// failed submission surfaces an alert and closes the modal; the user
// must reopen to try again.
func (c *Controller) Confirm(ctx context.Context) {
	c.mu.Lock()
	if c.state.Closed || c.state.Phase != PhaseSuccess || c.state.Submitting {
		c.mu.Unlock()
		return
	}

	title := strings.TrimSpace(c.state.Title)
	titleMissing := title == ""
	imageMissing := c.file == nil
	if titleMissing || imageMissing {
		c.state.Errors.Title = titleMissing
		c.state.Errors.Image = imageMissing
		c.mu.Unlock()
		return
	}

	c.state.Submitting = true
	filename := c.state.FileName
	image := bytes.NewReader(c.file)
	c.mu.Unlock()

	err := c.creator.CreateRelated(ctx, title, filename, image)

	c.mu.Lock()
	c.state.Submitting = false
	if err != nil {
		c.logger.Error("post submission failed", "error", err)
		c.state.Alert = "Your post could not be uploaded. Please try again later."
		c.mu.Unlock()
		c.Close()
		return
	}
	c.state.Phase = PhaseCompleted
	c.mu.Unlock()
}

// Done finalizes a completed session: re-fetch the related posts,
// broadcast them (or fall back to a full refresh when no broadcast
// channel exists), then close. The finalizing flag deduplicates rapid
// double-clicks down to one fetch and one close; refresh errors are
// logged and never block the close.
func (c *Controller) Done(ctx context.Context) {
	c.mu.Lock()
	if c.state.Closed || c.state.Phase != PhaseCompleted || c.state.Finalizing {
		c.mu.Unlock()
		return
	}
	c.state.Finalizing = true
	c.mu.Unlock()

	posts, err := c.related.FetchRelated(ctx)
	if err != nil {
		c.logger.Error("related posts refresh failed", "error", err)
		c.Close()
		return
	}

	if c.broadcast != nil {
		if err := c.broadcast.RelatedRefreshed(ctx, posts); err != nil {
			c.logger.Error("refresh broadcast failed", "error", err)
		}
	} else if c.refresher != nil {
		c.refresher.Refresh()
	}
	c.Close()
}

// Close dismisses the modal from any state. It discards in-memory
// state and any pending animation frame; no cleanup is attempted
// against the remote service. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state.Closed {
		c.mu.Unlock()
		return
	}
	c.state.Closed = true
	if c.cancelFrame != nil {
		c.cancelFrame()
		c.cancelFrame = nil
	}
	onClose := c.onClose
	c.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}
