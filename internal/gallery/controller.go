package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// ErrStale is returned when a fetch resolved after a newer request for the
// same popup was issued. Its result was discarded.
var ErrStale = errors.New("gallery: response superseded by a newer request")

// ErrIndexOutOfRange is returned when a grid position does not exist.
var ErrIndexOutOfRange = errors.New("gallery: grid index out of range")

// Controller owns the popup State of one page. It is safe for concurrent
// use; fetches run without holding the lock.
type Controller struct {
	fetcher  Fetcher
	slides   *Slideshow
	logger   *log.Logger
	onChange func(State)

	clock    Clock
	interval time.Duration

	mu     sync.Mutex
	state  State
	tokens map[PopupID]uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for swallowed fetch failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the clock driving cinema mode.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithSlideInterval sets the cinema slide duration.
func WithSlideInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithObserver registers a callback invoked with a snapshot after every
// state change, including slideshow ticks.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// NewController returns a controller with every popup hidden.
func NewController(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher: fetcher,
		logger:  log.New(os.Stderr, "", log.LstdFlags),
		tokens:  make(map[PopupID]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.slides = NewSlideshow(c.clock, c.interval, func(int) { c.notify(c.State()) })
	return c
}

// State returns a snapshot of the popup state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Nav.Items = append([]PostcardSummary(nil), s.Nav.Items...)
	if s.Cinema.Running {
		s.Cinema.Active = c.slides.Active()
	}
	return s
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// update applies a pure transition and notifies observers.
func (c *Controller) update(fn func(State) State) State {
	c.mu.Lock()
	c.state = fn(c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return snap
}

// issue hands out the next request token for popup.
func (c *Controller) issue(popup PopupID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[popup]++
	return c.tokens[popup]
}

// OpenFromGrid replaces the navigable set with items and opens the card at
// index. The set is only swapped in once the fetch succeeds.
func (c *Controller) OpenFromGrid(ctx context.Context, items []PostcardSummary, index int) error {
	if index < 0 || index >= len(items) {
		return ErrIndexOutOfRange
	}
	return c.openDetail(ctx, items[index].ID, items, index)
}

// OpenDetail fetches a postcard and shows it in the detail popup. On
// failure the popup stays closed and the error is logged and returned.
func (c *Controller) OpenDetail(ctx context.Context, id int64) error {
	return c.openDetail(ctx, id, nil, 0)
}

// openDetail applies items as the navigable set together with the fetched
// card, after the token and error checks. A nil items keeps the current set.
func (c *Controller) openDetail(ctx context.Context, id int64, items []PostcardSummary, index int) error {
	token := c.issue(PopupDetail)
	summary, err := c.fetcher.FetchPostcard(ctx, id)

	c.mu.Lock()
	if token != c.tokens[PopupDetail] {
		c.mu.Unlock()
		c.logger.Printf("gallery: dropping stale detail response for postcard %d", id)
		return ErrStale
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Printf("gallery: loading postcard %d: %v", id, err)
		return fmt.Errorf("opening detail for postcard %d: %w", id, err)
	}
	if items != nil {
		c.state = c.state.WithNavigation(items, index)
	}
	c.state = c.state.ShowDetail(summary)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// OpenZoom fetches the zoom asset. A refusal shows the membership gate
// instead of the zoom viewer.
func (c *Controller) OpenZoom(ctx context.Context, id int64) error {
	token := c.issue(PopupZoom)
	asset, err := c.fetcher.FetchZoom(ctx, id)

	c.mu.Lock()
	if token != c.tokens[PopupZoom] {
		c.mu.Unlock()
		c.logger.Printf("gallery: dropping stale zoom response for postcard %d", id)
		return ErrStale
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Printf("gallery: loading zoom for postcard %d: %v", id, err)
		return fmt.Errorf("opening zoom for postcard %d: %w", id, err)
	}
	c.state = c.state.ShowZoom(asset)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// PreviousImage pages the detail popup one card back.
func (c *Controller) PreviousImage() State {
	return c.update(State.Previous)
}

// NextImage pages the detail popup one card forward.
func (c *Controller) NextImage() State {
	return c.update(State.Next)
}

// ToggleSide flips the detail image between front and back.
func (c *Controller) ToggleSide() State {
	return c.update(State.ToggleSide)
}

// ZoomClick toggles the zoom viewer between Idle and Zoomed.
func (c *Controller) ZoomClick() State {
	return c.update(State.ZoomClick)
}

// ZoomMove tracks the mouse inside the zoom container.
func (c *Controller) ZoomMove(x, y float64, box Rect) State {
	return c.update(func(s State) State { return s.ZoomMove(x, y, box) })
}

// ShowMembershipPrompt shows the blocking membership notice.
func (c *Controller) ShowMembershipPrompt() State {
	return c.update(State.ShowMembershipPrompt)
}

// StartCinema shows the slider and arms the slideshow timer, replacing any
// timer already running.
func (c *Controller) StartCinema(count int) error {
	c.mu.Lock()
	if err := c.slides.Start(count); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = c.state.StartCinema(count)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// CloseAll hides every popup and the overlay, stops the slideshow and
// invalidates fetches still in flight.
func (c *Controller) CloseAll() State {
	c.mu.Lock()
	c.slides.Stop()
	c.closeAllLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return snap
}

func (c *Controller) closeAllLocked() {
	for _, p := range AllPopups {
		c.tokens[p]++
	}
	c.state = c.state.CloseAll()
}

// HandleKey applies a key press. It reports false when the detail popup is
// closed, in which case keys are ignored.
func (c *Controller) HandleKey(key string) bool {
	c.mu.Lock()
	if !c.state.Popups.Detail {
		c.mu.Unlock()
		return false
	}
	if key == KeyEscape {
		c.mu.Unlock()
		c.CloseAll()
		return true
	}
	c.state = c.state.HandleKey(key)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return true
}

// Slideshow exposes the cinema timer.
func (c *Controller) Slideshow() *Slideshow { return c.slides }
