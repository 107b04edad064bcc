package gallery

import (
	"errors"
	"sync"
	"time"
)

// DefaultSlideInterval is how long each cinema slide stays on screen.
const DefaultSlideInterval = 3 * time.Second

// ErrNoSlides is returned when cinema mode is started without slides.
var ErrNoSlides = errors.New("gallery: slideshow needs at least one slide")

// Ticker delivers ticks until stopped.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Clock creates tickers. Tests substitute a manual clock.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// SystemClock is the wall clock.
type SystemClock struct{}

// NewTicker wraps time.NewTicker.
func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct{ *time.Ticker }

func (t systemTicker) Chan() <-chan time.Time { return t.C }

// Slideshow cycles through a fixed number of slides. It owns at most one
// timer: Start while running cancels the previous timer before arming a
// new one.
type Slideshow struct {
	clock     Clock
	interval  time.Duration
	onAdvance func(active int)

	mu     sync.Mutex
	count  int
	active int
	gen    uint64
	ticker Ticker
	stop   chan struct{}
}

// NewSlideshow returns a stopped slideshow. onAdvance, if non-nil, is called
// from the timer goroutine after every advance.
func NewSlideshow(clock Clock, interval time.Duration, onAdvance func(active int)) *Slideshow {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultSlideInterval
	}
	return &Slideshow{clock: clock, interval: interval, onAdvance: onAdvance}
}

// Start shows slide 0 and begins advancing every interval.
func (s *Slideshow) Start(count int) error {
	if count <= 0 {
		return ErrNoSlides
	}

	s.mu.Lock()
	s.stopLocked()
	s.count, s.active = count, 0
	gen := s.gen
	ticker := s.clock.NewTicker(s.interval)
	stop := make(chan struct{})
	s.ticker, s.stop = ticker, stop
	s.mu.Unlock()

	go s.run(gen, ticker, stop)
	return nil
}

func (s *Slideshow) run(gen uint64, ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			s.mu.Lock()
			if s.gen != gen {
				s.mu.Unlock()
				return
			}
			s.active = NextSlide(s.active, s.count)
			active := s.active
			s.mu.Unlock()

			if s.onAdvance != nil {
				s.onAdvance(active)
			}
		}
	}
}

// Stop cancels the timer and rewinds to the first slide. Stopping a stopped
// slideshow is a no-op.
func (s *Slideshow) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.active = 0
}

func (s *Slideshow) stopLocked() {
	s.gen++
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.ticker.Stop()
	s.stop, s.ticker = nil, nil
}

// Running reports whether a timer is armed.
func (s *Slideshow) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Active returns the index of the slide on screen.
func (s *Slideshow) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Count returns the number of slides of the current run.
func (s *Slideshow) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
