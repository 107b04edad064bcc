package gallery

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

type fakeFetcher struct {
	mu      sync.Mutex
	cards   map[int64]PostcardSummary
	zooms   map[int64]ZoomAsset
	gates   map[int64]chan struct{}
	entered chan int64
	err     error
}

func newFakeFetcher(items []PostcardSummary) *fakeFetcher {
	f := &fakeFetcher{
		cards:   make(map[int64]PostcardSummary),
		zooms:   make(map[int64]ZoomAsset),
		gates:   make(map[int64]chan struct{}),
		entered: make(chan int64, 16),
	}
	for _, c := range items {
		f.cards[c.ID] = c
		f.zooms[c.ID] = ZoomAsset{CanView: true, FrontImageURL: "/media/postcards/Zoom/" + c.Number + ".jpg"}
	}
	return f
}

// hold makes fetches for id block until the returned func is called.
func (f *fakeFetcher) hold(id int64) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[id] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeFetcher) wait(id int64) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	f.entered <- id
	if gate != nil {
		<-gate
	}
}

func (f *fakeFetcher) FetchPostcard(ctx context.Context, id int64) (PostcardSummary, error) {
	f.wait(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return PostcardSummary{}, f.err
	}
	c, ok := f.cards[id]
	if !ok {
		return PostcardSummary{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeFetcher) FetchZoom(ctx context.Context, id int64) (ZoomAsset, error) {
	f.wait(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ZoomAsset{}, f.err
	}
	z, ok := f.zooms[id]
	if !ok {
		return ZoomAsset{}, ErrNotFound
	}
	return z, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestControllerOpenFromGrid(t *testing.T) {
	items := cards(3)
	c := NewController(newFakeFetcher(items), WithLogger(quietLogger()))
	ctx := context.Background()

	if err := c.OpenFromGrid(ctx, items, 2); err != nil {
		t.Fatalf("OpenFromGrid: %v", err)
	}
	s := c.State()
	if !s.Popups.Detail || s.Nav.CurrentIndex != 2 {
		t.Fatalf("unexpected state: popups=%+v index=%d", s.Popups, s.Nav.CurrentIndex)
	}
	if !s.Detail.LeftArrow || s.Detail.RightArrow {
		t.Error("last card should show only the left arrow")
	}

	s = c.PreviousImage()
	if s.Detail.Postcard.ID != items[1].ID {
		t.Errorf("previous: postcard = %d, want %d", s.Detail.Postcard.ID, items[1].ID)
	}

	if err := c.OpenFromGrid(ctx, items, 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range index error = %v", err)
	}
}

func TestControllerFetchFailureKeepsPopupClosed(t *testing.T) {
	f := newFakeFetcher(cards(1))
	f.err = errors.New("connection refused")
	c := NewController(f, WithLogger(quietLogger()))

	err := c.OpenDetail(context.Background(), 1)
	if !errors.Is(err, f.err) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if c.State().Popups.AnyVisible() {
		t.Error("no popup should open on fetch failure")
	}
}

func TestControllerDropsStaleDetail(t *testing.T) {
	items := cards(2)
	f := newFakeFetcher(items)
	c := NewController(f, WithLogger(quietLogger()))
	ctx := context.Background()

	release := f.hold(1)
	done := make(chan error, 1)
	go func() { done <- c.OpenDetail(ctx, 1) }()
	<-f.entered

	if err := c.OpenDetail(ctx, 2); err != nil {
		t.Fatalf("OpenDetail(2): %v", err)
	}
	<-f.entered
	release()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStale) {
			t.Errorf("first request error = %v, want ErrStale", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first request never completed")
	}
	if got := c.State().Detail.Postcard.ID; got != 2 {
		t.Errorf("detail shows postcard %d, want 2", got)
	}
}

func TestControllerCloseAllInvalidatesInFlight(t *testing.T) {
	items := cards(1)
	f := newFakeFetcher(items)
	c := NewController(f, WithLogger(quietLogger()))

	release := f.hold(1)
	done := make(chan error, 1)
	go func() { done <- c.OpenZoom(context.Background(), 1) }()
	<-f.entered

	c.CloseAll()
	release()

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("zoom after CloseAll error = %v, want ErrStale", err)
	}
	if c.State().Popups.Zoom {
		t.Error("late zoom response reopened the popup")
	}
}

func TestControllerZoomRefused(t *testing.T) {
	items := cards(1)
	f := newFakeFetcher(items)
	f.zooms[1] = ZoomAsset{CanView: false}
	c := NewController(f, WithLogger(quietLogger()))
	ctx := context.Background()

	if err := c.OpenFromGrid(ctx, items, 0); err != nil {
		t.Fatalf("OpenFromGrid: %v", err)
	}
	if err := c.OpenZoom(ctx, 1); err != nil {
		t.Fatalf("OpenZoom: %v", err)
	}
	s := c.State()
	if s.Popups.Zoom || !s.Popups.NonMember {
		t.Errorf("expected membership prompt instead of zoom, got %+v", s.Popups)
	}
}

func navIDs(n NavigationState) []int64 {
	ids := make([]int64, len(n.Items))
	for i, it := range n.Items {
		ids[i] = it.ID
	}
	return ids
}

func assertShowing(t *testing.T, s State, wantIDs []int64, wantIndex int) {
	t.Helper()
	got := navIDs(s.Nav)
	if len(got) != len(wantIDs) {
		t.Fatalf("nav ids = %v, want %v", got, wantIDs)
	}
	for i := range got {
		if got[i] != wantIDs[i] {
			t.Fatalf("nav ids = %v, want %v", got, wantIDs)
		}
	}
	if s.Nav.CurrentIndex != wantIndex {
		t.Errorf("current index = %d, want %d", s.Nav.CurrentIndex, wantIndex)
	}
	if want := wantIDs[wantIndex]; s.Detail.Postcard.ID != want {
		t.Errorf("detail shows %d, want %d", s.Detail.Postcard.ID, want)
	}
	left, right := ArrowVisibility(s.Nav)
	if s.Detail.LeftArrow != left || s.Detail.RightArrow != right {
		t.Errorf("arrows = (%v,%v), want (%v,%v)", s.Detail.LeftArrow, s.Detail.RightArrow, left, right)
	}
}

func TestControllerFailedGridOpenKeepsNavigation(t *testing.T) {
	a := cards(3)
	var notified int
	c := NewController(newFakeFetcher(a),
		WithLogger(quietLogger()),
		WithObserver(func(State) { notified++ }),
	)
	ctx := context.Background()

	if err := c.OpenFromGrid(ctx, a, 0); err != nil {
		t.Fatalf("OpenFromGrid: %v", err)
	}
	before := notified

	b := []PostcardSummary{{ID: 11}, {ID: 12}, {ID: 13}}
	if err := c.OpenFromGrid(ctx, b, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if notified != before {
		t.Error("failed open should not notify observers")
	}
	assertShowing(t, c.State(), []int64{1, 2, 3}, 0)

	if s := c.NextImage(); s.Detail.Postcard.ID != 2 {
		t.Errorf("next shows %d, want 2", s.Detail.Postcard.ID)
	}
	if s := c.PreviousImage(); s.Detail.Postcard.ID != 1 {
		t.Errorf("previous shows %d, want 1", s.Detail.Postcard.ID)
	}
}

func TestControllerStaleGridOpenKeepsWinningNavigation(t *testing.T) {
	a := cards(3)
	b := []PostcardSummary{{ID: 11, Title: "B1"}, {ID: 12, Title: "B2"}}
	f := newFakeFetcher(append(append([]PostcardSummary(nil), a...), b...))
	c := NewController(f, WithLogger(quietLogger()))
	ctx := context.Background()

	release := f.hold(12)
	done := make(chan error, 1)
	go func() { done <- c.OpenFromGrid(ctx, b, 1) }()
	for id := range f.entered {
		if id == 12 {
			break
		}
	}

	if err := c.OpenFromGrid(ctx, a, 2); err != nil {
		t.Fatalf("OpenFromGrid: %v", err)
	}
	release()
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
	assertShowing(t, c.State(), []int64{1, 2, 3}, 2)
}

func TestControllerHandleKey(t *testing.T) {
	items := cards(3)
	c := NewController(newFakeFetcher(items), WithLogger(quietLogger()))

	if c.HandleKey(KeyArrowRight) {
		t.Error("keys should be ignored while the detail popup is closed")
	}
	if err := c.OpenFromGrid(context.Background(), items, 0); err != nil {
		t.Fatalf("OpenFromGrid: %v", err)
	}
	c.HandleKey(KeyArrowRight)
	if got := c.State().Nav.CurrentIndex; got != 1 {
		t.Errorf("index = %d, want 1", got)
	}
	c.HandleKey(KeyEscape)
	if c.State().Popups.AnyVisible() {
		t.Error("Escape should close every popup")
	}
}

func TestControllerCloseAllStopsCinemaAtomically(t *testing.T) {
	c := NewController(newFakeFetcher(nil),
		WithLogger(quietLogger()),
		WithClock(&fakeClock{}),
	)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.StartCinema(3)
		}()
		go func() {
			defer wg.Done()
			c.CloseAll()
		}()
	}
	wg.Wait()

	if got, armed := c.State().Cinema.Running, c.Slideshow().Running(); got != armed {
		t.Errorf("state running = %v, timer armed = %v", got, armed)
	}
	c.CloseAll()
	if c.State().Cinema.Running || c.Slideshow().Running() {
		t.Error("CloseAll should stop the slideshow")
	}
}

func TestControllerCinema(t *testing.T) {
	clock := &fakeClock{}
	var mu sync.Mutex
	var seen []int
	c := NewController(newFakeFetcher(nil),
		WithLogger(quietLogger()),
		WithClock(clock),
		WithSlideInterval(time.Second),
		WithObserver(func(s State) {
			mu.Lock()
			seen = append(seen, s.Cinema.Active)
			mu.Unlock()
		}),
	)

	if err := c.StartCinema(3); err != nil {
		t.Fatalf("StartCinema: %v", err)
	}
	if clock.periods[0] != time.Second {
		t.Errorf("interval = %v, want 1s", clock.periods[0])
	}

	clock.ticker(0).c <- time.Now()
	deadline := time.Now().Add(time.Second)
	for c.State().Cinema.Active != 1 {
		if time.Now().After(deadline) {
			t.Fatal("cinema did not advance")
		}
		time.Sleep(time.Millisecond)
	}

	s := c.CloseAll()
	if s.Cinema.Running || c.Slideshow().Running() {
		t.Error("CloseAll should stop the slideshow")
	}
	if s.Popups.Slider {
		t.Error("slider still visible")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 {
		t.Error("observer was never notified")
	}
}
