package gallery

// NavigationState is the ordered set the detail popup pages through.
// While the detail popup is open, 0 <= CurrentIndex < len(Items).
type NavigationState struct {
	CurrentIndex int
	Items        []PostcardSummary
}

// Valid reports whether CurrentIndex points at an item.
func (n NavigationState) Valid() bool {
	return n.CurrentIndex >= 0 && n.CurrentIndex < len(n.Items)
}

// Current returns the item under CurrentIndex.
func (n NavigationState) Current() (PostcardSummary, bool) {
	if !n.Valid() {
		return PostcardSummary{}, false
	}
	return n.Items[n.CurrentIndex], true
}

// IndexOf returns the position of the postcard with the given id, or -1.
func (n NavigationState) IndexOf(id int64) int {
	for i, item := range n.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Advance moves CurrentIndex by delta, clamped to the item bounds.
func (n NavigationState) Advance(delta int) NavigationState {
	if len(n.Items) == 0 {
		return n
	}
	n.CurrentIndex = clampIndex(n.CurrentIndex+delta, len(n.Items))
	return n
}

// ArrowVisibility returns whether the left and right arrows are shown.
func ArrowVisibility(n NavigationState) (left, right bool) {
	if !n.Valid() {
		return false, false
	}
	return n.CurrentIndex > 0, n.CurrentIndex < len(n.Items)-1
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}

// DetailView is the rendered content of the detail popup.
type DetailView struct {
	Postcard   PostcardSummary
	Side       Side
	LeftArrow  bool
	RightArrow bool
}

// ImageURL is the image currently displayed.
func (d DetailView) ImageURL() string {
	if d.Side == SideBack {
		return d.Postcard.BackImageURL
	}
	return d.Postcard.FrontImageURL
}

func renderDetail(n NavigationState) DetailView {
	p, _ := n.Current()
	left, right := ArrowVisibility(n)
	return DetailView{Postcard: p, Side: SideFront, LeftArrow: left, RightArrow: right}
}

// ZoomInteraction is the click-to-zoom, mouse-tracked pan state.
type ZoomInteraction struct {
	Zoomed  bool
	OriginX float64
	OriginY float64
}

// Click toggles between Idle and Zoomed.
func (z ZoomInteraction) Click() ZoomInteraction {
	z.Zoomed = !z.Zoomed
	return z
}

// MouseMove moves the focal point to the cursor position, expressed as a
// percentage of the container box on each axis. Idle ignores movement.
func (z ZoomInteraction) MouseMove(x, y float64, box Rect) ZoomInteraction {
	if !z.Zoomed || box.Width <= 0 || box.Height <= 0 {
		return z
	}
	z.OriginX = clampPercent((x - box.Left) / box.Width * 100)
	z.OriginY = clampPercent((y - box.Top) / box.Height * 100)
	return z
}

// Cursor mirrors the state: zoom-in while Idle, zoom-out while Zoomed.
func (z ZoomInteraction) Cursor() string {
	if z.Zoomed {
		return CursorZoomOut
	}
	return CursorZoomIn
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// centred is the focal point of a freshly opened zoom popup.
var centred = ZoomInteraction{OriginX: 50, OriginY: 50}

// ZoomView is the content of the zoom popup.
type ZoomView struct {
	ImageURL    string
	Interaction ZoomInteraction
}

// Cinema is the slideshow layer.
type Cinema struct {
	Count   int
	Active  int
	Running bool
	Opacity float64
}

// NextSlide returns the slide after active, wrapping modulo count.
func NextSlide(active, count int) int {
	if count <= 0 {
		return 0
	}
	return (active + 1) % count
}

// State is the whole popup flow of one page. Every method returns a new
// State and leaves the receiver untouched.
type State struct {
	Popups Visibility
	Nav    NavigationState
	Detail DetailView
	Zoom   ZoomView
	Cinema Cinema
}

// WithNavigation replaces the navigable set and points at index. It is used
// when a card is opened from the grid.
func (s State) WithNavigation(items []PostcardSummary, index int) State {
	s.Nav = NavigationState{Items: append([]PostcardSummary(nil), items...)}
	if len(items) > 0 {
		s.Nav.CurrentIndex = clampIndex(index, len(items))
	}
	return s
}

// ShowDetail displays p in the detail popup, front side first. If p is part
// of the navigable set it becomes the current item and its entry is
// refreshed; otherwise the set collapses to p alone.
func (s State) ShowDetail(p PostcardSummary) State {
	if i := s.Nav.IndexOf(p.ID); i >= 0 {
		items := append([]PostcardSummary(nil), s.Nav.Items...)
		items[i] = p
		s.Nav = NavigationState{CurrentIndex: i, Items: items}
	} else {
		s.Nav = NavigationState{Items: []PostcardSummary{p}}
	}
	s.Popups = s.Popups.With(PopupFade, true).With(PopupDetail, true)
	s.Detail = renderDetail(s.Nav)
	return s
}

// Advance pages the detail popup by delta. It is a no-op when the popup is
// hidden or the move would leave the set.
func (s State) Advance(delta int) State {
	if !s.Popups.Detail {
		return s
	}
	next := s.Nav.Advance(delta)
	if next.CurrentIndex == s.Nav.CurrentIndex {
		return s
	}
	s.Nav = next
	s.Detail = renderDetail(next)
	return s
}

// Previous pages one card back.
func (s State) Previous() State { return s.Advance(-1) }

// Next pages one card forward.
func (s State) Next() State { return s.Advance(1) }

// ToggleSide flips the detail image between front and back.
func (s State) ToggleSide() State {
	if !s.Popups.Detail {
		return s
	}
	s.Detail.Side = s.Detail.Side.Flip()
	return s
}

// ShowZoom opens the zoom viewer, or the membership gate when the asset
// is not viewable.
func (s State) ShowZoom(asset ZoomAsset) State {
	if !asset.CanView {
		return s.ShowMembershipPrompt()
	}
	s.Popups = s.Popups.With(PopupFade, true).With(PopupZoom, true)
	s.Zoom = ZoomView{ImageURL: asset.FrontImageURL, Interaction: centred}
	return s
}

// ZoomClick toggles the pan/zoom state. Ignored while the viewer is hidden.
func (s State) ZoomClick() State {
	if !s.Popups.Zoom {
		return s
	}
	s.Zoom.Interaction = s.Zoom.Interaction.Click()
	return s
}

// ZoomMove tracks the mouse inside the zoom container.
func (s State) ZoomMove(x, y float64, box Rect) State {
	if !s.Popups.Zoom {
		return s
	}
	s.Zoom.Interaction = s.Zoom.Interaction.MouseMove(x, y, box)
	return s
}

// ShowMembershipPrompt shows the blocking notice for non-members.
func (s State) ShowMembershipPrompt() State {
	s.Popups = s.Popups.With(PopupFade, true).With(PopupNonMember, true)
	return s
}

// StartCinema shows the slider with its first slide active.
func (s State) StartCinema(count int) State {
	if count <= 0 {
		return s
	}
	s.Popups = s.Popups.With(PopupFade, true).With(PopupSlider, true)
	s.Cinema = Cinema{Count: count, Active: 0, Running: true, Opacity: 1}
	return s
}

// NextSlide advances the running slideshow by one slide.
func (s State) NextSlide() State {
	if !s.Cinema.Running {
		return s
	}
	s.Cinema.Active = NextSlide(s.Cinema.Active, s.Cinema.Count)
	return s
}

// CloseAll hides every layer and stops the slideshow. It is the only way
// popups are dismissed.
func (s State) CloseAll() State {
	s.Popups = Visibility{}
	s.Cinema = Cinema{Count: s.Cinema.Count}
	s.Zoom.Interaction = ZoomInteraction{}
	return s
}

// HandleKey applies a key press. Keys only act while the detail popup is
// open; Escape with only the zoom viewer open does nothing.
func (s State) HandleKey(key string) State {
	if !s.Popups.Detail {
		return s
	}
	switch key {
	case KeyArrowLeft:
		return s.Previous()
	case KeyArrowRight:
		return s.Next()
	case KeyEscape:
		return s.CloseAll()
	}
	return s
}
