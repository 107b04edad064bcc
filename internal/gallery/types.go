// Package gallery models the browse page's popup flow: the detail popup with
// its paging arrows, the zoom viewer, the membership gate and cinema mode.
//
// The model is an explicit State value with pure transition methods. A
// Controller owns one State, performs the fetches, discards stale responses
// using per-popup request tokens and owns the single slideshow timer.
package gallery

// PopupID names one layer of the browse page. The values match the DOM ids
// the host page provides.
type PopupID string

const (
	PopupFade      PopupID = "fade"
	PopupDetail    PopupID = "popup_detail"
	PopupZoom      PopupID = "popup_zoom"
	PopupNonMember PopupID = "popup_non_membre"
	PopupSlider    PopupID = "slider"
)

// AllPopups lists every layer in stacking order.
var AllPopups = []PopupID{PopupFade, PopupDetail, PopupZoom, PopupNonMember, PopupSlider}

// Visibility records which layers are shown.
type Visibility struct {
	Fade      bool
	Detail    bool
	Zoom      bool
	NonMember bool
	Slider    bool
}

// Visible reports whether id is shown.
func (v Visibility) Visible(id PopupID) bool {
	switch id {
	case PopupFade:
		return v.Fade
	case PopupDetail:
		return v.Detail
	case PopupZoom:
		return v.Zoom
	case PopupNonMember:
		return v.NonMember
	case PopupSlider:
		return v.Slider
	}
	return false
}

// With returns a copy of v with id set to visible.
func (v Visibility) With(id PopupID, visible bool) Visibility {
	switch id {
	case PopupFade:
		v.Fade = visible
	case PopupDetail:
		v.Detail = visible
	case PopupZoom:
		v.Zoom = visible
	case PopupNonMember:
		v.NonMember = visible
	case PopupSlider:
		v.Slider = visible
	}
	return v
}

// AnyVisible reports whether at least one layer is shown.
func (v Visibility) AnyVisible() bool {
	return v.Fade || v.Detail || v.Zoom || v.NonMember || v.Slider
}

// Side is the face of a postcard shown in the detail popup.
type Side int

const (
	SideFront Side = iota
	SideBack
)

func (s Side) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// Flip returns the other face.
func (s Side) Flip() Side {
	if s == SideBack {
		return SideFront
	}
	return SideBack
}

// PostcardSummary is what the detail popup displays.
type PostcardSummary struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Number        string `json:"number"`
	FrontImageURL string `json:"front_image"`
	BackImageURL  string `json:"back_image"`
}

// ZoomAsset is the answer to a zoom request. FrontImageURL is empty unless
// CanView is true.
type ZoomAsset struct {
	CanView       bool   `json:"can_view"`
	FrontImageURL string `json:"front_image,omitempty"`
}

// Rect is the bounding box of the zoom container, in page pixels.
type Rect struct {
	Left, Top, Width, Height float64
}

// Keys handled while the detail popup is open.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyEscape     = "Escape"
)

// Cursor affordances of the zoom container.
const (
	CursorZoomIn  = "zoom-in"
	CursorZoomOut = "zoom-out"
)
