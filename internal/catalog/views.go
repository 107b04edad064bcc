package catalog

import "html/template"

// DefaultMemberCardURL replaces every image of a card the visitor may not see.
const DefaultMemberCardURL = "/static/images/Carte_Membre_4.jpeg"

// restrictedDescription is shown instead of a hidden card's description.
const restrictedDescription = "Carte réservée aux membres"

// Detail is the payload of the detail popup.
type Detail struct {
	ID              int64         `json:"id"`
	Number          string        `json:"number"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DescriptionHTML template.HTML `json:"description_html"`
	Keywords        string        `json:"keywords"`
	Rarity          Rarity        `json:"rarity"`
	FrontImage      string        `json:"front_image"`
	BackImage       string        `json:"back_image"`
	ImageSet
	LikesCount   int  `json:"likes_count"`
	HasLiked     bool `json:"has_liked"`
	IsRestricted bool `json:"is_restricted"`
}

// Summary is one card of a search result grid.
type Summary struct {
	ID           int64  `json:"id"`
	Number       string `json:"number"`
	Title        string `json:"title"`
	Rarity       Rarity `json:"rarity"`
	VignetteURL  string `json:"vignette_url"`
	FrontImage   string `json:"front_image"`
	BackImage    string `json:"back_image"`
	LikesCount   int    `json:"likes_count"`
	HasLiked     bool   `json:"has_liked"`
	IsRestricted bool   `json:"is_restricted"`
}

// Zoom is the answer of the zoom endpoint. Image URLs are only filled in
// when CanView is true.
type Zoom struct {
	CanView    bool   `json:"can_view"`
	FrontImage string `json:"front_image,omitempty"`
	ZoomURL    string `json:"zoom_url"`
	GrandeURL  string `json:"grande_url"`
}

// Presenter turns stored postcards into what the browse page shows,
// hiding restricted cards behind the member card.
type Presenter struct {
	Media         *Resolver
	MemberCardURL string
}

func (pr *Presenter) memberCard() string {
	if pr.MemberCardURL == "" {
		return DefaultMemberCardURL
	}
	return pr.MemberCardURL
}

// Detail builds the detail popup payload for v.
func (pr *Presenter) Detail(p Postcard, v Viewer, hasLiked bool) Detail {
	d := Detail{
		ID:         p.ID,
		Number:     p.Number,
		Title:      p.Title,
		Rarity:     p.Rarity,
		LikesCount: p.LikesCount,
		HasLiked:   hasLiked,
	}
	if !CanView(v, p) {
		card := pr.memberCard()
		d.Description = restrictedDescription
		d.DescriptionHTML = DescriptionHTML(restrictedDescription)
		d.ImageSet = ImageSet{Vignette: card, Grande: card, Dos: card, Zoom: card, Animated: []string{}}
		d.FrontImage, d.BackImage = card, card
		d.IsRestricted = true
		return d
	}

	d.Description = p.Description
	d.DescriptionHTML = DescriptionHTML(p.Description)
	d.Keywords = p.Keywords
	d.ImageSet = pr.Media.Images(p)
	d.FrontImage = d.Grande
	d.BackImage = d.Dos
	return d
}

// Summary builds a grid entry for v.
func (pr *Presenter) Summary(p Postcard, v Viewer, hasLiked bool) Summary {
	s := Summary{
		ID:         p.ID,
		Number:     p.Number,
		Title:      p.Title,
		Rarity:     p.Rarity,
		LikesCount: p.LikesCount,
		HasLiked:   hasLiked,
	}
	if !CanView(v, p) {
		card := pr.memberCard()
		s.VignetteURL, s.FrontImage, s.BackImage = card, card, card
		s.IsRestricted = true
		return s
	}
	s.VignetteURL = pr.Media.VignetteURL(p)
	s.FrontImage = pr.Media.GrandeURL(p)
	s.BackImage = pr.Media.DosURL(p)
	return s
}

// Zoom builds the zoom answer for v.
func (pr *Presenter) Zoom(p Postcard, v Viewer) Zoom {
	if !CanView(v, p) {
		return Zoom{}
	}
	zoom := pr.Media.ZoomURL(p)
	return Zoom{
		CanView:    true,
		FrontImage: zoom,
		ZoomURL:    zoom,
		GrandeURL:  pr.Media.GrandeURL(p),
	}
}
