package gallery

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a plain-text picture of the visible layers to w. It is what
// the terminal viewer prints after every transition.
func Render(w io.Writer, s State) error {
	var b strings.Builder

	if !s.Popups.AnyVisible() {
		b.WriteString("(no popup open)\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	var layers []string
	for _, id := range AllPopups {
		if s.Popups.Visible(id) {
			layers = append(layers, string(id))
		}
	}
	fmt.Fprintf(&b, "layers: %s\n", strings.Join(layers, ", "))

	if s.Popups.Detail {
		d := s.Detail
		left, right := " ", " "
		if d.LeftArrow {
			left = "<"
		}
		if d.RightArrow {
			right = ">"
		}
		fmt.Fprintf(&b, "%s [%d/%d] N°%s %s (%s) %s\n",
			left, s.Nav.CurrentIndex+1, len(s.Nav.Items),
			d.Postcard.Number, d.Postcard.Title, d.Side, right)
		fmt.Fprintf(&b, "  image: %s\n", orDash(d.ImageURL()))
	}

	if s.Popups.Zoom {
		z := s.Zoom
		fmt.Fprintf(&b, "zoom: %s cursor=%s origin=%.0f%% %.0f%%\n",
			orDash(z.ImageURL), z.Interaction.Cursor(), z.Interaction.OriginX, z.Interaction.OriginY)
	}

	if s.Popups.NonMember {
		b.WriteString("members only: this card is reserved to members of the association\n")
	}

	if s.Popups.Slider {
		fmt.Fprintf(&b, "cinema: slide %d/%d\n", s.Cinema.Active+1, s.Cinema.Count)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
