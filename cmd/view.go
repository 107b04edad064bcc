package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/gallery"
	"github.com/lepostier/lepostier/internal/members"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse a running catalog from the terminal",
	Long: `Drives the gallery popups against a running server: search, open a card,
page with the arrows, flip it, zoom, and run cinema mode. Type "help" for
the commands.`,
	RunE: runView,
}

func init() {
	viewCmd.Flags().String("server", "http://localhost:8080", "base URL of the catalog server")
	viewCmd.Flags().String("session", "", "member session token, to browse as a member")
	rootCmd.AddCommand(viewCmd)
}

const viewHelp = `commands:
  search <keywords>   load the grid
  open <n>            open the n-th card of the grid (1-based)
  next | prev         page the detail popup (also ArrowRight / ArrowLeft)
  flip                show the other side
  zoom                open the zoom viewer of the current card
  click               toggle zoom magnification
  move <x> <y>        move the zoom origin inside a 100x100 box
  members             show the membership prompt
  cinema              start the slideshow over the grid
  close               close every popup
  escape | esc        close every popup while a card is open
  quit`

// viewSession is one terminal browsing session.
type viewSession struct {
	ctrl    *gallery.Controller
	fetcher *gallery.HTTPFetcher
	out     io.Writer
	grid    []gallery.PostcardSummary

	mu sync.Mutex
}

func (v *viewSession) render(s gallery.State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	gallery.Render(v.out, s)
}

func runView(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("server")
	session, _ := cmd.Flags().GetString("session")

	v := &viewSession{fetcher: gallery.NewHTTPFetcher(base), out: os.Stdout}
	if session != "" {
		v.fetcher.Cookies = []*http.Cookie{{Name: members.SessionCookie, Value: session}}
	}
	v.ctrl = gallery.NewController(v.fetcher, gallery.WithObserver(v.render))
	defer v.ctrl.CloseAll()

	fmt.Fprintln(v.out, viewHelp)
	prompt := promptui.Prompt{Label: "gallery"}
	for {
		line, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := v.exec(cmd.Context(), line)
		if err != nil {
			fmt.Fprintf(v.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (v *viewSession) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(v.out, viewHelp)
	case "search":
		items, err := v.fetcher.Search(ctx, arg)
		if err != nil {
			return false, err
		}
		v.grid = items
		for i, p := range items {
			fmt.Fprintf(v.out, "%3d. N°%s %s\n", i+1, p.Number, p.Title)
		}
		fmt.Fprintf(v.out, "%d cards\n", len(items))
	case "open":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("open needs a grid position")
		}
		return false, v.ctrl.OpenFromGrid(ctx, v.grid, n-1)
	case "next", "arrowright":
		if !v.ctrl.HandleKey(gallery.KeyArrowRight) {
			return false, errors.New("no card is open")
		}
	case "prev", "arrowleft":
		if !v.ctrl.HandleKey(gallery.KeyArrowLeft) {
			return false, errors.New("no card is open")
		}
	case "flip":
		v.ctrl.ToggleSide()
	case "zoom":
		p, ok := v.ctrl.State().Nav.Current()
		if !ok {
			return false, errors.New("no card is open")
		}
		return false, v.ctrl.OpenZoom(ctx, p.ID)
	case "click":
		v.ctrl.ZoomClick()
	case "move":
		if len(fields) != 3 {
			return false, errors.New("move needs x and y")
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return false, errors.New("move needs numbers")
		}
		v.ctrl.ZoomMove(x, y, gallery.Rect{Width: 100, Height: 100})
	case "members":
		v.ctrl.ShowMembershipPrompt()
	case "cinema":
		if len(v.grid) == 0 {
			return false, errors.New("search first")
		}
		return false, v.ctrl.StartCinema(len(v.grid))
	case "escape", "esc":
		if !v.ctrl.HandleKey(gallery.KeyEscape) {
			return false, errors.New("no card is open")
		}
	case "close":
		v.ctrl.CloseAll()
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}
