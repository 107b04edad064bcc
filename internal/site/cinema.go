package site

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lepostier/lepostier/internal/gallery"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

// cinemaMessage is both directions of the cinema socket. The server sends
// "start" and "slide"; the client may send "restart" or "stop".
type cinemaMessage struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	ID    int64  `json:"id,omitempty"`
	Count int    `json:"count,omitempty"`
}

// parseIDs reads the comma separated ids query parameter, keeping at most
// max ids.
func parseIDs(raw string, max int) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids
}

func (s *Site) handleCinema(w http.ResponseWriter, r *http.Request) {
	ids := parseIDs(r.URL.Query().Get("ids"), s.opts.SlideshowSize)
	if len(ids) == 0 {
		http.Error(w, `{"error":"ids required"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("site: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Only the latest slide matters: a slow client skips ticks rather than
	// queueing them.
	ticks := make(chan int, 1)
	slides := gallery.NewSlideshow(s.opts.Clock, s.opts.SlideInterval, func(active int) {
		select {
		case ticks <- active:
		default:
			select {
			case <-ticks:
			default:
			}
			select {
			case ticks <- active:
			default:
			}
		}
	})
	defer slides.Stop()

	controls := make(chan string)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("site: cinema read: %v", err)
				}
				return
			}
			var m cinemaMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			select {
			case controls <- m.Type:
			case <-quit:
				return
			}
		}
	}()

	send := func(m cinemaMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); err != nil {
			log.Printf("site: cinema write: %v", err)
			return false
		}
		return true
	}

	start := func() bool {
		if err := slides.Start(len(ids)); err != nil {
			return false
		}
		return send(cinemaMessage{Type: "start", Index: 0, ID: ids[0], Count: len(ids)})
	}
	if !start() {
		return
	}

	for {
		select {
		case <-done:
			return
		case active := <-ticks:
			if !send(cinemaMessage{Type: "slide", Index: active, ID: ids[active]}) {
				return
			}
		case ctl := <-controls:
			switch ctl {
			case "restart":
				if !start() {
					return
				}
			case "stop":
				slides.Stop()
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
		}
	}
}
