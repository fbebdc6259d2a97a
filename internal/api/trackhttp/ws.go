package trackhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shipscope/shipscope/internal/live"
)

// wsConn adapts one websocket to live.Sender. Outbound events go through
// a buffered channel drained by a single writer goroutine; when the buffer
// is full the event is dropped rather than blocking the hub.
type wsConn struct {
	ws   *websocket.Conn
	send chan live.OutEvent
	done chan struct{}
	once sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan live.OutEvent, 64),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(ev live.OutEvent) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		slog.Warn("dropping event for slow connection", "event", ev.Event)
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case ev := <-c.send:
			if err := c.ws.WriteJSON(ev); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade", "error", err.Error())
		return
	}

	id := a.newID()
	conn := newWSConn(ws)
	a.hub.Register(id, conn)
	go conn.writeLoop()

	defer func() {
		a.hub.Disconnect(id)
		conn.close()
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var env live.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			conn.Send(live.OutEvent{Event: live.EventError, Data: "malformed event"})
			continue
		}
		a.dispatch(id, conn, env)
	}
}

func (a *API) dispatch(id string, conn *wsConn, env live.Envelope) {
	switch env.Event {
	case live.EventJoin:
		var p live.JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || strings.TrimSpace(p.Username) == "" {
			conn.Send(live.OutEvent{Event: live.EventError, Data: "username is required"})
			return
		}
		a.hub.Join(id, strings.TrimSpace(p.Username))

	case live.EventLocationUpdate:
		var p live.LocationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Latitude == nil || p.Longitude == nil {
			conn.Send(live.OutEvent{Event: live.EventError, Data: "latitude and longitude are required"})
			return
		}
		if *p.Latitude < -90 || *p.Latitude > 90 || *p.Longitude < -180 || *p.Longitude > 180 {
			conn.Send(live.OutEvent{Event: live.EventError, Data: "coordinates out of range"})
			return
		}
		a.hub.UpdateLocation(id, *p.Latitude, *p.Longitude)

	case live.EventChatMessage:
		var p live.ChatPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Message == "" {
			conn.Send(live.OutEvent{Event: live.EventError, Data: "message is required"})
			return
		}
		a.hub.Chat(id, p.Message)

	default:
		conn.Send(live.OutEvent{Event: live.EventError, Data: "unknown event: " + env.Event})
	}
}
