package live

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/shipscope/shipscope/internal/models"
)

// Sender delivers one event to a single connection. Implementations must
// not block: the hub calls Send while holding its lock.
type Sender interface {
	Send(ev OutEvent)
}

// Hub is the connection registry and broadcaster. It owns the LiveUser
// records exclusively: created on join, mutated only by events from the
// owning connection, removed on disconnect. A single mutex guards both
// tables; handlers for one connection run sequentially in its read loop,
// so per-connection event order is preserved.
type Hub struct {
	mu      sync.Mutex
	senders map[string]Sender
	users   map[string]*models.LiveUser

	now func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		senders: map[string]Sender{},
		users:   map[string]*models.LiveUser{},
		now:     time.Now,
	}
}

// Register adds a connection. No presence record exists until it joins.
func (h *Hub) Register(id string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.senders[id] = s
}

// Join creates the presence record, sends the full snapshot back to the
// joining connection and announces the newcomer to everyone else.
func (h *Hub) Join(id, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	user := &models.LiveUser{
		ID:       id,
		Username: username,
		Avatar:   avatarURL(username),
	}
	h.users[id] = user

	if s, ok := h.senders[id]; ok {
		s.Send(OutEvent{Event: EventCurrentUsers, Data: h.snapshotLocked()})
	}
	h.broadcastLocked(OutEvent{Event: EventUserJoined, Data: *user}, id)
}

// UpdateLocation mutates the sender's record in place and tells everyone
// else. Location updates before join are dropped.
func (h *Hub) UpdateLocation(id string, lat, lon float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	user, ok := h.users[id]
	if !ok {
		return
	}
	user.Latitude = &lat
	user.Longitude = &lon
	h.broadcastLocked(OutEvent{Event: EventLocationReceived, Data: *user}, id)
}

// Chat delivers to every connection, the sender included. A sender that
// never joined gets the placeholder identity.
func (h *Hub) Chat(id, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	user := models.LiveUser{Username: "Unknown", Avatar: ""}
	if u, ok := h.users[id]; ok {
		user = *u
	}
	h.broadcastLocked(OutEvent{Event: EventChatMessageReceived, Data: models.ChatMessage{
		User:      user,
		Message:   message,
		Timestamp: h.now().UTC(),
	}}, "")
}

// Disconnect removes the connection; registered viewers learn the
// departing id only if the connection had joined.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.senders, id)
	if _, ok := h.users[id]; !ok {
		return
	}
	delete(h.users, id)
	h.broadcastLocked(OutEvent{Event: EventUserDisconnected, Data: id}, "")
}

// BroadcastTrackingUpdate pushes a freshly fetched result to every
// connection. Cache hits never reach here.
func (h *Hub) BroadcastTrackingUpdate(res models.TrackingResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked(OutEvent{Event: EventTrackingUpdate, Data: res}, "")
}

// Users returns a copy of the current presence snapshot.
func (h *Hub) Users() []models.LiveUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() []models.LiveUser {
	out := make([]models.LiveUser, 0, len(h.users))
	for _, u := range h.users {
		out = append(out, *u)
	}
	return out
}

// broadcastLocked sends to every registered connection except skipID
// (empty skipID means everyone).
func (h *Hub) broadcastLocked(ev OutEvent, skipID string) {
	for id, s := range h.senders {
		if id == skipID {
			continue
		}
		s.Send(ev)
	}
}

func avatarURL(username string) string {
	return fmt.Sprintf("https://i.pravatar.cc/150?u=%s", url.QueryEscape(username))
}
