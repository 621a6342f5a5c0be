package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskchat/pkg/metrics"
)

const evictSweepEvery = 30 * time.Second

// Hub orchestrates session lifecycle: joins, chat messages, leaves and
// disconnects. All room/history mutation funnels through the Table it owns.
type Hub struct {
	log   *slog.Logger
	table *Table
	bcast *Broadcaster
}

func NewHub(logger *slog.Logger, table *Table) *Hub {
	return &Hub{log: logger, table: table, bcast: NewBroadcaster(table)}
}

// Run evicts idle rooms when idleTTL > 0; with 0 (the default) empty rooms
// and their history are kept for the life of the process
func (h *Hub) Run(ctx context.Context, idleTTL time.Duration) {
	if idleTTL <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(evictSweepEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := h.table.EvictIdle(idleTTL); n > 0 {
				h.log.Info("room.evicted", "count", n)
				metrics.RoomsActive.Set(float64(h.table.RoomCount()))
			}
		case <-ctx.Done():
			return
		}
	}
}

// ServeWS handles a new /ws connection: upgrade, read loop, teardown
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ws, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	c := NewConn(ws)
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	go c.WriteLoop(ctx)

	for {
		payload, ok := c.Read(ctx)
		if !ok {
			break
		}
		h.dispatch(c, payload)
	}

	h.Disconnect(c)
	_ = c.Close()
}

// dispatch decodes one inbound frame and routes it. Malformed or unknown
// frames produce a point-to-point error and never close the socket.
func (h *Hub) dispatch(c *Conn, payload []byte) {
	var ev envelope
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.log.Debug("ws.frame.malformed", "err", err)
		h.sendError(c, "malformed frame")
		return
	}

	switch ev.Type {
	case evJoin:
		h.Join(c, ev.TaskID, deref(ev.User))
	case evMessage:
		h.SendMessage(c, ev.TaskID, deref(ev.Sender), ev.Body, ev.Files)
	case evLeave:
		h.Leave(c, ev.TaskID)
	default:
		h.sendError(c, "unknown event type: "+ev.Type)
	}
}

// Join validates the request, binds the identity to the connection (first
// join wins), registers the membership, announces the joiner to the whole
// room and replays the history snapshot to the joiner only.
func (h *Hub) Join(c *Conn, taskID string, user Identity) {
	if missing := missingFields(taskID, user); len(missing) > 0 {
		h.sendError(c, "invalid join request: missing "+strings.Join(missing, ", "))
		return
	}

	bound := c.BindIdentity(user)
	history := h.table.AddMember(taskID, c, bound)

	h.bcast.Broadcast(taskID, presenceEvent{Type: evUserJoined, TaskID: taskID, User: bound})

	// Point-in-time snapshot, joiner only; not live-updated after delivery
	if frame, err := json.Marshal(historyEvent{Type: evHistory, TaskID: taskID, Messages: history}); err == nil {
		c.send(frame)
	}

	metrics.JoinsTotal.Inc()
	metrics.RoomsActive.Set(float64(h.table.RoomCount()))
	h.log.Debug("room.join", "task", taskID, "auid", bound.AUID)
}

// SendMessage validates the request, appends the message to the room's
// bounded history and fans it out to every current member, sender included.
// Messages are irrevocable: there is no edit or delete.
func (h *Hub) SendMessage(c *Conn, taskID string, sender Identity, body string, files []Attachment) {
	if missing := missingFields(taskID, sender); len(missing) > 0 {
		h.sendError(c, "invalid message request: missing "+strings.Join(missing, ", "))
		return
	}

	m := Message{
		ID:     uuid.NewString(),
		TaskID: taskID,
		Sender: sender,
		Body:   body,
		Files:  files,
		TS:     time.Now().UnixMilli(),
	}

	frame, err := json.Marshal(chatEvent{Type: evChat, Message: m})
	if err != nil {
		h.sendError(c, "could not encode message")
		return
	}

	// Append happens no later than the broadcast, so anyone joining after
	// this send sees the message in their snapshot
	h.table.Publish(taskID, m, frame)
	metrics.MessagesTotal.Inc()
}

// Leave drops a single membership and tells the remaining members
func (h *Hub) Leave(c *Conn, taskID string) {
	if taskID == "" {
		h.sendError(c, "invalid leave request: missing taskId")
		return
	}
	if id, ok := h.table.RemoveMember(taskID, c); ok {
		h.bcast.Broadcast(taskID, presenceEvent{Type: evUserLeft, TaskID: taskID, User: id})
	}
}

// Disconnect removes every membership of the connection and announces the
// departure per affected room. Rooms reaching zero members are kept.
func (h *Hub) Disconnect(c *Conn) {
	left := h.table.RemoveAll(c)
	for taskID, id := range left {
		if id == (Identity{}) {
			id = c.Identity()
		}
		h.bcast.Broadcast(taskID, presenceEvent{Type: evUserLeft, TaskID: taskID, User: id})
		h.log.Debug("room.leave", "task", taskID, "auid", id.AUID)
	}
}

// sendError reports a failure to the originating connection only; errors
// are never broadcast and never terminate the connection
func (h *Hub) sendError(c *Conn, msg string) {
	if frame, err := json.Marshal(errorEvent{Type: evError, Message: msg}); err == nil {
		c.send(frame)
	}
}

func missingFields(taskID string, id Identity) []string {
	var missing []string
	if taskID == "" {
		missing = append(missing, "taskId")
	}
	if id.AUID == "" {
		missing = append(missing, "auid")
	}
	if id.Name == "" {
		missing = append(missing, "name")
	}
	return missing
}

func deref(id *Identity) Identity {
	if id == nil {
		return Identity{}
	}
	return *id
}
